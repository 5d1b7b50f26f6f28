// Package chunk implements GroveDB's donor/recipient chunk-streaming
// protocol: a donor serialises a Merk subtree as a depth-bounded trunk
// plus further branch chunks for whatever the trunk had to prune, so a
// recipient can replicate a subtree with bounded memory instead of
// pulling it in one pass. See merk.GenerateTrunk/GenerateBranch for the
// tree-walking half of this; this package covers wire framing and the
// replica-side session bookkeeping.
package chunk

import (
	"encoding/binary"

	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/merk"
)

// EncodeOp serializes one merk.ProofOp to its wire form: a kind byte
// followed by whatever payload that kind carries. Trunk and branch
// chunks only ever produce ProofPushKV and ProofPushHash content
// entries (every node within a chunk's depth bound carries its full
// value; nothing is ever included as a bare digest), but EncodeOp
// handles all five ProofOpKind values so the same framing also serves
// merk range-proof streams if a caller chooses to transport those this
// way.
func EncodeOp(op merk.ProofOp) []byte {
	switch op.Kind {
	case merk.ProofPushKV:
		buf := []byte{byte(merk.ProofPushKV)}
		buf = appendLenPrefixed(buf, op.Key)
		buf = appendLenPrefixed(buf, op.Value)
		buf = append(buf, op.ValueHash.Bytes()...)
		buf = appendFeature(buf, op.Feature)
		return buf
	case merk.ProofPushKVDigest:
		buf := []byte{byte(merk.ProofPushKVDigest)}
		buf = appendLenPrefixed(buf, op.Key)
		buf = append(buf, op.ValueHash.Bytes()...)
		buf = appendFeature(buf, op.Feature)
		return buf
	case merk.ProofPushHash:
		buf := []byte{byte(merk.ProofPushHash)}
		return append(buf, op.Hash.Bytes()...)
	case merk.ProofParent:
		return []byte{byte(merk.ProofParent)}
	case merk.ProofChild:
		return []byte{byte(merk.ProofChild)}
	default:
		panic("chunk: unknown ProofOpKind")
	}
}

// DecodeOp reverses EncodeOp.
func DecodeOp(buf []byte) (merk.ProofOp, error) {
	if len(buf) == 0 {
		return merk.ProofOp{}, grovedberr.InvalidProof("chunk: empty op entry")
	}
	kind := merk.ProofOpKind(buf[0])
	rest := buf[1:]
	switch kind {
	case merk.ProofPushKV:
		key, rest, err := readLenPrefixed(rest)
		if err != nil {
			return merk.ProofOp{}, err
		}
		value, rest, err := readLenPrefixed(rest)
		if err != nil {
			return merk.ProofOp{}, err
		}
		valueHash, rest, err := readHash(rest)
		if err != nil {
			return merk.ProofOp{}, err
		}
		feature, _, err := readFeature(rest)
		if err != nil {
			return merk.ProofOp{}, err
		}
		return merk.ProofOp{Kind: merk.ProofPushKV, Key: key, Value: value, ValueHash: valueHash, Feature: feature}, nil

	case merk.ProofPushKVDigest:
		key, rest, err := readLenPrefixed(rest)
		if err != nil {
			return merk.ProofOp{}, err
		}
		valueHash, rest, err := readHash(rest)
		if err != nil {
			return merk.ProofOp{}, err
		}
		feature, _, err := readFeature(rest)
		if err != nil {
			return merk.ProofOp{}, err
		}
		return merk.ProofOp{Kind: merk.ProofPushKVDigest, Key: key, ValueHash: valueHash, Feature: feature}, nil

	case merk.ProofPushHash:
		hash, _, err := readHash(rest)
		if err != nil {
			return merk.ProofOp{}, err
		}
		return merk.ProofOp{Kind: merk.ProofPushHash, Hash: hash}, nil

	case merk.ProofParent:
		return merk.ProofOp{Kind: merk.ProofParent}, nil
	case merk.ProofChild:
		return merk.ProofOp{Kind: merk.ProofChild}, nil

	default:
		return merk.ProofOp{}, grovedberr.InvalidProof("chunk: unknown op kind byte %d", buf[0])
	}
}

func appendLenPrefixed(buf, data []byte) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(len(data)))
	buf = append(buf, tmp[:]...)
	return append(buf, data...)
}

func readLenPrefixed(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, grovedberr.InvalidProof("chunk: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	rest := buf[4:]
	if uint64(len(rest)) < uint64(n) {
		return nil, nil, grovedberr.InvalidProof("chunk: truncated length-prefixed field")
	}
	return rest[:n], rest[n:], nil
}

func readHash(buf []byte) (grovehash.Hash, []byte, error) {
	if len(buf) < grovehash.Size {
		return grovehash.Null, nil, grovedberr.InvalidProof("chunk: truncated hash")
	}
	return grovehash.FromBytes(buf[:grovehash.Size]), buf[grovehash.Size:], nil
}

// appendFeature writes a FeatureType as its tag byte followed by
// whatever aggregate payload that tag carries, wide enough to
// round-trip every variant exactly (unlike HashBytes, which omits
// non-hash-binding payloads since those never affect node_hash).
func appendFeature(buf []byte, f element.FeatureType) []byte {
	buf = append(buf, byte(f.Tag))
	var tmp [8]byte
	switch f.Tag {
	case element.FeatureBasic:
	case element.FeatureSummed:
		binary.BigEndian.PutUint64(tmp[:], uint64(f.Sum))
		buf = append(buf, tmp[:]...)
	case element.FeatureBigSummed:
		buf = append(buf, f.BigSum.Bytes()...)
	case element.FeatureCounted:
		binary.BigEndian.PutUint64(tmp[:], f.Count)
		buf = append(buf, tmp[:]...)
	case element.FeatureCountedSummed:
		binary.BigEndian.PutUint64(tmp[:], f.Count)
		buf = append(buf, tmp[:]...)
		binary.BigEndian.PutUint64(tmp[:], uint64(f.Sum))
		buf = append(buf, tmp[:]...)
	case element.FeatureProvableCounted:
		binary.BigEndian.PutUint64(tmp[:], f.Count)
		buf = append(buf, tmp[:]...)
	case element.FeatureProvableCountedSummed:
		binary.BigEndian.PutUint64(tmp[:], f.Count)
		buf = append(buf, tmp[:]...)
		binary.BigEndian.PutUint64(tmp[:], uint64(f.Sum))
		buf = append(buf, tmp[:]...)
	}
	return buf
}

func readFeature(buf []byte) (element.FeatureType, []byte, error) {
	if len(buf) < 1 {
		return element.FeatureType{}, nil, grovedberr.InvalidProof("chunk: truncated feature tag")
	}
	tag := element.FeatureTag(buf[0])
	rest := buf[1:]
	need := 0
	switch tag {
	case element.FeatureBasic:
		need = 0
	case element.FeatureSummed, element.FeatureCounted, element.FeatureProvableCounted:
		need = 8
	case element.FeatureCountedSummed, element.FeatureProvableCountedSummed:
		need = 16
	case element.FeatureBigSummed:
		need = 16
	default:
		return element.FeatureType{}, nil, grovedberr.InvalidProof("chunk: unknown feature tag %d", buf[0])
	}
	if len(rest) < need {
		return element.FeatureType{}, nil, grovedberr.InvalidProof("chunk: truncated feature payload")
	}
	ft := element.FeatureType{Tag: tag}
	switch tag {
	case element.FeatureSummed:
		ft.Sum = int64(binary.BigEndian.Uint64(rest[:8]))
	case element.FeatureBigSummed:
		ft.BigSum = element.BigInt128FromBytes(rest[:16])
	case element.FeatureCounted:
		ft.Count = binary.BigEndian.Uint64(rest[:8])
	case element.FeatureCountedSummed:
		ft.Count = binary.BigEndian.Uint64(rest[:8])
		ft.Sum = int64(binary.BigEndian.Uint64(rest[8:16]))
	case element.FeatureProvableCounted:
		ft.Count = binary.BigEndian.Uint64(rest[:8])
	case element.FeatureProvableCountedSummed:
		ft.Count = binary.BigEndian.Uint64(rest[:8])
		ft.Sum = int64(binary.BigEndian.Uint64(rest[8:16]))
	}
	return ft, rest[need:], nil
}
