package proof

import (
	"encoding/binary"
	"sort"

	"github.com/dashpay/grovedb-sub005/chunk"
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/version"
)

// EncodeV0 serializes lp into GroveDBProof::V0's wire format: a 2-byte
// format tag, a 1-byte flags field carrying the header-versioned proof
// options named in spec.md's open questions (DecreaseLimitOnEmptySubqueryResult
// and AbsenceProofsForNonExistingSearchedKeys), then the recursive layer tree
// itself. All multi-byte integers are big-endian.
func EncodeV0(lp *LayerProof, opts Options) []byte {
	buf := make([]byte, 0, 64)
	buf = appendUint16(buf, version.ProofFormatV0)
	buf = append(buf, encodeHeaderFlags(opts))
	buf = appendLayer(buf, lp)
	return buf
}

// DecodeV0 reverses EncodeV0, reporting the header-versioned options
// alongside the reconstructed layer tree.
func DecodeV0(data []byte) (*LayerProof, Options, error) {
	if len(data) < 3 {
		return nil, Options{}, grovedberr.InvalidProof("proof: truncated wire header")
	}
	formatTag := binary.BigEndian.Uint16(data[:2])
	if formatTag != version.ProofFormatV0 {
		return nil, Options{}, grovedberr.InvalidProof("proof: unsupported proof format %d", formatTag)
	}
	opts := decodeHeaderFlags(data[2])

	lp, rest, err := decodeLayer(data[3:])
	if err != nil {
		return nil, Options{}, err
	}
	if len(rest) != 0 {
		return nil, Options{}, grovedberr.InvalidProof("proof: trailing bytes after proof tree")
	}
	return lp, opts, nil
}

const (
	flagDecreaseLimitOnEmptySubqueryResult      = 1 << 0
	flagAbsenceProofsForNonExistingSearchedKeys = 1 << 1
)

func encodeHeaderFlags(opts Options) byte {
	var b byte
	if opts.DecreaseLimitOnEmptySubqueryResult {
		b |= flagDecreaseLimitOnEmptySubqueryResult
	}
	if opts.AbsenceProofsForNonExistingSearchedKeys {
		b |= flagAbsenceProofsForNonExistingSearchedKeys
	}
	return b
}

func decodeHeaderFlags(b byte) Options {
	return Options{
		DecreaseLimitOnEmptySubqueryResult:     b&flagDecreaseLimitOnEmptySubqueryResult != 0,
		AbsenceProofsForNonExistingSearchedKeys: b&flagAbsenceProofsForNonExistingSearchedKeys != 0,
	}
}

func appendLayer(buf []byte, lp *LayerProof) []byte {
	buf = appendUint32(buf, uint32(len(lp.MerkProof)))
	for _, op := range lp.MerkProof {
		buf = appendLenPrefixed(buf, chunk.EncodeOp(op))
	}

	keys := make([]string, 0, len(lp.LowerLayers))
	for k := range lp.LowerLayers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf = appendUint32(buf, uint32(len(keys)))
	for _, k := range keys {
		buf = appendLenPrefixed(buf, []byte(k))
		buf = appendLayer(buf, lp.LowerLayers[k])
	}

	buf = appendUint32(buf, uint32(len(lp.AbsentKeys)))
	for _, k := range lp.AbsentKeys {
		buf = appendLenPrefixed(buf, k)
	}
	return buf
}

func decodeLayer(data []byte) (*LayerProof, []byte, error) {
	n, rest, err := readUint32(data)
	if err != nil {
		return nil, nil, err
	}
	lp := &LayerProof{}
	for i := uint32(0); i < n; i++ {
		entry, r, err := readLenPrefixed(rest)
		if err != nil {
			return nil, nil, err
		}
		rest = r
		op, err := chunk.DecodeOp(entry)
		if err != nil {
			return nil, nil, err
		}
		lp.MerkProof = append(lp.MerkProof, op)
	}

	lowerCount, rest2, err := readUint32(rest)
	if err != nil {
		return nil, nil, err
	}
	rest = rest2
	if lowerCount > 0 {
		lp.LowerLayers = make(map[string]*LayerProof, lowerCount)
	}
	for i := uint32(0); i < lowerCount; i++ {
		keyBytes, r, err := readLenPrefixed(rest)
		if err != nil {
			return nil, nil, err
		}
		rest = r
		child, r2, err := decodeLayer(rest)
		if err != nil {
			return nil, nil, err
		}
		rest = r2
		lp.LowerLayers[string(keyBytes)] = child
	}

	absentCount, rest3, err := readUint32(rest)
	if err != nil {
		return nil, nil, err
	}
	rest = rest3
	for i := uint32(0); i < absentCount; i++ {
		keyBytes, r, err := readLenPrefixed(rest)
		if err != nil {
			return nil, nil, err
		}
		rest = r
		lp.AbsentKeys = append(lp.AbsentKeys, keyBytes)
	}

	return lp, rest, nil
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readUint32(buf []byte) (uint32, []byte, error) {
	if len(buf) < 4 {
		return 0, nil, grovedberr.InvalidProof("proof: truncated length field")
	}
	return binary.BigEndian.Uint32(buf[:4]), buf[4:], nil
}

func appendLenPrefixed(buf, data []byte) []byte {
	buf = appendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func readLenPrefixed(buf []byte) ([]byte, []byte, error) {
	n, rest, err := readUint32(buf)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < uint64(n) {
		return nil, nil, grovedberr.InvalidProof("proof: truncated length-prefixed field")
	}
	out := make([]byte, n)
	copy(out, rest[:n])
	return out, rest[n:], nil
}
