package chunk

import (
	"encoding/binary"

	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/merk"
)

// Chunk is everything a donor sends for one trunk or branch request: the
// operator stream proving the chunk's own content, and the boundary
// list describing every position the walk had to prune instead of
// describing further. merk's own ProofOp wire type deliberately omits a
// key on its Hash variant (a range-proof verifier only ever needs the
// hash to recombine with its siblings), so a chunk transports the
// pruned keys separately here: that is exactly the information a
// state-sync recipient needs to ask for the next branch.
type Chunk struct {
	Ops        []merk.ProofOp
	Boundaries []merk.TrunkBoundary
}

// Serialize frames a Chunk into a single blob: one length-framed
// sequence of encoded ops, followed by one length-framed sequence of
// encoded boundaries.
func (c Chunk) Serialize() []byte {
	opEntries := make([][]byte, len(c.Ops))
	for i, op := range c.Ops {
		opEntries[i] = EncodeOp(op)
	}
	boundaryEntries := make([][]byte, len(c.Boundaries))
	for i, b := range c.Boundaries {
		boundaryEntries[i] = encodeBoundary(b)
	}

	opsBlob := serializeChunkBlob(opEntries)
	boundariesBlob := serializeChunkBlob(boundaryEntries)

	out := make([]byte, 0, 8+len(opsBlob)+len(boundariesBlob))
	out = appendUint32(out, uint32(len(opsBlob)))
	out = append(out, opsBlob...)
	out = appendUint32(out, uint32(len(boundariesBlob)))
	out = append(out, boundariesBlob...)
	return out
}

// Deserialize reverses Serialize.
func Deserialize(data []byte) (Chunk, error) {
	if len(data) < 4 {
		return Chunk{}, grovedberr.InvalidProof("chunk: truncated envelope")
	}
	opsLen := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint64(len(data)) < uint64(opsLen) {
		return Chunk{}, grovedberr.InvalidProof("chunk: truncated ops blob")
	}
	opsBlob := data[:opsLen]
	data = data[opsLen:]

	if len(data) < 4 {
		return Chunk{}, grovedberr.InvalidProof("chunk: truncated envelope after ops blob")
	}
	boundariesLen := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint64(len(data)) < uint64(boundariesLen) {
		return Chunk{}, grovedberr.InvalidProof("chunk: truncated boundaries blob")
	}
	boundariesBlob := data[:boundariesLen]

	opEntries, err := deserializeChunkBlob(opsBlob)
	if err != nil {
		return Chunk{}, err
	}
	boundaryEntries, err := deserializeChunkBlob(boundariesBlob)
	if err != nil {
		return Chunk{}, err
	}

	ops := make([]merk.ProofOp, len(opEntries))
	for i, e := range opEntries {
		op, err := DecodeOp(e)
		if err != nil {
			return Chunk{}, err
		}
		ops[i] = op
	}
	boundaries := make([]merk.TrunkBoundary, len(boundaryEntries))
	for i, e := range boundaryEntries {
		b, err := decodeBoundary(e)
		if err != nil {
			return Chunk{}, err
		}
		boundaries[i] = b
	}

	return Chunk{Ops: ops, Boundaries: boundaries}, nil
}

func encodeBoundary(b merk.TrunkBoundary) []byte {
	buf := appendLenPrefixed(nil, b.Key)
	buf = append(buf, b.Hash.Bytes()...)
	buf = appendUint32(buf, uint32(b.RemainingDepth))
	return buf
}

func decodeBoundary(buf []byte) (merk.TrunkBoundary, error) {
	key, rest, err := readLenPrefixed(buf)
	if err != nil {
		return merk.TrunkBoundary{}, err
	}
	hash, rest, err := readHash(rest)
	if err != nil {
		return merk.TrunkBoundary{}, err
	}
	if len(rest) < 4 {
		return merk.TrunkBoundary{}, grovedberr.InvalidProof("chunk: truncated boundary remaining depth")
	}
	depth := binary.BigEndian.Uint32(rest[:4])
	return merk.TrunkBoundary{Key: key, Hash: hash, RemainingDepth: int(depth)}, nil
}
