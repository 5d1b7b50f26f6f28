package element

// FeatureTag is the per-node tag carried into hashing identifying which
// aggregate (if any) this node's subtree accumulates.
type FeatureTag byte

const (
	FeatureBasic FeatureTag = iota
	FeatureSummed
	FeatureBigSummed
	FeatureCounted
	FeatureCountedSummed
	FeatureProvableCounted
	FeatureProvableCountedSummed
)

// FeatureType pairs a FeatureTag with whatever aggregate payload it
// carries. Only ProvableCounted and ProvableCountedSummed fold their
// payload into HashBytes: plain Counted/CountedSummed track count for
// aggregation but exclude it from the hash, so counts can change without
// invalidating proofs over unrelated leaves.
type FeatureType struct {
	Tag    FeatureTag
	Sum    int64
	Count  uint64
	BigSum BigInt128
}

// BindsIntoHash reports whether this feature's payload must be folded into
// HashBytes (true for the ProvableCounted* variants only).
func (f FeatureType) BindsIntoHash() bool {
	return f.Tag == FeatureProvableCounted || f.Tag == FeatureProvableCountedSummed
}

// HashBytes returns the canonical byte encoding of this feature type that
// merk.Node folds into node_hash, per the tag. Non-hash-binding aggregate
// payloads (Summed, Counted, CountedSummed) still contribute their tag
// byte -- so that a SumItem can never hash identically to a plain Item --
// but omit their numeric payload.
func (f FeatureType) HashBytes() []byte {
	switch f.Tag {
	case FeatureBasic:
		return []byte{byte(FeatureBasic)}
	case FeatureSummed:
		return encodeTaggedVarint(FeatureSummed, f.Sum)
	case FeatureBigSummed:
		return append([]byte{byte(FeatureBigSummed)}, f.BigSum.Bytes()...)
	case FeatureCounted, FeatureCountedSummed:
		return []byte{byte(f.Tag)}
	case FeatureProvableCounted:
		return encodeTaggedUvarint(FeatureProvableCounted, f.Count)
	case FeatureProvableCountedSummed:
		buf := []byte{byte(FeatureProvableCountedSummed)}
		buf = appendUvarint(buf, f.Count)
		buf = appendVarint(buf, f.Sum)
		return buf
	}
	return []byte{byte(f.Tag)}
}

func encodeTaggedVarint(tag FeatureTag, v int64) []byte {
	return appendVarint([]byte{byte(tag)}, v)
}

func encodeTaggedUvarint(tag FeatureTag, v uint64) []byte {
	return appendUvarint([]byte{byte(tag)}, v)
}

// appendUvarint appends the standard LEB128 unsigned varint encoding of v.
func appendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// appendVarint zigzag-encodes a signed value then appends it as a uvarint.
func appendVarint(buf []byte, v int64) []byte {
	zz := uint64((v << 1) ^ (v >> 63))
	return appendUvarint(buf, zz)
}
