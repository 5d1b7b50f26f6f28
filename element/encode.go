package element

import (
	"github.com/dashpay/grovedb-sub005/grovedberr"
)

// maxSerializedFieldLen bounds any single length-prefixed field during
// decode, so a corrupted or adversarial length prefix cannot force an
// unbounded allocation before the rest of the buffer is even examined.
const maxSerializedFieldLen = 1 << 24

// Encode returns e's self-describing, variant-tagged serialized form.
// The format is fixed across versions: every variant begins with its
// Kind byte, followed by variant-specific fields, followed by a
// length-prefixed flags trailer.
func Encode(e Element) ([]byte, error) {
	var buf []byte
	switch t := e.(type) {
	case *Item:
		buf = append(buf, byte(KindItem))
		buf = appendBytes(buf, t.Value)
		return appendBytes(buf, t.ItemFlags), nil

	case *SumItem:
		buf = append(buf, byte(KindSumItem))
		buf = appendVarint(buf, t.Value)
		return appendBytes(buf, t.ItemFlags), nil

	case *ItemWithSumItem:
		buf = append(buf, byte(KindItemWithSumItem))
		buf = appendBytes(buf, t.Value)
		buf = appendVarint(buf, t.SumValue)
		return appendBytes(buf, t.ItemFlags), nil

	case *Reference:
		buf = append(buf, byte(KindReference))
		buf = appendReferencePathSpec(buf, t.Path)
		buf = appendUvarint(buf, uint64(t.MaxHopsHint))
		return appendBytes(buf, t.ItemFlags), nil

	case *BidirectionalReference:
		buf = append(buf, byte(KindBidirectionalReference))
		buf = appendReferencePathSpec(buf, t.Path)
		buf = appendUvarint(buf, uint64(t.MaxHopsHint))
		if t.CascadeOnDelete {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = appendBytes(buf, t.BackwardKey)
		return appendBytes(buf, t.ItemFlags), nil

	case *Tree:
		buf = append(buf, byte(KindTree))
		buf = appendBytes(buf, t.RootKey)
		return appendBytes(buf, t.ItemFlags), nil

	case *SumTree:
		buf = append(buf, byte(KindSumTree))
		buf = appendBytes(buf, t.RootKey)
		buf = appendVarint(buf, t.Sum)
		return appendBytes(buf, t.ItemFlags), nil

	case *BigSumTree:
		buf = append(buf, byte(KindBigSumTree))
		buf = appendBytes(buf, t.RootKey)
		buf = append(buf, t.Sum.Bytes()...)
		return appendBytes(buf, t.ItemFlags), nil

	case *CountTree:
		buf = append(buf, byte(KindCountTree))
		buf = appendBytes(buf, t.RootKey)
		buf = appendUvarint(buf, t.Count)
		return appendBytes(buf, t.ItemFlags), nil

	case *CountSumTree:
		buf = append(buf, byte(KindCountSumTree))
		buf = appendBytes(buf, t.RootKey)
		buf = appendUvarint(buf, t.Count)
		buf = appendVarint(buf, t.Sum)
		return appendBytes(buf, t.ItemFlags), nil

	case *ProvableCountTree:
		buf = append(buf, byte(KindProvableCountTree))
		buf = appendBytes(buf, t.RootKey)
		buf = appendUvarint(buf, t.Count)
		return appendBytes(buf, t.ItemFlags), nil

	case *ProvableCountSumTree:
		buf = append(buf, byte(KindProvableCountSumTree))
		buf = appendBytes(buf, t.RootKey)
		buf = appendUvarint(buf, t.Count)
		buf = appendVarint(buf, t.Sum)
		return appendBytes(buf, t.ItemFlags), nil
	}
	return nil, grovedberr.New(grovedberr.KindCorruptedCodeExecution, "element: Encode given unknown Element implementation")
}

func appendBytes(buf, b []byte) []byte {
	buf = appendUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

func appendSegments(buf []byte, segs [][]byte) []byte {
	buf = appendUvarint(buf, uint64(len(segs)))
	for _, s := range segs {
		buf = appendBytes(buf, s)
	}
	return buf
}

func appendReferencePathSpec(buf []byte, p ReferencePathSpec) []byte {
	buf = append(buf, byte(p.Kind))
	switch p.Kind {
	case RefAbsolute:
		buf = appendSegments(buf, p.AbsolutePath)
	case RefUpstreamRootHeight, RefUpstreamRootHeightWithParentPathAddition, RefUpstreamFromElementHeight:
		buf = appendUvarint(buf, uint64(p.N))
		buf = appendSegments(buf, p.Append)
	case RefCousin:
		buf = appendBytes(buf, p.Segment)
	case RefRemovedCousin:
		buf = appendSegments(buf, p.Segments)
	case RefSibling:
		buf = appendBytes(buf, p.Segment)
	}
	return buf
}
