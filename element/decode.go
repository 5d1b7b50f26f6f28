package element

import (
	"github.com/dashpay/grovedb-sub005/grovedberr"
)

// Decode parses the self-describing form produced by Encode. Unknown
// leading tags and truncated or over-long length-prefixed fields are
// rejected rather than silently tolerated.
func Decode(buf []byte) (Element, error) {
	if len(buf) == 0 {
		return nil, grovedberr.New(grovedberr.KindCorruptedPath, "element: empty buffer")
	}
	kind := Kind(buf[0])
	rest := buf[1:]

	switch kind {
	case KindItem:
		value, rest, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		flags, _, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		return &Item{Value: value, ItemFlags: flags}, nil

	case KindSumItem:
		v, rest, err := readVarint(rest)
		if err != nil {
			return nil, err
		}
		flags, _, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		return &SumItem{Value: v, ItemFlags: flags}, nil

	case KindItemWithSumItem:
		value, rest, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		sum, rest, err := readVarint(rest)
		if err != nil {
			return nil, err
		}
		flags, _, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		return &ItemWithSumItem{Value: value, SumValue: sum, ItemFlags: flags}, nil

	case KindReference:
		path, rest, err := readReferencePathSpec(rest)
		if err != nil {
			return nil, err
		}
		hops, rest, err := readUvarint(rest)
		if err != nil {
			return nil, err
		}
		flags, _, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		return &Reference{Path: path, MaxHopsHint: uint32(hops), ItemFlags: flags}, nil

	case KindBidirectionalReference:
		path, rest, err := readReferencePathSpec(rest)
		if err != nil {
			return nil, err
		}
		hops, rest, err := readUvarint(rest)
		if err != nil {
			return nil, err
		}
		if len(rest) < 1 {
			return nil, grovedberr.New(grovedberr.KindCorruptedPath, "element: truncated cascade-on-delete byte")
		}
		cascade := rest[0] != 0
		rest = rest[1:]
		backward, rest, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		flags, _, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		return &BidirectionalReference{
			Path: path, MaxHopsHint: uint32(hops), CascadeOnDelete: cascade,
			BackwardKey: backward, ItemFlags: flags,
		}, nil

	case KindTree:
		rootKey, rest, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		flags, _, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		return &Tree{RootKey: rootKey, ItemFlags: flags}, nil

	case KindSumTree:
		rootKey, rest, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		sum, rest, err := readVarint(rest)
		if err != nil {
			return nil, err
		}
		flags, _, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		return &SumTree{RootKey: rootKey, Sum: sum, ItemFlags: flags}, nil

	case KindBigSumTree:
		rootKey, rest, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		if len(rest) < 16 {
			return nil, grovedberr.New(grovedberr.KindCorruptedPath, "element: truncated big-sum field")
		}
		sum := BigInt128FromBytes(rest[:16])
		rest = rest[16:]
		flags, _, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		return &BigSumTree{RootKey: rootKey, Sum: sum, ItemFlags: flags}, nil

	case KindCountTree:
		rootKey, rest, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		count, rest, err := readUvarint(rest)
		if err != nil {
			return nil, err
		}
		flags, _, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		return &CountTree{RootKey: rootKey, Count: count, ItemFlags: flags}, nil

	case KindCountSumTree:
		rootKey, rest, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		count, rest, err := readUvarint(rest)
		if err != nil {
			return nil, err
		}
		sum, rest, err := readVarint(rest)
		if err != nil {
			return nil, err
		}
		flags, _, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		return &CountSumTree{RootKey: rootKey, Count: count, Sum: sum, ItemFlags: flags}, nil

	case KindProvableCountTree:
		rootKey, rest, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		count, rest, err := readUvarint(rest)
		if err != nil {
			return nil, err
		}
		flags, _, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		return &ProvableCountTree{RootKey: rootKey, Count: count, ItemFlags: flags}, nil

	case KindProvableCountSumTree:
		rootKey, rest, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		count, rest, err := readUvarint(rest)
		if err != nil {
			return nil, err
		}
		sum, rest, err := readVarint(rest)
		if err != nil {
			return nil, err
		}
		flags, _, err := readBytes(rest)
		if err != nil {
			return nil, err
		}
		return &ProvableCountSumTree{RootKey: rootKey, Count: count, Sum: sum, ItemFlags: flags}, nil
	}

	return nil, grovedberr.New(grovedberr.KindCorruptedPath, "element: unknown element tag")
}

func readUvarint(buf []byte) (uint64, []byte, error) {
	var v uint64
	var shift uint
	for i, b := range buf {
		if shift >= 64 {
			return 0, nil, grovedberr.New(grovedberr.KindCorruptedPath, "element: uvarint overflow")
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return v, buf[i+1:], nil
		}
		shift += 7
	}
	return 0, nil, grovedberr.New(grovedberr.KindCorruptedPath, "element: truncated uvarint")
}

func readVarint(buf []byte) (int64, []byte, error) {
	zz, rest, err := readUvarint(buf)
	if err != nil {
		return 0, nil, err
	}
	v := int64(zz>>1) ^ -int64(zz&1)
	return v, rest, nil
}

func readBytes(buf []byte) ([]byte, []byte, error) {
	n, rest, err := readUvarint(buf)
	if err != nil {
		return nil, nil, err
	}
	if n > maxSerializedFieldLen {
		return nil, nil, grovedberr.New(grovedberr.KindCorruptedPath, "element: length-prefixed field exceeds maximum")
	}
	if uint64(len(rest)) < n {
		return nil, nil, grovedberr.New(grovedberr.KindCorruptedPath, "element: truncated length-prefixed field")
	}
	if n == 0 {
		return nil, rest, nil
	}
	out := make([]byte, n)
	copy(out, rest[:n])
	return out, rest[n:], nil
}

func readSegments(buf []byte) ([][]byte, []byte, error) {
	n, rest, err := readUvarint(buf)
	if err != nil {
		return nil, nil, err
	}
	if n > maxSerializedFieldLen {
		return nil, nil, grovedberr.New(grovedberr.KindCorruptedPath, "element: segment count exceeds maximum")
	}
	segs := make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		var s []byte
		s, rest, err = readBytes(rest)
		if err != nil {
			return nil, nil, err
		}
		segs = append(segs, s)
	}
	return segs, rest, nil
}

func readReferencePathSpec(buf []byte) (ReferencePathSpec, []byte, error) {
	if len(buf) < 1 {
		return ReferencePathSpec{}, nil, grovedberr.New(grovedberr.KindCorruptedPath, "element: truncated reference kind")
	}
	kind := ReferenceKind(buf[0])
	rest := buf[1:]
	var spec ReferencePathSpec
	spec.Kind = kind

	switch kind {
	case RefAbsolute:
		segs, r, err := readSegments(rest)
		if err != nil {
			return ReferencePathSpec{}, nil, err
		}
		spec.AbsolutePath = segs
		rest = r

	case RefUpstreamRootHeight, RefUpstreamRootHeightWithParentPathAddition, RefUpstreamFromElementHeight:
		n, r, err := readUvarint(rest)
		if err != nil {
			return ReferencePathSpec{}, nil, err
		}
		spec.N = uint32(n)
		segs, r2, err := readSegments(r)
		if err != nil {
			return ReferencePathSpec{}, nil, err
		}
		spec.Append = segs
		rest = r2

	case RefCousin:
		seg, r, err := readBytes(rest)
		if err != nil {
			return ReferencePathSpec{}, nil, err
		}
		spec.Segment = seg
		rest = r

	case RefRemovedCousin:
		segs, r, err := readSegments(rest)
		if err != nil {
			return ReferencePathSpec{}, nil, err
		}
		spec.Segments = segs
		rest = r

	case RefSibling:
		seg, r, err := readBytes(rest)
		if err != nil {
			return ReferencePathSpec{}, nil, err
		}
		spec.Segment = seg
		rest = r

	default:
		return ReferencePathSpec{}, nil, grovedberr.New(grovedberr.KindCorruptedPath, "element: unknown reference kind")
	}

	return spec, rest, nil
}
