// Package reference translates a Reference or BidirectionalReference's
// relative path specification into an absolute (path, key) target, and
// follows reference chains to their final non-reference element.
package reference

import (
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/grovedberr"
)

// ResolveOnce computes the absolute (targetPath, targetKey) a single
// reference hop points at, given the qualified location (parentPath, key)
// of the reference element itself. parentPath is the subtree the
// reference lives in; key is its key within that subtree.
func ResolveOnce(parentPath [][]byte, key []byte, spec element.ReferencePathSpec) (targetPath [][]byte, targetKey []byte, err error) {
	switch spec.Kind {
	case element.RefAbsolute:
		return splitFull(spec.AbsolutePath)

	case element.RefUpstreamRootHeight:
		n := int(spec.N)
		if n > len(parentPath) {
			return nil, nil, grovedberr.CorruptedPath(
				"reference: upstream-root-height wants %d ancestor segments, parent path has %d", n, len(parentPath))
		}
		return splitFull(concatPaths(parentPath[:n], spec.Append))

	case element.RefUpstreamRootHeightWithParentPathAddition:
		n := int(spec.N)
		if n >= len(parentPath) {
			return nil, nil, grovedberr.CorruptedPath(
				"reference: upstream-root-height-with-parent-path-addition wants segment %d, parent path has %d", n, len(parentPath))
		}
		prefix := concatPaths(parentPath[:n], [][]byte{parentPath[n]})
		return splitFull(concatPaths(prefix, spec.Append))

	case element.RefUpstreamFromElementHeight:
		n := int(spec.N)
		if n > len(parentPath) {
			return nil, nil, grovedberr.CorruptedPath(
				"reference: upstream-from-element-height wants to drop %d segments, parent path has %d", n, len(parentPath))
		}
		return splitFull(concatPaths(parentPath[:len(parentPath)-n], spec.Append))

	case element.RefCousin:
		if len(parentPath) == 0 {
			return nil, nil, grovedberr.CorruptedPath("reference: cousin reference requires a non-empty parent path")
		}
		newParent := concatPaths(parentPath[:len(parentPath)-1], [][]byte{spec.Segment})
		return newParent, append([]byte{}, key...), nil

	case element.RefRemovedCousin:
		segs := spec.Segments
		if len(segs) == 0 || len(segs) > len(parentPath) {
			return nil, nil, grovedberr.CorruptedPath(
				"reference: removed-cousin wants to replace %d tail segments, parent path has %d", len(segs), len(parentPath))
		}
		newParent := concatPaths(parentPath[:len(parentPath)-len(segs)], segs)
		return newParent, append([]byte{}, key...), nil

	case element.RefSibling:
		return append([][]byte{}, parentPath...), append([]byte{}, spec.Segment...), nil

	default:
		return nil, nil, grovedberr.CorruptedCodeExecution("reference: unknown reference kind %d", spec.Kind)
	}
}

// pathSpec extracts the ReferencePathSpec from whichever reference-typed
// element e is. It returns ok=false if e is not a reference.
func pathSpec(e element.Element) (element.ReferencePathSpec, bool) {
	switch r := e.(type) {
	case *element.Reference:
		return r.Path, true
	case *element.BidirectionalReference:
		return r.Path, true
	default:
		return element.ReferencePathSpec{}, false
	}
}

func concatPaths(a, b [][]byte) [][]byte {
	out := make([][]byte, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

func splitFull(full [][]byte) ([][]byte, []byte, error) {
	if len(full) == 0 {
		return nil, nil, grovedberr.CorruptedPath("reference: resolved target path is empty")
	}
	return append([][]byte{}, full[:len(full)-1]...), append([]byte{}, full[len(full)-1]...), nil
}
