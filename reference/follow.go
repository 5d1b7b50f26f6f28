package reference

import (
	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/version"
)

// Loader reads the element stored at (path, key), the same shape every
// caller already has via its subtree cache/Merk lookup.
type Loader func(path [][]byte, key []byte) (element.Element, cost.OperationCost, error)

// Result is the outcome of following a reference chain to its end.
type Result struct {
	Element element.Element
	Path    [][]byte
	Key     []byte
	Hops    int
}

// Follow resolves a reference (or chain of references) starting at the
// reference element ref located at (parentPath, key), returning the
// final non-reference element and the qualified path it was found at.
// Resolution stops after version.MaxReferenceHops hops with
// ReferenceLimitExceeded, and a repeated qualified path within the chain
// (including the starting location) fails with CyclicReference.
func Follow(load Loader, parentPath [][]byte, key []byte, ref element.Element) (Result, cost.OperationCost, error) {
	var total cost.OperationCost

	visited := map[string]struct{}{qualifiedKey(parentPath, key): {}}
	curParent, curKey, curEl := parentPath, key, ref

	for hops := 0; ; hops++ {
		spec, ok := pathSpec(curEl)
		if !ok {
			return Result{Element: curEl, Path: curParent, Key: curKey, Hops: hops}, total, nil
		}
		if hops >= version.MaxReferenceHops {
			return Result{}, total, grovedberr.ReferenceLimitExceeded(
				"reference: chain from %v/%x exceeds %d hops", parentPath, key, version.MaxReferenceHops)
		}

		targetPath, targetKey, err := ResolveOnce(curParent, curKey, spec)
		if err != nil {
			return Result{}, total, err
		}

		qk := qualifiedKey(targetPath, targetKey)
		if _, seen := visited[qk]; seen {
			return Result{}, total, grovedberr.CyclicReference(
				"reference: cycle detected resolving %v/%x, revisits %v/%x", parentPath, key, targetPath, targetKey)
		}
		visited[qk] = struct{}{}

		next, c, err := load(targetPath, targetKey)
		total.AddInPlace(c)
		if err != nil {
			kind := grovedberr.KindOf(err)
			if kind == grovedberr.KindPathKeyNotFound || kind == grovedberr.KindPathNotFound {
				return Result{}, total, grovedberr.CorruptedReferencePathNotFound(
					"reference: target %v/%x not found", targetPath, targetKey)
			}
			return Result{}, total, err
		}

		curParent, curKey, curEl = targetPath, targetKey, next
	}
}

// qualifiedKey encodes a (path, key) pair into a string safe to use as a
// visited-set member: every segment is length-prefixed so no segment's
// contents can be mistaken for a boundary.
func qualifiedKey(path [][]byte, key []byte) string {
	buf := make([]byte, 0, 64)
	for _, seg := range path {
		buf = appendLenPrefixed(buf, seg)
	}
	buf = appendLenPrefixed(buf, key)
	return string(buf)
}

func appendLenPrefixed(buf []byte, b []byte) []byte {
	n := uint64(len(b))
	for n >= 0x80 {
		buf = append(buf, byte(n)|0x80)
		n >>= 7
	}
	buf = append(buf, byte(n))
	return append(buf, b...)
}
