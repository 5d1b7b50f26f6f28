// Package batch applies an ordered list of qualified operations across
// many subtrees as a single atomic unit: it validates referential
// integrity up front, then executes subtree-by-subtree through a
// cache.Cache, letting the cache's deepest-first drain propagate every
// touched subtree's new root hash up to the database root.
package batch

import "github.com/dashpay/grovedb-sub005/element"

// Kind identifies what one QualifiedGroveDbOp does to (path, key).
type Kind byte

const (
	// InsertOrReplace always writes Element, overwriting whatever was there.
	InsertOrReplace Kind = iota
	// InsertIfNotExists writes Element only if the key is currently absent.
	InsertIfNotExists
	// InsertIfChanged writes Element only if it serializes differently from
	// whatever is currently stored at (path, key).
	InsertIfChanged
	// Delete removes (path, key). Deleting a non-empty subtree requires
	// AllowDeletingNonEmptyTrees on the Options passed to Apply.
	Delete
	// DeleteUpTree removes (path, key), then repeatedly removes the
	// enclosing subtree from its own parent as long as each removal leaves
	// the parent subtree empty.
	DeleteUpTree
)

// QualifiedGroveDbOp is one operation in a batch: act on key within the
// subtree at path. Element is meaningful only for the Insert* kinds.
type QualifiedGroveDbOp struct {
	Path    [][]byte
	Key     []byte
	Kind    Kind
	Element element.Element
}

// Options tunes validation behavior for one Apply call.
type Options struct {
	// AllowDeletingNonEmptyTrees permits Delete/DeleteUpTree to remove a
	// key whose current element is a non-empty subtree. Without it, such
	// a delete fails with DeletingNonEmptyTree.
	AllowDeletingNonEmptyTrees bool
}
