package batch

import (
	"github.com/dashpay/grovedb-sub005/cache"
	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/grovedberr"
)

// validate runs every structural check describable without opening a
// subtree's Merk: intervening-subtree existence, scalar/subtree type
// conflicts within the batch itself, the empty-path root-element rule,
// and writes into a path this same batch deletes. Non-empty-tree
// deletion is checked separately during execution, where the subtree's
// actual emptiness is cheaply known.
func validate(c *cache.Cache, ops []QualifiedGroveDbOp, opts Options) (cost.OperationCost, error) {
	var total cost.OperationCost

	created := map[string]bool{}  // absPathKey of subtree paths this batch inserts as a tree
	scalars := map[string]bool{}  // absPathKey of subtree paths this batch inserts as a non-tree
	deleted := map[string][][]byte{} // absPathKey of subtree paths this batch deletes -> the path itself

	for _, op := range ops {
		if len(op.Path) == 0 && len(op.Key) == 0 {
			if op.Element == nil || !op.Element.IsAnyTree() {
				return total, grovedberr.InvalidBatchOperation("batch: cannot insert a non-tree element at the empty path")
			}
		}

		full := joinPath(op.Path, op.Key)
		switch op.Kind {
		case InsertOrReplace, InsertIfNotExists, InsertIfChanged:
			if op.Element != nil && op.Element.IsAnyTree() {
				created[absPathKey(full)] = true
			} else {
				scalars[absPathKey(full)] = true
			}
		case Delete, DeleteUpTree:
			deleted[absPathKey(full)] = full
		}
	}

	for _, op := range ops {
		if scalars[absPathKey(op.Path)] {
			return total, grovedberr.InvalidBatchOperation(
				"batch: %v is inserted as a scalar elsewhere in this batch but is used as a subtree path here", op.Path)
		}

		ok, c1, err := existsOrCreated(c, op.Path, created)
		total.AddInPlace(c1)
		if err != nil {
			return total, err
		}
		if !ok {
			return total, grovedberr.PathNotFound(
				"batch: intervening subtree %v does not exist and has no explicit insert in this batch", op.Path)
		}
	}

	for _, deadPath := range deleted {
		for _, op := range ops {
			if op.Kind == Delete || op.Kind == DeleteUpTree {
				continue
			}
			if len(op.Path) >= len(deadPath) && hasPrefix(op.Path, deadPath) {
				return total, grovedberr.InvalidBatchOperation(
					"batch: %v is deleted by this batch but %v writes into it", deadPath, op.Path)
			}
		}
	}

	return total, nil
}

// existsOrCreated reports whether path is safe to use as an
// intervening subtree: either this batch inserts a tree header at path,
// or one is already durable in storage.
func existsOrCreated(c *cache.Cache, path [][]byte, created map[string]bool) (bool, cost.OperationCost, error) {
	if len(path) == 0 {
		return true, cost.OperationCost{}, nil
	}
	if created[absPathKey(path)] {
		return true, cost.OperationCost{}, nil
	}
	return c.Exists(path)
}
