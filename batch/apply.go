package batch

import (
	"bytes"
	"sort"

	"github.com/dashpay/grovedb-sub005/cache"
	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/merk"
)

// group collects every op targeting keys within one subtree.
type group struct {
	path [][]byte
	ops  []QualifiedGroveDbOp
}

// Apply validates ops, then executes them subtree-by-subtree through c,
// and finally drains c to propagate every touched subtree's new root
// hash up to the database root, which it returns. The caller is
// responsible for committing or rolling back whatever storage
// transaction c was constructed over depending on the returned error.
func Apply(c *cache.Cache, ops []QualifiedGroveDbOp, opts Options) (grovehash.Hash, cost.OperationCost, error) {
	var total cost.OperationCost

	cv, err := validate(c, ops, opts)
	total.AddInPlace(cv)
	if err != nil {
		return grovehash.Null, total, err
	}

	// A subtree created by this same batch may be opened (to hold its own
	// child writes) before its parent's insert of the header has actually
	// been applied, since execution proceeds deepest-path-first. Hint
	// every such header up front so the cache can open it directly
	// instead of reading it back out of the not-yet-written parent.
	for _, op := range ops {
		if op.Kind == InsertOrReplace && op.Element != nil && op.Element.IsAnyTree() {
			c.HintHeader(joinPath(op.Path, op.Key), op.Element)
		}
	}

	groups := map[string]*group{}
	for _, op := range ops {
		k := absPathKey(op.Path)
		g, ok := groups[k]
		if !ok {
			g = &group{path: op.Path}
			groups[k] = g
		}
		g.ops = append(g.ops, op)
	}

	processed := map[string]bool{}
	for {
		key, g := deepestUnprocessed(groups, processed)
		if g == nil {
			break
		}
		processed[key] = true

		c1, err := processGroup(c, groups, g, opts)
		total.AddInPlace(c1)
		if err != nil {
			return grovehash.Null, total, err
		}
	}

	hash, c2, err := c.Drain()
	total.AddInPlace(c2)
	return hash, total, err
}

func deepestUnprocessed(groups map[string]*group, processed map[string]bool) (string, *group) {
	var bestKey string
	var best *group
	for k, g := range groups {
		if processed[k] {
			continue
		}
		if best == nil || len(g.path) > len(best.path) || (len(g.path) == len(best.path) && k < bestKey) {
			bestKey, best = k, g
		}
	}
	return bestKey, best
}

func getOrCreateGroup(groups map[string]*group, path [][]byte) *group {
	k := absPathKey(path)
	g, ok := groups[k]
	if !ok {
		g = &group{path: path}
		groups[k] = g
	}
	return g
}

// processGroup opens g.path's Merk, resolves every op in the group
// (collapsing duplicate keys last-write-wins, evaluating the
// conditional Insert* kinds, and checking non-empty-tree deletion) into
// a single merk.Apply call, and enqueues a DeleteUpTree cascade into the
// parent group if this subtree is now empty.
func processGroup(c *cache.Cache, groups map[string]*group, g *group, opts Options) (cost.OperationCost, error) {
	var total cost.OperationCost

	handle, c1, err := c.GetMerk(g.path)
	total.AddInPlace(c1)
	if err != nil {
		return total, err
	}
	defer handle.Release()
	kind := handle.Tree().Kind()

	merged := map[string]QualifiedGroveDbOp{}
	var keys []string
	for _, op := range g.ops {
		k := string(op.Key)
		if _, seen := merged[k]; !seen {
			keys = append(keys, k)
		}
		merged[k] = op
	}
	sort.Strings(keys)

	var merkOps []merk.Op
	var cascade bool

	for _, k := range keys {
		op := merged[k]
		switch op.Kind {
		case InsertOrReplace:
			mo, c2, err := buildPutOp(c, g, op, kind)
			total.AddInPlace(c2)
			if err != nil {
				return total, err
			}
			merkOps = append(merkOps, mo)

		case InsertIfNotExists:
			_, c2, err := handle.Tree().Get(op.Key)
			total.AddInPlace(c2)
			if err == nil {
				continue
			}
			if grovedberr.KindOf(err) != grovedberr.KindPathKeyNotFound {
				return total, err
			}
			mo, c3, err := buildPutOp(c, g, op, kind)
			total.AddInPlace(c3)
			if err != nil {
				return total, err
			}
			merkOps = append(merkOps, mo)

		case InsertIfChanged:
			enc, err := element.Encode(op.Element)
			if err != nil {
				return total, err
			}
			cur, c2, err := handle.Tree().Get(op.Key)
			total.AddInPlace(c2)
			if err != nil && grovedberr.KindOf(err) != grovedberr.KindPathKeyNotFound {
				return total, err
			}
			if err == nil && bytes.Equal(cur, enc) {
				continue
			}
			ft, err := op.Element.GetFeatureType(kind)
			if err != nil {
				return total, err
			}
			childRoot, c3, err := treeChildRootHash(c, joinPath(g.path, op.Key), op.Element)
			total.AddInPlace(c3)
			if err != nil {
				return total, err
			}
			merkOps = append(merkOps, merk.Op{Key: op.Key, Kind: merk.OpPut, Value: enc, Feature: ft, ChildRootHash: childRoot})

		case Delete, DeleteUpTree:
			cur, c2, err := handle.Tree().Get(op.Key)
			total.AddInPlace(c2)
			if err != nil {
				if grovedberr.KindOf(err) == grovedberr.KindPathKeyNotFound {
					continue
				}
				return total, err
			}
			el, err := element.Decode(cur)
			if err != nil {
				return total, err
			}
			if el.IsAnyTree() {
				childPath := joinPath(g.path, op.Key)
				childHandle, c3, err := c.GetMerk(childPath)
				total.AddInPlace(c3)
				if err != nil {
					return total, err
				}
				nonEmpty := !childHandle.Tree().IsEmpty()
				childHandle.Release()
				if nonEmpty && !opts.AllowDeletingNonEmptyTrees {
					return total, grovedberr.DeletingNonEmptyTree("batch: refusing to delete non-empty subtree %v", childPath)
				}
				c.MarkDeleted(childPath)
			}
			merkOps = append(merkOps, merk.Op{Key: op.Key, Kind: merk.OpDelete})
			if op.Kind == DeleteUpTree {
				cascade = true
			}
		}
	}

	if len(merkOps) > 0 {
		c4, err := handle.Tree().Apply(merkOps)
		total.AddInPlace(c4)
		if err != nil {
			return total, err
		}
	}

	if cascade && len(g.path) > 0 && handle.Tree().IsEmpty() {
		parentPath := g.path[:len(g.path)-1]
		parent := getOrCreateGroup(groups, parentPath)
		parent.ops = append(parent.ops, QualifiedGroveDbOp{
			Path: parentPath,
			Key:  g.path[len(g.path)-1],
			Kind: DeleteUpTree,
		})
	}

	return total, nil
}

func buildPutOp(c *cache.Cache, g *group, op QualifiedGroveDbOp, kind element.Kind) (merk.Op, cost.OperationCost, error) {
	var total cost.OperationCost
	enc, err := element.Encode(op.Element)
	if err != nil {
		return merk.Op{}, total, err
	}
	ft, err := op.Element.GetFeatureType(kind)
	if err != nil {
		return merk.Op{}, total, err
	}
	childRoot, c1, err := treeChildRootHash(c, joinPath(g.path, op.Key), op.Element)
	total.AddInPlace(c1)
	if err != nil {
		return merk.Op{}, total, err
	}
	return merk.Op{Key: op.Key, Kind: merk.OpPut, Value: enc, Feature: ft, ChildRootHash: childRoot}, total, nil
}

// treeChildRootHash returns the child root hash a tree-kind element's
// node must bind into its ValueHash: grovehash.Null when el's RootKey is
// unset (a newly created, still-empty subtree), or the child subtree's
// currently committed root hash otherwise. It is nil, not an error, for
// a non-tree element. A child touched earlier in this same batch (and so
// still dirty in the cache) yields a stale hash here; cache.Drain's
// PutLayered rewrite of this same header, once the child is actually
// committed, supersedes it with the final one.
func treeChildRootHash(c *cache.Cache, childPath [][]byte, el element.Element) (*grovehash.Hash, cost.OperationCost, error) {
	if el == nil || !el.IsAnyTree() {
		return nil, cost.OperationCost{}, nil
	}
	rootKey, _ := element.RootKey(el)
	if len(rootKey) == 0 {
		h := grovehash.Null
		return &h, cost.OperationCost{}, nil
	}
	handle, total, err := c.GetMerk(childPath)
	if err != nil {
		return nil, total, err
	}
	defer handle.Release()
	h, _, _, err := handle.Tree().RootHashKeyAndAggregate()
	if err != nil {
		return nil, total, err
	}
	return &h, total, nil
}
