// Package cache coalesces repeated access to the same subtree's Merk
// within one batch, and drives layered root-hash propagation up to the
// database root once every subtree touched by the batch has committed.
package cache

import (
	"fmt"
	"sort"

	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/merk"
	"github.com/dashpay/grovedb-sub005/storage"
)

// entry is one cached subtree: its open Merk, the tree-kind it was opened
// as, and (for every subtree but the root) the header element describing
// it in its parent, kept so Drain can rewrite just the RootKey/aggregate
// fields and leave flags untouched.
type entry struct {
	path     [][]byte
	kind     element.Kind
	header   element.Element
	tree     *merk.Tree
	borrowed bool
	deleted  bool
}

// Cache is a per-batch subtree cache scoped to one Storage and optional
// Transaction. It is not safe for concurrent use; a GroveDB batch owns
// exactly one Cache for its lifetime.
type Cache struct {
	store    storage.Storage
	txn      storage.Transaction
	rootKind element.Kind
	entries  map[string]*entry
	hints    map[string]element.Element
}

// New creates an empty Cache. rootKind is the tree-type the database root
// subtree is opened as (ordinarily element.KindTree).
func New(store storage.Storage, txn storage.Transaction, rootKind element.Kind) *Cache {
	return &Cache{
		store:    store,
		txn:      txn,
		rootKind: rootKind,
		entries:  make(map[string]*entry),
		hints:    make(map[string]element.Element),
	}
}

// HintHeader tells the cache what header element a not-yet-existing
// subtree at path is about to be given, so a later ensure(path) can open
// it without first reading that header back out of its parent's Merk.
// Callers that create a new subtree and write into it within the same
// batch must call this before touching the child path, since the
// parent's insert of the header may not yet be applied when the child
// is opened.
func (c *Cache) HintHeader(path [][]byte, header element.Element) {
	c.hints[pathKey(path)] = header
}

// Handle is a borrowed, mutable reference to one cached subtree's Merk.
// Callers must Release it before requesting a handle on an ancestor path,
// per the single-mutable-handle-per-path discipline.
type Handle struct {
	cache *Cache
	key   string
	path  [][]byte
}

// Tree returns the underlying Merk for this handle.
func (h *Handle) Tree() *merk.Tree { return h.cache.entries[h.key].tree }

// Path returns the subtree path this handle was opened for.
func (h *Handle) Path() [][]byte { return h.path }

// Release ends this borrow, allowing a future GetMerk call for the same
// path to succeed.
func (h *Handle) Release() {
	if e, ok := h.cache.entries[h.key]; ok {
		e.borrowed = false
	}
}

// GetMerk returns a Handle on the subtree at path, opening and caching it
// if this is the first request for path in the Cache's lifetime. Calling
// GetMerk again for a path whose Handle has not been Released panics: a
// correct caller always Releases before asking for an ancestor.
func (c *Cache) GetMerk(path [][]byte) (*Handle, cost.OperationCost, error) {
	e, total, err := c.ensure(path)
	if err != nil {
		return nil, total, err
	}
	if e.borrowed {
		panic(fmt.Sprintf("cache: reentrant mutable borrow of subtree %v", path))
	}
	e.borrowed = true
	return &Handle{cache: c, key: pathKey(path), path: e.path}, total, nil
}

// Exists reports whether the subtree at path already has a header
// element recorded in its parent (the root always exists conceptually).
// Unlike GetMerk/ensure, a missing header is reported as ok=false rather
// than an error, since callers use this to decide whether a batch must
// supply an explicit insert for path before touching it.
func (c *Cache) Exists(path [][]byte) (bool, cost.OperationCost, error) {
	if len(path) == 0 {
		return true, cost.OperationCost{}, nil
	}
	if _, ok := c.entries[pathKey(path)]; ok {
		return true, cost.OperationCost{}, nil
	}
	if _, ok := c.hints[pathKey(path)]; ok {
		return true, cost.OperationCost{}, nil
	}
	parent, total, err := c.ensure(path[:len(path)-1])
	if err != nil {
		return false, total, err
	}
	_, c2, err := parent.tree.Get(path[len(path)-1])
	total.AddInPlace(c2)
	if err != nil {
		if grovedberr.KindOf(err) == grovedberr.KindPathKeyNotFound {
			return false, total, nil
		}
		return false, total, err
	}
	return true, total, nil
}

// ensure returns the cached entry for path, opening it (and recursively
// every ancestor needed to discover its tree-kind) if absent. A path with
// a registered HintHeader is opened directly against that header; any
// other non-root path reads its header element out of the already-open
// parent, so the parent subtree's insert must already be durable or
// staged in the parent's in-memory Merk by the time ensure is called.
func (c *Cache) ensure(path [][]byte) (*entry, cost.OperationCost, error) {
	key := pathKey(path)
	if e, ok := c.entries[key]; ok {
		return e, cost.OperationCost{}, nil
	}

	var total cost.OperationCost
	var kind element.Kind
	var header element.Element

	if len(path) == 0 {
		kind = c.rootKind
	} else if hinted, ok := c.hints[key]; ok {
		if !hinted.IsAnyTree() {
			return nil, total, grovedberr.CorruptedPath("cache: %v is not a subtree", path)
		}
		kind = hinted.Kind()
		header = hinted
	} else {
		parent, c1, err := c.ensure(path[:len(path)-1])
		total.AddInPlace(c1)
		if err != nil {
			return nil, total, err
		}
		raw, c2, err := parent.tree.Get(path[len(path)-1])
		total.AddInPlace(c2)
		if err != nil {
			return nil, total, err
		}
		el, err := element.Decode(raw)
		if err != nil {
			return nil, total, err
		}
		if !el.IsAnyTree() {
			return nil, total, grovedberr.CorruptedPath("cache: %v is not a subtree", path)
		}
		kind = el.Kind()
		header = el
	}

	prefix := grovehash.SubtreePrefix(path)
	ctx := c.store.Context(prefix, c.txn)
	tree, c3, err := merk.Open(ctx, kind)
	total.AddInPlace(c3)
	if err != nil {
		return nil, total, err
	}

	e := &entry{path: append([][]byte{}, path...), kind: kind, header: header, tree: tree}
	c.entries[key] = e
	return e, total, nil
}

// MarkDeleted records that the subtree at path was removed from its
// parent by an explicit delete during execution, so Drain neither
// commits it nor rewrites its (now nonexistent) header in the parent.
// It is a no-op if path was never opened through GetMerk.
func (c *Cache) MarkDeleted(path [][]byte) {
	if e, ok := c.entries[pathKey(path)]; ok {
		e.deleted = true
	}
}

// Drain commits every cached subtree in deepest-path-first order so each
// child's new root hash is known before its parent is committed, issuing
// a PutLayered into the parent's Merk for each non-root subtree along the
// way. The committed child root hash travels with that PutLayered as the
// merk.Op's ChildRootHash, so the parent's header node binds it into its
// ValueHash via grovehash.Combine. It returns the database root hash
// (the committed root subtree's root hash). Drain panics if any entry
// still has a live Handle.
func (c *Cache) Drain() (grovehash.Hash, cost.OperationCost, error) {
	var total cost.OperationCost

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := c.entries[keys[i]].path, c.entries[keys[j]].path
		if len(pi) != len(pj) {
			return len(pi) > len(pj)
		}
		return keys[i] < keys[j]
	})

	var rootHash grovehash.Hash
	rootSeen := false

	for _, k := range keys {
		e := c.entries[k]
		if e.deleted {
			continue
		}
		if e.borrowed {
			panic(fmt.Sprintf("cache: Drain found a still-borrowed handle for %v", e.path))
		}

		hash, rootKey, c1, err := e.tree.Commit()
		total.AddInPlace(c1)
		if err != nil {
			return grovehash.Null, total, err
		}

		if len(e.path) == 0 {
			rootHash = hash
			rootSeen = true
			continue
		}

		_, _, ft, err := e.tree.RootHashKeyAndAggregate()
		if err != nil {
			return grovehash.Null, total, err
		}

		newHeader, err := rebuildHeader(e.header, rootKey, ft)
		if err != nil {
			return grovehash.Null, total, err
		}
		encoded, err := element.Encode(newHeader)
		if err != nil {
			return grovehash.Null, total, err
		}

		parentPath := e.path[:len(e.path)-1]
		parent, c2, err := c.ensure(parentPath)
		total.AddInPlace(c2)
		if err != nil {
			return grovehash.Null, total, err
		}
		if parent.borrowed {
			panic(fmt.Sprintf("cache: Drain needs parent %v but it is still borrowed", parentPath))
		}

		childKey := e.path[len(e.path)-1]
		childRoot := hash
		op := merk.Op{Key: childKey, Kind: merk.OpPut, Value: encoded, Feature: ft, ChildRootHash: &childRoot}
		c3, err := parent.tree.Apply([]merk.Op{op})
		total.AddInPlace(c3)
		if err != nil {
			return grovehash.Null, total, err
		}
	}

	if !rootSeen {
		return grovehash.Null, total, grovedberr.CorruptedCodeExecution("cache: Drain never reached the root subtree")
	}
	return rootHash, total, nil
}

// rebuildHeader produces a new header element of the same concrete type
// as old, with its RootKey and aggregate field(s) replaced and its flags
// preserved.
func rebuildHeader(old element.Element, rootKey []byte, ft element.FeatureType) (element.Element, error) {
	switch h := old.(type) {
	case *element.Tree:
		return &element.Tree{RootKey: rootKey, ItemFlags: h.ItemFlags}, nil
	case *element.SumTree:
		return &element.SumTree{RootKey: rootKey, Sum: ft.Sum, ItemFlags: h.ItemFlags}, nil
	case *element.BigSumTree:
		return &element.BigSumTree{RootKey: rootKey, Sum: ft.BigSum, ItemFlags: h.ItemFlags}, nil
	case *element.CountTree:
		return &element.CountTree{RootKey: rootKey, Count: ft.Count, ItemFlags: h.ItemFlags}, nil
	case *element.CountSumTree:
		return &element.CountSumTree{RootKey: rootKey, Count: ft.Count, Sum: ft.Sum, ItemFlags: h.ItemFlags}, nil
	case *element.ProvableCountTree:
		return &element.ProvableCountTree{RootKey: rootKey, Count: ft.Count, ItemFlags: h.ItemFlags}, nil
	case *element.ProvableCountSumTree:
		return &element.ProvableCountSumTree{RootKey: rootKey, Count: ft.Count, Sum: ft.Sum, ItemFlags: h.ItemFlags}, nil
	default:
		return nil, grovedberr.CorruptedCodeExecution("cache: %T is not a tree-kind header", old)
	}
}

func pathKey(path [][]byte) string {
	buf := make([]byte, 0, 64)
	for _, seg := range path {
		n := uint64(len(seg))
		for n >= 0x80 {
			buf = append(buf, byte(n)|0x80)
			n >>= 7
		}
		buf = append(buf, byte(n))
		buf = append(buf, seg...)
	}
	return string(buf)
}
