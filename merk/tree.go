package merk

import (
	"bytes"

	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/storage"
)

// State is one of the three lifecycle states a Tree can be in.
type State byte

const (
	// StateClosed means the tree holds no in-memory root; only its
	// storage context is retained.
	StateClosed State = iota
	// StateOpenClean means the root (if any) is loaded and matches what
	// is durable in storage.
	StateOpenClean
	// StateOpenDirty means a batch has been applied in memory but not
	// yet committed to storage.
	StateOpenDirty
)

// Tree is the AVL engine for one GroveDB subtree, scoped to a
// storage.StorageContext carrying that subtree's 32-byte prefix. kind
// fixes which element.FeatureTag values its direct children may carry.
type Tree struct {
	ctx  storage.StorageContext
	kind element.Kind

	root  Link
	state State

	// removalKind controls how Commit prices each accumulated deletion.
	// Defaults to cost.BasicRemoval.
	removalKind cost.RemovalKind

	// deleted accumulates storage keys removed by the in-progress batch,
	// flushed as Delete ops on the next Commit, alongside the encoded
	// size each one freed for cost.SectionedRemoval pricing.
	deleted []deletedEntry
}

// deletedEntry is one key removed by the in-progress batch, pending
// flush on the next Commit.
type deletedEntry struct {
	key  []byte
	size uint64
}

// SetRemovalKind controls how this tree's Commit prices key removal.
// It takes effect on the next Commit.
func (t *Tree) SetRemovalKind(kind cost.RemovalKind) {
	t.removalKind = kind
}

// Open loads an existing subtree's root (if any) from ctx, or returns an
// empty Open-Clean tree if the subtree has never been written to.
func Open(ctx storage.StorageContext, kind element.Kind) (*Tree, cost.OperationCost, error) {
	t := &Tree{ctx: ctx, kind: kind, state: StateOpenClean}

	rootKey, err := ctx.Get(storage.ColumnRoots, storage.RootMarker)
	if err != nil {
		if grovedberr.KindOf(err) == grovedberr.KindPathKeyNotFound {
			return t, cost.OperationCost{}, nil
		}
		return nil, cost.OperationCost{}, err
	}

	raw, err := ctx.Get(storage.ColumnData, rootKey)
	if err != nil {
		return nil, cost.OperationCost{}, grovedberr.Wrap(grovedberr.KindStorageError, err, "merk: loading root node")
	}
	node, err := decodeNode(rootKey, raw)
	if err != nil {
		return nil, cost.OperationCost{}, err
	}
	t.root = Link{Kind: LinkLoaded, Key: node.Key, Hash: node.NodeHash, Height: node.height(), Node: node}

	c := cost.ForSeek()
	c.AddInPlace(cost.ForStorageLoad(uint64(len(raw))))
	return t, c, nil
}

// Kind reports the tree-type this subtree was opened as.
func (t *Tree) Kind() element.Kind { return t.kind }

// State reports the tree's current lifecycle state.
func (t *Tree) State() State { return t.state }

// IsEmpty reports whether the subtree currently has no root.
func (t *Tree) IsEmpty() bool { return t.root.isEmpty() }

// resolve returns the owned *Node behind link, loading it from storage
// if it is currently pruned.
func (t *Tree) resolve(link Link) (*Node, cost.OperationCost, error) {
	if link.isEmpty() {
		return nil, cost.OperationCost{}, nil
	}
	if link.Node != nil {
		return link.Node, cost.OperationCost{}, nil
	}
	raw, err := t.ctx.Get(storage.ColumnData, link.Key)
	if err != nil {
		return nil, cost.OperationCost{}, grovedberr.Wrap(grovedberr.KindStorageError, err, "merk: loading node %x", link.Key)
	}
	node, err := decodeNode(link.Key, raw)
	if err != nil {
		return nil, cost.OperationCost{}, err
	}
	c := cost.ForSeek()
	c.AddInPlace(cost.ForStorageLoad(uint64(len(raw))))
	return node, c, nil
}

// Get returns the serialized element bytes stored at key.
func (t *Tree) Get(key []byte) ([]byte, cost.OperationCost, error) {
	var total cost.OperationCost
	link := t.root
	for !link.isEmpty() {
		node, c, err := t.resolve(link)
		total.AddInPlace(c)
		if err != nil {
			return nil, total, err
		}
		switch cmp := bytes.Compare(key, node.Key); {
		case cmp == 0:
			total.AddInPlace(cost.ForStorageLoad(uint64(len(node.Value))))
			return node.Value, total, nil
		case cmp < 0:
			link = node.Left
		default:
			link = node.Right
		}
	}
	return nil, total, grovedberr.PathKeyNotFound("merk: key %x not found", key)
}

// Has reports whether key is present, without the cost of surfacing its
// value to the caller beyond what Get already charges for the traversal.
func (t *Tree) Has(key []byte) (bool, cost.OperationCost, error) {
	_, c, err := t.Get(key)
	if err != nil {
		if grovedberr.KindOf(err) == grovedberr.KindPathKeyNotFound {
			return false, c, nil
		}
		return false, c, err
	}
	return true, c, nil
}

// Apply validates and applies a batch of Ops to the tree, transitioning
// it from Open-Clean to Open-Dirty. ops must already be sorted ascending
// by key with duplicates collapsed by the caller.
func (t *Tree) Apply(ops []Op) (cost.OperationCost, error) {
	if t.state == StateClosed {
		return cost.OperationCost{}, grovedberr.CorruptedCodeExecution("merk: Apply called on a closed tree")
	}
	if err := validateOps(t.kind, ops); err != nil {
		return cost.OperationCost{}, err
	}
	if len(ops) == 0 {
		return cost.OperationCost{}, nil
	}

	rootNode, c, err := t.resolve(t.root)
	if err != nil {
		return c, err
	}

	newRoot, c2, err := apply(t, rootNode, ops)
	var total cost.OperationCost
	total.AddInPlace(c)
	total.AddInPlace(c2)
	if err != nil {
		return total, err
	}

	t.root = ownedLinkOrEmpty(newRoot)
	t.state = StateOpenDirty
	return total, nil
}

// RootHashKeyAndAggregate returns the subtree's current root hash, root
// key, and the FeatureType its root element contributes to an enclosing
// layer's aggregate. Valid only once the tree is clean (see Commit);
// calling it against a dirty tree returns stale hashes.
func (t *Tree) RootHashKeyAndAggregate() (grovehash.Hash, []byte, element.FeatureType, error) {
	if t.root.isEmpty() {
		return grovehash.Null, nil, element.FeatureType{Tag: element.FeatureBasic}, nil
	}
	node, _, err := t.resolve(t.root)
	if err != nil {
		return grovehash.Null, nil, element.FeatureType{}, err
	}
	el, err := element.Decode(node.Value)
	if err != nil {
		return grovehash.Null, nil, element.FeatureType{}, err
	}
	ft, err := el.GetFeatureType(t.kind)
	if err != nil {
		return grovehash.Null, nil, element.FeatureType{}, err
	}
	return t.root.Hash, append([]byte{}, node.Key...), ft, nil
}

// Close marks the tree Closed. Its StorageContext is left untouched.
func (t *Tree) Close() error {
	t.state = StateClosed
	t.root = emptyLink
	return nil
}
