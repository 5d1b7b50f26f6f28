package merk

import (
	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/storage"
)

// Commit writes every dirty node reachable from the root into a single
// storage.Batch, flushes accumulated deletes, updates the subtree's root
// marker, and commits the batch atomically. It is a no-op returning the
// tree's current root hash/key if the tree is not Open-Dirty. On success
// the tree transitions to Open-Clean.
func (t *Tree) Commit() (grovehash.Hash, []byte, cost.OperationCost, error) {
	if t.state != StateOpenDirty {
		hash, key, _, err := t.RootHashKeyAndAggregate()
		return hash, key, cost.OperationCost{}, err
	}

	batch := t.ctx.NewBatch()
	var total cost.OperationCost

	var rootNode *Node
	if !t.root.isEmpty() {
		rootNode = t.root.Node
		if rootNode == nil {
			return grovehash.Null, nil, total, grovedberr.CorruptedCodeExecution("merk: dirty root link has no owned node")
		}
		c, err := t.commitNode(rootNode, batch)
		total.AddInPlace(c)
		if err != nil {
			return grovehash.Null, nil, total, err
		}
		t.root = Link{Kind: LinkLoaded, Key: rootNode.Key, Hash: rootNode.NodeHash, Height: rootNode.height(), Node: rootNode}
	}

	for _, entry := range t.deleted {
		if err := batch.Delete(storage.ColumnData, entry.key); err != nil {
			return grovehash.Null, nil, total, grovedberr.StorageError(err, "merk: staging node delete")
		}
		total.AddInPlace(cost.ForRemoval(t.removalKind, entry.size))
	}
	t.deleted = nil

	if rootNode != nil {
		if err := batch.Put(storage.ColumnRoots, storage.RootMarker, rootNode.Key); err != nil {
			return grovehash.Null, nil, total, grovedberr.StorageError(err, "merk: staging root marker write")
		}
	} else {
		if err := batch.Delete(storage.ColumnRoots, storage.RootMarker); err != nil {
			return grovehash.Null, nil, total, grovedberr.StorageError(err, "merk: staging root marker delete")
		}
	}

	if err := t.ctx.CommitBatch(batch); err != nil {
		return grovehash.Null, nil, total, err
	}
	t.state = StateOpenClean

	hash, key, _, err := t.RootHashKeyAndAggregate()
	return hash, key, total, err
}

// commitNode hashes and stages node (and any owned, not-yet-committed
// children) into batch, depth-first so every child's hash is final
// before its parent's is computed.
func (t *Tree) commitNode(node *Node, batch storage.Batch) (cost.OperationCost, error) {
	var total cost.OperationCost

	for _, side := range [2]bool{true, false} {
		link := node.childLink(side)
		if link.Kind != LinkModified && link.Kind != LinkUncommitted {
			continue
		}
		if link.Node == nil {
			continue
		}
		c, err := t.commitNode(link.Node, batch)
		total.AddInPlace(c)
		if err != nil {
			return total, err
		}
		newLink := Link{Kind: LinkLoaded, Key: link.Node.Key, Hash: link.Node.NodeHash, Height: link.Node.height(), Node: link.Node}
		node.attachChild(side, newLink)
	}

	if node.hashDirty {
		el, err := element.Decode(node.Value)
		if err != nil {
			return total, err
		}
		ft, err := el.GetFeatureType(t.kind)
		if err != nil {
			return total, err
		}
		total.AddInPlace(node.hash(ft.HashBytes()))
	}

	data := node.encode()
	if err := batch.Put(storage.ColumnData, node.Key, data); err != nil {
		return total, grovedberr.StorageError(err, "merk: staging node write")
	}
	total.AddInPlace(cost.ForStorageWrite(uint64(len(data))))
	return total, nil
}
