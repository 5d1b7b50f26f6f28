package merk

import (
	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
)

// HashMismatch reports one stored hash of one node that disagrees with
// the hash recomputed from that node's own stored fields. Field is
// "value" (ValueHash against the stored Value), "kv" (KVHash against the
// stored Key and ValueHash) or "node" (NodeHash against the stored
// KVHash and this node's own link hashes for its children). Each field
// is checked on its own, so one node can yield several entries.
type HashMismatch struct {
	Key        []byte
	Field      string
	Stored     grovehash.Hash
	Recomputed grovehash.Hash
}

// DiagnoseHashMismatch walks every node reachable from the tree's root,
// recomputing each node's ValueHash/KVHash/NodeHash from its stored
// Value/Key and its children's stored link hashes, and reports every
// node where a stored hash disagrees with the recomputed one. A child
// whose own NodeHash differs from the hash its parent's link records is
// not reported. An empty result also does not by itself mean the tree's
// root hash matches what an enclosing parent element expects (compare
// the root's NodeHash against that separately).
//
// This never mutates the tree: it is a read-only diagnostic for
// tracking down a "root hash doesn't match" report to the specific node
// responsible, without trusting any node's hashDirty/cached state.
func (t *Tree) DiagnoseHashMismatch() ([]HashMismatch, cost.OperationCost, error) {
	var total cost.OperationCost
	var mismatches []HashMismatch

	var walk func(link Link) error
	walk = func(link Link) error {
		if link.isEmpty() {
			return nil
		}
		node, c, err := t.resolve(link)
		total.AddInPlace(c)
		if err != nil {
			return err
		}

		el, err := element.Decode(node.Value)
		if err != nil {
			return err
		}

		// A tree-kind element's ValueHash binds its child subtree's root
		// hash via grovehash.Combine, which this single-subtree walk has
		// no way to independently recompute (the child lives in a
		// different Merk entirely). KV/NodeHash are still checked below
		// against the stored ValueHash, so a node whose Value disagrees
		// with its own claimed ValueHash is still caught once that claim
		// is cross-checked against the child's actual root elsewhere.
		if !el.IsAnyTree() {
			wantValueHash := grovehash.Sum(node.Value)
			total.AddInPlace(cost.ForHash(uint64(grovehash.BlockCount(len(node.Value)))))
			if wantValueHash != node.ValueHash {
				mismatches = append(mismatches, HashMismatch{
					Key: append([]byte{}, node.Key...), Field: "value",
					Stored: node.ValueHash, Recomputed: wantValueHash,
				})
			}
		}

		wantKVHash := grovehash.KV(node.Key, node.ValueHash)
		total.AddInPlace(cost.ForHash(1))
		if wantKVHash != node.KVHash {
			mismatches = append(mismatches, HashMismatch{
				Key: append([]byte{}, node.Key...), Field: "kv",
				Stored: node.KVHash, Recomputed: wantKVHash,
			})
		}

		ft, err := el.GetFeatureType(t.kind)
		if err != nil {
			return err
		}
		wantNodeHash := grovehash.Node(ft.HashBytes(), node.KVHash, node.Left.Hash, node.Right.Hash)
		total.AddInPlace(cost.ForHash(1))
		if wantNodeHash != node.NodeHash {
			mismatches = append(mismatches, HashMismatch{
				Key: append([]byte{}, node.Key...), Field: "node",
				Stored: node.NodeHash, Recomputed: wantNodeHash,
			})
		}

		if err := walk(node.Left); err != nil {
			return err
		}
		return walk(node.Right)
	}

	if err := walk(t.root); err != nil {
		return nil, total, err
	}
	return mismatches, total, nil
}
