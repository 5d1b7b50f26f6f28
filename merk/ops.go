package merk

import (
	"bytes"
	"sort"

	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
)

// OpKind distinguishes the two primitive mutations a Tree batch applies.
// Higher-level distinctions the spec names (PutReference, PutLayered,
// DeleteLayered, insert-if-not-exists, ...) are resolved by the batch
// package into one of these two before reaching merk: by the time an Op
// exists, its Value and Feature already reflect whatever resolution or
// layering the caller performed.
type OpKind byte

const (
	OpPut OpKind = iota
	OpDelete
)

// Op is one key's mutation within a single-subtree batch.
type Op struct {
	Key     []byte
	Kind    OpKind
	Value   []byte // element.Encode(el) bytes; meaningful only for OpPut
	Feature element.FeatureType

	// ChildRootHash, when non-nil, is the already-committed root hash of
	// the subtree Value's tree-kind element points at. The resulting
	// node's ValueHash binds this hash via grovehash.Combine instead of
	// hashing Value alone. Callers writing a non-tree element, or a
	// tree-kind element whose child subtree is not being (re)committed
	// by this same operation, leave it nil.
	ChildRootHash *grovehash.Hash
}

// allowedFeatureTags lists which FeatureTags a subtree of the given kind
// may hold on its direct children, per the spec's "each op's feature
// type consistent with the subtree's tree-type" rule. FeatureBasic is
// always permitted: every tree-type can hold plain items alongside its
// aggregate-contributing ones.
func allowedFeatureTags(kind element.Kind) map[element.FeatureTag]bool {
	switch kind {
	case element.KindSumTree:
		return map[element.FeatureTag]bool{element.FeatureBasic: true, element.FeatureSummed: true}
	case element.KindBigSumTree:
		return map[element.FeatureTag]bool{element.FeatureBasic: true, element.FeatureSummed: true, element.FeatureBigSummed: true}
	case element.KindCountTree:
		return map[element.FeatureTag]bool{element.FeatureBasic: true, element.FeatureCounted: true}
	case element.KindCountSumTree:
		return map[element.FeatureTag]bool{
			element.FeatureBasic: true, element.FeatureSummed: true,
			element.FeatureCounted: true, element.FeatureCountedSummed: true,
		}
	case element.KindProvableCountTree:
		return map[element.FeatureTag]bool{element.FeatureBasic: true, element.FeatureProvableCounted: true}
	case element.KindProvableCountSumTree:
		return map[element.FeatureTag]bool{
			element.FeatureBasic: true, element.FeatureSummed: true,
			element.FeatureProvableCounted: true, element.FeatureProvableCountedSummed: true,
		}
	default:
		return map[element.FeatureTag]bool{element.FeatureBasic: true}
	}
}

// validateOps enforces ascending, duplicate-free keys and feature-type/
// tree-type consistency before any node in ops is touched.
func validateOps(kind element.Kind, ops []Op) error {
	allowed := allowedFeatureTags(kind)
	for i, op := range ops {
		if i > 0 && bytes.Compare(ops[i-1].Key, op.Key) >= 0 {
			return grovedberr.InvalidBatchOperation("merk: ops not strictly ascending/deduped at index %d", i)
		}
		if op.Kind == OpPut && !allowed[op.Feature.Tag] {
			return grovedberr.InvalidBatchOperation(
				"merk: feature tag %v not permitted in subtree of kind %v", op.Feature.Tag, kind)
		}
	}
	return nil
}

// splitOps partitions ops around key: those strictly less, the single op
// matching key (if any), and those strictly greater. ops must already be
// sorted ascending by key.
func splitOps(key []byte, ops []Op) (left []Op, here *Op, right []Op) {
	idx := sort.Search(len(ops), func(i int) bool { return bytes.Compare(ops[i].Key, key) >= 0 })
	left = ops[:idx]
	if idx < len(ops) && bytes.Equal(ops[idx].Key, key) {
		here = &ops[idx]
		right = ops[idx+1:]
	} else {
		right = ops[idx:]
	}
	return
}

// apply recursively applies ops (sorted ascending, deduped) to node,
// returning the new subtree root. tree is only used to resolve pruned
// links and to record keys that fall out of the tree entirely.
func apply(tree *Tree, node *Node, ops []Op) (*Node, cost.OperationCost, error) {
	var total cost.OperationCost
	if len(ops) == 0 {
		return node, total, nil
	}
	if node == nil {
		n, c := buildTree(ops)
		total.AddInPlace(c)
		return n, total, nil
	}

	leftOps, here, rightOps := splitOps(node.Key, ops)
	w := newWalker(tree, node)

	if len(leftOps) > 0 {
		c, err := w.walk(true, func(child *Node) (*Node, cost.OperationCost, error) {
			return apply(tree, child, leftOps)
		})
		total.AddInPlace(c)
		if err != nil {
			return nil, total, err
		}
	}
	if len(rightOps) > 0 {
		c, err := w.walk(false, func(child *Node) (*Node, cost.OperationCost, error) {
			return apply(tree, child, rightOps)
		})
		total.AddInPlace(c)
		if err != nil {
			return nil, total, err
		}
	}

	node = w.node

	if here != nil {
		switch here.Kind {
		case OpPut:
			if here.ChildRootHash != nil {
				node.setValueWithChildRoot(here.Value, *here.ChildRootHash)
			} else {
				node.setValue(here.Value)
			}
		case OpDelete:
			tree.deleted = append(tree.deleted, deletedEntry{
				key:  append([]byte{}, node.Key...),
				size: uint64(len(node.encode())),
			})
			newRoot, c, err := removeNode(tree, node)
			total.AddInPlace(c)
			if err != nil {
				return nil, total, err
			}
			node = newRoot
		}
	}

	rb, c, err := rebalance(tree, node)
	total.AddInPlace(c)
	if err != nil {
		return nil, total, err
	}
	return rb, total, nil
}

// buildTree constructs a balanced subtree from ops alone, for the case
// where apply descends into a previously empty side. Delete ops with no
// existing node to remove are simply dropped. Children built this way are
// always owned in memory, so rebalance never needs to resolve a pruned
// link here -- a nil *Tree is safe to pass.
func buildTree(ops []Op) (*Node, cost.OperationCost) {
	var total cost.OperationCost
	if len(ops) == 0 {
		return nil, total
	}
	mid := len(ops) / 2
	rootOp := ops[mid]
	if rootOp.Kind == OpDelete {
		merged := make([]Op, 0, len(ops)-1)
		merged = append(merged, ops[:mid]...)
		merged = append(merged, ops[mid+1:]...)
		return buildTree(merged)
	}

	left, c1 := buildTree(ops[:mid])
	right, c2 := buildTree(ops[mid+1:])
	total.AddInPlace(c1)
	total.AddInPlace(c2)

	node := NewLeaf(rootOp.Key, rootOp.Value)
	if rootOp.ChildRootHash != nil {
		node.setValueWithChildRoot(rootOp.Value, *rootOp.ChildRootHash)
	}
	node.Left = ownedLinkOrEmpty(left)
	node.Right = ownedLinkOrEmpty(right)
	rb, _, _ := rebalance(nil, node)
	return rb, total
}

// removeNode deletes node itself, merging its two children (if both
// present) by promoting the in-order predecessor from the left subtree.
func removeNode(tree *Tree, node *Node) (*Node, cost.OperationCost, error) {
	w := newWalker(tree, node)
	left, c1, err := w.detach(true)
	var total cost.OperationCost
	total.AddInPlace(c1)
	if err != nil {
		return nil, total, err
	}
	right, c2, err := w.detach(false)
	total.AddInPlace(c2)
	if err != nil {
		return nil, total, err
	}

	if left == nil {
		return right, total, nil
	}
	if right == nil {
		return left, total, nil
	}

	newRoot, newLeft, c3, err := removeMax(tree, left)
	total.AddInPlace(c3)
	if err != nil {
		return nil, total, err
	}
	newRoot.Left = ownedLinkOrEmpty(newLeft)
	newRoot.Right = ownedLinkOrEmpty(right)
	newRoot.hashDirty = true
	rb, c4, err := rebalance(tree, newRoot)
	total.AddInPlace(c4)
	if err != nil {
		return nil, total, err
	}
	return rb, total, nil
}

// removeMax detaches and returns the maximum-keyed node from node's
// subtree, along with the subtree that remains after its removal.
func removeMax(tree *Tree, node *Node) (*Node, *Node, cost.OperationCost, error) {
	w := newWalker(tree, node)
	right, c1, err := w.detach(false)
	var total cost.OperationCost
	total.AddInPlace(c1)
	if err != nil {
		return nil, nil, total, err
	}
	if right == nil {
		left, c2, err := w.detach(true)
		total.AddInPlace(c2)
		if err != nil {
			return nil, nil, total, err
		}
		return node, left, total, nil
	}
	max, newRight, c3, err := removeMax(tree, right)
	total.AddInPlace(c3)
	if err != nil {
		return nil, nil, total, err
	}
	node.Right = ownedLinkOrEmpty(newRight)
	node.hashDirty = true
	rb, c4, err := rebalance(tree, node)
	total.AddInPlace(c4)
	if err != nil {
		return nil, nil, total, err
	}
	return max, rb, total, nil
}

func ownedLinkOrEmpty(n *Node) Link {
	if n == nil {
		return emptyLink
	}
	return ownedLink(n, true)
}

// rebalance restores the AVL invariant at node by rotating if its
// balance factor has drifted outside [-1, 1]. The heavy side is resolved
// through tree first, since a deletion elsewhere can leave an untouched,
// still-pruned sibling as the new heavy side. tree may be nil as long as
// node's children are already owned (guaranteed when called from
// buildTree).
func rebalance(tree *Tree, node *Node) (*Node, cost.OperationCost, error) {
	var total cost.OperationCost
	if node == nil {
		return nil, total, nil
	}
	switch bf := node.balanceFactor(); {
	case bf > 1:
		left, c, err := tree.resolve(node.Left)
		total.AddInPlace(c)
		if err != nil {
			return nil, total, err
		}
		node.Left = ownedLink(left, true)
		if left.balanceFactor() < 0 {
			rightOfLeft, c2, err := tree.resolve(left.Right)
			total.AddInPlace(c2)
			if err != nil {
				return nil, total, err
			}
			left.Right = ownedLink(rightOfLeft, true)
			rotated := rotateLeftWithPivot(left, rightOfLeft)
			node.Left = ownedLink(rotated, true)
		}
		return rotateRightWithPivot(node, node.Left.Node), total, nil
	case bf < -1:
		right, c, err := tree.resolve(node.Right)
		total.AddInPlace(c)
		if err != nil {
			return nil, total, err
		}
		node.Right = ownedLink(right, true)
		if right.balanceFactor() > 0 {
			leftOfRight, c2, err := tree.resolve(right.Left)
			total.AddInPlace(c2)
			if err != nil {
				return nil, total, err
			}
			right.Left = ownedLink(leftOfRight, true)
			rotated := rotateRightWithPivot(right, leftOfRight)
			node.Right = ownedLink(rotated, true)
		}
		return rotateLeftWithPivot(node, node.Right.Node), total, nil
	default:
		return node, total, nil
	}
}

// rotateLeftWithPivot performs a standard AVL left rotation of node using
// its already-resolved right child, pivot, as the new subtree root.
func rotateLeftWithPivot(node, pivot *Node) *Node {
	node.Right = pivot.Left
	node.hashDirty = true
	pivot.Left = ownedLink(node, true)
	pivot.hashDirty = true
	return pivot
}

// rotateRightWithPivot performs a standard AVL right rotation of node
// using its already-resolved left child, pivot, as the new subtree root.
func rotateRightWithPivot(node, pivot *Node) *Node {
	node.Left = pivot.Right
	node.hashDirty = true
	pivot.Right = ownedLink(node, true)
	pivot.hashDirty = true
	return pivot
}
