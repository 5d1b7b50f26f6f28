package merk

import (
	"bytes"

	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
)

// TrunkBoundary is one position where a trunk or branch walk stopped
// descending because it reached its depth limit: the key it stopped at,
// the hash a follow-up branch chunk must be verified against, and how
// many further levels that subtree still holds.
type TrunkBoundary struct {
	Key            []byte
	Hash           grovehash.Hash
	RemainingDepth int
}

// GenerateTrunk walks t's root down to maxDepth levels, producing a
// proof-shaped operator stream (ProofPushKV for every node within the
// depth limit, carrying full values, combined by ProofParent/ProofChild
// exactly as GenerateProof does) plus a TrunkBoundary for every child
// link the walk had to prune at the limit instead of descending into.
func GenerateTrunk(t *Tree, maxDepth int) ([]ProofOp, []TrunkBoundary, cost.OperationCost, error) {
	ops, bounds, _, total, err := walkBoundedDepth(t, t.root, 0, maxDepth)
	return ops, bounds, total, err
}

// GenerateBranch locates the node at atKey (which must be a key
// previously reported as a TrunkBoundary, or another branch's
// boundary) and walks it down maxDepth further levels the same way
// GenerateTrunk walks the root. It is the donor side of a state-sync
// session resolving one outstanding chunk id.
func GenerateBranch(t *Tree, atKey []byte, maxDepth int) ([]ProofOp, []TrunkBoundary, cost.OperationCost, error) {
	var total cost.OperationCost
	link := t.root
	found := false
	for !link.isEmpty() {
		if bytes.Equal(link.Key, atKey) {
			found = true
			break
		}
		node, c, err := t.resolve(link)
		total.AddInPlace(c)
		if err != nil {
			return nil, nil, total, err
		}
		switch cmp := bytes.Compare(atKey, node.Key); {
		case cmp < 0:
			link = node.Left
		default:
			link = node.Right
		}
	}
	if !found {
		return nil, nil, total, grovedberr.New(grovedberr.KindPathKeyNotFound, "merk: no node at key %x to branch from", atKey)
	}
	ops, bounds, _, c, err := walkBoundedDepth(t, link, 0, maxDepth)
	total.AddInPlace(c)
	return ops, bounds, total, err
}

// walkBoundedDepth is the shared engine behind GenerateTrunk and
// GenerateBranch: a full (unfiltered by key range) traversal that stops
// descending once depth reaches maxDepth, citing the pruned link's
// already-known hash, key, and height rather than resolving it. Pruned
// links never cost a storage read, the same way GenerateProof's
// depth-unbounded Hash citations do for out-of-range subtrees.
func walkBoundedDepth(t *Tree, link Link, depth, maxDepth int) ([]ProofOp, []TrunkBoundary, grovehash.Hash, cost.OperationCost, error) {
	var total cost.OperationCost
	if link.isEmpty() {
		return nil, nil, grovehash.Null, total, nil
	}
	if depth >= maxDepth {
		boundary := TrunkBoundary{
			Key:            append([]byte{}, link.Key...),
			Hash:           link.Hash,
			RemainingDepth: int(link.Height),
		}
		return []ProofOp{{Kind: ProofPushHash, Hash: link.Hash}}, []TrunkBoundary{boundary}, link.Hash, total, nil
	}

	node, c, err := t.resolve(link)
	total.AddInPlace(c)
	if err != nil {
		return nil, nil, grovehash.Null, total, err
	}

	var ops []ProofOp
	var bounds []TrunkBoundary

	if !node.Left.isEmpty() {
		leftOps, leftBounds, _, c2, err := walkBoundedDepth(t, node.Left, depth+1, maxDepth)
		total.AddInPlace(c2)
		if err != nil {
			return nil, nil, grovehash.Null, total, err
		}
		ops = append(ops, leftOps...)
		bounds = append(bounds, leftBounds...)
	}

	el, err := element.Decode(node.Value)
	if err != nil {
		return nil, nil, grovehash.Null, total, err
	}
	ft, err := el.GetFeatureType(t.kind)
	if err != nil {
		return nil, nil, grovehash.Null, total, err
	}
	ops = append(ops, ProofOp{Kind: ProofPushKV, Key: node.Key, Value: node.Value, ValueHash: node.ValueHash, Feature: ft})

	if !node.Left.isEmpty() {
		ops = append(ops, ProofOp{Kind: ProofParent})
	}

	if !node.Right.isEmpty() {
		rightOps, rightBounds, _, c2, err := walkBoundedDepth(t, node.Right, depth+1, maxDepth)
		total.AddInPlace(c2)
		if err != nil {
			return nil, nil, grovehash.Null, total, err
		}
		ops = append(ops, rightOps...)
		bounds = append(bounds, rightBounds...)
		ops = append(ops, ProofOp{Kind: ProofChild})
	}

	return ops, bounds, node.NodeHash, total, nil
}
