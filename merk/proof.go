package merk

import (
	"bytes"

	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
)

// ProofOpKind distinguishes the five operators a Merk proof is built
// from: three ways to push a node onto the verifier's stack, and two
// combinators that fold a previously pushed subtree into its parent.
type ProofOpKind byte

const (
	// ProofPushKV carries a node's full key, value, and value hash: the
	// node is in the query's result set.
	ProofPushKV ProofOpKind = iota
	// ProofPushKVDigest carries a node's key and value hash but not its
	// value: the node lies on the search path but is not itself a
	// result.
	ProofPushKVDigest
	// ProofPushHash carries only a subtree's root hash: the verifier
	// never needs to look inside it.
	ProofPushHash
	// ProofParent folds the second-from-top stack entry in as the left
	// child of the top entry.
	ProofParent
	// ProofChild folds the top stack entry in as the right child of the
	// second-from-top entry.
	ProofChild
)

// ProofOp is one operator in a linearised Merk proof stream.
type ProofOp struct {
	Kind      ProofOpKind
	Key       []byte
	Value     []byte // ProofPushKV only
	ValueHash grovehash.Hash
	Feature   element.FeatureType
	Hash      grovehash.Hash // ProofPushHash only
}

// ProofResult is one (key, value) pair a verified proof confirms is
// present in the tree, in ascending key order.
type ProofResult struct {
	Key   []byte
	Value []byte
}

// Bound is one contiguous key range a proof should cover: [Lower, Upper)
// honoring LowerInclusive/UpperInclusive, with a nil bound open on that
// side.
type Bound struct {
	Lower          []byte
	LowerInclusive bool
	Upper          []byte
	UpperInclusive bool
}

func (b Bound) contains(key []byte) bool {
	return keyInRange(key, b.Lower, b.LowerInclusive, b.Upper, b.UpperInclusive)
}

func (b Bound) mayContainBelow(key []byte) bool {
	return b.Lower == nil || bytes.Compare(b.Lower, key) < 0
}

func (b Bound) mayContainAbove(key []byte) bool {
	return b.Upper == nil || bytes.Compare(b.Upper, key) > 0
}

func anyContains(bounds []Bound, key []byte) bool {
	for _, b := range bounds {
		if b.contains(key) {
			return true
		}
	}
	return false
}

func anyMayContainBelow(bounds []Bound, key []byte) bool {
	for _, b := range bounds {
		if b.mayContainBelow(key) {
			return true
		}
	}
	return false
}

func anyMayContainAbove(bounds []Bound, key []byte) bool {
	for _, b := range bounds {
		if b.mayContainAbove(key) {
			return true
		}
	}
	return false
}

// GenerateRangeProof builds the operator stream proving every key in
// [lower, upper) against the tree's current committed state. It is a
// convenience wrapper around GenerateProof for a single Bound.
func GenerateRangeProof(
	t *Tree,
	lower []byte, lowerInclusive bool,
	upper []byte, upperInclusive bool,
	limit, offset *int,
) ([]ProofOp, []ProofResult, cost.OperationCost, error) {
	return GenerateProof(t, []Bound{{Lower: lower, LowerInclusive: lowerInclusive, Upper: upper, UpperInclusive: upperInclusive}}, limit, offset)
}

// GenerateProof builds the operator stream proving every key covered by
// any of bounds against the tree's current committed state, merged into
// a single in-order walk so the result is one linearised proof whose
// stack collapses to a single root hash. limit and offset, if non-nil,
// cap and skip matches the same way a range query would: up to offset
// matches closest to the lowest bound are included only as digests, and
// at most limit matches carry full values.
func GenerateProof(t *Tree, bounds []Bound, limit, offset *int) ([]ProofOp, []ProofResult, cost.OperationCost, error) {
	ops, results, _, total, err := proveLink(t, t.root, bounds, limit, offset)
	return ops, results, total, err
}

func proveLink(t *Tree, link Link, bounds []Bound, limit, offset *int) ([]ProofOp, []ProofResult, grovehash.Hash, cost.OperationCost, error) {
	var total cost.OperationCost
	if link.isEmpty() {
		return nil, nil, grovehash.Null, total, nil
	}
	if limit != nil && *limit <= 0 {
		return []ProofOp{{Kind: ProofPushHash, Hash: link.Hash}}, nil, link.Hash, total, nil
	}

	node, c, err := t.resolve(link)
	total.AddInPlace(c)
	if err != nil {
		return nil, nil, grovehash.Null, total, err
	}

	var ops []ProofOp
	var results []ProofResult

	visitLeft := !node.Left.isEmpty() && anyMayContainBelow(bounds, node.Key)
	var leftHash grovehash.Hash = grovehash.Null
	if visitLeft {
		leftOps, leftResults, h, c2, err := proveLink(t, node.Left, bounds, limit, offset)
		total.AddInPlace(c2)
		if err != nil {
			return nil, nil, grovehash.Null, total, err
		}
		ops = append(ops, leftOps...)
		results = append(results, leftResults...)
		leftHash = h
	} else if !node.Left.isEmpty() {
		leftHash = node.Left.Hash
		ops = append(ops, ProofOp{Kind: ProofPushHash, Hash: leftHash})
	}

	el, err := element.Decode(node.Value)
	if err != nil {
		return nil, nil, grovehash.Null, total, err
	}
	ft, err := el.GetFeatureType(t.kind)
	if err != nil {
		return nil, nil, grovehash.Null, total, err
	}

	inRange := anyContains(bounds, node.Key)
	selfMatched := false
	if inRange {
		if offset != nil && *offset > 0 {
			*offset--
		} else if limit == nil || *limit > 0 {
			selfMatched = true
			if limit != nil {
				*limit--
			}
		}
	}
	if selfMatched {
		ops = append(ops, ProofOp{Kind: ProofPushKV, Key: node.Key, Value: node.Value, ValueHash: node.ValueHash, Feature: ft})
		results = append(results, ProofResult{Key: append([]byte{}, node.Key...), Value: append([]byte{}, node.Value...)})
	} else {
		ops = append(ops, ProofOp{Kind: ProofPushKVDigest, Key: node.Key, ValueHash: node.ValueHash, Feature: ft})
	}
	if visitLeft || !node.Left.isEmpty() {
		ops = append(ops, ProofOp{Kind: ProofParent})
	}

	visitRight := !node.Right.isEmpty() && anyMayContainAbove(bounds, node.Key)
	var rightHash grovehash.Hash = grovehash.Null
	if visitRight {
		rightOps, rightResults, h, c2, err := proveLink(t, node.Right, bounds, limit, offset)
		total.AddInPlace(c2)
		if err != nil {
			return nil, nil, grovehash.Null, total, err
		}
		ops = append(ops, rightOps...)
		results = append(results, rightResults...)
		rightHash = h
	} else if !node.Right.isEmpty() {
		rightHash = node.Right.Hash
		ops = append(ops, ProofOp{Kind: ProofPushHash, Hash: rightHash})
	}
	if visitRight || !node.Right.isEmpty() {
		ops = append(ops, ProofOp{Kind: ProofChild})
	}

	return ops, results, node.NodeHash, total, nil
}

func keyInRange(key, lower []byte, lowerInclusive bool, upper []byte, upperInclusive bool) bool {
	if lower != nil {
		switch cmp := bytes.Compare(key, lower); {
		case cmp < 0:
			return false
		case cmp == 0 && !lowerInclusive:
			return false
		}
	}
	if upper != nil {
		switch cmp := bytes.Compare(key, upper); {
		case cmp > 0:
			return false
		case cmp == 0 && !upperInclusive:
			return false
		}
	}
	return true
}

// stackEntry is one verifier-side slot: either a fully resolved hash (a
// Hash op, or a node that has already folded in both its children) or a
// pending node (a just-pushed KV/KVDigest awaiting Parent/Child to fold
// its children in).
type stackEntry struct {
	hash    grovehash.Hash
	pending bool
	kvHash  grovehash.Hash
	feature element.FeatureType
	left    grovehash.Hash
	right   grovehash.Hash
}

func (e *stackEntry) recompute() {
	e.hash = grovehash.Node(e.feature.HashBytes(), e.kvHash, e.left, e.right)
}

// VerifyRangeProof replays ops against a stack machine and returns the
// reconstructed root hash alongside every matched (key, value) pair the
// proof carries, in the order the ops stream presents them. childRoots
// supplies, for every ProofPushKV whose value decodes to a tree-kind
// element, that element's child subtree's already-verified root hash
// (keyed by the op's raw Key), so the claimed ValueHash can be checked
// via grovehash.Combine instead of a plain value hash. A tree-kind key
// absent from childRoots (nil childRoots included) is checked against
// the plain hash of its value, so it verifies only when its node's
// ValueHash was computed without a child root.
func VerifyRangeProof(ops []ProofOp, childRoots map[string]grovehash.Hash) (grovehash.Hash, []ProofResult, error) {
	var stack []*stackEntry
	var results []ProofResult

	pop := func() (*stackEntry, error) {
		if len(stack) == 0 {
			return nil, grovedberr.InvalidProof("merk: proof stack underflow")
		}
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return e, nil
	}

	for _, op := range ops {
		switch op.Kind {
		case ProofPushHash:
			stack = append(stack, &stackEntry{hash: op.Hash})

		case ProofPushKVDigest:
			kvHash := grovehash.KV(op.Key, op.ValueHash)
			e := &stackEntry{pending: true, kvHash: kvHash, feature: op.Feature, left: grovehash.Null, right: grovehash.Null}
			e.recompute()
			stack = append(stack, e)

		case ProofPushKV:
			valueHash := grovehash.Sum(op.Value)
			if el, err := element.Decode(op.Value); err == nil && el.IsAnyTree() {
				if childRoot, ok := childRoots[string(op.Key)]; ok {
					valueHash = grovehash.Combine(valueHash, childRoot)
				}
			}
			if !bytes.Equal(valueHash[:], op.ValueHash[:]) {
				return grovehash.Null, nil, grovedberr.InvalidProof("merk: value does not match its claimed hash for key %x", op.Key)
			}
			kvHash := grovehash.KV(op.Key, valueHash)
			e := &stackEntry{pending: true, kvHash: kvHash, feature: op.Feature, left: grovehash.Null, right: grovehash.Null}
			e.recompute()
			stack = append(stack, e)
			results = append(results, ProofResult{Key: append([]byte{}, op.Key...), Value: append([]byte{}, op.Value...)})

		case ProofParent:
			self, err := pop()
			if err != nil {
				return grovehash.Null, nil, err
			}
			child, err := pop()
			if err != nil {
				return grovehash.Null, nil, err
			}
			if !self.pending {
				return grovehash.Null, nil, grovedberr.InvalidProof("merk: Parent applied to an already-combined node")
			}
			self.left = child.hash
			self.recompute()
			stack = append(stack, self)

		case ProofChild:
			child, err := pop()
			if err != nil {
				return grovehash.Null, nil, err
			}
			self, err := pop()
			if err != nil {
				return grovehash.Null, nil, err
			}
			if !self.pending {
				return grovehash.Null, nil, grovedberr.InvalidProof("merk: Child applied to an already-combined node")
			}
			self.right = child.hash
			self.recompute()
			stack = append(stack, self)

		default:
			return grovehash.Null, nil, grovedberr.InvalidProof("merk: unknown proof op kind %d", op.Kind)
		}
	}

	if len(stack) != 1 {
		return grovehash.Null, nil, grovedberr.InvalidProof("merk: proof stream left %d entries on the stack, want 1", len(stack))
	}
	return stack[0].hash, results, nil
}
