// Package estimate provides pre-execution cost oracles for a batch: the
// same cost.OperationCost a batch.Apply would accumulate, computed from
// per-subtree summary statistics instead of by actually touching
// storage. A planner calls these to decide whether a batch is cheap
// enough to run, or to compare an estimate against the batch's real
// post-execution cost.
package estimate

import "math/bits"

// LayerInfo summarizes one subtree a batch touches: the sizes an
// estimator needs to price a put or delete against it without reading
// anything, and how many entries it currently holds (to derive the AVL
// height a rehash walk has to climb).
type LayerInfo struct {
	KeySize   int
	ValueSize int
	FlagsSize int
	NodeCount uint64
}

// nodeFixedOverhead approximates the non-key/value/flags bytes every
// stored node carries: three 32-byte hashes plus two child links'
// presence/height bytes and (usually short) keys. It is a constant
// estimate, not a recomputation of merk's exact wire layout -- an
// estimator trades precision for never touching storage.
const nodeFixedOverhead = 3*32 + 64

// encodedSize estimates the stored byte size of one node in this layer.
func (li LayerInfo) encodedSize() int {
	return li.KeySize + li.ValueSize + li.FlagsSize + nodeFixedOverhead
}

// AverageCaseHeight is the expected AVL height of a balanced tree
// holding NodeCount entries: ceil(log2(NodeCount+1)), at least 1 once
// the layer holds anything.
func (li LayerInfo) AverageCaseHeight() int {
	return balancedHeight(li.NodeCount)
}

// WorstCaseHeight is the height of a maximally unbalanced chain holding
// NodeCount entries: every insert/delete walks the full chain rather
// than a logarithmic path.
func (li LayerInfo) WorstCaseHeight() int {
	if li.NodeCount == 0 {
		return 1
	}
	return int(li.NodeCount)
}

func balancedHeight(n uint64) int {
	if n == 0 {
		return 1
	}
	// ceil(log2(n+1))
	return bits.Len64(n)
}
