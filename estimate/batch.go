package estimate

import (
	"github.com/dashpay/grovedb-sub005/batch"
	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
)

// FlagsUpdateFn estimates the flags size a put would leave behind, given
// the existing flags size (the layer's LayerInfo.FlagsSize, since the
// estimator never reads the key itself) and the new element's own flags
// size, so a caller whose flags grow on update
// (e.g. an attached "last modified" epoch) can feed that into the
// estimate instead of the estimator assuming flags never change.
type FlagsUpdateFn func(oldFlagsSize, newFlagsSize int) (updatedFlagsSize int)

// RemovalFn estimates the cost.OperationCost of removing one key from a
// layer described by li, mirroring cost.RemovalKind's basic-vs-sectioned
// choice at estimation time. A nil RemovalFn defaults to charging
// cost.BasicRemoval.
type RemovalFn func(li LayerInfo) cost.OperationCost

// PathKey joins path into the same string form callers should use as
// keys into the layerInfo map passed to *OperationsForBatch: each byte
// segment followed by a NUL separator. Segments are not escaped, so
// paths whose segments themselves contain NUL bytes can share a key.
func PathKey(path [][]byte) string {
	out := make([]byte, 0, 16*len(path))
	for _, seg := range path {
		out = append(out, seg...)
		out = append(out, 0)
	}
	return string(out)
}

func defaultRemovalFn(li LayerInfo) cost.OperationCost {
	return cost.ForRemoval(cost.BasicRemoval, uint64(li.encodedSize()))
}

// AverageCaseOperationsForBatch estimates the cost of applying ops
// assuming every touched layer is perfectly balanced (AverageCaseHeight).
func AverageCaseOperationsForBatch(
	ops []batch.QualifiedGroveDbOp,
	layerInfo map[string]LayerInfo,
	flagsUpdateFn FlagsUpdateFn,
	removalFn RemovalFn,
) (cost.OperationCost, error) {
	return operationsForBatch(ops, layerInfo, flagsUpdateFn, removalFn, LayerInfo.AverageCaseHeight)
}

// WorstCaseOperationsForBatch estimates the cost of applying ops
// assuming every touched layer is maximally unbalanced (WorstCaseHeight).
func WorstCaseOperationsForBatch(
	ops []batch.QualifiedGroveDbOp,
	layerInfo map[string]LayerInfo,
	flagsUpdateFn FlagsUpdateFn,
	removalFn RemovalFn,
) (cost.OperationCost, error) {
	return operationsForBatch(ops, layerInfo, flagsUpdateFn, removalFn, LayerInfo.WorstCaseHeight)
}

func operationsForBatch(
	ops []batch.QualifiedGroveDbOp,
	layerInfo map[string]LayerInfo,
	flagsUpdateFn FlagsUpdateFn,
	removalFn RemovalFn,
	heightOf func(LayerInfo) int,
) (cost.OperationCost, error) {
	if removalFn == nil {
		removalFn = defaultRemovalFn
	}

	var total cost.OperationCost
	for _, op := range ops {
		li := layerInfo[PathKey(op.Path)]
		height := heightOf(li)
		newFlagsSize := li.FlagsSize
		if op.Element != nil {
			newFlagsSize = len(op.Element.Flags())
		}

		switch op.Kind {
		case batch.InsertOrReplace, batch.InsertIfNotExists:
			total.AddInPlace(estimatePut(li, height, newFlagsSize, flagsUpdateFn))

		case batch.InsertIfChanged:
			// The replace path additionally has to load the existing
			// value to compare against the new one before deciding
			// whether a write is needed at all.
			total.AddInPlace(cost.ForSeek())
			total.AddInPlace(cost.ForStorageLoad(uint64(li.encodedSize())))
			total.AddInPlace(estimatePut(li, height, newFlagsSize, flagsUpdateFn))

		case batch.Delete, batch.DeleteUpTree:
			total.AddInPlace(estimateDelete(li, height, removalFn))
		}
	}
	return total, nil
}

// estimatePut prices writing one node plus rehashing every ancestor on
// the path back to the layer's root.
func estimatePut(li LayerInfo, height int, newFlagsSize int, flagsUpdateFn FlagsUpdateFn) cost.OperationCost {
	var c cost.OperationCost
	c.AddInPlace(cost.ForSeek())

	flagsSize := li.FlagsSize
	if flagsUpdateFn != nil {
		flagsSize = flagsUpdateFn(li.FlagsSize, newFlagsSize)
	}
	valueLen := li.KeySize + li.ValueSize + flagsSize + nodeFixedOverhead
	c.AddInPlace(cost.ForStorageWrite(uint64(valueLen)))

	// One hash (value -> KV -> node) per level from the new/changed leaf
	// up to the layer's root.
	blockCalls := uint64(grovehash.BlockCount(li.ValueSize))
	for i := 0; i < height; i++ {
		c.AddInPlace(cost.ForHash(blockCalls))
		c.AddInPlace(cost.ForStorageWrite(uint64(valueLen)))
	}
	return c
}

// estimateDelete prices removing one node plus rehashing every ancestor.
func estimateDelete(li LayerInfo, height int, removalFn RemovalFn) cost.OperationCost {
	c := removalFn(li)
	blockCalls := uint64(grovehash.BlockCount(li.ValueSize))
	for i := 0; i < height; i++ {
		c.AddInPlace(cost.ForHash(blockCalls))
	}
	return c
}
