package chunk

import (
	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/merk"
)

// GenerateTrunkChunk produces the donor's first chunk for a sync
// session: the subtree's root walked down maxDepth levels.
func GenerateTrunkChunk(t *merk.Tree, maxDepth int) (Chunk, cost.OperationCost, error) {
	ops, bounds, total, err := merk.GenerateTrunk(t, maxDepth)
	if err != nil {
		return Chunk{}, total, err
	}
	return Chunk{Ops: ops, Boundaries: bounds}, total, nil
}

// GenerateBranchChunk produces the donor's response to a replica
// request for the subtree rooted at atKey (a previously reported
// boundary key), walked down maxDepth further levels. maxDepth is
// typically one segment of CalculateChunkDepths(boundary.RemainingDepth,
// DefaultMaxChunkDepth), so a deep pruned subtree is streamed back over
// several bounded branch chunks instead of one unbounded one.
func GenerateBranchChunk(t *merk.Tree, atKey []byte, maxDepth int) (Chunk, cost.OperationCost, error) {
	ops, bounds, total, err := merk.GenerateBranch(t, atKey, maxDepth)
	if err != nil {
		return Chunk{}, total, err
	}
	return Chunk{Ops: ops, Boundaries: bounds}, total, nil
}
