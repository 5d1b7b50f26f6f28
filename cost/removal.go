package cost

// RemovalKind controls how a committed deletion is priced.
type RemovalKind byte

const (
	// BasicRemoval charges only the seek needed to reach the key being
	// removed, independent of how much data that key held. Cheap to
	// compute since it never needs the removed value's size.
	BasicRemoval RemovalKind = iota
	// SectionedRemoval additionally charges for the exact number of
	// bytes freed, the way a storage backend that reclaims space
	// section-by-section would bill it.
	SectionedRemoval
)

// ForRemoval returns the OperationCost of deleting one key under kind.
// removedBytes is ignored under BasicRemoval.
func ForRemoval(kind RemovalKind, removedBytes uint64) OperationCost {
	c := ForSeek()
	if kind == SectionedRemoval {
		c.AddInPlace(OperationCost{StorageWrittenBytes: removedBytes})
	}
	return c
}
