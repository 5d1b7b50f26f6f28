package metrics

// Pre-defined metrics for GroveDB. All metrics live in DefaultRegistry so
// they are globally accessible without passing a registry around.

var (
	// ---- Merk tree metrics ----

	// MerkCommits counts Merk tree commit operations.
	MerkCommits = DefaultRegistry.Counter("merk.commits")
	// MerkCommitTime records Merk commit duration in milliseconds.
	MerkCommitTime = DefaultRegistry.Histogram("merk.commit_ms")
	// MerkNodesLoaded counts nodes fetched from storage during a walk.
	MerkNodesLoaded = DefaultRegistry.Counter("merk.nodes_loaded")
	// MerkRotations counts AVL rebalancing rotations performed.
	MerkRotations = DefaultRegistry.Counter("merk.rotations")

	// ---- Batch metrics ----

	// BatchOpsApplied counts individual ops applied across all batches.
	BatchOpsApplied = DefaultRegistry.Counter("batch.ops_applied")
	// BatchApplyTime records end-to-end batch apply duration in milliseconds.
	BatchApplyTime = DefaultRegistry.Histogram("batch.apply_ms")
	// BatchValidationErrors counts ops rejected during the validation pass.
	BatchValidationErrors = DefaultRegistry.Counter("batch.validation_errors")

	// ---- Reference metrics ----

	// ReferenceHops counts total reference hops followed during resolution.
	ReferenceHops = DefaultRegistry.Counter("reference.hops")
	// ReferenceCyclesDetected counts cyclic reference chains rejected.
	ReferenceCyclesDetected = DefaultRegistry.Counter("reference.cycles_detected")

	// ---- Proof metrics ----

	// ProofsGenerated counts proof generation calls.
	ProofsGenerated = DefaultRegistry.Counter("proof.generated")
	// ProofsVerified counts proof verification calls.
	ProofsVerified = DefaultRegistry.Counter("proof.verified")
	// ProofVerifyFailures counts proof verification failures.
	ProofVerifyFailures = DefaultRegistry.Counter("proof.verify_failures")
	// ProofBytes records the serialized size of generated proofs.
	ProofBytes = DefaultRegistry.Histogram("proof.bytes")

	// ---- Chunk sync metrics ----

	// ChunksSent counts chunks sent to a sync peer.
	ChunksSent = DefaultRegistry.Counter("chunk.sent")
	// ChunksReceived counts chunks received from a sync peer.
	ChunksReceived = DefaultRegistry.Counter("chunk.received")
	// ChunkApplyErrors counts chunks that failed to apply on receipt.
	ChunkApplyErrors = DefaultRegistry.Counter("chunk.apply_errors")

	// ---- Storage metrics ----

	// StorageBytesWritten counts bytes written to the backing store.
	StorageBytesWritten = DefaultRegistry.Counter("storage.bytes_written")
	// StorageBytesRead counts bytes read from the backing store.
	StorageBytesRead = DefaultRegistry.Counter("storage.bytes_read")
	// StorageSeeks counts raw iterator seeks issued to the backing store.
	StorageSeeks = DefaultRegistry.Counter("storage.seeks")
)
