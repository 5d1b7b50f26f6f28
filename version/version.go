// Package version holds the process-wide constants that bound GroveDB's
// behaviour and the versioned feature flags that let that behaviour change
// across releases without breaking existing proofs or wire data.
package version

// Structural limits referenced throughout merk, reference, proof, and chunk.
const (
	// MaxKeyLength is the maximum length in bytes of an opaque Key.
	MaxKeyLength = 255

	// MaxReferenceHops bounds reference-chain resolution; a chain this long
	// resolves, one longer fails with ReferenceLimitExceeded.
	MaxReferenceHops = 16

	// MaxTrunkDepth is the maximum BFS depth of a chunk trunk.
	MaxTrunkDepth = 8

	// MaxChunkEntries bounds the number of KV entries accepted when
	// decoding a single chunk blob, guarding against memory-exhaustion
	// attacks from a malicious or buggy donor.
	MaxChunkEntries = 1 << 20
)

// FeatureVersion records the versioned knobs that affect hashing, proof, or
// wire-format semantics. A GroveDB instance is constructed with one
// FeatureVersion and uses it consistently for the lifetime of the process;
// changing it only affects newly written data and newly generated proofs.
type FeatureVersion struct {
	// ProofFormat selects the outer GroveDBProof enum variant used when
	// serialising proofs. Only V0 is defined today.
	ProofFormat uint16

	// DecreaseLimitOnEmptySubqueryResult controls whether a subquery that
	// hits an empty subtree decrements that subquery's own limit.
	// This is a deliberate DOS guard; disabling it requires the caller to
	// be sure that subqueries are otherwise bounded.
	DecreaseLimitOnEmptySubqueryResult bool
}

// ProofFormatV0 is the only defined outer proof wire-format version.
const ProofFormatV0 uint16 = 0

// Current returns the FeatureVersion a fresh GroveDB instance should use.
func Current() FeatureVersion {
	return FeatureVersion{
		ProofFormat:                        ProofFormatV0,
		DecreaseLimitOnEmptySubqueryResult: true,
	}
}
