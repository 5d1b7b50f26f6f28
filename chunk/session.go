package chunk

import (
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/merk"
)

// Session is the replica side of a chunk-streaming sync for one subtree:
// it tracks the set of outstanding chunk ids (a trunk's pruned
// boundaries, and whatever further boundaries each applied branch chunk
// itself introduces) until every boundary has been replaced by verified
// content.
type Session struct {
	expectedRoot grovehash.Hash
	outstanding  map[string]merk.TrunkBoundary
	trunkApplied bool
}

// NewSession starts a sync session pinned to the subtree's expected
// root hash, known in advance (e.g. from the parent subtree's own
// element, or from an externally agreed checkpoint).
func NewSession(expectedRoot grovehash.Hash) *Session {
	return &Session{expectedRoot: expectedRoot, outstanding: map[string]merk.TrunkBoundary{}}
}

// ApplyTrunk verifies c against the session's pinned root and seeds the
// outstanding set from its boundaries. It must be called exactly once,
// before any ApplyChunk call.
func (s *Session) ApplyTrunk(c Chunk) ([]merk.ProofResult, error) {
	if s.trunkApplied {
		return nil, grovedberr.InvalidProof("chunk: trunk already applied for this session")
	}
	hash, results, err := merk.VerifyRangeProof(c.Ops, nil)
	if err != nil {
		return nil, err
	}
	if hash != s.expectedRoot {
		return nil, grovedberr.ProofRootMismatch("chunk: trunk root %x does not match expected root %x", hash, s.expectedRoot)
	}
	s.trunkApplied = true
	for _, b := range c.Boundaries {
		s.outstanding[string(b.Key)] = b
	}
	return results, nil
}

// ApplyChunk verifies a branch chunk received for the outstanding
// boundary identified by atKey against its pinned hash, then removes it
// from the outstanding set and returns its matched content plus the ids
// of any further boundaries it introduced (newly discovered chunk ids
// the caller must still request).
func (s *Session) ApplyChunk(atKey []byte, c Chunk) ([]merk.ProofResult, []string, error) {
	boundary, ok := s.outstanding[string(atKey)]
	if !ok {
		return nil, nil, grovedberr.InvalidProof("chunk: no outstanding boundary for key %x", atKey)
	}
	hash, results, err := merk.VerifyRangeProof(c.Ops, nil)
	if err != nil {
		return nil, nil, err
	}
	if hash != boundary.Hash {
		return nil, nil, grovedberr.ProofRootMismatch("chunk: branch root %x does not match pinned boundary hash %x", hash, boundary.Hash)
	}
	delete(s.outstanding, string(atKey))

	newIDs := make([]string, 0, len(c.Boundaries))
	for _, b := range c.Boundaries {
		s.outstanding[string(b.Key)] = b
		newIDs = append(newIDs, string(b.Key))
	}
	return results, newIDs, nil
}

// OutstandingIDs returns the chunk ids (boundary keys) not yet replaced
// by verified content.
func (s *Session) OutstandingIDs() []string {
	ids := make([]string, 0, len(s.outstanding))
	for id := range s.outstanding {
		ids = append(ids, id)
	}
	return ids
}

// Done reports whether every boundary discovered so far has been
// resolved: the trunk has been applied and no chunk id remains
// outstanding.
func (s *Session) Done() bool {
	return s.trunkApplied && len(s.outstanding) == 0
}
