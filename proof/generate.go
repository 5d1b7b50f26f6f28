package proof

import (
	"github.com/dashpay/grovedb-sub005/cache"
	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/merk"
)

// LayerProof is one subtree's contribution to a hierarchical proof: its
// own Merk operator stream, plus, for every matched key whose element is
// itself a subtree, that subtree's own nested LayerProof: a full proof of
// its subquery when one applies (and, unless IncludeEmptyTreesInResult is
// set, the subtree is non-empty), otherwise a proof of its root hash only.
type LayerProof struct {
	MerkProof   []merk.ProofOp
	LowerLayers map[string]*LayerProof
	// AbsentKeys lists the single keys this layer's query searched for
	// (Options.AbsenceProofsForNonExistingSearchedKeys) that matched
	// nothing in this layer's results. MerkProof already carries the
	// boundary KVDigest nodes bracketing each one; Verify rejects the
	// claim for any key that MerkProof itself shows present rather than
	// trusting it outright.
	AbsentKeys [][]byte
}

// Options controls optional proof-generation/verification behavior, per
// spec.md's proof modes.
type Options struct {
	// AbsenceProofsForNonExistingSearchedKeys makes Generate produce a
	// boundary KVDigest proving a searched single key's absence, instead
	// of silently omitting it, when an ItemKey clause matches nothing.
	AbsenceProofsForNonExistingSearchedKeys bool
	// VerifyProofSuccinctness makes Verify additionally reject a proof
	// that carries strictly more nested layers than the query it is
	// checked against could have asked for.
	VerifyProofSuccinctness bool
	// IncludeEmptyTreesInResult makes Generate descend into, and Verify
	// accept, a nested layer for a matched subtree element even when
	// that subtree is empty.
	IncludeEmptyTreesInResult bool
	// DecreaseLimitOnEmptySubqueryResult makes Generate, when
	// IncludeEmptyTreesInResult is off and a matched subtree element's
	// subquery applies to an empty subtree, decrement that subquery's own
	// Limit by one (if it has one). The enclosing Query's Limit is not
	// changed.
	DecreaseLimitOnEmptySubqueryResult bool
}

// Generate proves query against the subtree at path, recursing into
// subqueries for every matched subtree element.
func Generate(c *cache.Cache, path [][]byte, query *Query, opts Options) (*LayerProof, cost.OperationCost, error) {
	var total cost.OperationCost

	handle, c1, err := c.GetMerk(path)
	total.AddInPlace(c1)
	if err != nil {
		return nil, total, err
	}
	defer handle.Release()

	ops, results, c2, err := merk.GenerateProof(handle.Tree(), query.bounds(), query.Limit, query.Offset)
	total.AddInPlace(c2)
	if err != nil {
		return nil, total, err
	}

	lp := &LayerProof{MerkProof: ops}

	if opts.AbsenceProofsForNonExistingSearchedKeys {
		matched := make(map[string]bool, len(results))
		for _, r := range results {
			matched[string(r.Key)] = true
		}
		for _, it := range query.Items {
			if it.Kind != ItemKey || matched[string(it.Low)] {
				continue
			}
			lp.AbsentKeys = append(lp.AbsentKeys, append([]byte{}, it.Low...))
		}
	}

	for _, r := range results {
		el, err := element.Decode(r.Value)
		if err != nil {
			return nil, total, err
		}
		if !el.IsAnyTree() {
			continue
		}
		childPath := joinPath(path, r.Key)

		sub := query.subqueryFor(r.Key)
		full := sub != nil
		if full && !opts.IncludeEmptyTreesInResult {
			childHandle, c3, err := c.GetMerk(childPath)
			total.AddInPlace(c3)
			if err != nil {
				return nil, total, err
			}
			empty := childHandle.Tree().IsEmpty()
			childHandle.Release()
			if empty {
				if opts.DecreaseLimitOnEmptySubqueryResult && sub.Limit != nil {
					*sub.Limit--
				}
				full = false
			}
		}

		if lp.LowerLayers == nil {
			lp.LowerLayers = map[string]*LayerProof{}
		}

		if full {
			childProof, c3, err := Generate(c, childPath, sub, opts)
			total.AddInPlace(c3)
			if err != nil {
				return nil, total, err
			}
			lp.LowerLayers[string(r.Key)] = childProof
			continue
		}

		// No subquery content is attached for this matched tree-kind
		// element (no subquery applies, or its subtree is empty and
		// excluded). A ProofPushKV still revealed its full value above,
		// so the verifier still needs this child's root hash to check
		// that value's ValueHash binds it via grovehash.Combine -- attach
		// a minimal root-hash-only proof (no bounds, so only digests and
		// hashes are emitted, never full values) for exactly that.
		childHandle, c3, err := c.GetMerk(childPath)
		total.AddInPlace(c3)
		if err != nil {
			return nil, total, err
		}
		rootOps, _, c4, err := merk.GenerateProof(childHandle.Tree(), nil, nil, nil)
		childHandle.Release()
		total.AddInPlace(c4)
		if err != nil {
			return nil, total, err
		}
		lp.LowerLayers[string(r.Key)] = &LayerProof{MerkProof: rootOps}
	}

	return lp, total, nil
}

func joinPath(path [][]byte, key []byte) [][]byte {
	out := make([][]byte, len(path)+1)
	copy(out, path)
	out[len(path)] = append([]byte{}, key...)
	return out
}
