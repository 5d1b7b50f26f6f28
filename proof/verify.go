package proof

import (
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/merk"
)

// Result is one verified (key, value) match, with any nested subquery
// matches attached as Children. Absent is set instead of Value when this
// entry proves its Key is not present in the tree (only ever produced
// when verifying with Options.AbsenceProofsForNonExistingSearchedKeys).
type Result struct {
	Key      []byte
	Value    []byte
	Children []Result
	Absent   bool
}

// Verify reconstructs the root hash of lp against query and requires it
// equal expectedRoot, returning the matched results (with nested
// subquery matches attached) on success.
func Verify(lp *LayerProof, query *Query, expectedRoot grovehash.Hash, opts Options) ([]Result, error) {
	hash, results, err := verifyLayer(lp, query, opts)
	if err != nil {
		return nil, err
	}
	if hash != expectedRoot {
		return nil, grovedberr.ProofRootMismatch("proof: reconstructed root %x does not match expected root %x", hash, expectedRoot)
	}
	return results, nil
}

// verifyLayer verifies lp bottom-up: every nested layer is verified
// first so its reconstructed root hash is known before this layer's own
// merk proof is replayed, letting that replay check a matched tree-kind
// element's ValueHash against its child's verified root via
// grovehash.Combine (see merk.VerifyRangeProof).
func verifyLayer(lp *LayerProof, query *Query, opts Options) (grovehash.Hash, []Result, error) {
	childRoots := make(map[string]grovehash.Hash, len(lp.LowerLayers))
	childResults := make(map[string][]Result, len(lp.LowerLayers))
	for k, child := range lp.LowerLayers {
		sub := query.subqueryFor([]byte(k))
		h, children, err := verifyLayer(child, sub, opts)
		if err != nil {
			return grovehash.Null, nil, err
		}
		childRoots[k] = h
		childResults[k] = children
	}

	hash, merkResults, err := merk.VerifyRangeProof(lp.MerkProof, childRoots)
	if err != nil {
		return grovehash.Null, nil, err
	}

	matched := map[string]bool{}
	var out []Result
	for _, r := range merkResults {
		res := Result{Key: r.Key, Value: r.Value}
		if _, ok := lp.LowerLayers[string(r.Key)]; ok {
			el, err := element.Decode(r.Value)
			if err != nil {
				return grovehash.Null, nil, err
			}
			if !el.IsAnyTree() {
				return grovehash.Null, nil, grovedberr.InvalidProof("proof: nested layer present for non-subtree key %x", r.Key)
			}
			// The nested layer proves this element's child root hash (needed
			// to check its own ValueHash above) regardless of whether query
			// asks anything further of it. Only count it as an explained
			// subquery match, and attach its Children, when query actually
			// defines a subquery for this key -- the same condition Generate
			// used to decide between full subquery content and a bare root
			// hash.
			if query.subqueryFor(r.Key) != nil {
				matched[string(r.Key)] = true
				res.Children = childResults[string(r.Key)]
			}
		}
		out = append(out, res)
	}

	if opts.VerifyProofSuccinctness {
		for k := range lp.LowerLayers {
			if !matched[k] {
				return grovehash.Null, nil, grovedberr.InvalidProof("proof: nested layer %q does not correspond to any matched key this query could produce", k)
			}
		}
	}

	if opts.AbsenceProofsForNonExistingSearchedKeys {
		present := make(map[string]bool, len(lp.MerkProof))
		for _, op := range lp.MerkProof {
			if op.Kind == merk.ProofPushKV || op.Kind == merk.ProofPushKVDigest {
				present[string(op.Key)] = true
			}
		}
		for _, k := range lp.AbsentKeys {
			// Every KV and KVDigest key in MerkProof is bound into the root
			// hash the replay above reconstructed, not taken on the
			// generator's word: a key the proof shows present cannot also
			// be validly claimed absent here.
			if present[string(k)] {
				return grovehash.Null, nil, grovedberr.InvalidProof("proof: key %x claimed absent but is present in the proof", k)
			}
			out = append(out, Result{Key: append([]byte{}, k...), Absent: true})
		}
	}

	return hash, out, nil
}
