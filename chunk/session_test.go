package chunk

import (
	"sort"
	"testing"

	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/merk"
	"github.com/dashpay/grovedb-sub005/storage/memstore"
)

func buildSyncTestTree(t *testing.T, n int) *merk.Tree {
	t.Helper()
	store := memstore.New()
	ctx := store.Context(grovehash.Sum([]byte("sync-subtree")), nil)
	tr, _, err := merk.Open(ctx, element.KindTree)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var ops []merk.Op
	for i := 0; i < n; i++ {
		key := []byte{byte('a' + i)}
		enc, err := element.Encode(&element.Item{Value: []byte("v")})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		ops = append(ops, merk.Op{Key: key, Kind: merk.OpPut, Value: enc, Feature: element.FeatureType{Tag: element.FeatureBasic}})
	}
	if _, err := tr.Apply(ops); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, _, _, err := tr.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return tr
}

func TestSessionSyncsWholeTreeAcrossTrunkAndBranches(t *testing.T) {
	tr := buildSyncTestTree(t, 20)
	rootHash, _, _, err := tr.RootHashKeyAndAggregate()
	if err != nil {
		t.Fatalf("RootHashKeyAndAggregate: %v", err)
	}

	const trunkDepth = 2
	trunkChunk, _, err := GenerateTrunkChunk(tr, trunkDepth)
	if err != nil {
		t.Fatalf("GenerateTrunkChunk: %v", err)
	}

	// Round-trip the trunk through the wire envelope, the way it would
	// actually cross a donor/recipient boundary.
	wire := trunkChunk.Serialize()
	trunkChunk, err = Deserialize(wire)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	session := NewSession(rootHash)
	results, err := session.ApplyTrunk(trunkChunk)
	if err != nil {
		t.Fatalf("ApplyTrunk: %v", err)
	}

	var allKeys []string
	for _, r := range results {
		allKeys = append(allKeys, string(r.Key))
	}

	for !session.Done() {
		ids := session.OutstandingIDs()
		sort.Strings(ids)
		id := ids[0]

		branchChunk, _, err := GenerateBranchChunk(tr, []byte(id), trunkDepth)
		if err != nil {
			t.Fatalf("GenerateBranchChunk(%q): %v", id, err)
		}
		wire := branchChunk.Serialize()
		branchChunk, err = Deserialize(wire)
		if err != nil {
			t.Fatalf("Deserialize: %v", err)
		}

		branchResults, _, err := session.ApplyChunk([]byte(id), branchChunk)
		if err != nil {
			t.Fatalf("ApplyChunk(%q): %v", id, err)
		}
		for _, r := range branchResults {
			allKeys = append(allKeys, string(r.Key))
		}
	}

	if len(allKeys) != 20 {
		t.Fatalf("reconstructed %d keys across the sync, want 20: %v", len(allKeys), allKeys)
	}
	sort.Strings(allKeys)
	for i, k := range allKeys {
		want := string(rune('a' + i))
		if k != want {
			t.Fatalf("allKeys[%d] = %q, want %q", i, k, want)
		}
	}
}

func TestSessionRejectsTrunkWithWrongRoot(t *testing.T) {
	tr := buildSyncTestTree(t, 5)
	chunk, _, err := GenerateTrunkChunk(tr, 8)
	if err != nil {
		t.Fatalf("GenerateTrunkChunk: %v", err)
	}
	var wrongRoot grovehash.Hash
	wrongRoot[0] = 0x01
	session := NewSession(wrongRoot)
	if _, err := session.ApplyTrunk(chunk); err == nil {
		t.Fatal("expected ApplyTrunk to reject a mismatched root")
	}
}

func TestSessionRejectsUnrequestedChunkID(t *testing.T) {
	tr := buildSyncTestTree(t, 5)
	rootHash, _, _, err := tr.RootHashKeyAndAggregate()
	if err != nil {
		t.Fatalf("RootHashKeyAndAggregate: %v", err)
	}
	chunk, _, err := GenerateTrunkChunk(tr, 8)
	if err != nil {
		t.Fatalf("GenerateTrunkChunk: %v", err)
	}
	session := NewSession(rootHash)
	if _, err := session.ApplyTrunk(chunk); err != nil {
		t.Fatalf("ApplyTrunk: %v", err)
	}
	if _, _, err := session.ApplyChunk([]byte("not-a-boundary"), Chunk{}); err == nil {
		t.Fatal("expected ApplyChunk to reject an id the session never reported as outstanding")
	}
}
