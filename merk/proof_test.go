package merk

import (
	"testing"
)

func TestGenerateAndVerifyRangeProofFullRange(t *testing.T) {
	tr, _ := openTestTree(t)
	var ops []Op
	keys := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, k := range keys {
		ops = append(ops, putOp(k, "v-"+k))
	}
	if _, err := tr.Apply(ops); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, _, _, err := tr.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	wantHash, _, _, err := tr.RootHashKeyAndAggregate()
	if err != nil {
		t.Fatalf("RootHashKeyAndAggregate: %v", err)
	}

	proofOps, results, _, err := GenerateRangeProof(tr, nil, true, nil, true, nil, nil)
	if err != nil {
		t.Fatalf("GenerateRangeProof: %v", err)
	}
	if len(results) != len(keys) {
		t.Fatalf("got %d results, want %d", len(results), len(keys))
	}
	for i, k := range keys {
		if string(results[i].Key) != k {
			t.Fatalf("result[%d].Key = %q, want %q", i, results[i].Key, k)
		}
		if string(results[i].Value) == "" {
			t.Fatalf("result[%d] missing value", i)
		}
	}

	gotHash, verified, err := VerifyRangeProof(proofOps, nil)
	if err != nil {
		t.Fatalf("VerifyRangeProof: %v", err)
	}
	if gotHash != wantHash {
		t.Fatalf("verified hash %x != tree root hash %x", gotHash, wantHash)
	}
	if len(verified) != len(keys) {
		t.Fatalf("got %d verified results, want %d", len(verified), len(keys))
	}
}

func TestGenerateAndVerifyRangeProofSubrange(t *testing.T) {
	tr, _ := openTestTree(t)
	var ops []Op
	keys := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}
	for _, k := range keys {
		ops = append(ops, putOp(k, "v-"+k))
	}
	if _, err := tr.Apply(ops); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, _, _, err := tr.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	wantHash, _, _, err := tr.RootHashKeyAndAggregate()
	if err != nil {
		t.Fatalf("RootHashKeyAndAggregate: %v", err)
	}

	proofOps, results, _, err := GenerateRangeProof(tr, []byte("c"), true, []byte("f"), false, nil, nil)
	if err != nil {
		t.Fatalf("GenerateRangeProof: %v", err)
	}
	wantMatched := []string{"c", "d", "e"}
	if len(results) != len(wantMatched) {
		t.Fatalf("got %d results, want %d: %v", len(results), len(wantMatched), results)
	}
	for i, k := range wantMatched {
		if string(results[i].Key) != k {
			t.Fatalf("result[%d].Key = %q, want %q", i, results[i].Key, k)
		}
	}

	gotHash, verified, err := VerifyRangeProof(proofOps, nil)
	if err != nil {
		t.Fatalf("VerifyRangeProof: %v", err)
	}
	if gotHash != wantHash {
		t.Fatalf("verified hash %x != tree root hash %x", gotHash, wantHash)
	}
	if len(verified) != len(wantMatched) {
		t.Fatalf("got %d verified results, want %d", len(verified), len(wantMatched))
	}
}

func TestGenerateAndVerifyRangeProofWithLimit(t *testing.T) {
	tr, _ := openTestTree(t)
	var ops []Op
	keys := []string{"a", "b", "c", "d", "e"}
	for _, k := range keys {
		ops = append(ops, putOp(k, "v-"+k))
	}
	if _, err := tr.Apply(ops); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, _, _, err := tr.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	wantHash, _, _, err := tr.RootHashKeyAndAggregate()
	if err != nil {
		t.Fatalf("RootHashKeyAndAggregate: %v", err)
	}

	limit := 2
	proofOps, results, _, err := GenerateRangeProof(tr, nil, true, nil, true, &limit, nil)
	if err != nil {
		t.Fatalf("GenerateRangeProof: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %v", len(results), results)
	}
	if string(results[0].Key) != "a" || string(results[1].Key) != "b" {
		t.Fatalf("unexpected limited results: %v", results)
	}

	gotHash, _, err := VerifyRangeProof(proofOps, nil)
	if err != nil {
		t.Fatalf("VerifyRangeProof: %v", err)
	}
	if gotHash != wantHash {
		t.Fatalf("verified hash %x != tree root hash %x", gotHash, wantHash)
	}
}

func TestVerifyRangeProofRejectsTamperedValue(t *testing.T) {
	tr, _ := openTestTree(t)
	if _, err := tr.Apply([]Op{putOp("a", "v1"), putOp("b", "v2")}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, _, _, err := tr.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	proofOps, _, _, err := GenerateRangeProof(tr, nil, true, nil, true, nil, nil)
	if err != nil {
		t.Fatalf("GenerateRangeProof: %v", err)
	}
	for i := range proofOps {
		if proofOps[i].Kind == ProofPushKV {
			proofOps[i].Value = []byte("tampered")
		}
	}

	if _, _, err := VerifyRangeProof(proofOps, nil); err == nil {
		t.Fatal("expected verification to reject a tampered value")
	}
}
