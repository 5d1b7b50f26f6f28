package merk

import (
	"testing"

	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/storage"
)

func TestDiagnoseHashMismatchCleanTreeIsEmpty(t *testing.T) {
	tr, _ := openTestTree(t)
	if _, err := tr.Apply([]Op{putOp("a", "va"), putOp("b", "vb"), putOp("c", "vc")}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, _, _, err := tr.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	mismatches, _, err := tr.DiagnoseHashMismatch()
	if err != nil {
		t.Fatalf("DiagnoseHashMismatch: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("expected no mismatches on a clean tree, got %+v", mismatches)
	}
}

func TestDiagnoseHashMismatchFindsCorruptedNode(t *testing.T) {
	tr, ctx := openTestTree(t)
	if _, err := tr.Apply([]Op{putOp("a", "va"), putOp("b", "vb"), putOp("c", "vc")}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, _, _, err := tr.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// Load the raw stored bytes for "b" and flip a byte in its encoded
	// value, corrupting it independently of its stored hashes.
	raw, err := ctx.Get(storage.ColumnData, []byte("b"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	node, err := decodeNode([]byte("b"), raw)
	if err != nil {
		t.Fatalf("decodeNode: %v", err)
	}
	node.Value[len(node.Value)-1] ^= 0xff
	if err := ctx.Put(storage.ColumnData, []byte("b"), node.encode()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	fresh, _, err := Open(ctx, element.KindTree)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	mismatches, _, err := fresh.DiagnoseHashMismatch()
	if err != nil {
		t.Fatalf("DiagnoseHashMismatch: %v", err)
	}
	if len(mismatches) == 0 {
		t.Fatal("expected corruption to be detected")
	}

	foundB := false
	for _, m := range mismatches {
		if string(m.Key) == "b" && m.Field == "value" {
			foundB = true
		}
	}
	if !foundB {
		t.Fatalf("expected a value-hash mismatch reported at key %q, got %+v", "b", mismatches)
	}
}
