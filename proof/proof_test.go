package proof

import (
	"testing"

	"github.com/dashpay/grovedb-sub005/batch"
	"github.com/dashpay/grovedb-sub005/cache"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/storage/memstore"
)

func itemEl(v string) element.Element { return &element.Item{Value: []byte(v)} }
func treeEl() element.Element          { return &element.Tree{} }

func buildFixture(t *testing.T) (*memstore.Store, grovehash.Hash) {
	t.Helper()
	store := memstore.New()
	c := cache.New(store, nil, element.KindTree)
	ops := []batch.QualifiedGroveDbOp{
		{Path: nil, Key: []byte("top"), Kind: batch.InsertOrReplace, Element: treeEl()},
		{Path: [][]byte{[]byte("top")}, Key: []byte("a"), Kind: batch.InsertOrReplace, Element: itemEl("va")},
		{Path: [][]byte{[]byte("top")}, Key: []byte("b"), Kind: batch.InsertOrReplace, Element: itemEl("vb")},
		{Path: [][]byte{[]byte("top")}, Key: []byte("c"), Kind: batch.InsertOrReplace, Element: itemEl("vc")},
	}
	rootHash, _, err := batch.Apply(c, ops, batch.Options{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return store, rootHash
}

func TestGenerateAndVerifyRootLayerFullRange(t *testing.T) {
	store, rootHash := buildFixture(t)
	c := cache.New(store, nil, element.KindTree)

	query := &Query{Items: []Item{{Kind: ItemRangeFull}}}
	lp, _, err := Generate(c, nil, query, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	results, err := Verify(lp, query, rootHash, Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(results) != 1 || string(results[0].Key) != "top" {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestGenerateAndVerifyNestedSubquery(t *testing.T) {
	store, rootHash := buildFixture(t)
	c := cache.New(store, nil, element.KindTree)

	query := &Query{
		Items:   []Item{Key([]byte("top"))},
		Default: &Query{Items: []Item{{Kind: ItemRangeFull}}},
	}
	lp, _, err := Generate(c, nil, query, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	results, err := Verify(lp, query, rootHash, Options{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(results) != 1 || string(results[0].Key) != "top" {
		t.Fatalf("unexpected top-level results: %v", results)
	}
	children := results[0].Children
	if len(children) != 3 {
		t.Fatalf("got %d children, want 3: %v", len(children), children)
	}
	wantKeys := []string{"a", "b", "c"}
	for i, k := range wantKeys {
		if string(children[i].Key) != k {
			t.Fatalf("children[%d].Key = %q, want %q", i, children[i].Key, k)
		}
	}
}

func TestVerifyRejectsWrongExpectedRoot(t *testing.T) {
	store, _ := buildFixture(t)
	c := cache.New(store, nil, element.KindTree)

	query := &Query{Items: []Item{{Kind: ItemRangeFull}}}
	lp, _, err := Generate(c, nil, query, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var wrongRoot grovehash.Hash
	wrongRoot[0] = 0xff
	if _, err := Verify(lp, query, wrongRoot, Options{}); err == nil {
		t.Fatal("expected verification to reject a mismatched expected root")
	}
}

func TestGenerateAndVerifyProvesAbsenceOfSearchedKey(t *testing.T) {
	store, rootHash := buildFixture(t)
	c := cache.New(store, nil, element.KindTree)

	query := &Query{Items: []Item{Key([]byte("zzz"))}}
	opts := Options{AbsenceProofsForNonExistingSearchedKeys: true}
	lp, _, err := Generate(c, nil, query, opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	results, err := Verify(lp, query, rootHash, opts)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(results) != 1 || string(results[0].Key) != "zzz" || !results[0].Absent {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestGenerateAndVerifyProvesAbsenceOfNestedSearchedKey(t *testing.T) {
	store, rootHash := buildFixture(t)
	c := cache.New(store, nil, element.KindTree)

	query := &Query{
		Items:   []Item{Key([]byte("top"))},
		Default: &Query{Items: []Item{Key([]byte("bb"))}},
	}
	opts := Options{AbsenceProofsForNonExistingSearchedKeys: true}
	lp, _, err := Generate(c, nil, query, opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	results, err := Verify(lp, query, rootHash, opts)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(results) != 1 || string(results[0].Key) != "top" {
		t.Fatalf("unexpected top-level results: %v", results)
	}
	children := results[0].Children
	if len(children) != 1 || string(children[0].Key) != "bb" || !children[0].Absent {
		t.Fatalf("unexpected children: %v", children)
	}
}

func TestVerifyRejectsAbsenceClaimForPresentKey(t *testing.T) {
	store, rootHash := buildFixture(t)
	c := cache.New(store, nil, element.KindTree)

	query := &Query{Items: []Item{Key([]byte("zzz"))}}
	opts := Options{AbsenceProofsForNonExistingSearchedKeys: true}
	lp, _, err := Generate(c, nil, query, opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// A proof honestly generated for the absent key "zzz" must not be
	// accepted as proving the actually-present key "top" absent once its
	// AbsentKeys claim is swapped.
	lp.AbsentKeys = [][]byte{[]byte("top")}
	if _, err := Verify(lp, &Query{Items: []Item{Key([]byte("top"))}}, rootHash, opts); err == nil {
		t.Fatal("expected verification to reject a false absence claim for a present key")
	}
}

func TestVerifySuccinctnessRejectsExtraLayer(t *testing.T) {
	store, rootHash := buildFixture(t)
	c := cache.New(store, nil, element.KindTree)

	genQuery := &Query{
		Items:   []Item{Key([]byte("top"))},
		Default: &Query{Items: []Item{{Kind: ItemRangeFull}}},
	}
	lp, _, err := Generate(c, nil, genQuery, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Verify against a query that no longer carries a subquery: the
	// nested layer for "top" is now unexplained.
	bareQuery := &Query{Items: []Item{Key([]byte("top"))}}
	if _, err := Verify(lp, bareQuery, rootHash, Options{VerifyProofSuccinctness: true}); err == nil {
		t.Fatal("expected succinctness check to reject an unexplained nested layer")
	}
}
