package merk

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/storage"
	"github.com/dashpay/grovedb-sub005/storage/memstore"
)

func openTestTree(t *testing.T) (*Tree, storage.StorageContext) {
	t.Helper()
	store := memstore.New()
	ctx := store.Context(grovehash.Sum([]byte("subtree")), nil)
	tr, _, err := Open(ctx, element.KindTree)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return tr, ctx
}

func putOp(key, value string) Op {
	el := &element.Item{Value: []byte(value)}
	enc, err := element.Encode(el)
	if err != nil {
		panic(err)
	}
	return Op{Key: []byte(key), Kind: OpPut, Value: enc, Feature: element.FeatureType{Tag: element.FeatureBasic}}
}

func delOp(key string) Op {
	return Op{Key: []byte(key), Kind: OpDelete, Feature: element.FeatureType{Tag: element.FeatureBasic}}
}

func checkBalanced(t *testing.T, tr *Tree, link Link) uint8 {
	t.Helper()
	if link.isEmpty() {
		return 0
	}
	node, _, err := tr.resolve(link)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	lh := checkBalanced(t, tr, node.Left)
	rh := checkBalanced(t, tr, node.Right)
	bf := int(lh) - int(rh)
	if bf > 1 || bf < -1 {
		t.Fatalf("node %q unbalanced: left height %d, right height %d", node.Key, lh, rh)
	}
	h := lh
	if rh > h {
		h = rh
	}
	return h + 1
}

func inorderKeys(t *testing.T, tr *Tree, link Link, out *[]string) {
	t.Helper()
	if link.isEmpty() {
		return
	}
	node, _, err := tr.resolve(link)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	inorderKeys(t, tr, node.Left, out)
	*out = append(*out, string(node.Key))
	inorderKeys(t, tr, node.Right, out)
}

func TestApplyAscendingInsertsStaysBalanced(t *testing.T) {
	tr, _ := openTestTree(t)
	var ops []Op
	for i := 0; i < 200; i++ {
		ops = append(ops, putOp(fmt.Sprintf("key-%04d", i), fmt.Sprintf("v%d", i)))
	}
	if _, err := tr.Apply(ops); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	checkBalanced(t, tr, tr.root)

	var keys []string
	inorderKeys(t, tr, tr.root, &keys)
	if len(keys) != 200 {
		t.Fatalf("got %d keys, want 200", len(keys))
	}
	for i := 0; i < 200; i++ {
		want := fmt.Sprintf("key-%04d", i)
		if keys[i] != want {
			t.Fatalf("keys[%d] = %q, want %q", i, keys[i], want)
		}
	}
}

func TestApplyRandomInsertsAndDeletesStaysBalanced(t *testing.T) {
	tr, _ := openTestTree(t)
	rng := rand.New(rand.NewSource(1))
	present := map[string]bool{}

	for round := 0; round < 30; round++ {
		var ops []Op
		var keys []string
		for i := 0; i < 10; i++ {
			keys = append(keys, fmt.Sprintf("k%03d", rng.Intn(300)))
		}
		uniq := map[string]bool{}
		var sorted []string
		for _, k := range keys {
			if !uniq[k] {
				uniq[k] = true
				sorted = append(sorted, k)
			}
		}
		sortStrings(sorted)
		for _, k := range sorted {
			if present[k] && rng.Intn(2) == 0 {
				ops = append(ops, delOp(k))
				present[k] = false
			} else {
				ops = append(ops, putOp(k, "v"))
				present[k] = true
			}
		}
		if _, err := tr.Apply(ops); err != nil {
			t.Fatalf("round %d Apply: %v", round, err)
		}
		checkBalanced(t, tr, tr.root)

		if _, _, _, err := tr.Commit(); err != nil {
			t.Fatalf("round %d Commit: %v", round, err)
		}
	}

	var keys []string
	inorderKeys(t, tr, tr.root, &keys)
	var want []string
	for k, ok := range present {
		if ok {
			want = append(want, k)
		}
	}
	sortStrings(want)
	if len(keys) != len(want) {
		t.Fatalf("got %d live keys, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

// sortStrings avoids importing sort in a test file that already imports
// math/rand and keeps the dependency list tight.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func TestDeleteShrinkingRecursedSideRebalancesPrunedSibling(t *testing.T) {
	tr, _ := openTestTree(t)

	var ops []Op
	for i := 0; i < 15; i++ {
		ops = append(ops, putOp(fmt.Sprintf("k%02d", i), "v"))
	}
	if _, err := tr.Apply(ops); err != nil {
		t.Fatalf("Apply insert: %v", err)
	}
	if _, _, _, err := tr.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	// Reopen so every link starts out pruned; only the side we delete
	// from gets resolved by the recursion, leaving the other side's
	// links pruned going into rebalance.
	store := memstore.New()
	_ = store
	checkBalanced(t, tr, tr.root)

	del := []Op{delOp("k00"), delOp("k01"), delOp("k02"), delOp("k03")}
	if _, err := tr.Apply(del); err != nil {
		t.Fatalf("Apply delete: %v", err)
	}
	checkBalanced(t, tr, tr.root)

	var keys []string
	inorderKeys(t, tr, tr.root, &keys)
	if len(keys) != 11 {
		t.Fatalf("got %d keys after delete, want 11", len(keys))
	}
}

func TestCommitReopenPreservesRootHash(t *testing.T) {
	store := memstore.New()
	prefix := grovehash.Sum([]byte("s"))
	ctx := store.Context(prefix, nil)
	tr, _, err := Open(ctx, element.KindTree)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ops := []Op{putOp("a", "1"), putOp("b", "2"), putOp("c", "3")}
	if _, err := tr.Apply(ops); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	hash1, key1, _, err := tr.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	ctx2 := store.Context(prefix, nil)
	tr2, _, err := Open(ctx2, element.KindTree)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	hash2, key2, _, err := tr2.RootHashKeyAndAggregate()
	if err != nil {
		t.Fatalf("RootHashKeyAndAggregate: %v", err)
	}
	if hash1 != hash2 {
		t.Fatalf("root hash mismatch after reopen: %x vs %x", hash1, hash2)
	}
	if string(key1) != string(key2) {
		t.Fatalf("root key mismatch after reopen: %q vs %q", key1, key2)
	}

	val, _, err := tr2.Get([]byte("b"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	el, err := element.Decode(val)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	item, ok := el.(*element.Item)
	if !ok {
		t.Fatalf("got %T, want *element.Item", el)
	}
	if string(item.Value) != "2" {
		t.Fatalf("value = %q, want %q", item.Value, "2")
	}
}

func TestStateTransitions(t *testing.T) {
	tr, _ := openTestTree(t)
	if tr.State() != StateOpenClean {
		t.Fatalf("new tree state = %v, want StateOpenClean", tr.State())
	}
	if _, err := tr.Apply([]Op{putOp("x", "1")}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if tr.State() != StateOpenDirty {
		t.Fatalf("after Apply state = %v, want StateOpenDirty", tr.State())
	}
	if _, _, _, err := tr.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if tr.State() != StateOpenClean {
		t.Fatalf("after Commit state = %v, want StateOpenClean", tr.State())
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if tr.State() != StateClosed {
		t.Fatalf("after Close state = %v, want StateClosed", tr.State())
	}
	if _, err := tr.Apply([]Op{putOp("y", "1")}); err == nil {
		t.Fatal("expected error applying to a closed tree")
	}
}

func TestApplyRejectsUnsortedOps(t *testing.T) {
	tr, _ := openTestTree(t)
	ops := []Op{putOp("b", "1"), putOp("a", "2")}
	if _, err := tr.Apply(ops); err == nil {
		t.Fatal("expected error for unsorted ops")
	}
}

func TestApplyRejectsDisallowedFeatureTag(t *testing.T) {
	tr, _ := openTestTree(t)
	enc, err := element.Encode(&element.Item{Value: []byte("v")})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	ops := []Op{{Key: []byte("a"), Kind: OpPut, Value: enc, Feature: element.FeatureType{Tag: element.FeatureSummed}}}
	if _, err := tr.Apply(ops); err == nil {
		t.Fatal("expected error for disallowed feature tag on a plain tree")
	}
}

func TestGetMissingKeyIsNotFound(t *testing.T) {
	tr, _ := openTestTree(t)
	if _, err := tr.Apply([]Op{putOp("a", "1")}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, _, err := tr.Get([]byte("missing")); err == nil {
		t.Fatal("expected not-found error")
	}
	ok, _, err := tr.Has([]byte("missing"))
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if ok {
		t.Fatal("expected Has to report false for a missing key")
	}
}
