package cache

import (
	"testing"

	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/merk"
	"github.com/dashpay/grovedb-sub005/storage/memstore"
)

func encodeItem(t *testing.T, v string) []byte {
	t.Helper()
	buf, err := element.Encode(&element.Item{Value: []byte(v)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf
}

func encodeTree(t *testing.T) []byte {
	t.Helper()
	buf, err := element.Encode(&element.Tree{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf
}

func TestGetMerkSharesOneInstancePerPath(t *testing.T) {
	store := memstore.New()
	c := New(store, nil, element.KindTree)

	h1, _, err := c.GetMerk(nil)
	if err != nil {
		t.Fatalf("GetMerk: %v", err)
	}
	tree1 := h1.Tree()
	h1.Release()

	h2, _, err := c.GetMerk(nil)
	if err != nil {
		t.Fatalf("GetMerk: %v", err)
	}
	if h2.Tree() != tree1 {
		t.Fatal("expected the same *merk.Tree instance for repeated GetMerk on the same path")
	}
}

func TestGetMerkPanicsOnReentrantBorrow(t *testing.T) {
	store := memstore.New()
	c := New(store, nil, element.KindTree)

	if _, _, err := c.GetMerk(nil); err != nil {
		t.Fatalf("GetMerk: %v", err)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on reentrant borrow")
		}
	}()
	c.GetMerk(nil)
}

func TestDrainPropagatesRootKeyUpToParent(t *testing.T) {
	store := memstore.New()
	c := New(store, nil, element.KindTree)

	root, _, err := c.GetMerk(nil)
	if err != nil {
		t.Fatalf("GetMerk root: %v", err)
	}
	if _, err := root.Tree().Apply([]merk.Op{
		{Key: []byte("sub"), Kind: merk.OpPut, Value: encodeTree(t), Feature: element.FeatureType{Tag: element.FeatureBasic}},
	}); err != nil {
		t.Fatalf("Apply root insert: %v", err)
	}
	root.Release()

	sub, _, err := c.GetMerk([][]byte{[]byte("sub")})
	if err != nil {
		t.Fatalf("GetMerk sub: %v", err)
	}
	if _, err := sub.Tree().Apply([]merk.Op{
		{Key: []byte("leaf"), Kind: merk.OpPut, Value: encodeItem(t, "v"), Feature: element.FeatureType{Tag: element.FeatureBasic}},
	}); err != nil {
		t.Fatalf("Apply sub insert: %v", err)
	}
	sub.Release()

	rootHash, _, err := c.Drain()
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if rootHash.IsNull() {
		t.Fatal("expected a non-null root hash after Drain")
	}

	// Reopen from scratch and confirm the parent's copy of "sub" now
	// carries a non-nil root key.
	c2 := New(store, nil, element.KindTree)
	rootHandle, _, err := c2.GetMerk(nil)
	if err != nil {
		t.Fatalf("reopen GetMerk root: %v", err)
	}
	raw, _, err := rootHandle.Tree().Get([]byte("sub"))
	if err != nil {
		t.Fatalf("Get sub header: %v", err)
	}
	el, err := element.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	tr, ok := el.(*element.Tree)
	if !ok {
		t.Fatalf("got %T, want *element.Tree", el)
	}
	if tr.RootKey == nil {
		t.Fatal("expected sub's header to carry a non-nil root key after Drain")
	}
	if string(tr.RootKey) != "leaf" {
		t.Fatalf("root key = %q, want %q", tr.RootKey, "leaf")
	}
}

func TestHintHeaderOpensChildBeforeParentWriteIsVisible(t *testing.T) {
	store := memstore.New()
	c := New(store, nil, element.KindTree)

	// Nothing has been written to the root yet: "sub" does not exist as
	// far as the root's Merk is concerned. A caller that is about to
	// insert "sub" as a tree into the root, and also wants to write into
	// "sub" within the same batch, must hint the header first.
	c.HintHeader([][]byte{[]byte("sub")}, &element.Tree{})

	sub, _, err := c.GetMerk([][]byte{[]byte("sub")})
	if err != nil {
		t.Fatalf("GetMerk on hinted path: %v", err)
	}
	if !sub.Tree().IsEmpty() {
		t.Fatal("expected a freshly opened hinted subtree to be empty")
	}
	if _, err := sub.Tree().Apply([]merk.Op{
		{Key: []byte("leaf"), Kind: merk.OpPut, Value: encodeItem(t, "v"), Feature: element.FeatureType{Tag: element.FeatureBasic}},
	}); err != nil {
		t.Fatalf("Apply sub insert: %v", err)
	}
	sub.Release()

	root, _, err := c.GetMerk(nil)
	if err != nil {
		t.Fatalf("GetMerk root: %v", err)
	}
	if _, err := root.Tree().Apply([]merk.Op{
		{Key: []byte("sub"), Kind: merk.OpPut, Value: encodeTree(t), Feature: element.FeatureType{Tag: element.FeatureBasic}},
	}); err != nil {
		t.Fatalf("Apply root insert: %v", err)
	}
	root.Release()

	if _, _, err := c.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	c2 := New(store, nil, element.KindTree)
	rootHandle, _, err := c2.GetMerk(nil)
	if err != nil {
		t.Fatalf("reopen GetMerk root: %v", err)
	}
	raw, _, err := rootHandle.Tree().Get([]byte("sub"))
	if err != nil {
		t.Fatalf("Get sub header: %v", err)
	}
	el, err := element.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(el.(*element.Tree).RootKey) != "leaf" {
		t.Fatalf("root key = %q, want %q", el.(*element.Tree).RootKey, "leaf")
	}
}

func TestDrainPropagatesSumAggregateUpToParent(t *testing.T) {
	store := memstore.New()
	c := New(store, nil, element.KindTree)

	root, _, err := c.GetMerk(nil)
	if err != nil {
		t.Fatalf("GetMerk root: %v", err)
	}
	sumTreeHeader, err := element.Encode(&element.SumTree{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := root.Tree().Apply([]merk.Op{
		{Key: []byte("counts"), Kind: merk.OpPut, Value: sumTreeHeader, Feature: element.FeatureType{Tag: element.FeatureBasic}},
	}); err != nil {
		t.Fatalf("Apply root insert: %v", err)
	}
	root.Release()

	sub, _, err := c.GetMerk([][]byte{[]byte("counts")})
	if err != nil {
		t.Fatalf("GetMerk sub: %v", err)
	}
	sumItem, err := element.Encode(&element.SumItem{Value: 7})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := sub.Tree().Apply([]merk.Op{
		{Key: []byte("a"), Kind: merk.OpPut, Value: sumItem, Feature: element.FeatureType{Tag: element.FeatureSummed, Sum: 7}},
	}); err != nil {
		t.Fatalf("Apply sub insert: %v", err)
	}
	sub.Release()

	if _, _, err := c.Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	c2 := New(store, nil, element.KindTree)
	rootHandle, _, err := c2.GetMerk(nil)
	if err != nil {
		t.Fatalf("reopen GetMerk root: %v", err)
	}
	raw, _, err := rootHandle.Tree().Get([]byte("counts"))
	if err != nil {
		t.Fatalf("Get counts header: %v", err)
	}
	el, err := element.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	st, ok := el.(*element.SumTree)
	if !ok {
		t.Fatalf("got %T, want *element.SumTree", el)
	}
	if st.Sum != 7 {
		t.Fatalf("sum = %d, want 7", st.Sum)
	}
}
