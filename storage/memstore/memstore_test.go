package memstore

import (
	"testing"

	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/storage"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	prefix := grovehash.Sum([]byte("subtree"))
	ctx := s.Context(prefix, nil)

	if err := ctx.Put(storage.ColumnData, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, err := ctx.Get(storage.ColumnData, []byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "v" {
		t.Fatalf("Get = %q, want %q", v, "v")
	}
}

func TestGetMissingKeyIsPathKeyNotFound(t *testing.T) {
	s := New()
	ctx := s.Context(grovehash.Sum([]byte("x")), nil)
	_, err := ctx.Get(storage.ColumnData, []byte("missing"))
	if grovedberr.KindOf(err) != grovedberr.KindPathKeyNotFound {
		t.Fatalf("KindOf(err) = %v, want KindPathKeyNotFound", grovedberr.KindOf(err))
	}
}

func TestColumnsAreIsolated(t *testing.T) {
	s := New()
	prefix := grovehash.Sum([]byte("subtree"))
	ctx := s.Context(prefix, nil)

	ctx.Put(storage.ColumnData, []byte("k"), []byte("data-value"))
	ctx.Put(storage.ColumnAux, []byte("k"), []byte("aux-value"))

	dv, _ := ctx.Get(storage.ColumnData, []byte("k"))
	av, _ := ctx.Get(storage.ColumnAux, []byte("k"))
	if string(dv) != "data-value" || string(av) != "aux-value" {
		t.Fatalf("column isolation broken: data=%q aux=%q", dv, av)
	}
}

func TestSubtreesAreIsolatedByPrefix(t *testing.T) {
	s := New()
	p1 := grovehash.Sum([]byte("tree1"))
	p2 := grovehash.Sum([]byte("tree2"))
	c1 := s.Context(p1, nil)
	c2 := s.Context(p2, nil)

	c1.Put(storage.ColumnData, []byte("k"), []byte("from-tree1"))
	if ok, _ := c2.Has(storage.ColumnData, []byte("k")); ok {
		t.Fatal("key leaked across subtree prefixes")
	}
}

func TestBatchAppliesAllOpsOnCommit(t *testing.T) {
	s := New()
	ctx := s.Context(grovehash.Sum([]byte("b")), nil)
	b := ctx.NewBatch()
	b.Put(storage.ColumnData, []byte("a"), []byte("1"))
	b.Put(storage.ColumnData, []byte("b"), []byte("2"))
	b.Delete(storage.ColumnData, []byte("a"))

	if err := ctx.CommitBatch(b); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}
	if ok, _ := ctx.Has(storage.ColumnData, []byte("a")); ok {
		t.Fatal("expected key \"a\" deleted after batch commit")
	}
	v, err := ctx.Get(storage.ColumnData, []byte("b"))
	if err != nil || string(v) != "2" {
		t.Fatalf("Get(b) = %q, %v", v, err)
	}
}

func TestRawIterOrdersKeysAscending(t *testing.T) {
	s := New()
	ctx := s.Context(grovehash.Sum([]byte("iter")), nil)
	for _, k := range []string{"c", "a", "b"} {
		ctx.Put(storage.ColumnData, []byte(k), []byte(k))
	}

	it := ctx.RawIter(storage.ColumnData)
	defer it.Close()

	var got []string
	for it.SeekToFirst(); it.Valid(); it.Next() {
		got = append(got, string(it.Key()))
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMetaContextIsUnprefixedAndShared(t *testing.T) {
	s := New()
	m1 := s.MetaContext(nil)
	m2 := s.MetaContext(nil)
	m1.Put(storage.ColumnMeta, []byte("schema_version"), []byte{1})
	v, err := m2.Get(storage.ColumnMeta, []byte("schema_version"))
	if err != nil || len(v) != 1 || v[0] != 1 {
		t.Fatalf("meta context not shared: v=%v err=%v", v, err)
	}
}
