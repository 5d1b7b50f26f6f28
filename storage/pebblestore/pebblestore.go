// Package pebblestore implements storage.Storage on top of
// github.com/cockroachdb/pebble, GroveDB's production storage engine. Keys
// are namespaced exactly as in memstore (one column byte, then a 32-byte
// subtree prefix for every column but meta), so the two backends are
// interchangeable in tests that do not depend on persistence.
package pebblestore

import (
	"io"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/storage"
)

// Store wraps a *pebble.DB as a storage.Storage.
type Store struct {
	db *pebble.DB
	// snap is non-nil when this Store is a read-only snapshot view.
	snap *pebble.Snapshot
}

// Open opens (creating if absent) a Pebble database at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, grovedberr.StorageError(err, "opening pebble database at %s", dir)
	}
	return &Store{db: db}, nil
}

// reader is the subset of *pebble.DB and *pebble.Snapshot this package uses.
type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

// writer is the subset of *pebble.DB this package uses for mutation; a
// snapshot Store never exposes one.
type writer interface {
	Set(key, value []byte, o *pebble.WriteOptions) error
	Delete(key []byte, o *pebble.WriteOptions) error
	NewBatch() *pebble.Batch
}

func (s *Store) reader() reader {
	if s.snap != nil {
		return s.snap
	}
	return s.db
}

func (s *Store) writer() (writer, error) {
	if s.snap != nil {
		return nil, grovedberr.NotSupported("pebblestore: snapshot views are read-only")
	}
	return s.db, nil
}

func physicalKey(column storage.Column, prefix grovehash.Hash, key []byte) []byte {
	buf := make([]byte, 0, 1+grovehash.Size+len(key))
	buf = append(buf, byte(column))
	if column != storage.ColumnMeta {
		buf = append(buf, prefix[:]...)
	}
	buf = append(buf, key...)
	return buf
}

func columnPrefix(column storage.Column, prefix grovehash.Hash) []byte {
	if column == storage.ColumnMeta {
		return []byte{byte(column)}
	}
	buf := make([]byte, 0, 1+grovehash.Size)
	buf = append(buf, byte(column))
	buf = append(buf, prefix[:]...)
	return buf
}

// upperBound returns the exclusive upper bound for an iteration scoped to
// prefix: prefix with its last byte incremented, propagating a carry.
func upperBound(prefix []byte) []byte {
	out := make([]byte, len(prefix))
	copy(out, prefix)
	for i := len(out) - 1; i >= 0; i-- {
		out[i]++
		if out[i] != 0 {
			return out
		}
	}
	// All bytes were 0xff: no finite upper bound, caller must not use one.
	return nil
}

func (s *Store) Context(prefix grovehash.Hash, txn storage.Transaction) storage.StorageContext {
	return &ctx{store: s, prefix: prefix}
}

func (s *Store) MetaContext(txn storage.Transaction) storage.StorageContext {
	return &ctx{store: s, prefix: grovehash.Null, meta: true}
}

func (s *Store) StartTransaction() (storage.Transaction, error) {
	return &txn{store: s}, nil
}

func (s *Store) CommitMultiContextBatch(batches []storage.Batch, txn storage.Transaction) error {
	pb := s.db.NewBatch()
	for _, b := range batches {
		pbatch, ok := b.(*batch)
		if !ok {
			return grovedberr.CorruptedCodeExecution("pebblestore: foreign batch type in CommitMultiContextBatch")
		}
		for _, o := range pbatch.ops {
			key := physicalKey(o.column, pbatch.ctx.prefix, o.key)
			if o.delete {
				if err := pb.Delete(key, nil); err != nil {
					return grovedberr.StorageError(err, "staging delete in multi-context batch")
				}
			} else {
				if err := pb.Set(key, o.value, nil); err != nil {
					return grovedberr.StorageError(err, "staging put in multi-context batch")
				}
			}
		}
	}
	if err := pb.Commit(pebble.Sync); err != nil {
		return grovedberr.StorageError(err, "committing multi-context batch")
	}
	return nil
}

func (s *Store) Snapshot() (storage.Storage, error) {
	return &Store{db: s.db, snap: s.db.NewSnapshot()}, nil
}

func (s *Store) Close() error {
	if s.snap != nil {
		return s.snap.Close()
	}
	if err := s.db.Close(); err != nil {
		return grovedberr.StorageError(err, "closing pebble database")
	}
	return nil
}

type txn struct {
	store *Store
	mu    sync.Mutex
}

// Pebble has no native cross-batch transaction primitive at this level;
// GroveDB's batch applier stages all work in per-subtree storage.Batch
// instances and relies on CommitMultiContextBatch for atomicity, so this
// transaction is a sequencing token rather than an isolation boundary.
func (t *txn) Commit() error   { return nil }
func (t *txn) Rollback() error { return nil }

type ctx struct {
	store  *Store
	prefix grovehash.Hash
	meta   bool
}

func (c *ctx) Prefix() grovehash.Hash { return c.prefix }

func (c *ctx) Get(column storage.Column, key []byte) ([]byte, error) {
	v, closer, err := c.store.reader().Get(physicalKey(column, c.prefix, key))
	if err == pebble.ErrNotFound {
		return nil, grovedberr.New(grovedberr.KindPathKeyNotFound, "pebblestore: key not found")
	}
	if err != nil {
		return nil, grovedberr.StorageError(err, "pebble get")
	}
	out := make([]byte, len(v))
	copy(out, v)
	closer.Close()
	return out, nil
}

func (c *ctx) Has(column storage.Column, key []byte) (bool, error) {
	_, closer, err := c.store.reader().Get(physicalKey(column, c.prefix, key))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, grovedberr.StorageError(err, "pebble has")
	}
	closer.Close()
	return true, nil
}

func (c *ctx) Put(column storage.Column, key, value []byte) error {
	w, err := c.store.writer()
	if err != nil {
		return err
	}
	if err := w.Set(physicalKey(column, c.prefix, key), value, nil); err != nil {
		return grovedberr.StorageError(err, "pebble put")
	}
	return nil
}

func (c *ctx) Delete(column storage.Column, key []byte) error {
	w, err := c.store.writer()
	if err != nil {
		return err
	}
	if err := w.Delete(physicalKey(column, c.prefix, key), nil); err != nil {
		return grovedberr.StorageError(err, "pebble delete")
	}
	return nil
}

func (c *ctx) NewBatch() storage.Batch {
	return &batch{ctx: c}
}

func (c *ctx) CommitBatch(b storage.Batch) error {
	return b.Commit()
}

func (c *ctx) RawIter(column storage.Column) storage.RawIterator {
	prefix := columnPrefix(column, c.prefix)
	iter, err := c.store.reader().NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return &errIterator{err: grovedberr.StorageError(err, "pebble new iterator")}
	}
	return &iterator{inner: iter, prefix: prefix}
}

type op struct {
	column storage.Column
	key    []byte
	value  []byte
	delete bool
}

type batch struct {
	ctx *ctx
	ops []op
}

func (b *batch) Put(column storage.Column, key, value []byte) error {
	b.ops = append(b.ops, op{column: column, key: append([]byte{}, key...), value: append([]byte{}, value...)})
	return nil
}

func (b *batch) Delete(column storage.Column, key []byte) error {
	b.ops = append(b.ops, op{column: column, key: append([]byte{}, key...), delete: true})
	return nil
}

func (b *batch) Len() int { return len(b.ops) }

func (b *batch) Commit() error {
	w, err := b.ctx.store.writer()
	if err != nil {
		return err
	}
	pb := w.NewBatch()
	for _, o := range b.ops {
		key := physicalKey(o.column, b.ctx.prefix, o.key)
		if o.delete {
			if err := pb.Delete(key, nil); err != nil {
				return grovedberr.StorageError(err, "staging pebble batch delete")
			}
		} else {
			if err := pb.Set(key, o.value, nil); err != nil {
				return grovedberr.StorageError(err, "staging pebble batch put")
			}
		}
	}
	if err := pb.Commit(pebble.Sync); err != nil {
		return grovedberr.StorageError(err, "committing pebble batch")
	}
	return nil
}

type iterator struct {
	inner  *pebble.Iterator
	prefix []byte
}

func (it *iterator) SeekToFirst() { it.inner.First() }
func (it *iterator) SeekToLast()  { it.inner.Last() }

func (it *iterator) Seek(key []byte) {
	it.inner.SeekGE(append(append([]byte{}, it.prefix...), key...))
}

func (it *iterator) SeekForPrev(key []byte) {
	it.inner.SeekLT(append(append([]byte{}, it.prefix...), key...))
}

func (it *iterator) Next()       { it.inner.Next() }
func (it *iterator) Prev()       { it.inner.Prev() }
func (it *iterator) Valid() bool { return it.inner.Valid() }

func (it *iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	k := it.inner.Key()
	if len(k) < len(it.prefix) {
		return nil
	}
	return k[len(it.prefix):]
}

func (it *iterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.inner.Value()
}

func (it *iterator) Close() error {
	return it.inner.Close()
}

// errIterator is returned when constructing the underlying pebble.Iterator
// fails; it reports itself as permanently invalid rather than panicking.
type errIterator struct {
	err error
}

func (it *errIterator) SeekToFirst()           {}
func (it *errIterator) SeekToLast()            {}
func (it *errIterator) Seek(key []byte)        {}
func (it *errIterator) SeekForPrev(key []byte) {}
func (it *errIterator) Next()                  {}
func (it *errIterator) Prev()                  {}
func (it *errIterator) Valid() bool            { return false }
func (it *errIterator) Key() []byte            { return nil }
func (it *errIterator) Value() []byte          { return nil }
func (it *errIterator) Close() error           { return it.err }

var _ storage.Storage = (*Store)(nil)
var _ storage.StorageContext = (*ctx)(nil)
var _ storage.Batch = (*batch)(nil)
var _ storage.RawIterator = (*iterator)(nil)
