// Package memstore implements storage.Storage over an in-process sorted
// map. It is adapted from a generic in-memory KeyValueStore design (the
// same shape as an embedded document store's MemoryDB/Table pairing): one
// flat key space multiplexed by a one-byte column tag and, for the
// per-subtree columns, a 32-byte prefix, with no persistence across
// process restarts. Intended for tests and small embedded deployments.
package memstore

import (
	"bytes"
	"sort"
	"strings"
	"sync"

	"github.com/dashpay/grovedb-sub005/grovedberr"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/storage"
)

// Store is an in-memory storage.Storage implementation safe for concurrent
// use from multiple goroutines, guarded by a single RWMutex.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func physicalKey(column storage.Column, prefix grovehash.Hash, key []byte) string {
	buf := make([]byte, 0, 1+grovehash.Size+len(key))
	buf = append(buf, byte(column))
	if column != storage.ColumnMeta {
		buf = append(buf, prefix[:]...)
	}
	buf = append(buf, key...)
	return string(buf)
}

func (s *Store) get(column storage.Column, prefix grovehash.Hash, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[physicalKey(column, prefix, key)]
	if !ok {
		return nil, grovedberr.New(grovedberr.KindPathKeyNotFound, "memstore: key not found")
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) has(column storage.Column, prefix grovehash.Hash, key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[physicalKey(column, prefix, key)]
	return ok, nil
}

func (s *Store) put(column storage.Column, prefix grovehash.Hash, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[physicalKey(column, prefix, key)] = cp
	return nil
}

func (s *Store) del(column storage.Column, prefix grovehash.Hash, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, physicalKey(column, prefix, key))
	return nil
}

// --- storage.Storage ---

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
	for _, b := range batches {
		if err := b.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Snapshot() (storage.Storage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		vv := make([]byte, len(v))
		copy(vv, v)
		cp[k] = vv
	}
	return &Store{data: cp}, nil
}

func (s *Store) Close() error { return nil }

// txn is a no-op transaction: memstore applies writes immediately and has
// no rollback log, matching an in-memory test double rather than a durable
// engine.
type txn struct {
	store *Store
}

func (t *txn) Commit() error   { return nil }
func (t *txn) Rollback() error { return nil }

// ctx is the per-subtree (or meta) StorageContext.
type ctx struct {
	store  *Store
	prefix grovehash.Hash
	meta   bool
}

func (c *ctx) Prefix() grovehash.Hash { return c.prefix }

func (c *ctx) Get(column storage.Column, key []byte) ([]byte, error) {
	return c.store.get(column, c.prefix, key)
}

func (c *ctx) Has(column storage.Column, key []byte) (bool, error) {
	return c.store.has(column, c.prefix, key)
}

func (c *ctx) Put(column storage.Column, key, value []byte) error {
	return c.store.put(column, c.prefix, key, value)
}

func (c *ctx) Delete(column storage.Column, key []byte) error {
	return c.store.del(column, c.prefix, key)
}

func (c *ctx) NewBatch() storage.Batch {
	return &batch{ctx: c}
}

func (c *ctx) CommitBatch(b storage.Batch) error {
	return b.Commit()
}

func (c *ctx) RawIter(column storage.Column) storage.RawIterator {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	colPrefix := string(append([]byte{byte(column)}, c.prefixBytesForScan()...))
	var keys []string
	for k := range c.store.data {
		if strings.HasPrefix(k, colPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	items := make([]kv, len(keys))
	for i, k := range keys {
		unprefixed := []byte(k)[len(colPrefix):]
		v := c.store.data[k]
		vv := make([]byte, len(v))
		copy(vv, v)
		items[i] = kv{key: unprefixed, value: vv}
	}
	return &iterator{items: items, pos: -1}
}

func (c *ctx) prefixBytesForScan() []byte {
	if c.meta {
		return nil
	}
	return c.prefix[:]
}

// --- batch ---

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
	for _, o := range b.ops {
		if o.delete {
			if err := b.ctx.Delete(o.column, o.key); err != nil {
				return err
			}
		} else {
			if err := b.ctx.Put(o.column, o.key, o.value); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- iterator ---

type kv struct {
	key, value []byte
}

type iterator struct {
	items []kv
	pos   int
}

func (it *iterator) SeekToFirst() { it.pos = 0 }
func (it *iterator) SeekToLast()  { it.pos = len(it.items) - 1 }

func (it *iterator) Seek(key []byte) {
	it.pos = sort.Search(len(it.items), func(i int) bool {
		return bytes.Compare(it.items[i].key, key) >= 0
	})
}

func (it *iterator) SeekForPrev(key []byte) {
	i := sort.Search(len(it.items), func(i int) bool {
		return bytes.Compare(it.items[i].key, key) > 0
	})
	it.pos = i - 1
}

func (it *iterator) Next() { it.pos++ }
func (it *iterator) Prev() { it.pos-- }

func (it *iterator) Valid() bool {
	return it.pos >= 0 && it.pos < len(it.items)
}

func (it *iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.items[it.pos].key
}

func (it *iterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	return it.items[it.pos].value
}

func (it *iterator) Close() error { return nil }

var _ storage.Storage = (*Store)(nil)
var _ storage.StorageContext = (*ctx)(nil)
var _ storage.Batch = (*batch)(nil)
var _ storage.RawIterator = (*iterator)(nil)
