// Package storage defines the key-value surface GroveDB consumes but never
// implements. Every subtree reads and writes through a StorageContext
// scoped to its own 32-byte prefix, so the four logical columns (data, aux,
// roots, meta) can share one physical backing store without key collision.
//
// Concrete backends live in subpackages: memstore for tests and small
// deployments, pebblestore wrapping cockroachdb/pebble for production use.
package storage

import "github.com/dashpay/grovedb-sub005/internal/grovehash"

// Column identifies one of the four logical column families a
// StorageContext multiplexes onto the backing store.
type Column int

const (
	// ColumnData holds serialized Merk node bytes, keyed by node key within
	// the subtree's prefix.
	ColumnData Column = iota
	// ColumnAux holds caller-defined auxiliary data, keyed arbitrarily
	// within the subtree's prefix.
	ColumnAux
	// ColumnRoots holds exactly one entry per subtree: its current root key,
	// stored at prefix || ROOT_MARKER.
	ColumnRoots
	// ColumnMeta holds process-wide records (schema version, feature
	// flags) under unprefixed keys, shared across all subtrees.
	ColumnMeta
)

// RootMarker is the key suffix under which ColumnRoots stores a subtree's
// current root key.
var RootMarker = []byte{0xff}

// KeyValueReader reads typed values from one column of one subtree.
type KeyValueReader interface {
	Get(column Column, key []byte) ([]byte, error)
	Has(column Column, key []byte) (bool, error)
}

// KeyValueWriter writes typed values into one column of one subtree.
type KeyValueWriter interface {
	Put(column Column, key, value []byte) error
	Delete(column Column, key []byte) error
}

// RawIterator positions a cursor over one column of one subtree's key
// range, ordered lexicographically by (unprefixed) key.
type RawIterator interface {
	SeekToFirst()
	SeekToLast()
	Seek(key []byte)
	SeekForPrev(key []byte)
	Next()
	Prev()
	Valid() bool
	Key() []byte
	Value() []byte
	Close() error
}

// Batch is a deferred, ordered write set spanning any combination of
// columns. Writing it via Commit is atomic: either every buffered
// Put/Delete lands, or none do. Submission order is preserved within one
// commit so that a Delete followed by a Put of the same key resolves to
// the Put.
type Batch interface {
	Put(column Column, key, value []byte) error
	Delete(column Column, key []byte) error
	Len() int
	Commit() error
}

// Transaction scopes a sequence of StorageContext operations so they can be
// committed or rolled back as a unit.
type Transaction interface {
	Commit() error
	Rollback() error
}

// StorageContext is the per-subtree handle the merk and cache packages
// operate through. It is obtained from a Storage by subtree prefix.
type StorageContext interface {
	KeyValueReader
	KeyValueWriter

	// Prefix returns the 32-byte subtree prefix this context is scoped to.
	Prefix() grovehash.Hash

	// NewBatch returns a deferred write set scoped to this context's prefix.
	NewBatch() Batch

	// CommitBatch atomically applies a batch built by NewBatch.
	CommitBatch(b Batch) error

	// RawIter returns a positioned cursor over the given column, restricted
	// to this context's subtree prefix.
	RawIter(column Column) RawIterator
}

// Storage is the top-level contract a GroveDB instance is constructed
// over. It never stores path semantics itself -- callers derive a subtree
// prefix from a canonical path encoding and request a context for it.
type Storage interface {
	// Context returns a StorageContext scoped to the given subtree prefix,
	// optionally bound to an in-flight transaction.
	Context(prefix grovehash.Hash, txn Transaction) StorageContext

	// MetaContext returns the process-wide, unprefixed ColumnMeta context.
	MetaContext(txn Transaction) StorageContext

	// StartTransaction begins a new transaction.
	StartTransaction() (Transaction, error)

	// CommitMultiContextBatch atomically applies a set of independently
	// staged batches -- one per subtree touched in a single GroveDB batch
	// operation -- as a single underlying write.
	CommitMultiContextBatch(batches []Batch, txn Transaction) error

	// Snapshot returns a read-only view of the store as of this call,
	// unaffected by subsequent writes through other contexts.
	Snapshot() (Storage, error)

	// Close releases any resources held by the backing store.
	Close() error
}
