// Package grovedb wires storage, the subtree cache, the batch applier,
// the proof engine, and the chunk-streaming protocol into a single
// handle: the public entry point this module presents to a caller that
// doesn't want to assemble a cache.Cache/batch.Options/proof.Options
// trio by hand for every call.
package grovedb

import (
	"net/http"

	"github.com/dashpay/grovedb-sub005/batch"
	"github.com/dashpay/grovedb-sub005/cache"
	"github.com/dashpay/grovedb-sub005/chunk"
	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/estimate"
	"github.com/dashpay/grovedb-sub005/internal/glog"
	"github.com/dashpay/grovedb-sub005/internal/grovehash"
	"github.com/dashpay/grovedb-sub005/merk"
	"github.com/dashpay/grovedb-sub005/proof"
	"github.com/dashpay/grovedb-sub005/reference"
	"github.com/dashpay/grovedb-sub005/storage"
	"github.com/dashpay/grovedb-sub005/version"
)

// DB is a GroveDB instance over one storage.Storage backend.
type DB struct {
	store   storage.Storage
	version version.FeatureVersion
	log     *glog.Logger
	metrics *cost.Registry
}

// Open constructs a DB over store using version.Current(). The root
// subtree is lazily created on first write; no I/O happens here. No
// Prometheus metrics are collected; use OpenWithMetrics for that.
func Open(store storage.Storage) *DB {
	return &DB{store: store, version: version.Current(), log: glog.Default().Module("grovedb")}
}

// OpenWithMetrics is Open plus a cost.Registry mirroring every returned
// OperationCost into Prometheus counters, for a long-running process
// that wants to scrape them.
func OpenWithMetrics(store storage.Storage) *DB {
	db := Open(store)
	db.metrics = cost.NewRegistry()
	return db
}

// MetricsHandler serves the Prometheus text-exposition endpoint backing
// this DB's cost counters, or nil if it was opened with Open rather
// than OpenWithMetrics.
func (db *DB) MetricsHandler() http.Handler {
	if db.metrics == nil {
		return nil
	}
	return db.metrics.Handler()
}

func (db *DB) observe(total cost.OperationCost) {
	if db.metrics != nil {
		db.metrics.Observe(total)
	}
}

// loadRaw fetches the element stored at (path, key) without following a
// reference it might hold; this is reference.Loader's shape and the
// common tail of every lookup.
func (db *DB) loadRaw(path [][]byte, key []byte) (element.Element, cost.OperationCost, error) {
	c := cache.New(db.store, nil, element.KindTree)
	handle, total, err := c.GetMerk(path)
	if err != nil {
		return nil, total, err
	}
	defer handle.Release()

	raw, c2, err := handle.Tree().Get(key)
	total.AddInPlace(c2)
	if err != nil {
		return nil, total, err
	}
	el, err := element.Decode(raw)
	if err != nil {
		return nil, total, err
	}
	return el, total, nil
}

// Get returns the decoded element stored at key within the subtree
// addressed by path ([] for the root subtree), following any reference
// chain to its non-reference target (§4.G).
func (db *DB) Get(path [][]byte, key []byte) (element.Element, cost.OperationCost, error) {
	el, total, err := db.loadRaw(path, key)
	if err != nil {
		return nil, total, err
	}

	result, c2, err := reference.Follow(db.loadRaw, path, key, el)
	total.AddInPlace(c2)
	if err != nil {
		return nil, total, err
	}

	db.observe(total)
	return result.Element, total, nil
}

// ApplyBatch atomically applies ops under opts, returning the new
// database root hash. Every op's Path/Key is validated for referential
// integrity up front; no partial batch is ever committed.
func (db *DB) ApplyBatch(ops []batch.QualifiedGroveDbOp, opts batch.Options) (grovehash.Hash, cost.OperationCost, error) {
	txn, err := db.store.StartTransaction()
	if err != nil {
		return grovehash.Null, cost.OperationCost{}, err
	}

	c := cache.New(db.store, txn, element.KindTree)
	hash, total, err := batch.Apply(c, ops, opts)
	if err != nil {
		_ = txn.Rollback()
		return grovehash.Null, total, err
	}
	if err := txn.Commit(); err != nil {
		return grovehash.Null, total, err
	}
	db.log.Debug("applied batch", "ops", len(ops), "root", hash)
	db.observe(total)
	return hash, total, nil
}

// ProveQuery generates a hierarchical proof for query against the
// subtree at path.
func (db *DB) ProveQuery(path [][]byte, query *proof.Query, opts proof.Options) (*proof.LayerProof, cost.OperationCost, error) {
	c := cache.New(db.store, nil, element.KindTree)
	lp, total, err := proof.Generate(c, path, query, opts)
	if err == nil {
		db.observe(total)
	}
	return lp, total, err
}

// VerifyQuery checks lp against query and expectedRoot, returning the
// matched (key, value, nested children) results on success.
func (db *DB) VerifyQuery(lp *proof.LayerProof, query *proof.Query, expectedRoot grovehash.Hash, opts proof.Options) ([]proof.Result, error) {
	return proof.Verify(lp, query, expectedRoot, opts)
}

// ProveQueryBytes is ProveQuery followed by a GroveDBProof::V0 wire
// encoding, for a caller that needs to hand the proof to a remote peer
// rather than verify it in-process.
func (db *DB) ProveQueryBytes(path [][]byte, query *proof.Query, opts proof.Options) ([]byte, cost.OperationCost, error) {
	lp, total, err := db.ProveQuery(path, query, opts)
	if err != nil {
		return nil, total, err
	}
	return proof.EncodeV0(lp, opts), total, nil
}

// VerifyQueryBytes decodes a GroveDBProof::V0 wire payload and verifies
// it against query and expectedRoot in one step.
func (db *DB) VerifyQueryBytes(wire []byte, query *proof.Query, expectedRoot grovehash.Hash) ([]proof.Result, error) {
	lp, opts, err := proof.DecodeV0(wire)
	if err != nil {
		return nil, err
	}
	return proof.Verify(lp, query, expectedRoot, opts)
}

// OpenMerkAt exposes the raw merk.Tree for path, for callers (the chunk
// donor side, the CLI visualiser) that need direct tree access rather
// than the element-level Get/ApplyBatch surface. The caller must Release
// the returned handle.
func (db *DB) OpenMerkAt(path [][]byte) (*cache.Handle, cost.OperationCost, error) {
	c := cache.New(db.store, nil, element.KindTree)
	return c.GetMerk(path)
}

// GenerateTrunkChunk produces the donor's first chunk-sync response for
// the subtree at path.
func (db *DB) GenerateTrunkChunk(path [][]byte, maxDepth int) (chunk.Chunk, cost.OperationCost, error) {
	handle, total, err := db.OpenMerkAt(path)
	if err != nil {
		return chunk.Chunk{}, total, err
	}
	defer handle.Release()

	c, c2, err := chunk.GenerateTrunkChunk(handle.Tree(), maxDepth)
	total.AddInPlace(c2)
	return c, total, err
}

// GenerateBranchChunk produces the donor's response to a replica request
// for the boundary at atKey within the subtree at path.
func (db *DB) GenerateBranchChunk(path [][]byte, atKey []byte, maxDepth int) (chunk.Chunk, cost.OperationCost, error) {
	handle, total, err := db.OpenMerkAt(path)
	if err != nil {
		return chunk.Chunk{}, total, err
	}
	defer handle.Release()

	c, c2, err := chunk.GenerateBranchChunk(handle.Tree(), atKey, maxDepth)
	total.AddInPlace(c2)
	return c, total, err
}

// NewSyncSession starts a replica-side chunk-streaming session for a
// subtree whose root hash is already known (e.g. from the parent
// subtree's own element, or an externally agreed checkpoint).
func (db *DB) NewSyncSession(expectedRoot grovehash.Hash) *chunk.Session {
	return chunk.NewSession(expectedRoot)
}

// EstimateBatchCost returns the average-case and worst-case
// cost.OperationCost of applying ops, given per-subtree layerInfo,
// without touching storage.
func (db *DB) EstimateBatchCost(
	ops []batch.QualifiedGroveDbOp,
	layerInfo map[string]estimate.LayerInfo,
) (averageCase, worstCase cost.OperationCost, err error) {
	averageCase, err = estimate.AverageCaseOperationsForBatch(ops, layerInfo, nil, nil)
	if err != nil {
		return cost.OperationCost{}, cost.OperationCost{}, err
	}
	worstCase, err = estimate.WorstCaseOperationsForBatch(ops, layerInfo, nil, nil)
	if err != nil {
		return cost.OperationCost{}, cost.OperationCost{}, err
	}
	return averageCase, worstCase, nil
}

// DiagnoseHashMismatch walks the subtree at path looking for any node
// whose stored hash disagrees with what its stored fields and children
// recompute to.
func (db *DB) DiagnoseHashMismatch(path [][]byte) ([]merk.HashMismatch, cost.OperationCost, error) {
	handle, total, err := db.OpenMerkAt(path)
	if err != nil {
		return nil, total, err
	}
	defer handle.Release()

	mismatches, c2, err := handle.Tree().DiagnoseHashMismatch()
	total.AddInPlace(c2)
	return mismatches, total, err
}

// Close releases the underlying storage backend.
func (db *DB) Close() error {
	return db.store.Close()
}
