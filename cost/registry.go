package cost

import (
	"net/http"

	"github.com/dashpay/grovedb-sub005/internal/metrics"
)

// Registry mirrors accumulated OperationCost values into Prometheus
// counters, for a long-running process that wants the same seek/byte/
// hash-call counters surfaced as /metrics alongside the per-operation
// OperationCost every call already returns.
type Registry struct {
	inner    *metrics.Registry
	exporter *metrics.PrometheusExporter

	seekCount           *metrics.Counter
	storageWrittenBytes *metrics.Counter
	storageLoadedBytes  *metrics.Counter
	loadedBytes         *metrics.Counter
	hashByteCalls       *metrics.Counter
	hashNodeCalls       *metrics.Counter
}

// NewRegistry builds a Registry over its own metrics.Registry.
func NewRegistry() *Registry {
	r := metrics.NewRegistry()
	return &Registry{
		inner:               r,
		exporter:            metrics.NewPrometheusExporter(r, metrics.DefaultPrometheusConfig()),
		seekCount:           r.Counter("cost_seek_count_total"),
		storageWrittenBytes: r.Counter("cost_storage_written_bytes_total"),
		storageLoadedBytes:  r.Counter("cost_storage_loaded_bytes_total"),
		loadedBytes:         r.Counter("cost_loaded_bytes_total"),
		hashByteCalls:       r.Counter("cost_hash_byte_calls_total"),
		hashNodeCalls:       r.Counter("cost_hash_node_calls_total"),
	}
}

// Observe folds op into the registry's running Prometheus counters.
func (reg *Registry) Observe(op OperationCost) {
	reg.seekCount.Add(int64(op.SeekCount))
	reg.storageWrittenBytes.Add(int64(op.StorageWrittenBytes))
	reg.storageLoadedBytes.Add(int64(op.StorageLoadedBytes))
	reg.loadedBytes.Add(int64(op.LoadedBytes))
	reg.hashByteCalls.Add(int64(op.HashByteCalls))
	reg.hashNodeCalls.Add(int64(op.HashNodeCalls))
}

// Handler serves a Prometheus text-exposition endpoint over the
// registry's counters plus Go runtime stats.
func (reg *Registry) Handler() http.Handler {
	return reg.exporter.Handler()
}
