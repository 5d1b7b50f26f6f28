package cost

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryObserveAccumulatesAcrossCalls(t *testing.T) {
	reg := NewRegistry()
	reg.Observe(OperationCost{SeekCount: 1, StorageWrittenBytes: 10})
	reg.Observe(OperationCost{SeekCount: 2, StorageWrittenBytes: 5})

	require.Equal(t, int64(3), reg.seekCount.Value())
	require.Equal(t, int64(15), reg.storageWrittenBytes.Value())
}

func TestRegistryHandlerServesPrometheusText(t *testing.T) {
	reg := NewRegistry()
	reg.Observe(OperationCost{SeekCount: 1})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "grovedb_cost_seek_count_total"), rec.Body.String())
}
