package api

import (
	"encoding/json"
	"net/http"

	"github.com/heysubinoy/pyazcache/internal/store"
)

// MetricsHandler returns current store metrics as JSON.
// Only works if the server was initialized with an InstrumentedStore.
func MetricsHandler(instrumentedStore *store.InstrumentedStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ops := instrumentedStore.GetMetrics().Ops()
		counts := make(map[string]uint64, len(ops))
		latencies := make(map[string]string, len(ops))
		for name, op := range ops {
			counts[name] = op.Count
			latencies[name] = op.AvgLatency.String()
		}

		response := map[string]interface{}{
			"operations":  counts,
			"avg_latency": latencies,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
