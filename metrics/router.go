package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"equipment_monitor/logger"
)

// NewRouter serves the registry on metricsPath and the latest iteration on /health.
// /health answers 503 once the relay has been cut, so a load balancer or supervisor
// sees the equipment as down.
func NewRouter(g prometheus.Gatherer, metricsPath string, rec *Recorder) *mux.Router {
	r := mux.NewRouter()
	r.Handle(metricsPath, Handler(g)).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		st := rec.Status()
		w.Header().Set("Content-Type", "application/json")
		if !st.RelayEngaged {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(st); err != nil {
			logger.Errorf("encode health status: %v\n", err)
		}
	}).Methods("GET")
	return r
}
