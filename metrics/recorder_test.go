package metrics

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"equipment_monitor/health"
	"equipment_monitor/logger"
	"equipment_monitor/monitor"
	"equipment_monitor/sensor"
)

func TestRecorderObserveIteration(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	if got := testutil.ToFloat64(rec.relay); got != 1 {
		t.Fatalf("expected relay gauge to start at 1, got %f", got)
	}

	snap := sensor.Snapshot{
		Temperature: sensor.FromCelsius(sensor.DisconnectedC),
		Vibration:   sensor.Valid(sensor.Vibration, 2.5),
		Distance:    sensor.Valid(sensor.Distance, 120),
	}
	a := health.Classify(snap)
	h, out, tr := health.Actuate(health.Initial(), a)

	rec.ObserveIteration(monitor.Iteration{
		Sequence:   1,
		Snapshot:   snap,
		Assessment: a,
		Health:     h,
		Outputs:    out,
		Transition: tr,
		Duration:   2 * time.Millisecond,
	})

	if got := testutil.ToFloat64(rec.iterations); got != 1 {
		t.Fatalf("expected 1 iteration, got %f", got)
	}
	if got := testutil.ToFloat64(rec.tiers.WithLabelValues("CRITICAL")); got != 1 {
		t.Fatalf("expected 1 critical iteration, got %f", got)
	}
	if got := testutil.ToFloat64(rec.tier); got != 2 {
		t.Fatalf("expected tier gauge 2, got %f", got)
	}
	if got := testutil.ToFloat64(rec.relay); got != 0 {
		t.Fatalf("expected relay gauge 0 after cut, got %f", got)
	}
	if got := testutil.ToFloat64(rec.relayCuts); got != 1 {
		t.Fatalf("expected 1 relay cut, got %f", got)
	}
	if got := testutil.ToFloat64(rec.faults.WithLabelValues("temperature")); got != 1 {
		t.Fatalf("expected 1 temperature fault, got %f", got)
	}
	if got := testutil.ToFloat64(rec.values.WithLabelValues("vibration")); got != 2.5 {
		t.Fatalf("expected vibration gauge 2.5, got %f", got)
	}
	if n := testutil.CollectAndCount(rec.values); n != 2 {
		t.Fatalf("expected values for the two valid sensors only, got %d", n)
	}
	if n := testutil.CollectAndCount(rec.duration); n != 1 {
		t.Fatalf("expected one duration histogram, got %d", n)
	}

	st := rec.Status()
	if st.Sequence != 1 || st.Tier != "CRITICAL" || st.RelayEngaged {
		t.Fatalf("unexpected status %+v", st)
	}
	if len(st.Faults) != 1 || !strings.HasPrefix(st.Faults[0], "temperature: ") {
		t.Fatalf("expected the temperature fault in status, got %v", st.Faults)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "monitor_relay_engaged 1") {
		t.Fatalf("expected relay gauge in output, got:\n%s", body)
	}
}

func TestRouterHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)
	srv := httptest.NewServer(NewRouter(reg, "/metrics", rec))
	defer srv.Close()

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		return resp.StatusCode, string(body)
	}

	code, body := get("/health")
	if code != http.StatusOK || !strings.Contains(body, `"relay_engaged":true`) {
		t.Fatalf("expected healthy status before any iteration, got %d %s", code, body)
	}

	snap := sensor.Snapshot{
		Temperature: sensor.Valid(sensor.Temperature, 95),
		Vibration:   sensor.Valid(sensor.Vibration, 0.4),
		Distance:    sensor.Valid(sensor.Distance, 120),
	}
	a := health.Classify(snap)
	h, out, tr := health.Actuate(health.Initial(), a)
	rec.ObserveIteration(monitor.Iteration{Sequence: 7, Snapshot: snap, Assessment: a, Health: h, Outputs: out, Transition: tr})

	code, body = get("/health")
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after relay cut, got %d", code)
	}
	if !strings.Contains(body, `"sequence":7`) || !strings.Contains(body, `"tier":"CRITICAL"`) {
		t.Fatalf("unexpected health body %s", body)
	}

	code, body = get("/metrics")
	if code != http.StatusOK || !strings.Contains(body, "monitor_relay_cuts_total 1") {
		t.Fatalf("expected metrics through the router, got %d", code)
	}
}

type brokenWriter struct {
	header http.Header
	code   int
}

func (w *brokenWriter) Header() http.Header       { return w.header }
func (w *brokenWriter) WriteHeader(code int)      { w.code = code }
func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestRouterHealthLogsWriteFailure(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs, logger.INFO)
	t.Cleanup(func() { logger.SetOutput(os.Stderr, logger.INFO) })

	reg := prometheus.NewRegistry()
	w := &brokenWriter{header: http.Header{}}
	NewRouter(reg, "/metrics", NewRecorder(reg)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if !strings.Contains(logs.String(), "ERROR: encode health status: connection reset by peer") {
		t.Fatalf("expected the write failure in the log, got %q", logs.String())
	}
}
