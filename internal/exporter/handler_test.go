package exporter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/amplifi-exporter/internal/amplifi"
	"github.com/obsidianstack/amplifi-exporter/internal/exporter"
	"github.com/obsidianstack/amplifi-exporter/internal/metrics"
	"github.com/obsidianstack/amplifi-exporter/internal/poller"
)

// --- test helpers -----------------------------------------------------------

type staticStatus poller.Status

func (s staticStatus) Status() poller.Status { return poller.Status(s) }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

const leaseSnapshot = `[{}, {}, {"AA:BB:CC:DD:EE:FF": {"connection": "ethernet", "ip": "10.0.0.5"}}, {},
	{"ap1": {"eth-0": {"link": true, "link_speed": 1000, "rx_bitrate": 5, "tx_bitrate": 6}}}, {}]`

// --- /metrics ---------------------------------------------------------------

func TestMetrics_TextExposition(t *testing.T) {
	reg := metrics.NewRegistry()
	snap, err := amplifi.DecodeSnapshot([]byte(leaseSnapshot))
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if err := metrics.NewProjector(reg).Project(snap); err != nil {
		t.Fatalf("Project() error = %v", err)
	}

	rr := get(t, exporter.New(reg.Gatherer(), staticStatus{}), "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(rr.Body)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}

	lease := mfs["amplifi_device_lease_validity"]
	if lease == nil || len(lease.GetMetric()) != 1 {
		t.Fatalf("amplifi_device_lease_validity = %v", lease)
	}
	if lease.GetHelp() != "Time left on DHCP lease" {
		t.Errorf("help = %q", lease.GetHelp())
	}
	m := lease.GetMetric()[0]
	if m.GetGauge().GetValue() != -1 {
		t.Errorf("lease value = %v, want -1", m.GetGauge().GetValue())
	}
	labels := map[string]string{}
	for _, lp := range m.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	want := map[string]string{"connection": "ethernet", "mac_address": "AA:BB:CC:DD:EE:FF", "ip_address": "10.0.0.5"}
	for k, v := range want {
		if labels[k] != v {
			t.Errorf("label %s = %q, want %q", k, labels[k], v)
		}
	}

	if speed := mfs["amplifi_ethernet_port_link_speed"]; speed == nil || speed.GetMetric()[0].GetGauge().GetValue() != 1000 {
		t.Errorf("amplifi_ethernet_port_link_speed = %v", speed)
	}
	// Series without observations are not exposed.
	if _, ok := mfs["amplifi_device_happiness_score"]; ok {
		t.Error("empty series should not be exposed")
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth(t *testing.T) {
	last := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		status     poller.Status
		wantCode   int
		wantStatus string
	}{
		{"starting", poller.Status{State: poller.StateDisconnected}, http.StatusOK, "starting"},
		{"polling", poller.Status{State: poller.StatePolling, Polls: 4, LastPoll: last}, http.StatusOK, "ok"},
		{"backoff", poller.Status{State: poller.StateBackoff, Polls: 4, DecodeFailures: 1, LastError: "amplifi: decode snapshot: eof"}, http.StatusServiceUnavailable, "backoff"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.status.Source = "live:http://10.0.0.1"
			tc.status.Interval = 15 * time.Second
			rr := get(t, exporter.New(metrics.NewRegistry().Gatherer(), staticStatus(tc.status)), "/api/v1/health")

			if rr.Code != tc.wantCode {
				t.Errorf("status code = %d, want %d", rr.Code, tc.wantCode)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			var resp exporter.HealthResponse
			decode(t, rr, &resp)
			if resp.Status != tc.wantStatus {
				t.Errorf("Status = %q, want %q", resp.Status, tc.wantStatus)
			}
			if resp.State != string(tc.status.State) || resp.Polls != tc.status.Polls {
				t.Errorf("resp = %+v", resp)
			}
			if resp.IntervalSec != 15 {
				t.Errorf("IntervalSec = %v, want 15", resp.IntervalSec)
			}
			if resp.LastError != tc.status.LastError {
				t.Errorf("LastError = %q", resp.LastError)
			}
		})
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	h := exporter.New(metrics.NewRegistry().Gatherer(), staticStatus{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/health", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestUnknownPath(t *testing.T) {
	rr := get(t, exporter.New(metrics.NewRegistry().Gatherer(), staticStatus{}), "/nope")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

// --- Serve ------------------------------------------------------------------

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- exporter.Serve(ctx, "127.0.0.1:0", http.NotFoundHandler()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_ListenError(t *testing.T) {
	err := exporter.Serve(context.Background(), "127.0.0.1:notaport", http.NotFoundHandler())
	if err == nil {
		t.Fatal("Serve() with a bad address should fail")
	}
}
