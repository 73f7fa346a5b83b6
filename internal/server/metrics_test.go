package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newMetricsTestServer builds a Server backed by a fresh isolated registry so
// tests do not pollute prometheus.DefaultRegisterer.
func newMetricsTestServer(t *testing.T) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	s := &Server{
		answerer: &fakeAnswerer{response: "ok"},
		cfg: &Config{
			ChatTimeout:     90 * time.Second,
			MetricsRegistry: reg,
			MetricsGatherer: reg,
		},
		metrics: newServerMetrics(reg),
	}
	return s, reg
}

// counterValue scans gathered metric families for a counter with the given
// name and single label, returning its value and whether it was found.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) (float64, bool) {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue(), true
				}
			}
		}
	}
	return 0, false
}

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	_, reg := newMetricsTestServer(t)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_ChatCounterIncremented(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t)

	s.metrics.chatRequestsTotal.WithLabelValues("ok").Inc()

	got, found := counterValue(t, reg, "sitechat_chat_requests_total", "outcome", "ok")
	if !found {
		t.Fatal("sitechat_chat_requests_total{outcome=\"ok\"} not found in gathered metrics")
	}
	if got != 1 {
		t.Errorf("want counter=1, got %v", got)
	}
}

func Test_Metrics_ContactCounterIncremented(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t)

	s.metrics.contactRequestsTotal.WithLabelValues("error").Inc()
	s.metrics.contactRequestsTotal.WithLabelValues("error").Inc()

	got, found := counterValue(t, reg, "sitechat_contact_requests_total", "outcome", "error")
	if !found {
		t.Fatal("sitechat_contact_requests_total{outcome=\"error\"} not found in gathered metrics")
	}
	if got != 2 {
		t.Errorf("want counter=2, got %v", got)
	}
}

// Test_Metrics_InstrumentRecordsStatus drives a request through the
// instrument middleware and checks the http request counter picks up the
// handler name and status code labels.
func Test_Metrics_InstrumentRecordsStatus(t *testing.T) {
	t.Parallel()
	s, reg := newMetricsTestServer(t)

	h := s.metrics.instrument("chat", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "sitechat_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["handler"] == "chat" && labels["method"] == "POST" && labels["code"] == "400" {
				if m.GetCounter().GetValue() != 1 {
					t.Errorf("want counter=1, got %v", m.GetCounter().GetValue())
				}
				return
			}
		}
	}
	t.Error("sitechat_http_requests_total{handler=\"chat\",method=\"POST\",code=\"400\"} not found")
}
