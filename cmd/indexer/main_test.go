package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/doujins-org/recokit/metrics"
)

func TestPushMetrics(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gw.Close()

	m := metrics.New()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatal(err)
	}
	m.AddIndexed("embedded", 3)

	if err := pushMetrics(gw.URL, reg); err != nil {
		t.Fatalf("pushMetrics: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut {
		t.Fatalf("expected PUT, got %s", method)
	}
	if path != "/metrics/job/"+pushJob {
		t.Fatalf("unexpected path %s", path)
	}
	// The body is protobuf-delimited; the metric name appears verbatim.
	if !strings.Contains(body, metrics.MetricIndexedProducts) {
		t.Fatalf("pushed body does not carry %s", metrics.MetricIndexedProducts)
	}
}
