package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	m.Assessment("high", 80, []string{"edd"})
	m.Audit("Bereit", 90)
	m.EngineDuration(EngineRisk, time.Millisecond)
	m.CacheHit()
	m.CacheMiss()
	m.SideEffectFailed("persist")
	m.Request("GET", "/health", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}

func TestCounters(t *testing.T) {
	m := New("heron")

	m.Assessment("high", 85, []string{"edd", "review"})
	m.Assessment("high", 70, nil)
	m.Assessment("low", 10, []string{"none"})

	if got := testutil.ToFloat64(m.assessments.WithLabelValues("high")); got != 2 {
		t.Errorf("expected 2 high assessments, got %v", got)
	}
	if got := testutil.ToFloat64(m.flags.WithLabelValues("edd")); got != 1 {
		t.Errorf("expected 1 edd flag, got %v", got)
	}

	m.Audit("Kritisch", 25)
	if got := testutil.ToFloat64(m.audits.WithLabelValues("Kritisch")); got != 1 {
		t.Errorf("expected 1 critical audit, got %v", got)
	}

	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	if got := testutil.ToFloat64(m.cacheHits); got != 2 {
		t.Errorf("expected 2 cache hits, got %v", got)
	}
	if got := testutil.ToFloat64(m.cacheMisses); got != 1 {
		t.Errorf("expected 1 cache miss, got %v", got)
	}

	m.SideEffectFailed("publish")
	if got := testutil.ToFloat64(m.sideEffects.WithLabelValues("publish")); got != 1 {
		t.Errorf("expected 1 publish failure, got %v", got)
	}
}

func TestHandlerExposition(t *testing.T) {
	m := New("heron")
	m.Request("POST", "/api/v1/risk/score", 200, 5*time.Millisecond)
	m.EngineDuration(EngineAudit, time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	for _, want := range []string{
		`heron_http_requests_total{method="POST",route="/api/v1/risk/score",status="200"} 1`,
		`heron_engine_duration_seconds_count{engine="audit"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := New("heron")
	b := New("heron")
	if a.Registry() == b.Registry() {
		t.Error("expected distinct registries")
	}
}
