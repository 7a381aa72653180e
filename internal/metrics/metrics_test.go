package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if auditsTotal == nil || enrichItemsTotal == nil ||
		httpRequestsTotal == nil || upstreamDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveEnrichItem(t *testing.T) {
	before := testutil.ToFloat64(enrichCounter("failed"))
	ObserveEnrichItem("failed")
	if got := testutil.ToFloat64(enrichCounter("failed")); got != before+1 {
		t.Errorf("expected enrich counter to grow by 1, got %f -> %f", before, got)
	}
}

func TestObserveAudit(t *testing.T) {
	ObserveAudit("inprocess", Outcome(nil), 2*time.Second)
	ObserveAudit("subprocess", Outcome(errors.New("boom")), time.Second)
	if got := testutil.ToFloat64(auditsTotal.WithLabelValues("subprocess", "error")); got < 1 {
		t.Errorf("expected subprocess error audit to be counted, got %f", got)
	}
	if n := testutil.CollectAndCount(auditDurationSeconds); n < 2 {
		t.Errorf("expected two duration series, got %d", n)
	}
}

func enrichCounter(outcome string) prometheus.Counter {
	Init()
	return enrichItemsTotal.WithLabelValues(outcome)
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	f.Add("https://example.com")
	f.Add("example.com:8080")
	f.Fuzz(func(t *testing.T, input string) {
		if SanitizeSite(input) == "" {
			t.Errorf("SanitizeSite(%q) returned empty string", input)
		}
	})
}
