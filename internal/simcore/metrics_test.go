package simcore

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetrics_IncrementAndReset(t *testing.T) {
	m := NewMetrics()
	m.IncGenerated()
	m.IncGenerated()
	m.IncSent()
	m.IncDropped()
	m.IncDuplicated()

	if m.Generated() != 2 || m.Sent() != 1 || m.Dropped() != 1 || m.Duplicated() != 1 {
		t.Fatalf("unexpected counters: gen=%d sent=%d drop=%d dup=%d", m.Generated(), m.Sent(), m.Dropped(), m.Duplicated())
	}

	m.Reset()
	if m.Generated() != 0 || m.Sent() != 0 || m.Dropped() != 0 || m.Duplicated() != 0 {
		t.Fatalf("reset did not zero all counters")
	}
}

func TestMetrics_PrometheusExposition(t *testing.T) {
	m := NewMetrics()
	m.IncGenerated()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, name := range []string{"price_ticks_generated", "ws_frames_sent", "ws_frames_dropped", "ws_frames_duplicated"} {
		if !strings.Contains(body, "# HELP "+name) || !strings.Contains(body, "# TYPE "+name+" counter") {
			t.Fatalf("missing HELP/TYPE for %s in:\n%s", name, body)
		}
	}
	if !strings.Contains(body, "price_ticks_generated 1") {
		t.Fatalf("expected price_ticks_generated 1 in:\n%s", body)
	}
}
