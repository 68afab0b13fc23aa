package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistry_ReusesByName(t *testing.T) {
	r := NewRegistry()
	a := r.Counter("hits-total", "hits")
	b := r.Counter("hits_total", "hits")
	if a != b {
		t.Fatalf("sanitized names must map to one counter")
	}
	a.Inc()
	b.Add(2)
	if got := a.Get(); got != 3 {
		t.Fatalf("counter = %d, want 3", got)
	}
}

func TestHistogram_Buckets(t *testing.T) {
	r := NewRegistry()
	h := r.Histogram("score", "scores", []float64{50, 10})
	for _, v := range []float64{5, 10, 40, 99} {
		h.Observe(v)
	}
	if h.Count() != 4 || h.Sum() != 154 {
		t.Fatalf("count=%d sum=%g", h.Count(), h.Sum())
	}

	var sb strings.Builder
	r.WriteTo(&sb)
	out := sb.String()
	for _, want := range []string{
		`score_bucket{le="10"} 2`,
		`score_bucket{le="50"} 3`,
		`score_bucket{le="+Inf"} 4`,
		"score_count 4",
		"# TYPE score histogram",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q:\n%s", want, out)
		}
	}
}

func TestCounterVec(t *testing.T) {
	r := NewRegistry()
	v := r.CounterVec("resolve_total", "outcomes", "status")
	v.With("matched").Add(2)
	v.With("ambiguous").Add(1)
	if v.Get("matched") != 2 || v.Get("unmatched") != 0 {
		t.Fatalf("unexpected values")
	}

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `resolve_total{status="matched"} 2`) {
		t.Fatalf("body:\n%s", body)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
}

func TestGauge(t *testing.T) {
	var g Gauge
	g.Set(1.5)
	g.Add(2)
	if g.Get() != 3.5 {
		t.Fatalf("gauge = %g", g.Get())
	}
}

func TestNewMatching_Idempotent(t *testing.T) {
	r := NewRegistry()
	a, b := NewMatching(r), NewMatching(r)
	if a.Comparisons != b.Comparisons || a.Outcomes != b.Outcomes {
		t.Fatalf("NewMatching must reuse registered metrics")
	}
}
