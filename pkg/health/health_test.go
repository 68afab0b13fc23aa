package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"team-matcher/pkg/logging"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type fakeBook struct {
	loaded bool
	n      int
}

func (b fakeBook) IsLoaded() bool { return b.loaded }
func (b fakeBook) Len() int       { return b.n }

func newManager(t *testing.T) *HealthManager {
	t.Helper()
	l := logging.NewWithWriter(logging.LogConfig{Level: logging.LevelError}, io.Discard)
	t.Cleanup(func() { l.Close() })
	return NewHealthManager(DefaultHealthConfig(), l)
}

func TestCheckAll_Aggregates(t *testing.T) {
	tests := []struct {
		name   string
		db     error
		loaded bool
		want   HealthStatus
	}{
		{"all healthy", nil, true, HealthStatusHealthy},
		{"aliases missing", nil, false, HealthStatusDegraded},
		{"db down", errors.New("refused"), true, HealthStatusUnhealthy},
		{"db down wins over degraded", errors.New("refused"), false, HealthStatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm := newManager(t)
			hm.RegisterChecker(NewDatabaseHealthChecker(fakePinger{tt.db}, "database"))
			hm.RegisterChecker(NewAliasBookChecker(fakeBook{loaded: tt.loaded, n: 3}))

			got := hm.CheckAll(context.Background())
			if got.Status != tt.want {
				t.Fatalf("status = %s, want %s", got.Status, tt.want)
			}
			if got.Summary.TotalComponents != 2 {
				t.Fatalf("summary = %+v", got.Summary)
			}
			if cached := hm.GetCachedHealth(); cached.Status != tt.want {
				t.Fatalf("cached status = %s, want %s", cached.Status, tt.want)
			}
		})
	}
}

func TestCachedHealth_UnknownBeforeFirstRun(t *testing.T) {
	hm := newManager(t)
	hm.RegisterChecker(NewAliasBookChecker(fakeBook{loaded: true}))
	if got := hm.GetCachedHealth().Status; got != HealthStatusUnknown {
		t.Fatalf("status = %s, want unknown", got)
	}
}

func TestHandler_Endpoints(t *testing.T) {
	hm := newManager(t)
	hm.RegisterChecker(NewDatabaseHealthChecker(fakePinger{errors.New("down")}, "database"))
	r := mux.NewRouter()
	NewHandler(hm).Register(r)

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusServiceUnavailable},
		{"/health/live", http.StatusOK},
		{"/health/ready", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
		}
		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Errorf("GET %s: invalid json: %v", tt.path, err)
		}
	}
}
