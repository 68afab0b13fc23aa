package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"team-matcher/internal/matcher"
	"team-matcher/internal/models"
	testutil "team-matcher/internal/testing"
	errs "team-matcher/pkg/errors"
	"team-matcher/pkg/health"
	"team-matcher/pkg/logging"
	"team-matcher/pkg/metrics"
)

var kickoff = time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)

type fixture struct {
	store  *testutil.MockFixtureStore
	router http.Handler
}

func newFixture(t *testing.T, withStore bool) *fixture {
	t.Helper()
	logger := logging.NewWithWriter(logging.LogConfig{Level: logging.LevelError}, io.Discard)
	store := testutil.NewMockFixtureStore(
		models.Fixture{ID: 1, HomeTeam: "Arsenal", AwayTeam: "Chelsea", StartsAt: kickoff},
		models.Fixture{ID: 2, HomeTeam: "Liverpool", AwayTeam: "Everton", StartsAt: kickoff.Add(2 * time.Hour)},
	)
	opts := Options{Logger: logger, MaxBatchSize: func() int { return 3 }}

	hm := health.NewHealthManager(health.DefaultHealthConfig(), logger)
	hm.RegisterChecker(health.NewDatabaseHealthChecker(store, "database"))
	opts.Health = health.NewHandler(hm)

	if withStore {
		opts.Store = store
		opts.Engine = matcher.NewEngine(matcher.DefaultConfig(), nil, store, store, metrics.NewMatching(metrics.NewRegistry()), logger)
	}
	return &fixture{store: store, router: NewServer(opts).Router()}
}

func (f *fixture) do(t *testing.T, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestSimilarityEndpoint(t *testing.T) {
	f := newFixture(t, false)
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantScore  int16
	}{
		{"plain", `{"first":"chelsea","second":"chelsa"}`, http.StatusOK, 83},
		{"clear symbols", `{"first":"Real Madrid!","second":"real-madrid","clear_spec_symbols":true}`, http.StatusOK, 100},
		{"length gate", `{"first":"ab","second":"abcdef","length_diff":1}`, http.StatusOK, 0},
		{"length gate admits", `{"first":"ab","second":"abcdef","length_diff":4}`, http.StatusOK, 100},
		{"both blank", `{"first":"","second":""}`, http.StatusOK, 100},
		{"malformed", `{"first":`, http.StatusBadRequest, 0},
		{"unknown field", `{"first":"a","second":"b","third":"c"}`, http.StatusBadRequest, 0},
		{"trailing data", `{"first":"a","second":"b"}{}`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/similarity", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				body := decodeBody[ErrorBody](t, rec)
				if body.Error.Code != "invalid_request" || body.RequestID == "" {
					t.Fatalf("error body = %+v", body)
				}
				return
			}
			if got := decodeBody[scoreResponse](t, rec); got.Score != tt.wantScore {
				t.Fatalf("score = %d, want %d", got.Score, tt.wantScore)
			}
		})
	}
}

func TestTeamsEndpoint(t *testing.T) {
	f := newFixture(t, false)
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantScore  int16
	}{
		{"same day", `{"first":"Real Madrid!","second":"real-madrid","clear_spec_symbols":true,"date_first":"2024-03-09T15:00:00Z","date_second":"2024-03-09T23:59:00Z"}`, http.StatusOK, 100},
		{"next day", `{"first":"Arsenal","second":"Arsenal","date_first":"2024-03-09T23:59:00Z","date_second":"2024-03-10T00:01:00Z"}`, http.StatusOK, 0},
		{"marker mismatch", `{"first":"Chelsea U21","second":"Chelsea","date_first":"2024-03-09T15:00:00Z","date_second":"2024-03-09T15:00:00Z"}`, http.StatusOK, 0},
		{"missing date", `{"first":"Arsenal","second":"Arsenal","date_first":"2024-03-09T15:00:00Z"}`, http.StatusBadRequest, 0},
		{"bad date", `{"first":"Arsenal","second":"Arsenal","date_first":"09.03.2024","date_second":"2024-03-09T15:00:00Z"}`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/similarity/teams", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusOK {
				if got := decodeBody[scoreResponse](t, rec); got.Score != tt.wantScore {
					t.Fatalf("score = %d, want %d", got.Score, tt.wantScore)
				}
			}
		})
	}
}

func TestBatchEndpoint(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/api/similarity/batch",
		`{"pairs":[{"first":"chelsea","second":"chelsa"},{"first":"ab","second":"abcdef","length_diff":1},{"first":"Home","second":"Away"}],"clear_spec_symbols":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[batchResponse](t, rec)
	want := []int16{83, 0, 0}
	if len(got.Scores) != len(want) {
		t.Fatalf("scores = %v, want %v", got.Scores, want)
	}
	for i := range want {
		if got.Scores[i] != want[i] {
			t.Fatalf("scores = %v, want %v", got.Scores, want)
		}
	}

	for name, body := range map[string]string{
		"empty":     `{"pairs":[]}`,
		"too large": `{"pairs":[{},{},{},{}]}`,
	} {
		if rec := f.do(t, http.MethodPost, "/api/similarity/batch", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestResolveEndpoint(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/api/fixtures/resolve",
		`{"source":"feed-a","external_id":"x1","home_team":"Arsenal FC","away_team":"Chelsea","starts_at":"2024-03-09T19:00:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	res := decodeBody[models.MatchResult](t, rec)
	if res.Status != models.MatchStatusMatched || res.Best == nil || res.Best.FixtureID != 1 {
		t.Fatalf("result = %+v", res)
	}
	if len(f.store.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(f.store.Records))
	}

	rec = f.do(t, http.MethodPost, "/api/fixtures/resolve", `{"source":"feed-a","home_team":"","away_team":"Chelsea","starts_at":"2024-03-09T19:00:00Z"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid event status = %d, want 400", rec.Code)
	}

	f.store.Err = errs.NewDB("test", "connection refused", nil)
	rec = f.do(t, http.MethodPost, "/api/fixtures/resolve",
		`{"source":"feed-a","external_id":"x2","home_team":"Arsenal","away_team":"Chelsea","starts_at":"2024-03-09T19:00:00Z"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("db failure status = %d, want 503", rec.Code)
	}
	if body := decodeBody[ErrorBody](t, rec); body.Error.Message != "connection refused" {
		t.Fatalf("message = %q", body.Error.Message)
	}
}

func TestFixtureEndpoint(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/api/fixtures/2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[models.Fixture](t, rec); got.HomeTeam != "Liverpool" {
		t.Fatalf("fixture = %+v", got)
	}

	rec = f.do(t, http.MethodGet, "/api/fixtures/99", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing fixture status = %d, want 404", rec.Code)
	}
	if body := decodeBody[ErrorBody](t, rec); body.Error.Code != "not_found" {
		t.Fatalf("code = %q", body.Error.Code)
	}

	if rec := f.do(t, http.MethodGet, "/api/fixtures/abc", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("non-numeric id status = %d, want 404", rec.Code)
	}
}

func TestRecentMatchesEndpoint(t *testing.T) {
	f := newFixture(t, true)
	for _, id := range []string{"a", "b", "c"} {
		f.store.Records = append(f.store.Records, models.MatchRecord{Source: "feed", ExternalID: id, Status: models.MatchStatusUnmatched})
	}

	rec := f.do(t, http.MethodGet, "/api/matches/recent?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[[]models.MatchRecord](t, rec)
	if len(got) != 2 || got[0].ExternalID != "c" || got[1].ExternalID != "b" {
		t.Fatalf("records = %+v", got)
	}

	for _, q := range []string{"0", "-3", "ten", "2.5"} {
		if rec := f.do(t, http.MethodGet, "/api/matches/recent?limit="+q, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", q, rec.Code)
		}
	}

	rec = f.do(t, http.MethodGet, "/api/matches/recent", "")
	if got := decodeBody[[]models.MatchRecord](t, rec); len(got) != 3 {
		t.Fatalf("default limit returned %d records", len(got))
	}
}

func TestStoreEndpointsWithoutStore(t *testing.T) {
	f := newFixture(t, false)
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/fixtures/1", ""},
		{http.MethodGet, "/api/matches/recent", ""},
		{http.MethodPost, "/api/fixtures/resolve", `{}`},
	} {
		if rec := f.do(t, tc.method, tc.path, tc.body); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s status = %d, want 503", tc.method, tc.path, rec.Code)
		}
	}
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/api/similarity", `{"first":"a","second":"b"}`)
	if id := rec.Header().Get(RequestIDHeader); len(id) != 36 {
		t.Fatalf("generated request id = %q", id)
	}

	rec = f.do(t, http.MethodPost, "/api/similarity", `{`, RequestIDHeader, "abc-123")
	if rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("incoming request id must be echoed")
	}
	if body := decodeBody[ErrorBody](t, rec); body.RequestID != "abc-123" {
		t.Fatalf("envelope request id = %q", body.RequestID)
	}
}

func TestRoutingErrors(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/nope", "")
	if rec.Code != http.StatusNotFound || rec.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("unknown route = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/api/similarity", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method = %d, want 405", rec.Code)
	}
}

func TestHealthMounted(t *testing.T) {
	f := newFixture(t, false)
	if rec := f.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("/health = %d: %s", rec.Code, rec.Body.String())
	}
	f.store.PingErr = errs.NewDB("test", "down", nil)
	if rec := f.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("/health with failing db = %d, want 503", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:5555", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.2:5555", "198.51.100.4"},
		{"remote addr", nil, "192.0.2.9:4444", "192.0.2.9"},
		{"remote without port", nil, "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := clientIP(r); got != tt.want {
				t.Fatalf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", errs.NewValidation("api", "bad", nil), http.StatusBadRequest, "invalid_request"},
		{"not found", errs.NewNotFound("database.FixtureByID", "fixture 9 not found", nil), http.StatusNotFound, "not_found"},
		{"wrapped not found", fmt.Errorf("load: %w", errs.NewNotFound("op", "gone", nil)), http.StatusNotFound, "not_found"},
		{"biz", errs.NewBiz("matcher.Resolve", "no fixture source configured", nil), http.StatusUnprocessableEntity, "unprocessable"},
		{"db", errs.NewDB("op", "down", nil), http.StatusServiceUnavailable, "unavailable"},
		{"untyped", io.ErrUnexpectedEOF, http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusFor(tt.err)
			if status != tt.wantStatus || code != tt.wantCode {
				t.Fatalf("statusFor = (%d, %q), want (%d, %q)", status, code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}
