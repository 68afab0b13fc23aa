package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"team-matcher/internal/constants"
	"team-matcher/internal/models"
	errs "team-matcher/pkg/errors"
	"team-matcher/pkg/logging"
	"team-matcher/pkg/similarity"
	"team-matcher/pkg/utils"
)

type similarityRequest struct {
	First            string `json:"first"`
	Second           string `json:"second"`
	ClearSpecSymbols bool   `json:"clear_spec_symbols"`
	LengthDiff       *uint  `json:"length_diff,omitempty"`
}

type teamsRequest struct {
	First            string    `json:"first"`
	Second           string    `json:"second"`
	ClearSpecSymbols bool      `json:"clear_spec_symbols"`
	DateFirst        time.Time `json:"date_first"`
	DateSecond       time.Time `json:"date_second"`
}

type batchPair struct {
	First      string `json:"first"`
	Second     string `json:"second"`
	LengthDiff *uint  `json:"length_diff,omitempty"`
}

type batchRequest struct {
	Pairs            []batchPair `json:"pairs"`
	ClearSpecSymbols bool        `json:"clear_spec_symbols"`
}

type scoreResponse struct {
	Score int16 `json:"score"`
}

type batchResponse struct {
	Scores []int16 `json:"scores"`
}

// decode reads a single JSON object, rejecting unknown fields and trailing data.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewValidation("api.decode", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), err)
		}
		return errs.NewValidation("api.decode", "invalid JSON body: "+err.Error(), err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errs.NewValidation("api.decode", "request body must hold a single JSON object", err)
	}
	return nil
}

func score(first, second string, clear bool, lengthDiff *uint) int16 {
	if lengthDiff != nil {
		return similarity.InPercentWithinLength(first, second, clear, *lengthDiff)
	}
	return similarity.InPercent(first, second, clear)
}

func (s *Server) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	var req similarityRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Score: score(req.First, req.Second, req.ClearSpecSymbols, req.LengthDiff)})
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	var req teamsRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.DateFirst.IsZero() || req.DateSecond.IsZero() {
		s.writeError(w, r, errs.NewValidation("api.teams", "date_first and date_second are required", nil))
		return
	}
	got := similarity.ForSportTeams(req.First, req.Second, req.ClearSpecSymbols, req.DateFirst, req.DateSecond)
	writeJSON(w, http.StatusOK, scoreResponse{Score: got})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	limit := s.maxBatchSize()
	switch {
	case len(req.Pairs) == 0:
		s.writeError(w, r, errs.NewValidation("api.batch", "pairs must not be empty", nil))
		return
	case len(req.Pairs) > limit:
		s.writeError(w, r, errs.NewValidation("api.batch", fmt.Sprintf("batch of %d pairs exceeds limit %d", len(req.Pairs), limit), nil))
		return
	}

	out := make([]int16, len(req.Pairs))
	for i, p := range req.Pairs {
		out[i] = score(p.First, p.Second, req.ClearSpecSymbols, p.LengthDiff)
	}
	writeJSON(w, http.StatusOK, batchResponse{Scores: out})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil || s.store == nil {
		s.writeUnavailable(w, r)
		return
	}
	var ev models.FeedEvent
	if err := decode(w, r, &ev); err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), constants.ResolveTimeoutDefault)
	defer cancel()
	res, err := s.engine.Resolve(ctx, ev)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFixture(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeUnavailable(w, r)
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, r, errs.NewValidation("api.fixture", "invalid fixture id", err))
		return
	}
	ctx := logging.WithFixtureID(r.Context(), id)
	f, err := s.store.FixtureByID(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleRecentMatches(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeUnavailable(w, r)
		return
	}
	limit := constants.RecentMatchesDefaultLimit
	if raw := r.URL.Query().Get("limit"); utils.IsNotBlank(raw) {
		n, ok := utils.ToInt(raw, utils.InvariantLocale)
		if !ok || n <= 0 {
			s.writeError(w, r, errs.NewValidation("api.recent", "limit must be a positive integer", nil))
			return
		}
		limit = min(n, constants.RecentMatchesMaxLimit)
	}
	recs, err := s.store.RecentMatches(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []models.MatchRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) writeUnavailable(w http.ResponseWriter, r *http.Request) {
	s.writeErrorStatus(w, r, http.StatusServiceUnavailable, "unavailable", errors.New("fixture store not configured"))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeErrorStatus(w, r, http.StatusNotFound, "not_found", fmt.Errorf("no route for %s", r.URL.Path))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeErrorStatus(w, r, http.StatusMethodNotAllowed, "method_not_allowed", fmt.Errorf("%s not allowed on %s", r.Method, r.URL.Path))
}
