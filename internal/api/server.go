// Package api exposes the similarity scorer and the fixture matcher over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"team-matcher/internal/constants"
	"team-matcher/internal/matcher"
	"team-matcher/internal/models"
	"team-matcher/pkg/health"
	"team-matcher/pkg/logging"
)

// FixtureReader serves the read-only fixture endpoints.
type FixtureReader interface {
	FixtureByID(ctx context.Context, id int64) (*models.Fixture, error)
	RecentMatches(ctx context.Context, limit int) ([]models.MatchRecord, error)
}

// Options wires a Server. Store and Health may be nil; without a store the
// fixture endpoints answer 503.
type Options struct {
	Engine       *matcher.Engine
	Store        FixtureReader
	Health       *health.Handler
	Logger       *logging.Logger
	MaxBatchSize func() int
}

type Server struct {
	engine       *matcher.Engine
	store        FixtureReader
	health       *health.Handler
	logger       *logging.Logger
	log          *logging.ComponentLogger
	maxBatchSize func() int
}

func NewServer(opts Options) *Server {
	maxBatch := opts.MaxBatchSize
	if maxBatch == nil {
		maxBatch = func() int { return constants.MaxBatchSizeDefault }
	}
	return &Server{
		engine:       opts.Engine,
		store:        opts.Store,
		health:       opts.Health,
		logger:       opts.Logger,
		log:          opts.Logger.WithComponent("api"),
		maxBatchSize: maxBatch,
	}
}

// Register mounts every route and the request middleware on r.
func (s *Server) Register(r *mux.Router) {
	r.Use(RequestID, AccessLog(s.logger))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/similarity", s.handleSimilarity).Methods(http.MethodPost)
	api.HandleFunc("/similarity/teams", s.handleTeams).Methods(http.MethodPost)
	api.HandleFunc("/similarity/batch", s.handleBatch).Methods(http.MethodPost)
	api.HandleFunc("/fixtures/resolve", s.handleResolve).Methods(http.MethodPost)
	api.HandleFunc("/fixtures/{id:[0-9]+}", s.handleFixture).Methods(http.MethodGet)
	api.HandleFunc("/matches/recent", s.handleRecentMatches).Methods(http.MethodGet)

	if s.health != nil {
		s.health.Register(r)
	}
	r.NotFoundHandler = RequestID(http.HandlerFunc(s.handleNotFound))
	r.MethodNotAllowedHandler = RequestID(http.HandlerFunc(s.handleMethodNotAllowed))
}

// Router builds a fresh router with everything registered.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	s.Register(r)
	return r
}
