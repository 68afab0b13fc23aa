package matcher

import (
	"context"
	"errors"
	"time"

	"team-matcher/internal/models"
	"team-matcher/pkg/circuit"
	errs "team-matcher/pkg/errors"
	"team-matcher/pkg/logging"
	"team-matcher/pkg/metrics"
)

// Store is a fixture catalogue that also keeps the match log.
type Store interface {
	FixtureSource
	MatchRecorder
}

// GuardedStore puts a circuit breaker in front of a Store so a struggling
// database fails fast instead of stacking up resolve requests.
type GuardedStore struct {
	store Store
	br    *circuit.Breaker
}

// NewGuardedStore wraps store. Validation, not-found and business errors
// do not count against the database.
func NewGuardedStore(store Store, reg *metrics.Registry, logger *logging.Logger) *GuardedStore {
	cfg := circuit.DefaultConfig("fixture_store")
	cfg.IsFailure = func(err error) bool {
		switch errs.KindOf(err) {
		case errs.KindValidation, errs.KindNotFound, errs.KindBiz:
			return false
		}
		return true
	}
	return &GuardedStore{store: store, br: circuit.New(cfg, reg, logger)}
}

func (g *GuardedStore) FixturesOn(ctx context.Context, day time.Time) ([]models.Fixture, error) {
	var out []models.Fixture
	err := g.br.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.store.FixturesOn(ctx, day)
		return err
	}, nil)
	return out, unavailable("matcher.FixturesOn", err)
}

func (g *GuardedStore) RecordMatch(ctx context.Context, rec *models.MatchRecord) error {
	err := g.br.Do(ctx, func(ctx context.Context) error {
		return g.store.RecordMatch(ctx, rec)
	}, nil)
	return unavailable("matcher.RecordMatch", err)
}

// State exposes the breaker state for health reporting.
func (g *GuardedStore) State() circuit.State { return g.br.State() }

func unavailable(op string, err error) error {
	if errors.Is(err, circuit.ErrOpen) {
		return errs.NewDB(op, "fixture store unavailable", err)
	}
	return err
}
