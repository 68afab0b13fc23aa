package testutil

import (
	"context"
	"sync"
	"time"

	"team-matcher/internal/models"
	"team-matcher/pkg/database"
	errs "team-matcher/pkg/errors"
)

// MockFixtureStore is an in-memory fixture catalogue and match log. It
// satisfies matcher.FixtureSource, matcher.MatchRecorder and the API store.
type MockFixtureStore struct {
	Mu       sync.Mutex
	Fixtures []models.Fixture
	Records  []models.MatchRecord
	Err      error // returned by every call when set
	PingErr  error
	Calls    int
}

func NewMockFixtureStore(fixtures ...models.Fixture) *MockFixtureStore {
	return &MockFixtureStore{Fixtures: fixtures}
}

func (m *MockFixtureStore) FixturesOn(ctx context.Context, day time.Time) ([]models.Fixture, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	from, to := database.DayBounds(day)
	var out []models.Fixture
	for _, f := range m.Fixtures {
		if !f.StartsAt.Before(from) && f.StartsAt.Before(to) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *MockFixtureStore) FixtureByID(ctx context.Context, id int64) (*models.Fixture, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, f := range m.Fixtures {
		if f.ID == id {
			ff := f
			return &ff, nil
		}
	}
	return nil, errs.NewNotFound("testutil.FixtureByID", "fixture not found", nil)
}

func (m *MockFixtureStore) RecordMatch(ctx context.Context, rec *models.MatchRecord) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	rec.ID = int64(len(m.Records) + 1)
	m.Records = append(m.Records, *rec)
	return nil
}

// RecentMatches returns records newest first.
func (m *MockFixtureStore) RecentMatches(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.MatchRecord
	for i := len(m.Records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.Records[i])
	}
	return out, nil
}

func (m *MockFixtureStore) PingContext(ctx context.Context) error { return m.PingErr }
