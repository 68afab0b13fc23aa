package models

import (
	"time"

	errs "team-matcher/pkg/errors"
	"team-matcher/pkg/utils"
)

// Fixture is a scheduled game from our own catalogue.
type Fixture struct {
	ID       int64     `json:"id" db:"id"`
	HomeTeam string    `json:"home_team" db:"home_team"`
	AwayTeam string    `json:"away_team" db:"away_team"`
	League   *string   `json:"league,omitempty" db:"league"`
	StartsAt time.Time `json:"starts_at" db:"starts_at"`
}

// Validate checks the fields a fixture needs before it is stored.
func (f *Fixture) Validate() error {
	if err := utils.RequireNotBlank(f.HomeTeam, "home_team"); err != nil {
		return err
	}
	if err := utils.RequireNotBlank(f.AwayTeam, "away_team"); err != nil {
		return err
	}
	if f.StartsAt.IsZero() {
		return errs.NewValidation("models.Fixture.Validate", "starts_at is required", nil)
	}
	return nil
}

// FeedEvent is a game as reported by an external feed, to be resolved to a Fixture.
type FeedEvent struct {
	Source     string    `json:"source"`
	ExternalID string    `json:"external_id"`
	HomeTeam   string    `json:"home_team"`
	AwayTeam   string    `json:"away_team"`
	StartsAt   time.Time `json:"starts_at"`
}

// Validate checks the fields the matcher relies on.
func (e *FeedEvent) Validate() error {
	for _, f := range []struct{ v, name string }{
		{e.Source, "source"},
		{e.HomeTeam, "home_team"},
		{e.AwayTeam, "away_team"},
	} {
		if err := utils.RequireNotBlank(f.v, f.name); err != nil {
			return err
		}
	}
	if e.StartsAt.IsZero() {
		return errs.NewValidation("models.FeedEvent.Validate", "starts_at is required", nil)
	}
	return nil
}
