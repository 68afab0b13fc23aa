package models

import "time"

// MatchStatus is the outcome of resolving one feed event.
type MatchStatus string

const (
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusAmbiguous MatchStatus = "ambiguous"
	MatchStatusUnmatched MatchStatus = "unmatched"
)

// CandidateScore is how well one fixture matched a feed event.
// Score is the weaker of the two team scores.
type CandidateScore struct {
	FixtureID int64 `json:"fixture_id"`
	HomeScore int16 `json:"home_score"`
	AwayScore int16 `json:"away_score"`
	Score     int16 `json:"score"`
	Swapped   bool  `json:"swapped"`
}

// MatchResult is the matcher's verdict for one feed event.
type MatchResult struct {
	Event      FeedEvent       `json:"event"`
	Status     MatchStatus     `json:"status"`
	Best       *CandidateScore `json:"best,omitempty"`
	RunnerUp   *CandidateScore `json:"runner_up,omitempty"`
	Candidates int             `json:"candidates"`
	Reason     string          `json:"reason,omitempty"`
}

// MatchRecord is one row of the match log.
type MatchRecord struct {
	ID         int64       `json:"id" db:"id"`
	Source     string      `json:"source" db:"source"`
	ExternalID string      `json:"external_id" db:"external_id"`
	FixtureID  *int64      `json:"fixture_id,omitempty" db:"fixture_id"`
	Status     MatchStatus `json:"status" db:"status"`
	Score      int16       `json:"score" db:"score"`
	HomeScore  int16       `json:"home_score" db:"home_score"`
	AwayScore  int16       `json:"away_score" db:"away_score"`
	Swapped    bool        `json:"swapped" db:"swapped"`
	Reason     string      `json:"reason,omitempty" db:"reason"`
	MatchedAt  time.Time   `json:"matched_at" db:"matched_at"`
}

// Record flattens a result into a match log row. Only a matched result
// carries a fixture id; ambiguous ones keep the best score for review.
func (r *MatchResult) Record(at time.Time) *MatchRecord {
	rec := &MatchRecord{
		Source:     r.Event.Source,
		ExternalID: r.Event.ExternalID,
		Status:     r.Status,
		Reason:     r.Reason,
		MatchedAt:  at,
	}
	if r.Best != nil {
		rec.Score = r.Best.Score
		rec.HomeScore = r.Best.HomeScore
		rec.AwayScore = r.Best.AwayScore
		rec.Swapped = r.Best.Swapped
		if r.Status == MatchStatusMatched {
			id := r.Best.FixtureID
			rec.FixtureID = &id
		}
	}
	return rec
}
