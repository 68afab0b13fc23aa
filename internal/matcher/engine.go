// Package matcher resolves feed events to fixtures from our own catalogue by
// scoring team names with similarity.ForSportTeams.
package matcher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"team-matcher/internal/aliases"
	"team-matcher/internal/constants"
	"team-matcher/internal/models"
	"team-matcher/pkg/config"
	errs "team-matcher/pkg/errors"
	"team-matcher/pkg/logging"
	"team-matcher/pkg/metrics"
	"team-matcher/pkg/similarity"
)

// FixtureSource lists the catalogue fixtures on a calendar day.
type FixtureSource interface {
	FixturesOn(ctx context.Context, day time.Time) ([]models.Fixture, error)
}

// MatchRecorder appends to the match log.
type MatchRecorder interface {
	RecordMatch(ctx context.Context, rec *models.MatchRecord) error
}

// Config configures the matching engine behavior
type Config struct {
	MatchThreshold   int  // minimum fixture score for a match (default: 80)
	AmbiguityMargin  int  // runner-up within this many points of best makes it ambiguous (default: 5)
	ClearSpecSymbols bool // strip punctuation and whitespace before scoring
	MaxLengthDiff    uint // length gate on normalized names, 0 disables
	AllowSwapped     bool // also score the feed's home team against the fixture's away team
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MatchThreshold:   constants.MatchThresholdDefault,
		AmbiguityMargin:  constants.AmbiguityMarginDefault,
		ClearSpecSymbols: true,
		AllowSwapped:     true,
	}
}

// ConfigFrom picks the matching knobs out of the service config.
func ConfigFrom(c *config.Config) Config {
	return Config{
		MatchThreshold:   c.MatchThreshold,
		AmbiguityMargin:  c.AmbiguityMargin,
		ClearSpecSymbols: c.ClearSpecSymbols,
		MaxLengthDiff:    c.MaxLengthDiff,
		AllowSwapped:     c.AllowSwapped,
	}
}

// Engine scores feed events against fixtures. It is safe for concurrent use;
// ApplyConfig may run while matches are in flight.
type Engine struct {
	mu  sync.RWMutex
	cfg Config

	book     *aliases.Book
	source   FixtureSource
	recorder MatchRecorder
	metrics  *metrics.Matching
	log      *logging.ComponentLogger
	now      func() time.Time
}

// NewEngine wires an engine. book, source and recorder may be nil: without a
// book names are compared as given, without a source Resolve fails, and
// without a recorder results are not logged to storage.
func NewEngine(cfg Config, book *aliases.Book, source FixtureSource, recorder MatchRecorder, m *metrics.Matching, logger *logging.Logger) *Engine {
	if book == nil {
		book = aliases.New()
	}
	if m == nil {
		m = metrics.NewMatching(metrics.Default)
	}
	return &Engine{
		cfg:      cfg,
		book:     book,
		source:   source,
		recorder: recorder,
		metrics:  m,
		log:      logger.WithComponent("matcher"),
		now:      time.Now,
	}
}

// Config returns the active configuration.
func (e *Engine) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// ApplyConfig swaps in new knobs at runtime. Out of range threshold or margin
// values keep the previous setting.
func (e *Engine) ApplyConfig(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cfg.MatchThreshold < 0 || cfg.MatchThreshold > 100 {
		cfg.MatchThreshold = e.cfg.MatchThreshold
	}
	if cfg.AmbiguityMargin < 0 || cfg.AmbiguityMargin > 100 {
		cfg.AmbiguityMargin = e.cfg.AmbiguityMargin
	}
	e.cfg = cfg
	e.log.Info("Matcher config applied",
		logging.Int("match_threshold", cfg.MatchThreshold),
		logging.Int("ambiguity_margin", cfg.AmbiguityMargin),
		logging.Bool("clear_spec_symbols", cfg.ClearSpecSymbols),
		logging.Int("max_length_diff", int(cfg.MaxLengthDiff)),
		logging.Bool("allow_swapped", cfg.AllowSwapped))
}

// Match scores every candidate against event and classifies the best one.
// Candidates are ranked by score, then by fixture id.
func (e *Engine) Match(event models.FeedEvent, candidates []models.Fixture) *models.MatchResult {
	cfg := e.Config()
	result := &models.MatchResult{Event: event, Candidates: len(candidates)}
	e.metrics.Candidates.Observe(float64(len(candidates)))

	if len(candidates) == 0 {
		result.Status = models.MatchStatusUnmatched
		result.Reason = fmt.Sprintf("no fixtures on %s", event.StartsAt.Format(time.DateOnly))
		return result
	}

	scores := make([]models.CandidateScore, 0, len(candidates))
	for _, f := range candidates {
		scores = append(scores, e.scoreFixture(cfg, event, f))
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].FixtureID < scores[j].FixtureID
	})

	best := scores[0]
	result.Best = &best
	if len(scores) > 1 {
		runnerUp := scores[1]
		result.RunnerUp = &runnerUp
	}
	e.metrics.Scores.Observe(float64(best.Score))

	switch {
	case int(best.Score) < cfg.MatchThreshold:
		result.Status = models.MatchStatusUnmatched
		result.Reason = fmt.Sprintf("best score %d below threshold %d", best.Score, cfg.MatchThreshold)
	case result.RunnerUp != nil && int(result.RunnerUp.Score) >= int(best.Score)-cfg.AmbiguityMargin:
		result.Status = models.MatchStatusAmbiguous
		result.Reason = fmt.Sprintf("fixtures %d and %d scored %d and %d, within margin %d",
			best.FixtureID, result.RunnerUp.FixtureID, best.Score, result.RunnerUp.Score, cfg.AmbiguityMargin)
	default:
		result.Status = models.MatchStatusMatched
		result.Reason = fmt.Sprintf("fixture %d scored %d", best.FixtureID, best.Score)
	}
	return result
}

// scoreFixture rates one fixture. The fixture score is the weaker team score,
// so a strong home match cannot carry a wrong away team.
func (e *Engine) scoreFixture(cfg Config, event models.FeedEvent, f models.Fixture) models.CandidateScore {
	// compare calendar days in the feed's zone
	kickoff := f.StartsAt.In(event.StartsAt.Location())

	home := e.teamScore(cfg, event.HomeTeam, f.HomeTeam, event.StartsAt, kickoff)
	away := e.teamScore(cfg, event.AwayTeam, f.AwayTeam, event.StartsAt, kickoff)
	cs := models.CandidateScore{FixtureID: f.ID, HomeScore: home, AwayScore: away, Score: min(home, away)}

	if cfg.AllowSwapped {
		sh := e.teamScore(cfg, event.HomeTeam, f.AwayTeam, event.StartsAt, kickoff)
		sa := e.teamScore(cfg, event.AwayTeam, f.HomeTeam, event.StartsAt, kickoff)
		if s := min(sh, sa); s > cs.Score {
			cs = models.CandidateScore{FixtureID: f.ID, HomeScore: sh, AwayScore: sa, Score: s, Swapped: true}
		}
	}
	return cs
}

// teamScore is the best score over every alias variant of both names.
func (e *Engine) teamScore(cfg Config, feedName, fixtureName string, feedDay, fixtureDay time.Time) int16 {
	var best int16
	var n int64
	for _, a := range e.book.Variants(feedName) {
		for _, b := range e.book.Variants(fixtureName) {
			n++
			s := similarity.ForSportTeams(a, b, cfg.ClearSpecSymbols, feedDay, fixtureDay)
			if s > 0 && cfg.MaxLengthDiff > 0 {
				s = min(s, similarity.InPercentWithinLength(a, b, cfg.ClearSpecSymbols, cfg.MaxLengthDiff))
			}
			if s > best {
				best = s
			}
			if best == 100 {
				e.metrics.Comparisons.Add(n)
				return best
			}
		}
	}
	e.metrics.Comparisons.Add(n)
	return best
}

// Resolve loads the fixtures on the event's day, matches the event against
// them and appends the verdict to the match log. A failed log write is
// reported but the verdict is still returned.
func (e *Engine) Resolve(ctx context.Context, event models.FeedEvent) (*models.MatchResult, error) {
	timer := e.metrics.ResolveTime.Start()
	defer timer.Observe()

	log := e.log.Ctx(ctx)
	if err := event.Validate(); err != nil {
		return nil, err
	}
	if e.source == nil {
		return nil, errs.NewBiz("matcher.Resolve", "no fixture source configured", nil)
	}

	candidates, err := e.source.FixturesOn(ctx, event.StartsAt)
	if err != nil {
		log.Error("Failed to load candidate fixtures", err,
			logging.String("source", event.Source),
			logging.String("external_id", event.ExternalID))
		return nil, err
	}

	result := e.Match(event, candidates)
	e.metrics.Outcomes.With(string(result.Status)).Add(1)

	fields := []logging.Field{
		logging.String("source", event.Source),
		logging.String("external_id", event.ExternalID),
		logging.String("status", string(result.Status)),
		logging.Int("candidates", result.Candidates),
	}
	if result.Best != nil {
		fields = append(fields,
			logging.Int64("fixture_id", result.Best.FixtureID),
			logging.Int("score", int(result.Best.Score)),
			logging.Bool("swapped", result.Best.Swapped))
	}
	log.Info("Feed event resolved", fields...)

	if e.recorder != nil {
		rec := result.Record(e.now().UTC())
		if err := e.recorder.RecordMatch(ctx, rec); err != nil {
			log.Error("Failed to record match", err, logging.String("external_id", event.ExternalID))
			return result, err
		}
	}
	return result, nil
}
