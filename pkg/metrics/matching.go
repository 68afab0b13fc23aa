package metrics

// ScoreBuckets cover the 0..100 similarity range in steps of ten.
var ScoreBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// Matching groups the metrics emitted while scoring and resolving fixtures.
type Matching struct {
	Comparisons   *Counter
	Scores        *Histogram
	Outcomes      *CounterVec
	ResolveTime   *Histogram
	Candidates    *Histogram
	AliasesLoaded *Gauge
}

// NewMatching registers the matching metrics on r. Calling it twice on the
// same registry returns the same underlying metrics.
func NewMatching(r *Registry) *Matching {
	return &Matching{
		Comparisons:   r.Counter("team_comparisons_total", "Team name comparisons performed"),
		Scores:        r.Histogram("team_similarity_score", "Distribution of best team similarity scores", ScoreBuckets),
		Outcomes:      r.CounterVec("fixture_resolve_total", "Fixture resolutions by outcome", "status"),
		ResolveTime:   r.Histogram("fixture_resolve_seconds", "Time spent resolving one feed event", []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}),
		Candidates:    r.Histogram("fixture_candidates", "Fixtures considered per resolution", []float64{0, 1, 5, 10, 50, 100, 500}),
		AliasesLoaded: r.Gauge("alias_book_entries", "Canonical names in the alias book"),
	}
}
