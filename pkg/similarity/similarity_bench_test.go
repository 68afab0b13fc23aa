package similarity

import (
	"testing"
	"time"
)

func BenchmarkInPercent(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = InPercent("Wolverhampton Wanderers", "Wolves FC", true)
	}
}

func BenchmarkForSportTeams(b *testing.B) {
	d := time.Date(2024, 3, 9, 15, 0, 0, 0, time.UTC)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = ForSportTeams("Borussia Dortmund U19", "Dortmund U19", true, d, d)
	}
}
