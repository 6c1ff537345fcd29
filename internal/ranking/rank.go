package ranking

import (
	"sort"

	"github.com/rewired-gh/fishrank/internal/models"
)

// DefaultTopN is the leaderboard size before the viewing actor is appended.
const DefaultTopN = 10

// Rank orders stats by total weight descending, breaking ties by actor id
// ascending, and assigns consecutive 1-based ranks. Every actor appears
// exactly once; equal weights never share a rank.
func Rank(stats []models.AggregatedActorStat, viewingActorID string) []models.RankedEntry {
	sorted := make([]models.AggregatedActorStat, len(stats))
	copy(sorted, stats)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TotalWeightKg != sorted[j].TotalWeightKg {
			return sorted[i].TotalWeightKg > sorted[j].TotalWeightKg
		}
		// Tie-break: actor id ascending
		return sorted[i].ActorID < sorted[j].ActorID
	})

	entries := make([]models.RankedEntry, len(sorted))
	for i, s := range sorted {
		entries[i] = models.RankedEntry{
			Rank:           i + 1,
			ActorID:        s.ActorID,
			DisplayName:    s.DisplayName,
			TotalWeightKg:  s.TotalWeightKg,
			MeanCpue:       s.MeanCpue,
			IsViewingActor: viewingActorID != "" && s.ActorID == viewingActorID,
		}
	}
	return entries
}

// Bound truncates a full ranking to its first topN entries. If the viewing
// actor is ranked below the cut it is appended as one extra entry with its
// true rank. topN <= 0 selects DefaultTopN.
func Bound(full []models.RankedEntry, topN int) []models.RankedEntry {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if len(full) <= topN {
		out := make([]models.RankedEntry, len(full))
		copy(out, full)
		return out
	}

	out := make([]models.RankedEntry, topN, topN+1)
	copy(out, full[:topN])
	for _, e := range full[topN:] {
		if e.IsViewingActor {
			out = append(out, e)
			break
		}
	}
	return out
}

// Position returns the viewing actor's entry in a full ranking.
func Position(full []models.RankedEntry, actorID string) (models.RankedEntry, bool) {
	for _, e := range full {
		if e.ActorID == actorID {
			return e, true
		}
	}
	return models.RankedEntry{}, false
}

// BuildLeaderboard ranks one period's stats and bounds the result for display.
// Ranking against oneself is meaningless, so fewer than two actors yields nil.
func BuildLeaderboard(stats []models.AggregatedActorStat, viewingActorID string, period models.Period, topN int) *models.Leaderboard {
	if len(stats) < 2 {
		return nil
	}
	return &models.Leaderboard{
		Period:     period,
		TotalPeers: len(stats),
		Entries:    Bound(Rank(stats, viewingActorID), topN),
	}
}
