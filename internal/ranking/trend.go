package ranking

import (
	"github.com/rewired-gh/fishrank/internal/models"
)

// DefaultTrendMonths is the trailing window length, current month included.
const DefaultTrendMonths = 6

// TrendWindow returns the inclusive period range covered by a trend of the
// given length ending at current.
func TrendWindow(current models.Period, months int) (from, to models.Period) {
	if months <= 0 {
		months = DefaultTrendMonths
	}
	return current.AddMonths(-(months - 1)), current
}

// BuildTrend replays aggregation and ranking independently for each month of
// the trailing window and projects the viewing actor's standing.
//
// A month contributes a point only when the viewer reported that month and at
// least two actors did; missing months are not zero-filled. Points are
// returned oldest first. Each point after the first carries the rank change
// against the nearest earlier point present in the series.
func BuildTrend(records []models.CaptureRecord, owners *models.OwnershipIndex, viewingActorID string, current models.Period, months int) []models.TrendPoint {
	if months <= 0 {
		months = DefaultTrendMonths
	}

	// Walk backward from the current month.
	points := make([]models.TrendPoint, 0, months)
	for i := 0; i < months; i++ {
		period := current.AddMonths(-i)
		stats := Aggregate(records, owners, period)
		if len(stats) < 2 {
			continue
		}
		entry, ok := Position(Rank(stats, viewingActorID), viewingActorID)
		if !ok {
			continue
		}
		points = append(points, models.TrendPoint{
			Month:         period.Month,
			Year:          period.Year,
			Rank:          entry.Rank,
			TotalPeers:    len(stats),
			TotalWeightKg: entry.TotalWeightKg,
			MeanCpue:      entry.MeanCpue,
		})
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	for i := 1; i < len(points); i++ {
		points[i].Change = RankDelta(points[i-1].Rank, points[i].Rank)
	}
	return points
}

// RankDelta describes the move from rank prev to rank curr.
func RankDelta(prev, curr int) *models.RankChange {
	switch {
	case curr < prev:
		return &models.RankChange{Direction: models.DirectionUp, Magnitude: prev - curr}
	case curr > prev:
		return &models.RankChange{Direction: models.DirectionDown, Magnitude: curr - prev}
	default:
		return &models.RankChange{Direction: models.DirectionFlat}
	}
}
