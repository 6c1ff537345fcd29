// Package ranking implements the provincial performance ranking engine.
//
// All functions are pure reductions over an in-memory snapshot:
//
//	captures -> Aggregate -> Rank -> Bound      (leaderboard)
//	                      -> Compare            (peer baseline)
//	captures -> BuildTrend (Aggregate+Rank per month over a trailing window)
//
// Nothing here performs I/O or keeps state between calls. Equal weights are
// ordered by actor id ascending so repeated runs over the same snapshot give
// identical output.
package ranking

import (
	"sort"

	"github.com/rewired-gh/fishrank/internal/logger"
	"github.com/rewired-gh/fishrank/internal/models"
)

type actorAccumulator struct {
	stat    models.AggregatedActorStat
	cpueSum float64
	assets  map[string]struct{}
}

// Aggregate groups the captures declared for period by owning actor and
// reduces them to one stat per actor. Only assets present in owners count,
// so passing a province-scoped index scopes the result to that province.
// Records of other periods are ignored, which lets callers pass one batched
// snapshot spanning several months. The result is sorted by actor id.
func Aggregate(records []models.CaptureRecord, owners *models.OwnershipIndex, period models.Period) []models.AggregatedActorStat {
	byActor := make(map[string]*actorAccumulator)
	unowned := 0

	for i := range records {
		r := &records[i]
		if r.Period() != period {
			continue
		}
		owner, ok := owners.Owner(r.AssetID)
		if !ok {
			unowned++
			continue
		}

		acc, exists := byActor[owner.ActorID]
		if !exists {
			acc = &actorAccumulator{
				stat: models.AggregatedActorStat{
					ActorID:     owner.ActorID,
					DisplayName: owner.DisplayName,
				},
				assets: make(map[string]struct{}),
			}
			byActor[owner.ActorID] = acc
		}

		acc.stat.TotalWeightKg += r.WeightKg
		if r.CPUE != nil {
			acc.cpueSum += *r.CPUE
			acc.stat.CpueSamples++
		}
		acc.assets[r.AssetID] = struct{}{}
	}

	if unowned > 0 {
		logger.Debug("Aggregate %s: skipped %d captures from assets outside the ownership index", period, unowned)
	}

	out := make([]models.AggregatedActorStat, 0, len(byActor))
	for _, acc := range byActor {
		if acc.stat.CpueSamples > 0 {
			acc.stat.MeanCpue = acc.cpueSum / float64(acc.stat.CpueSamples)
		}
		acc.stat.AssetIDs = make([]string, 0, len(acc.assets))
		for id := range acc.assets {
			acc.stat.AssetIDs = append(acc.stat.AssetIDs, id)
		}
		sort.Strings(acc.stat.AssetIDs)
		out = append(out, acc.stat)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ActorID < out[j].ActorID
	})
	return out
}

// FindStat returns the stat for actorID, if the actor reported in the aggregation.
func FindStat(stats []models.AggregatedActorStat, actorID string) (models.AggregatedActorStat, bool) {
	for _, s := range stats {
		if s.ActorID == actorID {
			return s, true
		}
	}
	return models.AggregatedActorStat{}, false
}
