package ranking

import (
	"math"

	"github.com/rewired-gh/fishrank/internal/models"
	"github.com/shopspring/decimal"
)

// Compare builds the peer baseline for a viewing actor. Peers are the stats
// that contain none of the viewer's assets. own carries the viewer's totals
// for the period (a zero value when the viewer did not report).
//
// Returns nil when there are no peers. Weight delta is set only when the peer
// average is positive; cpue delta only when both own and peer cpue are non-zero.
func Compare(stats []models.AggregatedActorStat, viewerAssetIDs []string, own models.AggregatedActorStat) *models.Comparison {
	viewerAssets := models.AssetSet(viewerAssetIDs)

	var (
		peers     int
		weightSum float64
		cpueSum   float64
		cpuePeers int
	)
	for _, s := range stats {
		if ownsAny(viewerAssets, s.AssetIDs) {
			continue
		}
		peers++
		weightSum += s.TotalWeightKg
		if s.MeanCpue != 0 {
			cpueSum += s.MeanCpue
			cpuePeers++
		}
	}
	if peers == 0 {
		return nil
	}

	cmp := &models.Comparison{
		PeerCount:           peers,
		PeerAverageWeightKg: weightSum / float64(peers),
		OwnWeightKg:         own.TotalWeightKg,
		OwnMeanCpue:         own.MeanCpue,
	}
	if cpuePeers > 0 {
		cmp.PeerAverageCpue = cpueSum / float64(cpuePeers)
	}

	if cmp.PeerAverageWeightKg > 0 {
		if d, ok := percentDelta(cmp.OwnWeightKg, cmp.PeerAverageWeightKg); ok {
			cmp.DeltaWeightPct = &d
			cmp.DeltaWeightLabel = FormatSignedPercent(d)
		}
	}
	if cmp.OwnMeanCpue != 0 && cmp.PeerAverageCpue != 0 {
		if d, ok := percentDelta(cmp.OwnMeanCpue, cmp.PeerAverageCpue); ok {
			cmp.DeltaCpuePct = &d
			cmp.DeltaCpueLabel = FormatSignedPercent(d)
		}
	}
	return cmp
}

// FormatSignedPercent renders a percentage with one decimal place and an
// explicit sign for positive values, e.g. "+12.0%" or "-8.5%".
// Non-finite input yields an empty label.
func FormatSignedPercent(pct float64) string {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return ""
	}
	d := decimal.NewFromFloat(pct).Round(1)
	s := d.StringFixed(1) + "%"
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

// percentDelta reports false when the operands overflow to a non-finite delta.
func percentDelta(value, baseline float64) (float64, bool) {
	d := (value - baseline) / baseline * 100
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	return d, true
}

func ownsAny(set map[string]struct{}, ids []string) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
