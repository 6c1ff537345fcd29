package models

// AggregatedActorStat is one actor's reduced capture totals for one period.
type AggregatedActorStat struct {
	ActorID       string   `json:"actor_id"`
	DisplayName   string   `json:"display_name"`
	TotalWeightKg float64  `json:"total_weight_kg"`
	MeanCpue      float64  `json:"mean_cpue"`    // 0 when no record carried cpue
	CpueSamples   int      `json:"cpue_samples"` // records that contributed to MeanCpue
	AssetIDs      []string `json:"asset_ids"`    // assets that reported in the period, sorted
}

// RankedEntry is one row of a ranking.
type RankedEntry struct {
	Rank           int     `json:"rank"`
	ActorID        string  `json:"actor_id"`
	DisplayName    string  `json:"display_name"`
	TotalWeightKg  float64 `json:"total_weight_kg"`
	MeanCpue       float64 `json:"mean_cpue"`
	IsViewingActor bool    `json:"is_viewing_actor"`
}

// Leaderboard is the bounded ranking shown to a viewing actor.
type Leaderboard struct {
	Period     Period        `json:"period"`
	TotalPeers int           `json:"total_peers"`
	Entries    []RankedEntry `json:"entries"`
}

// Comparison holds the peer baseline for a viewing actor. Delta fields are
// nil when their denominator (or, for cpue, either operand) is zero.
type Comparison struct {
	PeerCount           int      `json:"peer_count"`
	PeerAverageWeightKg float64  `json:"peer_average_weight_kg"`
	PeerAverageCpue     float64  `json:"peer_average_cpue"`
	OwnWeightKg         float64  `json:"own_weight_kg"`
	OwnMeanCpue         float64  `json:"own_mean_cpue"`
	DeltaWeightPct      *float64 `json:"delta_weight_pct"`
	DeltaCpuePct        *float64 `json:"delta_cpue_pct"`
	DeltaWeightLabel    string   `json:"delta_weight_label,omitempty"`
	DeltaCpueLabel      string   `json:"delta_cpue_label,omitempty"`
}

// Rank change directions. A rank number moving toward 1 is an improvement.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionFlat = "flat"
)

// RankChange is the movement of a trend point relative to the nearest
// earlier point in the series.
type RankChange struct {
	Direction string `json:"direction"`
	Magnitude int    `json:"magnitude"`
}

// TrendPoint is one month of the viewing actor's standing.
type TrendPoint struct {
	Month         int         `json:"month"`
	Year          int         `json:"year"`
	Rank          int         `json:"rank"`
	TotalPeers    int         `json:"total_peers"`
	TotalWeightKg float64     `json:"total_weight_kg"`
	MeanCpue      float64     `json:"mean_cpue"`
	Change        *RankChange `json:"change,omitempty"` // nil on the first point
}

// Period returns the month the point describes.
func (p TrendPoint) Period() Period {
	return Period{Year: p.Year, Month: p.Month}
}
