// Package dashboard assembles the operator's performance view: a bounded
// provincial leaderboard, a peer comparison and a rank trend. Sections read
// snapshots from the data store and are computed by the pure functions in
// package ranking. A section that fails to load is reported and
// left empty while the rest of the view is still returned.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alitto/pond/v2"
	"github.com/rewired-gh/fishrank/internal/logger"
	"github.com/rewired-gh/fishrank/internal/models"
	"github.com/rewired-gh/fishrank/internal/ranking"
)

// ErrUnknownActor is returned when the viewing actor owns no assets.
var ErrUnknownActor = errors.New("unknown actor")

// Source is the read side of the capture declaration store.
type Source interface {
	ActorAssets(ctx context.Context, actorID string) ([]models.AssetOwnership, error)
	ProvinceOwnership(ctx context.Context, province string) (*models.OwnershipIndex, error)
	Captures(ctx context.Context, assetIDs []string, from, to models.Period) ([]models.CaptureRecord, error)
}

// Section names
const (
	SectionLeaderboard = "leaderboard"
	SectionComparison  = "comparison"
	SectionTrend       = "trend"
)

// SectionError records a section that could not be computed.
type SectionError struct {
	Section string
	Period  models.Period
	Err     error
}

func (e SectionError) Error() string {
	return fmt.Sprintf("%s section for %s unavailable: %v", e.Section, e.Period, e.Err)
}

func (e SectionError) Unwrap() error {
	return e.Err
}

// MarshalJSON exposes which section failed without leaking the cause.
func (e SectionError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Section string `json:"section"`
		Period  string `json:"period"`
	}{e.Section, e.Period.String()})
}

// Options configure a Service. Zero values select the ranking defaults.
type Options struct {
	TopN        int
	TrendMonths int
	Workers     int
}

// Service builds dashboards from a Source
type Service struct {
	source Source
	opts   Options
	pool   pond.Pool
}

// New creates a Service with a bounded worker pool for section assembly.
func New(source Source, opts Options) *Service {
	if opts.TopN <= 0 {
		opts.TopN = ranking.DefaultTopN
	}
	if opts.TrendMonths <= 0 {
		opts.TrendMonths = ranking.DefaultTrendMonths
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Service{
		source: source,
		opts:   opts,
		pool:   pond.NewPool(opts.Workers),
	}
}

// Close stops the worker pool after in-flight sections finish.
func (s *Service) Close() {
	s.pool.StopAndWait()
}

// Query selects whose dashboard to build and for which month.
type Query struct {
	ActorID     string
	Province    string // optional, defaults to the province of the actor's first asset
	Period      models.Period
	TrendMonths int // optional, defaults to Options.TrendMonths
}

// Viewer is the resolved viewing actor.
type Viewer struct {
	ActorID     string   `json:"actor_id"`
	DisplayName string   `json:"display_name"`
	Province    string   `json:"province"`
	AssetIDs    []string `json:"asset_ids"` // every asset the actor owns, in any province
}

// Dashboard is the assembled view. Nil sections were either omitted for lack
// of data or failed; failures are listed in Errors.
type Dashboard struct {
	Viewer      Viewer              `json:"viewer"`
	Period      models.Period       `json:"period"`
	Leaderboard *models.Leaderboard `json:"leaderboard"`
	Comparison  *models.Comparison  `json:"comparison"`
	Trend       []models.TrendPoint `json:"trend"`
	Errors      []SectionError      `json:"errors,omitempty"`
}

// Resolve looks up the viewing actor's assets and province.
func (s *Service) Resolve(ctx context.Context, actorID, province string) (*Viewer, error) {
	if actorID == "" {
		return nil, ErrUnknownActor
	}
	assets, err := s.source.ActorAssets(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve actor %s: %w", actorID, err)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownActor, actorID)
	}

	v := &Viewer{
		ActorID:     actorID,
		DisplayName: assets[0].DisplayName,
		Province:    province,
		AssetIDs:    make([]string, 0, len(assets)),
	}
	if v.Province == "" {
		v.Province = assets[0].Province
	}
	for _, a := range assets {
		v.AssetIDs = append(v.AssetIDs, a.AssetID)
	}
	return v, nil
}

// Build computes the view concurrently: one task for the current month's
// snapshot, shared by the leaderboard and the comparison, and one for the
// trend window. Only failure to resolve the viewer is returned as an error;
// section failures, panics included, land in Dashboard.Errors.
func (s *Service) Build(ctx context.Context, q Query) (*Dashboard, error) {
	if err := q.Period.Validate(); err != nil {
		return nil, fmt.Errorf("invalid period: %w", err)
	}
	viewer, err := s.Resolve(ctx, q.ActorID, q.Province)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{Viewer: *viewer, Period: q.Period}
	var lbErr, cmpErr, trendErr error

	group := s.pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	group.Submit(func() {
		var stats []models.AggregatedActorStat
		if err := safely(func() error {
			owners, records, err := s.snapshot(groupCtx, viewer.Province, q.Period, q.Period)
			if err != nil {
				return err
			}
			stats = ranking.Aggregate(records, owners, q.Period)
			return nil
		}); err != nil {
			lbErr, cmpErr = err, err
			return
		}
		lbErr = safely(func() error {
			d.Leaderboard = s.leaderboardOf(stats, viewer, q.Period)
			return nil
		})
		cmpErr = safely(func() error {
			d.Comparison = comparisonOf(stats, viewer)
			return nil
		})
	})
	group.Submit(func() {
		d.Trend, trendErr = s.Trend(groupCtx, viewer, q.Period, q.TrendMonths)
	})

	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard assembly interrupted: %w", err)
	}

	for _, se := range []SectionError{
		{Section: SectionLeaderboard, Period: q.Period, Err: lbErr},
		{Section: SectionComparison, Period: q.Period, Err: cmpErr},
		{Section: SectionTrend, Period: q.Period, Err: trendErr},
	} {
		if se.Err == nil {
			continue
		}
		logger.Warn("Dashboard for actor %s: %v", viewer.ActorID, se)
		d.Errors = append(d.Errors, se)
	}
	if d.Trend == nil && trendErr == nil {
		d.Trend = []models.TrendPoint{}
	}

	return d, nil
}

// safely runs fn, converting a panic into an error.
func safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("section panicked: %v", r)
		}
	}()
	return fn()
}

// snapshot fetches the province's ownership and the captures of every
// province asset in [from, to].
func (s *Service) snapshot(ctx context.Context, province string, from, to models.Period) (*models.OwnershipIndex, []models.CaptureRecord, error) {
	owners, err := s.source.ProvinceOwnership(ctx, province)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch ownership for %s: %w", province, err)
	}
	records, err := s.source.Captures(ctx, owners.AssetIDs(), from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch captures for %s: %w", province, err)
	}
	return owners, records, nil
}

// Leaderboard returns the bounded ranking for one period, or nil when fewer
// than two actors reported.
func (s *Service) Leaderboard(ctx context.Context, viewer *Viewer, period models.Period) (lb *models.Leaderboard, err error) {
	err = safely(func() error {
		owners, records, err := s.snapshot(ctx, viewer.Province, period, period)
		if err != nil {
			return err
		}
		lb = s.leaderboardOf(ranking.Aggregate(records, owners, period), viewer, period)
		return nil
	})
	return lb, err
}

// Comparison returns the viewer's peer baseline for one period, or nil when
// no peer reported.
func (s *Service) Comparison(ctx context.Context, viewer *Viewer, period models.Period) (cmp *models.Comparison, err error) {
	err = safely(func() error {
		owners, records, err := s.snapshot(ctx, viewer.Province, period, period)
		if err != nil {
			return err
		}
		cmp = comparisonOf(ranking.Aggregate(records, owners, period), viewer)
		return nil
	})
	return cmp, err
}

func (s *Service) leaderboardOf(stats []models.AggregatedActorStat, viewer *Viewer, period models.Period) *models.Leaderboard {
	return ranking.BuildLeaderboard(stats, viewer.ActorID, period, s.opts.TopN)
}

func comparisonOf(stats []models.AggregatedActorStat, viewer *Viewer) *models.Comparison {
	own, ok := ranking.FindStat(stats, viewer.ActorID)
	if !ok {
		own = models.AggregatedActorStat{ActorID: viewer.ActorID, DisplayName: viewer.DisplayName}
	}
	return ranking.Compare(stats, viewer.AssetIDs, own)
}

// Trend returns the viewer's rank trajectory over the trailing window ending
// at current. The whole window is fetched in one query.
func (s *Service) Trend(ctx context.Context, viewer *Viewer, current models.Period, months int) ([]models.TrendPoint, error) {
	if months <= 0 {
		months = s.opts.TrendMonths
	}
	from, to := ranking.TrendWindow(current, months)
	var points []models.TrendPoint
	err := safely(func() error {
		owners, records, err := s.snapshot(ctx, viewer.Province, from, to)
		if err != nil {
			return err
		}
		points = ranking.BuildTrend(records, owners, viewer.ActorID, current, months)
		return nil
	})
	return points, err
}
