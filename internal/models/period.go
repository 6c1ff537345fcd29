// Package models defines the core domain entities for the fishrank service.
// Input entities (captures, actors, sites, assets) mirror rows of the capture
// declaration store; derived entities (aggregated stats, ranked entries,
// comparisons, trend points) are plain values rebuilt on every computation.
//
// Terminology:
//   - Actor: the fisher or operator being ranked. An actor may own several assets.
//   - Asset: a vessel (or other declaring unit) whose captures count for its owner.
//   - Period: one calendar month.
package models

import (
	"errors"
	"fmt"
	"time"
)

// Period identifies one calendar month.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"` // 1-12
}

// PeriodOf returns the calendar month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Validate checks that the period is a real calendar month
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return errors.New("month must be between 1 and 12")
	}
	if p.Year < 1 {
		return errors.New("year must be positive")
	}
	return nil
}

// Prev returns the month before p, rolling over into December of the prior year.
func (p Period) Prev() Period {
	return p.AddMonths(-1)
}

// AddMonths shifts p by n months (n may be negative).
func (p Period) AddMonths(n int) Period {
	idx := p.index() + n
	return Period{Year: idx / 12, Month: idx%12 + 1}
}

// Before reports whether p is strictly earlier than q.
func (p Period) Before(q Period) bool {
	return p.index() < q.index()
}

// Contains reports whether x lies in the inclusive range [p, to].
func (p Period) Contains(to, x Period) bool {
	return !x.Before(p) && !to.Before(x)
}

func (p Period) index() int {
	return p.Year*12 + p.Month - 1
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
