package models

import (
	"errors"
	"fmt"
	"math"
)

// MaxCaptureWeightKg bounds a single declaration. Province totals stay far
// from float64 overflow below it.
const MaxCaptureWeightKg = 1e9

// CaptureRecord is one declared catch event reported by an asset.
// Records are owned by the data store and never modified by the engine.
type CaptureRecord struct {
	ID       string   `json:"id"`
	AssetID  string   `json:"asset_id"`
	WeightKg float64  `json:"weight_kg"`
	CPUE     *float64 `json:"cpue,omitempty"` // nil when no effort data was recorded
	Month    int      `json:"month"`
	Year     int      `json:"year"`
}

// Period returns the calendar month the capture was declared for.
func (c *CaptureRecord) Period() Period {
	return Period{Year: c.Year, Month: c.Month}
}

// Validate checks that all capture fields are valid
func (c *CaptureRecord) Validate() error {
	if c.ID == "" {
		return errors.New("capture ID must not be empty")
	}
	if c.AssetID == "" {
		return errors.New("asset ID must not be empty")
	}
	if math.IsNaN(c.WeightKg) || math.IsInf(c.WeightKg, 0) {
		return errors.New("weight must be a finite number")
	}
	if c.WeightKg < 0 {
		return errors.New("weight must not be negative")
	}
	if c.WeightKg > MaxCaptureWeightKg {
		return fmt.Errorf("weight must not exceed %.0f kg", MaxCaptureWeightKg)
	}
	if c.CPUE != nil {
		if math.IsNaN(*c.CPUE) || math.IsInf(*c.CPUE, 0) {
			return errors.New("cpue must be a finite number")
		}
		if *c.CPUE < 0 {
			return errors.New("cpue must not be negative")
		}
	}
	return c.Period().Validate()
}
