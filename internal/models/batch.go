package models

import "fmt"

// Batch is a set of declarations imported together.
type Batch struct {
	Actors   []Actor         `json:"actors"`
	Sites    []Site          `json:"sites"`
	Assets   []Asset         `json:"assets"`
	Captures []CaptureRecord `json:"captures"`
}

// Validate checks every record of the batch. The error names the first
// offending record, e.g. "assets[2]: asset site ID must not be empty".
func (b *Batch) Validate() error {
	for i := range b.Actors {
		if err := b.Actors[i].Validate(); err != nil {
			return fmt.Errorf("actors[%d]: %w", i, err)
		}
	}
	for i := range b.Sites {
		if err := b.Sites[i].Validate(); err != nil {
			return fmt.Errorf("sites[%d]: %w", i, err)
		}
	}
	for i := range b.Assets {
		if err := b.Assets[i].Validate(); err != nil {
			return fmt.Errorf("assets[%d]: %w", i, err)
		}
	}
	for i := range b.Captures {
		if err := b.Captures[i].Validate(); err != nil {
			return fmt.Errorf("captures[%d]: %w", i, err)
		}
	}
	return nil
}
