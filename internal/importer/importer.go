// Package importer loads batches of capture declarations into the store.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rewired-gh/fishrank/internal/logger"
	"github.com/rewired-gh/fishrank/internal/models"
)

// Writer stores a batch atomically
type Writer interface {
	Import(ctx context.Context, b *models.Batch) error
}

// Summary counts the records written by Load
type Summary struct {
	Actors   int `json:"actors"`
	Sites    int `json:"sites"`
	Assets   int `json:"assets"`
	Captures int `json:"captures"`
}

// Load decodes a batch from r, assigns ids to records that lack one and
// writes it through w. The batch is validated before anything is written and
// stored in one transaction, so a failure leaves the store unchanged. The
// error names the offending record.
func Load(ctx context.Context, w Writer, r io.Reader) (Summary, error) {
	var b models.Batch
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return Summary{}, fmt.Errorf("failed to decode batch: %w", err)
	}

	assignIDs(&b)
	if err := b.Validate(); err != nil {
		return Summary{}, err
	}
	if err := w.Import(ctx, &b); err != nil {
		return Summary{}, fmt.Errorf("failed to import batch: %w", err)
	}

	s := Summary{
		Actors:   len(b.Actors),
		Sites:    len(b.Sites),
		Assets:   len(b.Assets),
		Captures: len(b.Captures),
	}
	logger.Info("Imported %d actors, %d sites, %d assets, %d captures", s.Actors, s.Sites, s.Assets, s.Captures)
	return s, nil
}

func assignIDs(b *models.Batch) {
	for i := range b.Actors {
		if b.Actors[i].ID == "" {
			b.Actors[i].ID = uuid.NewString()
		}
	}
	for i := range b.Sites {
		if b.Sites[i].ID == "" {
			b.Sites[i].ID = uuid.NewString()
		}
	}
	for i := range b.Assets {
		if b.Assets[i].ID == "" {
			b.Assets[i].ID = uuid.NewString()
		}
	}
	for i := range b.Captures {
		if b.Captures[i].ID == "" {
			b.Captures[i].ID = uuid.NewString()
		}
	}
}
