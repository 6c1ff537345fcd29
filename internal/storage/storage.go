// Package storage provides the relational capture declaration store.
// It owns the schema for actors, sites, assets and captures, and answers the
// read queries the ranking engine needs: an actor's assets, a province's
// ownership edges, and the captures of an asset set over a period range.
//
// The same SQL runs on SQLite (modernc.org/sqlite, the default) and on
// PostgreSQL (lib/pq). Placeholders are written as $N, which both accept.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/fishrank/internal/models"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is a database/sql backed capture declaration store
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the store and bootstraps the schema.
// For SQLite, dsn is a file path or ":memory:".
func Open(driver, dsn string, maxOpenConns int) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case DriverSQLite:
		db, err = openSQLite(dsn)
	case DriverPostgres:
		db, err = sql.Open(DriverPostgres, dsn)
		if err == nil {
			if maxOpenConns < 1 {
				maxOpenConns = 1
			}
			db.SetMaxOpenConns(maxOpenConns)
			db.SetMaxIdleConns(maxOpenConns)
			db.SetConnMaxIdleTime(5 * time.Minute)
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func openSQLite(path string) (*sql.DB, error) {
	dsn := "file::memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db path: %w", err)
		}
		// busy_timeout sets a lock wait, WAL with synchronous NORMAL keeps
		// readers off the writer's back.
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)", filepath.Clean(path))
	}

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, err
	}

	// A single connection serializes writers and keeps ":memory:" to one database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(0)
	return db, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	return s.db.PingContext(ctx)
}

// Driver returns the configured driver name
func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS actors (
			id            TEXT PRIMARY KEY,
			display_name  TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS sites (
			id        TEXT PRIMARY KEY,
			name      TEXT NOT NULL DEFAULT '',
			province  TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS assets (
			id        TEXT PRIMARY KEY,
			actor_id  TEXT NOT NULL REFERENCES actors (id),
			site_id   TEXT NOT NULL REFERENCES sites (id)
		);
		CREATE TABLE IF NOT EXISTS captures (
			id         TEXT PRIMARY KEY,
			asset_id   TEXT NOT NULL REFERENCES assets (id),
			weight_kg  DOUBLE PRECISION NOT NULL,
			cpue       DOUBLE PRECISION,
			month      INTEGER NOT NULL,
			year       INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sites_province ON sites (province);
		CREATE INDEX IF NOT EXISTS idx_assets_actor ON assets (actor_id);
		CREATE INDEX IF NOT EXISTS idx_captures_asset_period ON captures (asset_id, year, month);
	`)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// AddActor inserts or updates an actor
func (s *Store) AddActor(ctx context.Context, a *models.Actor) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid actor: %w", err)
	}
	return upsertActor(ctx, s.db, a)
}

// AddSite inserts or updates a site
func (s *Store) AddSite(ctx context.Context, site *models.Site) error {
	if err := site.Validate(); err != nil {
		return fmt.Errorf("invalid site: %w", err)
	}
	return upsertSite(ctx, s.db, site)
}

// AddAsset inserts or updates an asset. The owning actor and site must exist.
func (s *Store) AddAsset(ctx context.Context, a *models.Asset) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid asset: %w", err)
	}
	return upsertAsset(ctx, s.db, a)
}

// AddCapture inserts or replaces a single capture declaration
func (s *Store) AddCapture(ctx context.Context, c *models.CaptureRecord) error {
	return s.AddCaptures(ctx, []models.CaptureRecord{*c})
}

// AddCaptures writes a batch of captures in one transaction. Any invalid
// record aborts the whole batch.
func (s *Store) AddCaptures(ctx context.Context, captures []models.CaptureRecord) error {
	for i := range captures {
		if err := captures[i].Validate(); err != nil {
			return fmt.Errorf("invalid capture at index %d: %w", i, err)
		}
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return upsertCaptures(ctx, tx, captures)
	})
}

// Import writes a whole batch in one transaction, parents first. Either every
// record is stored or none is.
func (s *Store) Import(ctx context.Context, b *models.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range b.Actors {
			if err := upsertActor(ctx, tx, &b.Actors[i]); err != nil {
				return fmt.Errorf("actors[%d]: %w", i, err)
			}
		}
		for i := range b.Sites {
			if err := upsertSite(ctx, tx, &b.Sites[i]); err != nil {
				return fmt.Errorf("sites[%d]: %w", i, err)
			}
		}
		for i := range b.Assets {
			if err := upsertAsset(ctx, tx, &b.Assets[i]); err != nil {
				return fmt.Errorf("assets[%d]: %w", i, err)
			}
		}
		return upsertCaptures(ctx, tx, b.Captures)
	})
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func upsertActor(ctx context.Context, ex execer, a *models.Actor) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO actors (id, display_name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name
	`, a.ID, a.DisplayName)
	if err != nil {
		return fmt.Errorf("failed to add actor %s: %w", a.ID, err)
	}
	return nil
}

func upsertSite(ctx context.Context, ex execer, site *models.Site) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO sites (id, name, province) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, province = excluded.province
	`, site.ID, site.Name, site.Province)
	if err != nil {
		return fmt.Errorf("failed to add site %s: %w", site.ID, err)
	}
	return nil
}

func upsertAsset(ctx context.Context, ex execer, a *models.Asset) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO assets (id, actor_id, site_id) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET actor_id = excluded.actor_id, site_id = excluded.site_id
	`, a.ID, a.ActorID, a.SiteID)
	if err != nil {
		return fmt.Errorf("failed to add asset %s: %w", a.ID, err)
	}
	return nil
}

func upsertCaptures(ctx context.Context, ex execer, captures []models.CaptureRecord) error {
	if len(captures) == 0 {
		return nil
	}
	stmt, err := ex.PrepareContext(ctx, `
		INSERT INTO captures (id, asset_id, weight_kg, cpue, month, year)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			asset_id = excluded.asset_id,
			weight_kg = excluded.weight_kg,
			cpue = excluded.cpue,
			month = excluded.month,
			year = excluded.year
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare capture insert: %w", err)
	}
	defer stmt.Close()

	for i := range captures {
		c := &captures[i]
		var cpue sql.NullFloat64
		if c.CPUE != nil {
			cpue = sql.NullFloat64{Float64: *c.CPUE, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.AssetID, c.WeightKg, cpue, c.Month, c.Year); err != nil {
			return fmt.Errorf("failed to add capture %s: %w", c.ID, err)
		}
	}
	return nil
}

const ownershipSelect = `
	SELECT a.id, a.actor_id, ac.display_name, a.site_id, s.province
	FROM assets a
	JOIN actors ac ON ac.id = a.actor_id
	JOIN sites s ON s.id = a.site_id
`

// ActorAssets returns every asset owned by actorID with its province,
// ordered by asset id. An unknown actor yields an empty slice.
func (s *Store) ActorAssets(ctx context.Context, actorID string) ([]models.AssetOwnership, error) {
	return s.queryOwnership(ctx, ownershipSelect+` WHERE a.actor_id = $1 ORDER BY a.id`, actorID)
}

// ProvinceOwnership returns the ownership index of every asset registered at
// a site in province.
func (s *Store) ProvinceOwnership(ctx context.Context, province string) (*models.OwnershipIndex, error) {
	edges, err := s.queryOwnership(ctx, ownershipSelect+` WHERE s.province = $1 ORDER BY a.id`, province)
	if err != nil {
		return nil, err
	}
	return models.NewOwnershipIndex(edges), nil
}

func (s *Store) queryOwnership(ctx context.Context, query string, arg string) ([]models.AssetOwnership, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query ownership: %w", err)
	}
	defer rows.Close()

	out := make([]models.AssetOwnership, 0)
	for rows.Next() {
		var e models.AssetOwnership
		if err := rows.Scan(&e.AssetID, &e.ActorID, &e.DisplayName, &e.SiteID, &e.Province); err != nil {
			return nil, fmt.Errorf("failed to scan ownership: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// captureQueryChunk caps the asset ids bound per capture query, well below
// the SQLite (32766) and PostgreSQL (65535) bind parameter limits.
var captureQueryChunk = 1000

// Captures returns the captures of assetIDs declared in the inclusive period
// range [from, to], ordered by period then id. Large asset sets are queried in
// chunks and merged.
func (s *Store) Captures(ctx context.Context, assetIDs []string, from, to models.Period) ([]models.CaptureRecord, error) {
	if len(assetIDs) == 0 {
		return []models.CaptureRecord{}, nil
	}
	if to.Before(from) {
		return nil, fmt.Errorf("invalid period range %s..%s", from, to)
	}

	out := make([]models.CaptureRecord, 0)
	for start := 0; start < len(assetIDs); start += captureQueryChunk {
		end := min(start+captureQueryChunk, len(assetIDs))
		chunk, err := s.capturesChunk(ctx, assetIDs[start:end], from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}

	if len(assetIDs) > captureQueryChunk {
		sort.Slice(out, func(i, j int) bool {
			pi, pj := out[i].Period(), out[j].Period()
			if pi != pj {
				return pi.Before(pj)
			}
			return out[i].ID < out[j].ID
		})
	}
	return out, nil
}

func (s *Store) capturesChunk(ctx context.Context, assetIDs []string, from, to models.Period) ([]models.CaptureRecord, error) {
	args := make([]any, 0, len(assetIDs)+2)
	args = append(args, from.Year*12+from.Month-1, to.Year*12+to.Month-1)
	placeholders := make([]string, len(assetIDs))
	for i, id := range assetIDs {
		args = append(args, id)
		placeholders[i] = fmt.Sprintf("$%d", i+3)
	}

	query := `
		SELECT id, asset_id, weight_kg, cpue, month, year
		FROM captures
		WHERE (year * 12 + month - 1) BETWEEN $1 AND $2
		  AND asset_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY year, month, id
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query captures %s..%s: %w", from, to, err)
	}
	defer rows.Close()

	out := make([]models.CaptureRecord, 0)
	for rows.Next() {
		var (
			c    models.CaptureRecord
			cpue sql.NullFloat64
		)
		if err := rows.Scan(&c.ID, &c.AssetID, &c.WeightKg, &cpue, &c.Month, &c.Year); err != nil {
			return nil, fmt.Errorf("failed to scan capture: %w", err)
		}
		if cpue.Valid {
			v := cpue.Float64
			c.CPUE = &v
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
