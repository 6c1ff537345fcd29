package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rewired-gh/fishrank/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(DriverSQLite, ":memory:", 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.AddSite(ctx, &models.Site{ID: "s-pemba", Name: "Pemba", Province: "Cabo Delgado"}))
	require.NoError(t, s.AddSite(ctx, &models.Site{ID: "s-ilha", Name: "Ilha", Province: "Nampula"}))
	require.NoError(t, s.AddActor(ctx, &models.Actor{ID: "a-1", DisplayName: "Ana"}))
	require.NoError(t, s.AddActor(ctx, &models.Actor{ID: "a-2", DisplayName: "Bento"}))
	require.NoError(t, s.AddAsset(ctx, &models.Asset{ID: "v-2", ActorID: "a-1", SiteID: "s-pemba"}))
	require.NoError(t, s.AddAsset(ctx, &models.Asset{ID: "v-1", ActorID: "a-1", SiteID: "s-pemba"}))
	require.NoError(t, s.AddAsset(ctx, &models.Asset{ID: "v-3", ActorID: "a-2", SiteID: "s-pemba"}))
	require.NoError(t, s.AddAsset(ctx, &models.Asset{ID: "v-4", ActorID: "a-2", SiteID: "s-ilha"}))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "x", 1)
	assert.Error(t, err)
}

func TestOpen_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fishrank.db")
	s, err := Open(DriverSQLite, path, 1)
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.AddActor(context.Background(), &models.Actor{ID: "a-1", DisplayName: "Ana"}))
	require.NoError(t, s.Close())

	// Reopening keeps data and tolerates the existing schema.
	s, err = Open(DriverSQLite, path, 1)
	require.NoError(t, err)
	defer s.Close()
	assert.FileExists(t, path)
}

func TestStore_Ownership(t *testing.T) {
	s := mustStore(t)
	seed(t, s)
	ctx := context.Background()

	assets, err := s.ActorAssets(ctx, "a-2")
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "v-3", assets[0].AssetID)
	assert.Equal(t, "Cabo Delgado", assets[0].Province)
	assert.Equal(t, "v-4", assets[1].AssetID)
	assert.Equal(t, "Nampula", assets[1].Province)
	assert.Equal(t, "Bento", assets[1].DisplayName)

	none, err := s.ActorAssets(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, none)

	idx, err := s.ProvinceOwnership(ctx, "Cabo Delgado")
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, []string{"v-1", "v-2"}, idx.ActorAssets("a-1"))
	_, ok := idx.Owner("v-4")
	assert.False(t, ok, "v-4 is registered in another province")
}

func TestStore_UpsertActor(t *testing.T) {
	s := mustStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.AddActor(ctx, &models.Actor{ID: "a-1", DisplayName: "Ana Maria"}))
	assets, err := s.ActorAssets(ctx, "a-1")
	require.NoError(t, err)
	require.NotEmpty(t, assets)
	assert.Equal(t, "Ana Maria", assets[0].DisplayName)

	assert.Error(t, s.AddActor(ctx, &models.Actor{ID: "a-3"}), "validation runs before insert")
}

func TestStore_CapturesRangeAndNullCpue(t *testing.T) {
	s := mustStore(t)
	seed(t, s)
	ctx := context.Background()

	cpue := 2.5
	batch := []models.CaptureRecord{
		{ID: "c-1", AssetID: "v-1", WeightKg: 10, CPUE: &cpue, Month: 11, Year: 2025},
		{ID: "c-2", AssetID: "v-1", WeightKg: 20, Month: 1, Year: 2026},
		{ID: "c-3", AssetID: "v-2", WeightKg: 30, Month: 2, Year: 2026},
		{ID: "c-4", AssetID: "v-3", WeightKg: 40, Month: 2, Year: 2026},
		{ID: "c-5", AssetID: "v-1", WeightKg: 50, Month: 3, Year: 2026},
	}
	require.NoError(t, s.AddCaptures(ctx, batch))

	got, err := s.Captures(ctx, []string{"v-1", "v-2"}, models.Period{Year: 2025, Month: 11}, models.Period{Year: 2026, Month: 2})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c-1", got[0].ID)
	require.NotNil(t, got[0].CPUE)
	assert.InDelta(t, 2.5, *got[0].CPUE, 1e-9)
	assert.Equal(t, "c-2", got[1].ID)
	assert.Nil(t, got[1].CPUE)
	assert.Equal(t, "c-3", got[2].ID)

	empty, err := s.Captures(ctx, nil, models.Period{Year: 2026, Month: 1}, models.Period{Year: 2026, Month: 1})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.Captures(ctx, []string{"v-1"}, models.Period{Year: 2026, Month: 2}, models.Period{Year: 2026, Month: 1})
	assert.Error(t, err)
}

func TestStore_AddCapturesRejectsWholeBatch(t *testing.T) {
	s := mustStore(t)
	seed(t, s)
	ctx := context.Background()

	err := s.AddCaptures(ctx, []models.CaptureRecord{
		{ID: "c-1", AssetID: "v-1", WeightKg: 10, Month: 1, Year: 2026},
		{ID: "c-2", AssetID: "v-1", WeightKg: -5, Month: 1, Year: 2026},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 1")

	got, err := s.Captures(ctx, []string{"v-1"}, models.Period{Year: 2026, Month: 1}, models.Period{Year: 2026, Month: 1})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_AddCaptureReplacesByID(t *testing.T) {
	s := mustStore(t)
	seed(t, s)
	ctx := context.Background()

	jan := models.Period{Year: 2026, Month: 1}
	require.NoError(t, s.AddCapture(ctx, &models.CaptureRecord{ID: "c-1", AssetID: "v-1", WeightKg: 10, Month: 1, Year: 2026}))
	require.NoError(t, s.AddCapture(ctx, &models.CaptureRecord{ID: "c-1", AssetID: "v-1", WeightKg: 12, Month: 1, Year: 2026}))

	got, err := s.Captures(ctx, []string{"v-1"}, jan, jan)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 12.0, got[0].WeightKg, 1e-9)
}

func TestStore_ForeignKeysEnforced(t *testing.T) {
	s := mustStore(t)
	seed(t, s)
	ctx := context.Background()

	assert.Error(t, s.AddAsset(ctx, &models.Asset{ID: "v-9", ActorID: "ghost", SiteID: "s-pemba"}))
	assert.Error(t, s.AddCapture(ctx, &models.CaptureRecord{ID: "c-9", AssetID: "v-ghost", WeightKg: 1, Month: 1, Year: 2026}))
}

func TestStore_ImportIsAtomic(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	err := s.Import(ctx, &models.Batch{
		Actors: []models.Actor{{ID: "a-1", DisplayName: "Ana"}},
		Sites:  []models.Site{{ID: "s-1", Province: "Sofala"}},
		Assets: []models.Asset{
			{ID: "v-1", ActorID: "a-1", SiteID: "s-1"},
			{ID: "v-2", ActorID: "a-1", SiteID: "s-missing"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assets[1]")

	// Rows written earlier in the failed batch are rolled back.
	idx, err := s.ProvinceOwnership(ctx, "Sofala")
	require.NoError(t, err)
	assert.Zero(t, idx.Len())
	require.NoError(t, s.AddSite(ctx, &models.Site{ID: "s-pemba", Province: "Cabo Delgado"}))
	assert.Error(t, s.AddAsset(ctx, &models.Asset{ID: "v-3", ActorID: "a-1", SiteID: "s-pemba"}),
		"actor a-1 must not survive the failed batch")

	require.NoError(t, s.Import(ctx, &models.Batch{
		Actors:   []models.Actor{{ID: "a-1", DisplayName: "Ana"}},
		Sites:    []models.Site{{ID: "s-1", Province: "Sofala"}},
		Assets:   []models.Asset{{ID: "v-1", ActorID: "a-1", SiteID: "s-1"}},
		Captures: []models.CaptureRecord{{ID: "c-1", AssetID: "v-1", WeightKg: 5, Month: 1, Year: 2026}},
	}))
	idx, err = s.ProvinceOwnership(ctx, "Sofala")
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
}

func TestStore_CapturesChunksLargeAssetSets(t *testing.T) {
	prev := captureQueryChunk
	captureQueryChunk = 2
	t.Cleanup(func() { captureQueryChunk = prev })

	s := mustStore(t)
	seed(t, s)
	ctx := context.Background()
	require.NoError(t, s.AddAsset(ctx, &models.Asset{ID: "v-5", ActorID: "a-2", SiteID: "s-ilha"}))

	require.NoError(t, s.AddCaptures(ctx, []models.CaptureRecord{
		{ID: "c-5", AssetID: "v-5", WeightKg: 1, Month: 1, Year: 2026},
		{ID: "c-1", AssetID: "v-1", WeightKg: 1, Month: 2, Year: 2026},
		{ID: "c-4", AssetID: "v-4", WeightKg: 1, Month: 1, Year: 2026},
		{ID: "c-2", AssetID: "v-2", WeightKg: 1, Month: 2, Year: 2026},
		{ID: "c-3", AssetID: "v-3", WeightKg: 1, Month: 1, Year: 2026},
	}))

	got, err := s.Captures(ctx, []string{"v-1", "v-2", "v-3", "v-4", "v-5"},
		models.Period{Year: 2026, Month: 1}, models.Period{Year: 2026, Month: 2})
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, c := range got {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"c-3", "c-4", "c-5", "c-1", "c-2"}, ids)
}
