package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/config"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := &config.StorageConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{
			Path:         filepath.Join(t.TempDir(), "lectern_test.sqlite"),
			MaxOpenConns: 1,
		},
	}

	db, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.StorageConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage driver")
}

func TestMigrationsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Open already migrated once; a second run must be a no-op.
	require.NoError(t, NewMigrator(db, "sqlite").Up(ctx))

	var applied int
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestSettingsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewSettingsRepository(db)

	_, err := repo.Get(ctx, SettingAnthropicAPIKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Put(ctx, SettingAnthropicAPIKey, "sk-ant-first"))
	value, err := repo.Get(ctx, SettingAnthropicAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-first", value)

	// Upsert overwrites.
	require.NoError(t, repo.Put(ctx, SettingAnthropicAPIKey, "sk-ant-second"))
	value, err = repo.Get(ctx, SettingAnthropicAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-second", value)
}

func TestUserRegisterIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	first, err := repo.Register(ctx, "marta")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)

	second, err := repo.Register(ctx, "marta")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "marta", users[0].Name)
}

func TestUserRecordPresentation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	_, err := repo.Register(ctx, "jordi")
	require.NoError(t, err)

	require.NoError(t, repo.RecordPresentation(ctx, "jordi", 1.25))
	require.NoError(t, repo.RecordPresentation(ctx, "jordi", 0.75))

	user, err := repo.GetByName(ctx, "jordi")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, user.TotalCostUSD, 1e-9)
	assert.Equal(t, 2, user.PresentationsGenerated)

	assert.ErrorIs(t, repo.RecordPresentation(ctx, "nobody", 1.0), ErrNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewSessionRepository(db)

	session := &Session{UserName: "marta"}
	require.NoError(t, repo.Create(ctx, session))
	require.NotEqual(t, uuid.Nil, session.ID)

	require.NoError(t, repo.AddCost(ctx, session.ID, 0.30))
	require.NoError(t, repo.AddCost(ctx, session.ID, 0.12))
	require.NoError(t, repo.IncrementPresentations(ctx, session.ID))

	stored, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "marta", stored.UserName)
	assert.InDelta(t, 0.42, stored.TotalCostUSD, 1e-9)
	assert.Equal(t, 1, stored.PresentationsGenerated)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.AddCost(ctx, uuid.New(), 1.0), ErrNotFound)
}

func TestUsageTotals(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUsageRepository(db)

	sessionA := uuid.New()
	sessionB := uuid.New()
	chapter := "KWC"

	records := []*UsageRecord{
		{SessionID: sessionA, Model: "claude-opus-4-5-20251101", Operation: "structure_presentation", ChapterName: &chapter, InputTokens: 1000, OutputTokens: 2000, CostUSD: 0.165},
		{SessionID: sessionA, Model: "gemini-3-flash-preview", Operation: "image_analysis", InputTokens: 500, OutputTokens: 100, CostUSD: 0.00009},
		{SessionID: sessionB, Model: "gemini-3-pro-image-preview", Operation: "image_generation", ImagesGenerated: 3, CostUSD: 0.075},
	}
	for _, record := range records {
		require.NoError(t, repo.Insert(ctx, record))
	}

	totals, err := repo.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), totals.InputTokens)
	assert.Equal(t, int64(2100), totals.OutputTokens)
	assert.Equal(t, int64(3), totals.ImagesGenerated)
	assert.InDelta(t, 0.24009, totals.CostUSD, 1e-9)
	assert.Equal(t, int64(3), totals.Calls)

	sessionTotals, err := repo.TotalsForSession(ctx, sessionA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sessionTotals.Calls)
	assert.InDelta(t, 0.16509, sessionTotals.CostUSD, 1e-9)

	byModel, err := repo.TotalsByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 3)
	// Costliest model first.
	assert.Equal(t, "claude-opus-4-5-20251101", byModel[0].Model)

	recent, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "image_generation", recent[0].Operation)
	assert.Equal(t, "image_analysis", recent[1].Operation)

	bySession, err := repo.ListBySession(ctx, sessionA)
	require.NoError(t, err)
	require.Len(t, bySession, 2)
	assert.Equal(t, "structure_presentation", bySession[0].Operation)
	require.NotNil(t, bySession[0].ChapterName)
	assert.Equal(t, "KWC", *bySession[0].ChapterName)
}

func TestPresentationHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewPresentationRepository(db)

	sessionID := uuid.New()
	pptx := "/data/out/a/presentation.pptx"

	older := &Presentation{
		TaskID: uuid.NewString(), SessionID: sessionID, UserName: "marta",
		ChapterName: "KWC", GroupName: "GRUPG", SlidesCount: 18, CostUSD: 1.1,
		PPTXPath: &pptx,
	}
	require.NoError(t, repo.Insert(ctx, older))

	newer := &Presentation{
		TaskID: uuid.NewString(), SessionID: sessionID, UserName: "marta",
		ChapterName: "Photosynthesis", GroupName: "GRUPG", SlidesCount: 20, CostUSD: 1.4,
	}
	require.NoError(t, repo.Insert(ctx, newer))

	removed := &Presentation{
		TaskID: uuid.NewString(), SessionID: sessionID, UserName: "jordi",
		ChapterName: "Cells", GroupName: "GRUPG", Deleted: true,
	}
	require.NoError(t, repo.Insert(ctx, removed))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Photosynthesis", list[0].ChapterName)
	assert.Equal(t, "KWC", list[1].ChapterName)
	require.NotNil(t, list[1].PPTXPath)
	assert.Equal(t, pptx, *list[1].PPTXPath)

	mine, err := repo.ListByUser(ctx, "marta")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
