package ledger

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/storage"
)

func TestCost(t *testing.T) {
	tests := []struct {
		name  string
		model string
		usage domain.Usage
		want  float64
	}{
		{
			// 15 * 1M/1M + 75 * 1M/1M = 90.
			name:  "opus one million each way",
			model: "claude-opus-4-5-20251101",
			usage: domain.Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000},
			want:  90.0,
		},
		{
			// 15*1000/1e6 = 0.015, 75*2000/1e6 = 0.15.
			name:  "opus typical structuring call",
			model: "claude-opus-4-5-20251101",
			usage: domain.Usage{InputTokens: 1000, OutputTokens: 2000},
			want:  0.165,
		},
		{
			// 3*10000/1e6 = 0.03, 15*4000/1e6 = 0.06.
			name:  "sonnet",
			model: "claude-sonnet-4-20250514",
			usage: domain.Usage{InputTokens: 10_000, OutputTokens: 4_000},
			want:  0.09,
		},
		{
			// 0.10*500/1e6 = 0.00005, 0.40*100/1e6 = 0.00004.
			name:  "flash caption call",
			model: "gemini-3-flash-preview",
			usage: domain.Usage{InputTokens: 500, OutputTokens: 100},
			want:  0.00009,
		},
		{
			// Token rates are zero; only images bill: 3 * 0.025.
			name:  "image model ignores tokens",
			model: "gemini-3-pro-image-preview",
			usage: domain.Usage{InputTokens: 9999, OutputTokens: 9999, ImagesGenerated: 3},
			want:  0.075,
		},
		{
			name:  "unknown model is free",
			model: "some-future-model",
			usage: domain.Usage{InputTokens: 1_000_000, OutputTokens: 1_000_000, ImagesGenerated: 10},
			want:  0,
		},
		{
			name:  "zero usage",
			model: "claude-opus-4-5-20251101",
			usage: domain.Usage{},
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cost(tt.model, tt.usage), 1e-12)
		})
	}
}

func TestCostAdditiveAcrossCalls(t *testing.T) {
	model := "claude-opus-4-5-20251101"
	a := domain.Usage{InputTokens: 1234, OutputTokens: 5678}
	b := domain.Usage{InputTokens: 4321, OutputTokens: 8765}

	combined := a
	combined.Add(b)

	assert.InDelta(t, Cost(model, a)+Cost(model, b), Cost(model, combined), 1e-12)
}

func TestPriceFor(t *testing.T) {
	price, ok := PriceFor("gemini-3-pro-image-preview")
	require.True(t, ok)
	assert.Equal(t, 0.025, price.PerImage)

	_, ok = PriceFor("nonexistent")
	assert.False(t, ok)
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := &config.StorageConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{
			Path:         filepath.Join(t.TempDir(), "ledger_test.sqlite"),
			MaxOpenConns: 1,
		},
	}

	db, err := storage.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecorderRecord(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	session := &storage.Session{UserName: "marta"}
	require.NoError(t, storage.NewSessionRepository(db).Create(ctx, session))

	recorder := NewRecorder(db, observability.Nop())

	cost, err := recorder.Record(ctx, session.ID, "claude-opus-4-5-20251101",
		"structure_presentation", "KWC", domain.Usage{InputTokens: 1000, OutputTokens: 2000})
	require.NoError(t, err)
	assert.InDelta(t, 0.165, cost, 1e-9)

	cost, err = recorder.Record(ctx, session.ID, "gemini-3-pro-image-preview",
		"image_generation", "KWC", domain.Usage{ImagesGenerated: 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.05, cost, 1e-9)

	stored, err := storage.NewSessionRepository(db).GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.215, stored.TotalCostUSD, 1e-9)

	records, err := storage.NewUsageRepository(db).ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "structure_presentation", records[0].Operation)
	assert.Equal(t, int64(1000), records[0].InputTokens)
}

func TestRecorderUnknownSessionRollsBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	recorder := NewRecorder(db, observability.Nop())

	_, err := recorder.Record(ctx, uuid.New(), "claude-opus-4-5-20251101",
		"structure_presentation", "KWC", domain.Usage{InputTokens: 100, OutputTokens: 100})
	require.Error(t, err)

	// The usage insert must not survive the failed session update.
	totals, err := storage.NewUsageRepository(db).Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), totals.Calls)
}

func TestReporter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	users := storage.NewUserRepository(db)
	_, err := users.Register(ctx, "marta")
	require.NoError(t, err)

	session := &storage.Session{UserName: "marta"}
	require.NoError(t, storage.NewSessionRepository(db).Create(ctx, session))

	recorder := NewRecorder(db, observability.Nop())
	_, err = recorder.Record(ctx, session.ID, "claude-opus-4-5-20251101",
		"structure_presentation", "KWC", domain.Usage{InputTokens: 1000, OutputTokens: 2000})
	require.NoError(t, err)
	_, err = recorder.Record(ctx, session.ID, "gemini-3-flash-preview",
		"image_analysis", "KWC", domain.Usage{InputTokens: 500, OutputTokens: 100})
	require.NoError(t, err)

	pptx := "/data/out/x/presentation.pptx"
	require.NoError(t, storage.NewPresentationRepository(db).Insert(ctx, &storage.Presentation{
		TaskID: uuid.NewString(), SessionID: session.ID, UserName: "marta",
		ChapterName: "KWC", GroupName: "GRUPG", SlidesCount: 20, CostUSD: 0.165, PPTXPath: &pptx,
	}))
	require.NoError(t, users.RecordPresentation(ctx, "marta", 0.165))

	reporter := NewReporter(db)

	global, err := reporter.GlobalStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), global.Totals.Calls)
	assert.Equal(t, int64(1500), global.Totals.InputTokens)
	assert.Equal(t, int64(1), global.Presentations)
	require.Len(t, global.ByModel, 2)
	assert.Equal(t, "claude-opus-4-5-20251101", global.ByModel[0].Model)
	require.Len(t, global.Recent, 2)
	assert.Equal(t, "image_analysis", global.Recent[0].Operation)

	sessionStats, err := reporter.SessionStats(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "marta", sessionStats.Session.UserName)
	assert.Equal(t, int64(2), sessionStats.Totals.Calls)
	require.Len(t, sessionStats.Records, 2)

	_, err = reporter.SessionStats(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	userStats, err := reporter.UserStats(ctx, "marta")
	require.NoError(t, err)
	assert.Equal(t, 1, userStats.User.PresentationsGenerated)
	require.Len(t, userStats.Presentations, 1)
	assert.Equal(t, 20, userStats.Presentations[0].SlidesCount)

	_, err = reporter.UserStats(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
