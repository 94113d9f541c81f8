package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/storage"
)

// Recorder appends usage rows and keeps session aggregates in sync.
// Both writes happen in one transaction so the ledger and the session
// total never drift apart.
type Recorder struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewRecorder creates a usage recorder.
func NewRecorder(db *sql.DB, logger *observability.Logger) *Recorder {
	return &Recorder{db: db, logger: logger}
}

// Record prices one provider call, appends the usage row and bumps the
// session total. It returns the computed USD cost.
func (r *Recorder) Record(ctx context.Context, sessionID uuid.UUID, model, operation, chapterName string, usage domain.Usage) (float64, error) {
	cost := Cost(model, usage)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin usage transaction: %w", err)
	}
	defer tx.Rollback()

	var chapter *string
	if chapterName != "" {
		chapter = &chapterName
	}

	record := &storage.UsageRecord{
		SessionID:       sessionID,
		Model:           model,
		Operation:       operation,
		ChapterName:     chapter,
		InputTokens:     int64(usage.InputTokens),
		OutputTokens:    int64(usage.OutputTokens),
		ImagesGenerated: usage.ImagesGenerated,
		CostUSD:         cost,
	}
	if err := storage.NewUsageRepository(tx).Insert(ctx, record); err != nil {
		return 0, fmt.Errorf("insert usage record: %w", err)
	}

	if err := storage.NewSessionRepository(tx).AddCost(ctx, sessionID, cost); err != nil {
		return 0, fmt.Errorf("update session cost: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit usage transaction: %w", err)
	}

	r.logger.Debug().
		Str("model", model).
		Str("operation", operation).
		Int("input_tokens", usage.InputTokens).
		Int("output_tokens", usage.OutputTokens).
		Int("images_generated", usage.ImagesGenerated).
		Float64("cost_usd", cost).
		Msg("Recorded usage")

	return cost, nil
}
