package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern/internal/storage"
)

// recentOpsLimit bounds the recent-operations list in global stats.
const recentOpsLimit = 10

// GlobalStats is the service-wide usage rollup.
type GlobalStats struct {
	Totals        *storage.UsageTotals   `json:"totals"`
	ByModel       []*storage.ModelTotals `json:"by_model"`
	Recent        []*storage.UsageRecord `json:"recent_operations"`
	Presentations int64                  `json:"presentations_count"`
}

// SessionStats is the usage rollup for one generation session.
type SessionStats struct {
	Session *storage.Session       `json:"session"`
	Totals  *storage.UsageTotals   `json:"totals"`
	Records []*storage.UsageRecord `json:"operations"`
}

// UserStats is one user's lifetime record.
type UserStats struct {
	User          *storage.User           `json:"user"`
	Presentations []*storage.Presentation `json:"presentations"`
}

// Reporter assembles usage reports from the relational store.
type Reporter struct {
	sessions      *storage.SessionRepository
	users         *storage.UserRepository
	usage         *storage.UsageRepository
	presentations *storage.PresentationRepository
}

// NewReporter creates a reporter over the given connection.
func NewReporter(db storage.DB) *Reporter {
	return &Reporter{
		sessions:      storage.NewSessionRepository(db),
		users:         storage.NewUserRepository(db),
		usage:         storage.NewUsageRepository(db),
		presentations: storage.NewPresentationRepository(db),
	}
}

// GlobalStats returns service-wide totals, a per-model rollup, the most
// recent operations and the presentation count.
func (r *Reporter) GlobalStats(ctx context.Context) (*GlobalStats, error) {
	totals, err := r.usage.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("usage totals: %w", err)
	}

	byModel, err := r.usage.TotalsByModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("usage by model: %w", err)
	}

	recent, err := r.usage.ListRecent(ctx, recentOpsLimit)
	if err != nil {
		return nil, fmt.Errorf("recent usage: %w", err)
	}

	count, err := r.presentations.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("presentation count: %w", err)
	}

	return &GlobalStats{
		Totals:        totals,
		ByModel:       byModel,
		Recent:        recent,
		Presentations: count,
	}, nil
}

// SessionStats returns one session's aggregate and its operations in
// call order. Returns storage.ErrNotFound for unknown sessions.
func (r *Reporter) SessionStats(ctx context.Context, sessionID uuid.UUID) (*SessionStats, error) {
	session, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	totals, err := r.usage.TotalsForSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session totals: %w", err)
	}

	records, err := r.usage.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session usage: %w", err)
	}

	return &SessionStats{Session: session, Totals: totals, Records: records}, nil
}

// UserStats returns one user's record and presentation history.
// Returns storage.ErrNotFound for unknown users.
func (r *Reporter) UserStats(ctx context.Context, userName string) (*UserStats, error) {
	user, err := r.users.GetByName(ctx, userName)
	if err != nil {
		return nil, err
	}

	presentations, err := r.presentations.ListByUser(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("user presentations: %w", err)
	}

	return &UserStats{User: user, Presentations: presentations}, nil
}
