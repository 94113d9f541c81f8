package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DB represents a database connection interface. Both *sql.DB and
// *sql.Tx satisfy it, so repositories work inside transactions.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SettingsRepository handles key/value settings, including stored
// provider API keys.
type SettingsRepository struct {
	db DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves a setting value by key.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = $1", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// Put inserts or updates a setting.
func (r *SettingsRepository) Put(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC())
	return err
}

// UserRepository handles user records and their lifetime aggregates.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Register inserts the user if unseen and returns the stored record.
func (r *UserRepository) Register(ctx context.Context, name string) (*User, error) {
	query := `
		INSERT INTO users (id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, uuid.New(), name, time.Now().UTC()); err != nil {
		return nil, err
	}
	return r.GetByName(ctx, name)
}

// GetByName retrieves a user by name.
func (r *UserRepository) GetByName(ctx context.Context, name string) (*User, error) {
	query := `
		SELECT id, name, email, created_at, total_cost_usd, presentations_generated
		FROM users WHERE name = $1
	`
	user := &User{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&user.ID, &user.Name, &user.Email, &user.CreatedAt,
		&user.TotalCostUSD, &user.PresentationsGenerated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return user, err
}

// List lists all users ordered by name.
func (r *UserRepository) List(ctx context.Context) ([]*User, error) {
	query := `
		SELECT id, name, email, created_at, total_cost_usd, presentations_generated
		FROM users ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user := &User{}
		if err := rows.Scan(
			&user.ID, &user.Name, &user.Email, &user.CreatedAt,
			&user.TotalCostUSD, &user.PresentationsGenerated,
		); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// RecordPresentation bumps a user's lifetime spend and output count.
func (r *UserRepository) RecordPresentation(ctx context.Context, name string, cost float64) error {
	query := `
		UPDATE users
		SET total_cost_usd = total_cost_usd + $1,
			presentations_generated = presentations_generated + 1
		WHERE name = $2
	`
	result, err := r.db.ExecContext(ctx, query, cost, name)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SessionRepository handles generation session records.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session.
func (r *SessionRepository) Create(ctx context.Context, session *Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sessions (id, user_name, created_at, total_cost_usd, presentations_generated)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserName, session.CreatedAt,
		session.TotalCostUSD, session.PresentationsGenerated,
	)
	return err
}

// GetByID retrieves a session by ID.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `
		SELECT id, user_name, created_at, total_cost_usd, presentations_generated
		FROM sessions WHERE id = $1
	`
	session := &Session{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.UserName, &session.CreatedAt,
		&session.TotalCostUSD, &session.PresentationsGenerated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return session, err
}

// AddCost adds a spend delta to the session aggregate.
func (r *SessionRepository) AddCost(ctx context.Context, id uuid.UUID, delta float64) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET total_cost_usd = total_cost_usd + $1 WHERE id = $2", delta, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementPresentations bumps the session's completed-presentations count.
func (r *SessionRepository) IncrementPresentations(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET presentations_generated = presentations_generated + 1 WHERE id = $1", id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UsageRepository handles per-call usage rows and their rollups.
type UsageRepository struct {
	db DB
}

// NewUsageRepository creates a new usage repository.
func NewUsageRepository(db DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// Insert appends a usage record.
func (r *UsageRepository) Insert(ctx context.Context, record *UsageRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO usage (session_id, model, operation, chapter_name,
			input_tokens, output_tokens, images_generated, cost_usd, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.SessionID, record.Model, record.Operation, record.ChapterName,
		record.InputTokens, record.OutputTokens, record.ImagesGenerated,
		record.CostUSD, record.CreatedAt,
	)
	return err
}

// ListRecent returns the newest usage rows, newest first.
func (r *UsageRepository) ListRecent(ctx context.Context, limit int) ([]*UsageRecord, error) {
	query := `
		SELECT id, session_id, model, operation, chapter_name,
			input_tokens, output_tokens, images_generated, cost_usd, created_at
		FROM usage ORDER BY id DESC LIMIT $1
	`
	return r.queryRecords(ctx, query, limit)
}

// ListBySession returns a session's usage rows in call order.
func (r *UsageRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*UsageRecord, error) {
	query := `
		SELECT id, session_id, model, operation, chapter_name,
			input_tokens, output_tokens, images_generated, cost_usd, created_at
		FROM usage WHERE session_id = $1 ORDER BY id
	`
	return r.queryRecords(ctx, query, sessionID)
}

func (r *UsageRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*UsageRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*UsageRecord
	for rows.Next() {
		record := &UsageRecord{}
		if err := rows.Scan(
			&record.ID, &record.SessionID, &record.Model, &record.Operation,
			&record.ChapterName, &record.InputTokens, &record.OutputTokens,
			&record.ImagesGenerated, &record.CostUSD, &record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Totals aggregates all usage rows.
func (r *UsageRepository) Totals(ctx context.Context) (*UsageTotals, error) {
	query := `
		SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(images_generated), 0), COALESCE(SUM(cost_usd), 0), COUNT(*)
		FROM usage
	`
	totals := &UsageTotals{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&totals.InputTokens, &totals.OutputTokens, &totals.ImagesGenerated,
		&totals.CostUSD, &totals.Calls,
	)
	return totals, err
}

// TotalsForSession aggregates one session's usage rows.
func (r *UsageRepository) TotalsForSession(ctx context.Context, sessionID uuid.UUID) (*UsageTotals, error) {
	query := `
		SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(images_generated), 0), COALESCE(SUM(cost_usd), 0), COUNT(*)
		FROM usage WHERE session_id = $1
	`
	totals := &UsageTotals{}
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&totals.InputTokens, &totals.OutputTokens, &totals.ImagesGenerated,
		&totals.CostUSD, &totals.Calls,
	)
	return totals, err
}

// TotalsByModel aggregates usage rows per model, costliest first.
func (r *UsageRepository) TotalsByModel(ctx context.Context) ([]*ModelTotals, error) {
	query := `
		SELECT model, COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(images_generated), 0), COALESCE(SUM(cost_usd), 0), COUNT(*)
		FROM usage GROUP BY model ORDER BY SUM(cost_usd) DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []*ModelTotals
	for rows.Next() {
		mt := &ModelTotals{}
		if err := rows.Scan(
			&mt.Model, &mt.InputTokens, &mt.OutputTokens,
			&mt.ImagesGenerated, &mt.CostUSD, &mt.Calls,
		); err != nil {
			return nil, err
		}
		totals = append(totals, mt)
	}
	return totals, rows.Err()
}

// PresentationRepository handles finished-presentation history.
type PresentationRepository struct {
	db DB
}

// NewPresentationRepository creates a new presentation repository.
func NewPresentationRepository(db DB) *PresentationRepository {
	return &PresentationRepository{db: db}
}

// Insert records a finished presentation.
func (r *PresentationRepository) Insert(ctx context.Context, p *Presentation) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO presentations (task_id, session_id, user_name, chapter_name, group_name,
			pdf_filename, slides_count, cost_usd, pptx_path, docx_path, created_at, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.TaskID, p.SessionID, p.UserName, p.ChapterName, p.GroupName,
		p.PDFFilename, p.SlidesCount, p.CostUSD, p.PPTXPath, p.DOCXPath,
		p.CreatedAt, p.Deleted,
	)
	return err
}

// List returns non-deleted presentations, newest first.
func (r *PresentationRepository) List(ctx context.Context) ([]*Presentation, error) {
	query := `
		SELECT id, task_id, session_id, user_name, chapter_name, group_name,
			pdf_filename, slides_count, cost_usd, pptx_path, docx_path, created_at, deleted
		FROM presentations WHERE deleted = FALSE
		ORDER BY created_at DESC, id DESC
	`
	return r.queryPresentations(ctx, query)
}

// ListByUser returns a user's non-deleted presentations, newest first.
func (r *PresentationRepository) ListByUser(ctx context.Context, userName string) ([]*Presentation, error) {
	query := `
		SELECT id, task_id, session_id, user_name, chapter_name, group_name,
			pdf_filename, slides_count, cost_usd, pptx_path, docx_path, created_at, deleted
		FROM presentations WHERE deleted = FALSE AND user_name = $1
		ORDER BY created_at DESC, id DESC
	`
	return r.queryPresentations(ctx, query, userName)
}

func (r *PresentationRepository) queryPresentations(ctx context.Context, query string, args ...interface{}) ([]*Presentation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var presentations []*Presentation
	for rows.Next() {
		p := &Presentation{}
		if err := rows.Scan(
			&p.ID, &p.TaskID, &p.SessionID, &p.UserName, &p.ChapterName, &p.GroupName,
			&p.PDFFilename, &p.SlidesCount, &p.CostUSD, &p.PPTXPath, &p.DOCXPath,
			&p.CreatedAt, &p.Deleted,
		); err != nil {
			return nil, err
		}
		presentations = append(presentations, p)
	}
	return presentations, rows.Err()
}

// Count returns the number of non-deleted presentations.
func (r *PresentationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM presentations WHERE deleted = FALSE").Scan(&count)
	return count, err
}
