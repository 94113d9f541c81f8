package storage

import (
	"time"

	"github.com/google/uuid"
)

// Setting represents a key/value configuration row. Provider API keys
// submitted through the settings endpoint live here.
type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Setting keys for stored provider credentials.
const (
	SettingAnthropicAPIKey = "anthropic_api_key"
	SettingGoogleAPIKey    = "google_api_key"
)

// User represents a registered presentation author.
type User struct {
	ID                     uuid.UUID `json:"id" db:"id"`
	Name                   string    `json:"name" db:"name"`
	Email                  *string   `json:"email,omitempty" db:"email"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
	TotalCostUSD           float64   `json:"total_cost_usd" db:"total_cost_usd"`
	PresentationsGenerated int       `json:"presentations_generated" db:"presentations_generated"`
}

// Session represents one generation run and its accumulated spend.
type Session struct {
	ID                     uuid.UUID `json:"id" db:"id"`
	UserName               string    `json:"user_name" db:"user_name"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
	TotalCostUSD           float64   `json:"total_cost_usd" db:"total_cost_usd"`
	PresentationsGenerated int       `json:"presentations_generated" db:"presentations_generated"`
}

// UsageRecord represents a single billable provider call.
type UsageRecord struct {
	ID              int64     `json:"id" db:"id"`
	SessionID       uuid.UUID `json:"session_id" db:"session_id"`
	Model           string    `json:"model" db:"model"`
	Operation       string    `json:"operation" db:"operation"`
	ChapterName     *string   `json:"chapter_name,omitempty" db:"chapter_name"`
	InputTokens     int64     `json:"input_tokens" db:"input_tokens"`
	OutputTokens    int64     `json:"output_tokens" db:"output_tokens"`
	ImagesGenerated int       `json:"images_generated" db:"images_generated"`
	CostUSD         float64   `json:"cost_usd" db:"cost_usd"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// UsageTotals aggregates usage rows.
type UsageTotals struct {
	InputTokens     int64   `json:"input_tokens" db:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens" db:"output_tokens"`
	ImagesGenerated int64   `json:"images_generated" db:"images_generated"`
	CostUSD         float64 `json:"cost_usd" db:"cost_usd"`
	Calls           int64   `json:"calls" db:"calls"`
}

// ModelTotals aggregates usage rows for one model.
type ModelTotals struct {
	Model           string  `json:"model" db:"model"`
	InputTokens     int64   `json:"input_tokens" db:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens" db:"output_tokens"`
	ImagesGenerated int64   `json:"images_generated" db:"images_generated"`
	CostUSD         float64 `json:"cost_usd" db:"cost_usd"`
	Calls           int64   `json:"calls" db:"calls"`
}

// Presentation represents a finished generation run and its artifacts.
type Presentation struct {
	ID          int64     `json:"id" db:"id"`
	TaskID      string    `json:"task_id" db:"task_id"`
	SessionID   uuid.UUID `json:"session_id" db:"session_id"`
	UserName    string    `json:"user_name" db:"user_name"`
	ChapterName string    `json:"chapter_name" db:"chapter_name"`
	GroupName   string    `json:"group_name" db:"group_name"`
	PDFFilename *string   `json:"pdf_filename,omitempty" db:"pdf_filename"`
	SlidesCount int       `json:"slides_count" db:"slides_count"`
	CostUSD     float64   `json:"cost_usd" db:"cost_usd"`
	PPTXPath    *string   `json:"pptx_path,omitempty" db:"pptx_path"`
	DOCXPath    *string   `json:"docx_path,omitempty" db:"docx_path"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	Deleted     bool      `json:"deleted" db:"deleted"`
}
