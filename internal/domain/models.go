package domain

import (
	"strings"
	"time"
)

// SlideType categorizes a slide for layout purposes.
type SlideType string

const (
	SlideTypeTitle      SlideType = "title"
	SlideTypeIndex      SlideType = "index"
	SlideTypeContent    SlideType = "content"
	SlideTypeConclusion SlideType = "conclusion"
)

// ValidSlideType reports whether t is one of the known slide types.
func ValidSlideType(t SlideType) bool {
	switch t {
	case SlideTypeTitle, SlideTypeIndex, SlideTypeContent, SlideTypeConclusion:
		return true
	}
	return false
}

// ImageSource selects where a slide image comes from.
type ImageSource string

const (
	ImageSourceCatalog  ImageSource = "catalog"
	ImageSourceGenerate ImageSource = "generate"
)

// ExtractedImage describes one image pulled out of the source PDF.
// Instances are immutable once extraction returns them.
type ExtractedImage struct {
	ID         string `json:"id"` // img_<page>_<idx>_<hash8>
	Path       string `json:"path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	PageNumber int    `json:"page_number"`
	Format     string `json:"format"` // png, jpeg, ...
	SizeBytes  int64  `json:"size_bytes"`
}

// CatalogEntry is an extracted image plus the vision model's metadata.
type CatalogEntry struct {
	ID             string   `json:"id"`
	Path           string   `json:"path"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	PageNumber     int      `json:"page_number"`
	Description    string   `json:"description"`
	Topic          string   `json:"topic"`
	ImageType      string   `json:"image_type"` // diagram, chart, photo, illustration
	Keywords       []string `json:"keywords"`
	RelevanceScore float64  `json:"relevance_score"` // 0.0 - 1.0
}

// SlideImage is the image slot of a slide: either a reference to a
// catalog entry or a request to synthesize one from a prompt. Path is
// empty until synthesis resolves it.
type SlideImage struct {
	Source         ImageSource `json:"source"`
	CatalogID      string      `json:"catalog_id,omitempty"`
	GeneratePrompt string      `json:"generate_prompt,omitempty"`
	Path           string      `json:"path,omitempty"`
}

// Slide is one slide of the structured plan.
type Slide struct {
	Number          int         `json:"number"`
	Type            SlideType   `json:"slide_type"`
	Title           string      `json:"title"`
	Content         []string    `json:"content"`
	SpeakerNotes    string      `json:"speaker_notes"`
	Image           *SlideImage `json:"image,omitempty"`
	DurationSeconds int         `json:"duration_seconds"`
}

// PresentationPlan is the full deck layout produced by content
// structuring. Owned by a single task; synthesis fills image paths in
// place, rendering reads it.
type PresentationPlan struct {
	ChapterName  string   `json:"chapter_name"`
	ChapterTitle string   `json:"chapter_title"`
	GroupName    string   `json:"group_name"`
	Slides       []Slide  `json:"slides"`
	KeyConcepts  []string `json:"key_concepts"`
	StudySummary string   `json:"study_summary"`
}

// TotalDurationSeconds sums the estimated durations of all slides.
func (p *PresentationPlan) TotalDurationSeconds() int {
	total := 0
	for _, s := range p.Slides {
		total += s.DurationSeconds
	}
	return total
}

// Usage holds the counts a provider reports for one call.
type Usage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	ImagesGenerated int `json:"images_generated"`
}

// Add accumulates another usage measurement into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.ImagesGenerated += other.ImagesGenerated
}

// TaskStatus tracks a generation task through its lifecycle.
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusError      TaskStatus = "error"
)

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusError
}

// Task is the polling-visible record of one generation run.
type Task struct {
	ID          string     `json:"id"`
	Status      TaskStatus `json:"status"`
	Progress    string     `json:"progress"`
	ChapterName string     `json:"chapter_name"`
	GroupName   string     `json:"group_name"`
	PDFFilename string     `json:"pdf_filename"`
	UserName    string     `json:"user_name"`
	SlidesCount int        `json:"slides_count,omitempty"`
	CostUSD     float64    `json:"cost_usd"`
	PPTXPath    string     `json:"pptx_path,omitempty"`
	DOCXPath    string     `json:"docx_path,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// GenerateRequest carries everything the orchestrator needs to run one task.
type GenerateRequest struct {
	PDFPath      string
	PDFFilename  string
	ChapterName  string
	GroupName    string
	UserName     string
	SkipImages   bool
	AnthropicKey string // per-request override, may be empty
	GoogleKey    string
}

// NormalizeChapterName trims the chapter label and falls back to the
// default when empty.
func NormalizeChapterName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "KWC"
	}
	return name
}

// NormalizeGroupName trims the group label and falls back to the
// default when empty.
func NormalizeGroupName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "GRUPG"
	}
	return name
}
