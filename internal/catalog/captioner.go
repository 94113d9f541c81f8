// Package catalog turns extracted chapter images into a described
// catalog the structuring prompt can choose from.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
)

// captionPrompt asks the vision model for structured image metadata.
const captionPrompt = `Analyze this image extracted from a textbook chapter titled "%s".

Respond with a single JSON object and nothing else:
{
  "description": "one or two sentences describing what the image shows",
  "topic": "the specific topic the image relates to",
  "image_type": "one of: diagram, chart, photo, illustration, table, map, formula",
  "keywords": ["up to five lowercase keywords"],
  "relevance_score": 0.0
}

Set relevance_score between 0.0 and 1.0 according to how useful the image
would be on a presentation slide about the chapter content. Decorative
borders, logos and page furniture score below 0.3.`

// operationImageAnalysis is the ledger operation for caption batches.
const operationImageAnalysis = "image_analysis"

// VisionClient describes one image at a time.
type VisionClient interface {
	DescribeImage(ctx context.Context, imageData []byte, format, prompt string) (string, domain.Usage, error)
	AnalysisModel() string
}

// Recorder prices and persists provider usage.
type Recorder interface {
	Record(ctx context.Context, sessionID uuid.UUID, model, operation, chapterName string, usage domain.Usage) (float64, error)
}

// Captioner builds the image catalog for one generation session.
type Captioner struct {
	vision    VisionClient
	recorder  Recorder
	sessionID uuid.UUID
	limiter   *rate.Limiter
	logger    *observability.Logger
}

// NewCaptioner creates a captioner pacing calls at ratePerSec.
func NewCaptioner(vision VisionClient, recorder Recorder, sessionID uuid.UUID, ratePerSec float64, logger *observability.Logger) *Captioner {
	if ratePerSec <= 0 {
		ratePerSec = 2
	}
	return &Captioner{
		vision:    vision,
		recorder:  recorder,
		sessionID: sessionID,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSec), 1),
		logger:    logger,
	}
}

// BuildCatalog captions every image. A single failed caption degrades
// to a placeholder entry; the batch itself only aborts on context
// cancellation. Token usage is accumulated and recorded once for the
// whole batch.
func (c *Captioner) BuildCatalog(ctx context.Context, images []domain.ExtractedImage, chapterName string) ([]domain.CatalogEntry, error) {
	if len(images) == 0 {
		return nil, nil
	}

	var total domain.Usage
	entries := make([]domain.CatalogEntry, 0, len(images))

	for _, img := range images {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		entry, usage, err := c.describe(ctx, img, chapterName)
		total.Add(usage)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn().
				Str("image_id", img.ID).
				Err(err).
				Msg("Caption failed, using placeholder entry")
			entry = degradedEntry(img)
		}
		entries = append(entries, entry)
	}

	label := fmt.Sprintf("%s (%d images)", chapterName, len(images))
	if _, err := c.recorder.Record(ctx, c.sessionID, c.vision.AnalysisModel(), operationImageAnalysis, label, total); err != nil {
		// Ledger trouble must not cost us the catalog.
		c.logger.Error().Err(err).Msg("Failed to record caption usage")
	}

	c.logger.Info().
		Int("images", len(images)).
		Int("input_tokens", total.InputTokens).
		Int("output_tokens", total.OutputTokens).
		Msg("Image catalog built")

	return entries, nil
}

// visionEntry is the JSON shape the caption prompt requests.
type visionEntry struct {
	Description    string   `json:"description"`
	Topic          string   `json:"topic"`
	ImageType      string   `json:"image_type"`
	Keywords       []string `json:"keywords"`
	RelevanceScore float64  `json:"relevance_score"`
}

func (c *Captioner) describe(ctx context.Context, img domain.ExtractedImage, chapterName string) (domain.CatalogEntry, domain.Usage, error) {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return domain.CatalogEntry{}, domain.Usage{}, domain.IOError(fmt.Sprintf("read image %s", img.ID), err)
	}

	text, usage, err := c.vision.DescribeImage(ctx, data, img.Format, fmt.Sprintf(captionPrompt, chapterName))
	if err != nil {
		return domain.CatalogEntry{}, usage, err
	}

	var parsed visionEntry
	if err := json.Unmarshal([]byte(stripFences(text)), &parsed); err != nil {
		return domain.CatalogEntry{}, usage, domain.ParseError("parse caption response", err)
	}

	return domain.CatalogEntry{
		ID:             img.ID,
		Path:           img.Path,
		Width:          img.Width,
		Height:         img.Height,
		PageNumber:     img.PageNumber,
		Description:    parsed.Description,
		Topic:          parsed.Topic,
		ImageType:      parsed.ImageType,
		Keywords:       parsed.Keywords,
		RelevanceScore: clampScore(parsed.RelevanceScore),
	}, usage, nil
}

// degradedEntry is the placeholder used when a caption call fails.
func degradedEntry(img domain.ExtractedImage) domain.CatalogEntry {
	return domain.CatalogEntry{
		ID:             img.ID,
		Path:           img.Path,
		Width:          img.Width,
		Height:         img.Height,
		PageNumber:     img.PageNumber,
		Description:    "Chapter illustration",
		Topic:          "General",
		ImageType:      "illustration",
		RelevanceScore: 0.5,
	}
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// CatalogText renders the catalog as prompt input, one line per image
// with star quality markers.
func CatalogText(entries []domain.CatalogEntry) string {
	if len(entries) == 0 {
		return "No chapter images are available."
	}

	var b strings.Builder
	b.WriteString("Available chapter images:\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "- %s %s [%s, page %d, topic: %s]: %s\n",
			entry.ID, stars(entry.RelevanceScore), entry.ImageType,
			entry.PageNumber, entry.Topic, entry.Description)
	}
	return b.String()
}

func stars(score float64) string {
	switch {
	case score >= 0.8:
		return "★★★"
	case score >= 0.6:
		return "★★"
	default:
		return "★"
	}
}
