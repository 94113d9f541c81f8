// Package synthesis resolves every slide's image slot to a file on
// disk, generating images where the plan asks for them.
package synthesis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/retry"
)

// operationImageGeneration is the ledger operation for synthesis runs.
const operationImageGeneration = "image_generation"

// The fixed style wrapper keeps generated images visually consistent
// across a deck. Deterministic string concatenation, nothing more.
const (
	stylePrefix = "Professional business presentation illustration, modern flat design style, "
	styleSuffix = ". Color palette: warm orange (#E07A2F), golden amber (#F5A623) and neutral gray (#4A4A4A) on a clean white background. No embedded text or lettering. 16:9 aspect ratio."
)

// fallbackPromptFormat is used when a slide references a catalog image
// that does not exist. The slide degrades to synthesis, never an error.
const fallbackPromptFormat = "Professional flat design business illustration for presentation slide about %s, orange and gray corporate colors"

// ImageClient generates one image per call.
type ImageClient interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, domain.Usage, error)
	ImageModel() string
}

// Recorder prices and persists provider usage.
type Recorder interface {
	Record(ctx context.Context, sessionID uuid.UUID, model, operation, chapterName string, usage domain.Usage) (float64, error)
}

// Resolver fills slide image paths for one generation session.
type Resolver struct {
	client    ImageClient
	recorder  Recorder
	sessionID uuid.UUID
	limiter   *rate.Limiter
	policy    retry.Policy
	logger    *observability.Logger
}

// SynthesisPolicy is the retry policy for image generation: a few flat
// attempts, because a failed image only costs the slide its picture.
func SynthesisPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Second,
		MaxDelay:    5 * time.Second,
	}
}

// NewResolver creates a resolver pacing generation calls at one per
// interval.
func NewResolver(client ImageClient, recorder Recorder, sessionID uuid.UUID, interval time.Duration, logger *observability.Logger) *Resolver {
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	return &Resolver{
		client:    client,
		recorder:  recorder,
		sessionID: sessionID,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		policy:    SynthesisPolicy(),
		logger:    logger,
	}
}

// ResolveImages walks the plan and resolves each image slot in place.
// Catalog references are copied from the catalog; unknown references
// degrade to generation with the fallback prompt. A generation that
// exhausts its retries clears the slot and moves on; only context
// cancellation aborts the run. Usage is recorded once for the whole run.
func (r *Resolver) ResolveImages(ctx context.Context, plan *domain.PresentationPlan, entries []domain.CatalogEntry, destDir string) error {
	byID := make(map[string]domain.CatalogEntry, len(entries))
	for _, entry := range entries {
		byID[entry.ID] = entry
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return domain.IOError("create synthesis directory", err)
	}

	var total domain.Usage
	generated := 0

	for i := range plan.Slides {
		slide := &plan.Slides[i]
		if slide.Image == nil {
			continue
		}

		if slide.Image.Source == domain.ImageSourceCatalog {
			if entry, ok := byID[slide.Image.CatalogID]; ok {
				slide.Image.Path = entry.Path
				continue
			}

			r.logger.Warn().
				Int("slide", slide.Number).
				Str("catalog_id", slide.Image.CatalogID).
				Msg("Catalog image not found, falling back to generation")
			slide.Image.Source = domain.ImageSourceGenerate
			slide.Image.CatalogID = ""
			slide.Image.GeneratePrompt = FallbackPrompt(slide.Title)
		}

		usage, err := r.generate(ctx, slide, destDir)
		total.Add(usage)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Warn().
				Int("slide", slide.Number).
				Err(err).
				Msg("Image generation failed, slide continues without image")
			slide.Image = nil
			continue
		}
		generated++
	}

	if generated > 0 {
		label := fmt.Sprintf("%s (%d images)", plan.ChapterName, generated)
		if _, err := r.recorder.Record(ctx, r.sessionID, r.client.ImageModel(), operationImageGeneration, label, total); err != nil {
			r.logger.Error().Err(err).Msg("Failed to record synthesis usage")
		}
	}

	r.logger.Info().
		Int("generated", generated).
		Str("dest", destDir).
		Msg("Slide images resolved")

	return nil
}

// generate produces one image under the synthesis retry policy and
// writes it next to the other session artifacts.
func (r *Resolver) generate(ctx context.Context, slide *domain.Slide, destDir string) (domain.Usage, error) {
	prompt := slide.Image.GeneratePrompt
	if prompt == "" {
		prompt = FallbackPrompt(slide.Title)
	}
	prompt = EnhancePrompt(prompt)

	var total domain.Usage
	var data []byte

	err := retry.Do(ctx, r.policy, r.logger, operationImageGeneration, func(ctx context.Context) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		bytes, usage, err := r.client.GenerateImage(ctx, prompt)
		total.Add(usage)
		if err != nil {
			return err
		}
		data = bytes
		return nil
	})
	if err != nil {
		return total, err
	}

	path := filepath.Join(destDir, fmt.Sprintf("slide_%d.png", slide.Number))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return total, domain.IOError(fmt.Sprintf("persist generated image for slide %d", slide.Number), err)
	}

	slide.Image.Path = path
	return total, nil
}

// EnhancePrompt wraps a user-level prompt with the fixed style prefix
// and suffix.
func EnhancePrompt(prompt string) string {
	return stylePrefix + prompt + styleSuffix
}

// FallbackPrompt is the generic prompt used when a slide has no usable
// image request of its own.
func FallbackPrompt(slideTitle string) string {
	return fmt.Sprintf(fallbackPromptFormat, slideTitle)
}
