// Package planner structures chapter text and an image catalog into a
// presentation plan via the text-completion provider.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern/internal/anthropic"
	"github.com/lectern-ai/lectern/internal/catalog"
	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/retry"
)

// operationStructure is the ledger operation for structuring calls.
const operationStructure = "structure_presentation"

// defaultDurationSeconds is used when the model omits a slide duration.
const defaultDurationSeconds = 60

// structurePrompt demands a single JSON object describing the deck.
const structurePrompt = `You are an expert instructional designer. Turn the textbook chapter
below into a presentation plan for chapter "%s" (group "%s").

Target roughly %d slides and a total speaking time of about %d minutes.

%s

Respond with ONE JSON object and nothing else, using exactly this shape:
{
  "chapter_title": "a short descriptive title for the chapter",
  "slides": [
    {
      "number": 1,
      "slide_type": "title | index | content | conclusion",
      "title": "slide title",
      "content": ["one line per bullet or heading"],
      "speaker_notes": "what the presenter should say",
      "image": {
        "source": "catalog | generate",
        "catalog_id": "id of a catalog image, when source is catalog",
        "generate_prompt": "prompt for a new image, when source is generate"
      },
      "duration_seconds": 60
    }
  ],
  "key_concepts": ["the most important concepts of the chapter"],
  "study_summary": "three to five sentences a student can revise from"
}

Rules:
- The first slide must be a title slide and the second an index slide
  listing the remaining slide titles.
- End with a conclusion slide.
- Prefer catalog images with high star ratings; only request generated
  images when no catalog image fits the slide.
- Omit the "image" field for slides that need no image.
- Write content lines in the chapter's own language.
- ALL-CAPS content lines are rendered as section headers; lines starting
  with "-" are rendered as sub-points.

Chapter text:
%s`

// CompletionClient is the text-completion provider surface the planner needs.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (*anthropic.Completion, error)
	Model() string
}

// Recorder prices and persists provider usage.
type Recorder interface {
	Record(ctx context.Context, sessionID uuid.UUID, model, operation, chapterName string, usage domain.Usage) (float64, error)
}

// Planner produces presentation plans for one generation session.
type Planner struct {
	client        CompletionClient
	recorder      Recorder
	sessionID     uuid.UUID
	policy        retry.Policy
	targetSlides  int
	targetMinutes int
	logger        *observability.Logger
}

// StructuringPolicy is the retry policy for structuring calls: patient
// backoff because the provider rate-limits long completions aggressively.
func StructuringPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 8,
		BaseDelay:   15 * time.Second,
		MaxDelay:    120 * time.Second,
	}
}

// New creates a planner. Zero targets fall back to the defaults.
func New(client CompletionClient, recorder Recorder, sessionID uuid.UUID, policy retry.Policy, targetSlides, targetMinutes int, logger *observability.Logger) *Planner {
	if targetSlides <= 0 {
		targetSlides = 20
	}
	if targetMinutes <= 0 {
		targetMinutes = 20
	}
	return &Planner{
		client:        client,
		recorder:      recorder,
		sessionID:     sessionID,
		policy:        policy,
		targetSlides:  targetSlides,
		targetMinutes: targetMinutes,
		logger:        logger,
	}
}

// Structure asks the model for a plan and validates the response.
// Transient provider failures are retried under the planner's policy;
// a malformed response is fatal for the stage. Usage is recorded once
// per successful provider call, never for failed attempts.
func (p *Planner) Structure(ctx context.Context, chapterText string, entries []domain.CatalogEntry, chapterName, groupName string) (*domain.PresentationPlan, error) {
	prompt := fmt.Sprintf(structurePrompt,
		chapterName, groupName, p.targetSlides, p.targetMinutes,
		catalog.CatalogText(entries), chapterText)

	var completion *anthropic.Completion
	err := retry.Do(ctx, p.policy, p.logger, operationStructure, func(ctx context.Context) error {
		result, err := p.client.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		completion = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := p.recorder.Record(ctx, p.sessionID, p.client.Model(), operationStructure, chapterName, completion.Usage); err != nil {
		// The tokens were spent either way; losing the ledger row must
		// not lose the plan.
		p.logger.Error().Err(err).Msg("Failed to record structuring usage")
	}

	plan, err := ParsePlan(completion.Text)
	if err != nil {
		return nil, err
	}

	if plan.ChapterName == "" {
		plan.ChapterName = chapterName
	}
	if plan.GroupName == "" {
		plan.GroupName = groupName
	}

	p.logger.Info().
		Str("chapter", chapterName).
		Int("slides", len(plan.Slides)).
		Int("key_concepts", len(plan.KeyConcepts)).
		Int("input_tokens", completion.Usage.InputTokens).
		Int("output_tokens", completion.Usage.OutputTokens).
		Msg("Presentation structured")

	return plan, nil
}

// ParsePlan decodes the model's response into a validated plan. The
// model routinely wraps the JSON in a markdown code fence; that is
// stripped before parsing. Anything else wrong with the payload is a
// parse error, fatal for the structuring stage.
func ParsePlan(text string) (*domain.PresentationPlan, error) {
	plan := &domain.PresentationPlan{}
	if err := json.Unmarshal([]byte(stripFences(text)), plan); err != nil {
		return nil, domain.ParseError("decode presentation plan", err)
	}

	if err := normalizePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// normalizePlan applies the defaulting rules: slide numbers become 1..n,
// unknown slide types are coerced to content, image slots with an
// unknown source are dropped, and missing durations default to 60s.
func normalizePlan(plan *domain.PresentationPlan) error {
	if len(plan.Slides) == 0 {
		return domain.ParseError("plan contains no slides", nil)
	}

	for i := range plan.Slides {
		slide := &plan.Slides[i]
		slide.Number = i + 1

		if !domain.ValidSlideType(slide.Type) {
			slide.Type = domain.SlideTypeContent
		}

		if slide.DurationSeconds <= 0 {
			slide.DurationSeconds = defaultDurationSeconds
		}

		if slide.Image != nil {
			switch slide.Image.Source {
			case domain.ImageSourceCatalog, domain.ImageSourceGenerate:
			default:
				slide.Image = nil
			}
		}
	}

	return nil
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
