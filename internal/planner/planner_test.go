package planner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/anthropic"
	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/retry"
)

const validPlanJSON = `{
	"chapter_title": "Photosynthesis",
	"slides": [
		{"number": 1, "slide_type": "title", "title": "Photosynthesis", "content": [], "speaker_notes": "Welcome.", "duration_seconds": 30},
		{"number": 2, "slide_type": "index", "title": "Contents", "content": ["Light reactions", "Calvin cycle"], "speaker_notes": ""},
		{"number": 3, "slide_type": "content", "title": "Light reactions", "content": ["OVERVIEW", "- thylakoid membrane"], "speaker_notes": "Explain the membrane.", "image": {"source": "catalog", "catalog_id": "img_1_0_abcd1234"}}
	],
	"key_concepts": ["chlorophyll"],
	"study_summary": "Plants convert light into chemical energy."
}`

type fakeCompleter struct {
	mu        sync.Mutex
	responses []func() (*anthropic.Completion, error)
	calls     int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (*anthropic.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn := f.responses[f.calls]
	f.calls++
	return fn()
}

func (f *fakeCompleter) Model() string { return "claude-opus-4-5-20251101" }

type memoryRecorder struct {
	mu      sync.Mutex
	records []domain.Usage
	ops     []string
}

func (r *memoryRecorder) Record(ctx context.Context, sessionID uuid.UUID, model, operation, chapterName string, usage domain.Usage) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, usage)
	r.ops = append(r.ops, operation)
	return 0.01, nil
}

func success(text string, in, out int) func() (*anthropic.Completion, error) {
	return func() (*anthropic.Completion, error) {
		return &anthropic.Completion{
			Text:  text,
			Usage: domain.Usage{InputTokens: in, OutputTokens: out},
		}, nil
	}
}

func rateLimited() func() (*anthropic.Completion, error) {
	return func() (*anthropic.Completion, error) {
		return nil, domain.TransientProviderError("anthropic api returned status 429", nil)
	}
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func newTestPlanner(client CompletionClient, recorder Recorder, attempts int) *Planner {
	return New(client, recorder, uuid.New(), fastPolicy(attempts), 20, 20, observability.Nop())
}

func TestStructureReturnsValidatedPlan(t *testing.T) {
	client := &fakeCompleter{responses: []func() (*anthropic.Completion, error){
		success(validPlanJSON, 1200, 800),
	}}
	recorder := &memoryRecorder{}

	plan, err := newTestPlanner(client, recorder, 3).Structure(
		context.Background(), "chapter text", nil, "KWC05", "GRUPG")
	require.NoError(t, err)

	assert.Equal(t, "KWC05", plan.ChapterName)
	assert.Equal(t, "GRUPG", plan.GroupName)
	assert.Equal(t, "Photosynthesis", plan.ChapterTitle)
	require.Len(t, plan.Slides, 3)

	// Omitted duration defaults to 60s; provided ones survive.
	assert.Equal(t, 30, plan.Slides[0].DurationSeconds)
	assert.Equal(t, 60, plan.Slides[1].DurationSeconds)

	require.NotNil(t, plan.Slides[2].Image)
	assert.Equal(t, domain.ImageSourceCatalog, plan.Slides[2].Image.Source)

	require.Len(t, recorder.records, 1)
	assert.Equal(t, "structure_presentation", recorder.ops[0])
	assert.Equal(t, 1200, recorder.records[0].InputTokens)
	assert.Equal(t, 800, recorder.records[0].OutputTokens)
}

func TestStructureRetriesRateLimitThenSucceeds(t *testing.T) {
	client := &fakeCompleter{responses: []func() (*anthropic.Completion, error){
		rateLimited(),
		rateLimited(),
		success(validPlanJSON, 100, 200),
	}}
	recorder := &memoryRecorder{}

	plan, err := newTestPlanner(client, recorder, 8).Structure(
		context.Background(), "chapter text", nil, "KWC05", "GRUPG")
	require.NoError(t, err)
	assert.Len(t, plan.Slides, 3)
	assert.Equal(t, 3, client.calls)

	// Failed attempts must not leave ledger rows behind.
	require.Len(t, recorder.records, 1)
	assert.Equal(t, 100, recorder.records[0].InputTokens)
}

func TestStructureNonTransientErrorPropagatesImmediately(t *testing.T) {
	authErr := domain.ConfigError("anthropic api returned status 401", nil)
	client := &fakeCompleter{responses: []func() (*anthropic.Completion, error){
		func() (*anthropic.Completion, error) { return nil, authErr },
	}}
	recorder := &memoryRecorder{}

	_, err := newTestPlanner(client, recorder, 8).Structure(
		context.Background(), "chapter text", nil, "KWC05", "GRUPG")
	require.Error(t, err)
	assert.ErrorIs(t, err, authErr)
	assert.Equal(t, 1, client.calls)
	assert.Empty(t, recorder.records)
}

func TestStructureInvalidJSONIsFatal(t *testing.T) {
	client := &fakeCompleter{responses: []func() (*anthropic.Completion, error){
		success("I could not produce JSON, sorry.", 50, 10),
	}}
	recorder := &memoryRecorder{}

	_, err := newTestPlanner(client, recorder, 3).Structure(
		context.Background(), "chapter text", nil, "KWC05", "GRUPG")
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeParse, domain.TypeOf(err))
	// The tokens were still spent; the call itself succeeded.
	assert.Len(t, recorder.records, 1)
}

func TestParsePlanStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validPlanJSON + "\n```"

	plan, err := ParsePlan(fenced)
	require.NoError(t, err)
	assert.Len(t, plan.Slides, 3)

	plain, err := ParsePlan("```\n" + validPlanJSON + "\n```")
	require.NoError(t, err)
	assert.Len(t, plain.Slides, 3)
}

func TestParsePlanNormalization(t *testing.T) {
	raw := `{
		"chapter_title": "T",
		"slides": [
			{"number": 7, "slide_type": "diagram", "title": "A", "image": {"source": "url", "catalog_id": "x"}},
			{"number": 2, "slide_type": "content", "title": "B", "image": {"source": "generate", "generate_prompt": "a cell"}}
		]
	}`

	plan, err := ParsePlan(raw)
	require.NoError(t, err)

	// Numbers renumbered 1..n regardless of what the model claimed.
	assert.Equal(t, 1, plan.Slides[0].Number)
	assert.Equal(t, 2, plan.Slides[1].Number)

	// Unknown slide type coerced, unknown image source dropped.
	assert.Equal(t, domain.SlideTypeContent, plan.Slides[0].Type)
	assert.Nil(t, plan.Slides[0].Image)
	require.NotNil(t, plan.Slides[1].Image)
	assert.Equal(t, 60, plan.Slides[0].DurationSeconds)
}

func TestParsePlanEmptySlidesIsParseError(t *testing.T) {
	_, err := ParsePlan(`{"chapter_title": "T", "slides": []}`)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeParse, domain.TypeOf(err))
}
