package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), config.GoogleConfig{}, observability.Nop())
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeConfig, domain.TypeOf(err))
}

func TestNormalizeFormat(t *testing.T) {
	assert.Equal(t, "png", normalizeFormat(".png"))
	assert.Equal(t, "png", normalizeFormat("PNG"))
	assert.Equal(t, "jpeg", normalizeFormat("jpg"))
	assert.Equal(t, "jpeg", normalizeFormat(".JPG"))
	assert.Equal(t, "webp", normalizeFormat("webp"))
}

func TestUsageFrom(t *testing.T) {
	assert.Equal(t, domain.Usage{}, usageFrom(nil))
	assert.Equal(t, domain.Usage{}, usageFrom(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 321, CandidatesTokenCount: 87},
	}
	assert.Equal(t, domain.Usage{InputTokens: 321, OutputTokens: 87}, usageFrom(resp))
}

func TestTextFrom(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("A diagram "),
				genai.Text("of a cell."),
			}},
		}},
	}

	text, err := textFrom(resp)
	require.NoError(t, err)
	assert.Equal(t, "A diagram of a cell.", text)

	_, err = textFrom(&genai.GenerateContentResponse{})
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeProvider, domain.TypeOf(err))

	_, err = textFrom(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{}}},
	})
	require.Error(t, err)
}

func TestImageFrom(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4e, 0x47}
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("here is your image"),
				genai.Blob{MIMEType: "image/png", Data: data},
			}},
		}},
	}

	assert.Equal(t, data, imageFrom(resp))
	assert.Nil(t, imageFrom(&genai.GenerateContentResponse{}))
	assert.Nil(t, imageFrom(nil))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limited", &googleapi.Error{Code: 429, Message: "quota"}, true},
		{"server error", &googleapi.Error{Code: 500}, true},
		{"unavailable", &googleapi.Error{Code: 503}, true},
		{"bad request", &googleapi.Error{Code: 400}, false},
		{"unauthorized", &googleapi.Error{Code: 403}, false},
		{"transport", fmt.Errorf("connection reset by peer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyError("op", tt.err)
			assert.Equal(t, tt.transient, domain.IsTransient(classified))
		})
	}

	// Context errors pass through untouched.
	assert.ErrorIs(t, classifyError("op", context.Canceled), context.Canceled)
	wrapped := fmt.Errorf("call: %w", context.DeadlineExceeded)
	assert.True(t, errors.Is(classifyError("op", wrapped), context.DeadlineExceeded))
}
