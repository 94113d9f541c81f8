// Package gemini wraps the Google generative AI SDK for image analysis
// and image synthesis.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
)

// Client wraps the Gemini SDK with the two models Lectern uses: a
// vision model for image captioning and an image model for synthesis.
type Client struct {
	client        *genai.Client
	analysisModel string
	imageModel    string
	logger        *observability.Logger
}

// NewClient creates a Gemini client. Callers own Close.
func NewClient(ctx context.Context, cfg config.GoogleConfig, logger *observability.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, domain.ConfigError("google api key is not set", nil)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, domain.ProviderError("create gemini client", err)
	}

	return &Client{
		client:        client,
		analysisModel: cfg.AnalysisModel,
		imageModel:    cfg.ImageModel,
		logger:        logger,
	}, nil
}

// Close releases the underlying SDK client.
func (c *Client) Close() error {
	return c.client.Close()
}

// AnalysisModel returns the vision model identifier.
func (c *Client) AnalysisModel() string {
	return c.analysisModel
}

// ImageModel returns the synthesis model identifier.
func (c *Client) ImageModel() string {
	return c.imageModel
}

// DescribeImage sends one image and a prompt to the vision model and
// returns the text response.
func (c *Client) DescribeImage(ctx context.Context, imageData []byte, format, prompt string) (string, domain.Usage, error) {
	model := c.client.GenerativeModel(c.analysisModel)

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(normalizeFormat(format), imageData),
		genai.Text(prompt),
	)
	if err != nil {
		return "", domain.Usage{}, classifyError("describe image", err)
	}

	usage := usageFrom(resp)

	text, err := textFrom(resp)
	if err != nil {
		return "", usage, err
	}

	c.logger.Debug().
		Str("model", c.analysisModel).
		Int("input_tokens", usage.InputTokens).
		Int("output_tokens", usage.OutputTokens).
		Msg("Image described")

	return text, usage, nil
}

// GenerateImage asks the image model for one picture and returns the
// raw bytes of the first image part.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, domain.Usage, error) {
	model := c.client.GenerativeModel(c.imageModel)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, domain.Usage{}, classifyError("generate image", err)
	}

	usage := usageFrom(resp)

	data := imageFrom(resp)
	if data == nil {
		return nil, usage, domain.ProviderError("gemini returned no image data", nil)
	}

	usage.ImagesGenerated = 1

	c.logger.Debug().
		Str("model", c.imageModel).
		Int("bytes", len(data)).
		Msg("Image generated")

	return data, usage, nil
}

// normalizeFormat maps a file extension to the SDK's image format name.
func normalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	if format == "jpg" {
		return "jpeg"
	}
	return format
}

// usageFrom extracts token counts, tolerating responses without
// usage metadata.
func usageFrom(resp *genai.GenerateContentResponse) domain.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return domain.Usage{}
	}
	return domain.Usage{
		InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
	}
}

// textFrom concatenates the text parts of the first candidate.
func textFrom(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", domain.ProviderError("gemini returned no candidates", nil)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", domain.ProviderError("gemini returned empty content", nil)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if text.Len() == 0 {
		return "", domain.ProviderError("gemini returned no text parts", nil)
	}
	return text.String(), nil
}

// imageFrom returns the first non-empty image blob in the response.
func imageFrom(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				return blob.Data
			}
		}
	}
	return nil
}

// classifyError maps SDK failures to the domain error taxonomy. Rate
// limits and server-side failures are transient.
func classifyError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	message := fmt.Sprintf("%s: %v", operation, err)

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable:
			return domain.TransientProviderError(message, err)
		default:
			return domain.ProviderError(message, err)
		}
	}

	// Transport-level failures are worth retrying.
	return domain.TransientProviderError(message, err)
}
