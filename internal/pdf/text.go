package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
)

// TextExtractor reads the full text of a PDF, page by page.
type TextExtractor struct {
	logger *observability.Logger
}

// NewTextExtractor creates a text extractor.
func NewTextExtractor(logger *observability.Logger) *TextExtractor {
	return &TextExtractor{logger: logger}
}

// Text returns the concatenated text of all pages. A PDF without any
// extractable text (scanned images, empty pages) is an error: there is
// nothing to structure a presentation from.
func (e *TextExtractor) Text(ctx context.Context, pdfPath string) (string, error) {
	if err := NewValidator().ValidatePDFPath(pdfPath); err != nil {
		return "", err
	}

	doc, err := fitz.New(pdfPath)
	if err != nil {
		return "", domain.ExtractionError("open pdf", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return "", domain.ValidationError("pdf has no pages", nil)
	}

	var pages []string
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		text, err := doc.Text(pageNum)
		if err != nil {
			return "", domain.ExtractionError(fmt.Sprintf("extract text from page %d", pageNum+1), err)
		}

		text = strings.TrimSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
	}

	if len(pages) == 0 {
		return "", domain.ExtractionError("pdf contains no extractable text", nil)
	}

	full := strings.Join(pages, "\n\n")

	e.logger.Info().
		Int("pages", pageCount).
		Int("characters", len(full)).
		Msg("Extracted chapter text")

	return full, nil
}
