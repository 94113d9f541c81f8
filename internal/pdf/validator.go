// Package pdf extracts text and embedded images from source PDFs.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lectern-ai/lectern/internal/domain"
)

// pdfHeader is the magic prefix every PDF starts with.
const pdfHeader = "%PDF-"

// Validator provides input validation for PDF files.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePDFPath validates that a file path points to a readable PDF.
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.ValidationError(fmt.Sprintf("file is not a PDF (has extension %s)", ext), nil)
	}

	// Renamed files make the extractors fail in confusing ways; check
	// the magic bytes up front.
	file, err := os.Open(path)
	if err != nil {
		return domain.ValidationError(fmt.Sprintf("cannot open file: %s", path), err)
	}
	defer file.Close()

	header := make([]byte, len(pdfHeader))
	if _, err := file.Read(header); err != nil || string(header) != pdfHeader {
		return domain.ValidationError(fmt.Sprintf("file does not look like a PDF: %s", path), nil)
	}

	return nil
}
