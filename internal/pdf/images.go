package pdf

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	// Image decoders for dimension probing.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
)

// ImageExtractor pulls embedded images out of a PDF, dropping
// decorations below the size floor and content-identical duplicates.
type ImageExtractor struct {
	minWidth  int
	minHeight int
	logger    *observability.Logger
}

// NewImageExtractor creates an image extractor with the given minimum
// dimensions.
func NewImageExtractor(minWidth, minHeight int, logger *observability.Logger) *ImageExtractor {
	return &ImageExtractor{
		minWidth:  minWidth,
		minHeight: minHeight,
		logger:    logger,
	}
}

// Images extracts all embedded images into a staging area, then filters
// and persists the keepers under destDir. Returned images are ordered
// by page, then by extraction order within the page.
func (e *ImageExtractor) Images(ctx context.Context, pdfPath, destDir string) ([]domain.ExtractedImage, error) {
	if err := NewValidator().ValidatePDFPath(pdfPath); err != nil {
		return nil, err
	}

	staging, err := os.MkdirTemp("", "lectern-images-*")
	if err != nil {
		return nil, domain.IOError("create staging directory", err)
	}
	defer os.RemoveAll(staging)

	if err := api.ExtractImagesFile(pdfPath, staging, nil, nil); err != nil {
		return nil, domain.ExtractionError("extract embedded images", err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, domain.IOError("create image directory", err)
	}

	images, err := e.filterAndStage(ctx, staging, destDir)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Int("kept", len(images)).
		Str("dest", destDir).
		Msg("Extracted embedded images")

	return images, nil
}

// filterAndStage walks extracted files in name order, drops small and
// duplicate images, and copies keepers into destDir under stable IDs.
func (e *ImageExtractor) filterAndStage(ctx context.Context, staging, destDir string) ([]domain.ExtractedImage, error) {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return nil, domain.IOError("read staging directory", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	seen := make(map[string]bool)
	perPage := make(map[int]int)
	var images []domain.ExtractedImage

	for _, name := range names {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		data, err := os.ReadFile(filepath.Join(staging, name))
		if err != nil {
			return nil, domain.IOError(fmt.Sprintf("read extracted image %s", name), err)
		}

		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			e.logger.Warn().Str("file", name).Err(err).Msg("Skipping undecodable image")
			continue
		}

		if cfg.Width < e.minWidth || cfg.Height < e.minHeight {
			e.logger.Debug().
				Str("file", name).
				Int("width", cfg.Width).
				Int("height", cfg.Height).
				Msg("Skipping small image")
			continue
		}

		sum := sha256.Sum256(data)
		hash := hex.EncodeToString(sum[:])
		if seen[hash] {
			e.logger.Debug().Str("file", name).Msg("Skipping duplicate image")
			continue
		}
		seen[hash] = true

		page := pageFromFilename(name)
		idx := perPage[page]
		perPage[page]++

		id := fmt.Sprintf("img_%d_%d_%s", page, idx, hash[:8])
		destPath := filepath.Join(destDir, id+strings.ToLower(filepath.Ext(name)))
		if err := os.WriteFile(destPath, data, 0o644); err != nil {
			return nil, domain.IOError(fmt.Sprintf("persist image %s", id), err)
		}

		images = append(images, domain.ExtractedImage{
			ID:         id,
			Path:       destPath,
			Width:      cfg.Width,
			Height:     cfg.Height,
			PageNumber: page,
			Format:     format,
			SizeBytes:  int64(len(data)),
		})
	}

	sort.SliceStable(images, func(i, j int) bool {
		return images[i].PageNumber < images[j].PageNumber
	})

	return images, nil
}

// pageFromFilename parses the page number out of an extracted image
// name of the form <base>_<page>_<resource>.<ext>. Unparseable names
// land on page 0.
func pageFromFilename(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return 0
	}

	page, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil || page < 0 {
		return 0
	}
	return page
}
