package domain

import "context"

// TextExtractor pulls the chapter text out of a source PDF.
type TextExtractor interface {
	Text(ctx context.Context, pdfPath string) (string, error)
}

// ImageExtractor pulls embedded images out of a source PDF, filtered
// and deduplicated, persisting them under destDir.
type ImageExtractor interface {
	Images(ctx context.Context, pdfPath, destDir string) ([]ExtractedImage, error)
}

// Captioner turns extracted images into catalog entries via a vision
// model. Per-image failures degrade to a default entry; the batch
// never aborts.
type Captioner interface {
	BuildCatalog(ctx context.Context, images []ExtractedImage, chapterName string) ([]CatalogEntry, error)
}

// Planner structures chapter text plus an image catalog into a
// presentation plan.
type Planner interface {
	Structure(ctx context.Context, chapterText string, catalog []CatalogEntry, chapterName, groupName string) (*PresentationPlan, error)
}

// ImageResolver resolves every slide's image slot to a file on disk,
// synthesizing images where the plan asks for them.
type ImageResolver interface {
	ResolveImages(ctx context.Context, plan *PresentationPlan, catalog []CatalogEntry, destDir string) error
}

// DeckRenderer renders a plan into a slide-deck file and returns its path.
type DeckRenderer interface {
	RenderDeck(plan *PresentationPlan, outputDir string) (string, error)
}

// GuideRenderer renders a plan into a study-guide file and returns its path.
type GuideRenderer interface {
	RenderGuide(plan *PresentationPlan, outputDir string) (string, error)
}
