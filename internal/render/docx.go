package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
)

// maxKeyConcepts caps the key-concept list in the study guide.
const maxKeyConcepts = 10

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

const docxContentTypes = xmlHeader +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`</Types>`

const docxRootRels = xmlHeader +
	`<Relationships xmlns="` + relNS + `">` +
	`<Relationship Id="rId1" Type="` + officeRelNS + `/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

const docxDocumentRels = xmlHeader +
	`<Relationships xmlns="` + relNS + `">` +
	`<Relationship Id="rId1" Type="` + officeRelNS + `/styles" Target="styles.xml"/>` +
	`</Relationships>`

const docxStyles = xmlHeader +
	`<w:styles ` + wordNS + `>` +
	`<w:docDefaults><w:rPrDefault><w:rPr>` +
	`<w:rFonts w:ascii="` + fontBody + `" w:hAnsi="` + fontBody + `"/>` +
	`<w:sz w:val="22"/>` +
	`</w:rPr></w:rPrDefault></w:docDefaults>` +
	`</w:styles>`

// GuideBuilder renders a presentation plan into a Word study guide.
type GuideBuilder struct {
	logger *observability.Logger
}

// NewGuideBuilder creates a study-guide renderer.
func NewGuideBuilder(logger *observability.Logger) *GuideBuilder {
	return &GuideBuilder{logger: logger}
}

// RenderGuide writes <chapter>_<group>_studyguide.docx into outputDir
// and returns the file path.
func (b *GuideBuilder) RenderGuide(plan *domain.PresentationPlan, outputDir string) (string, error) {
	if len(plan.Slides) == 0 {
		return "", domain.RenderError("plan has no slides to render", nil)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", domain.RenderError("create output directory", err)
	}

	path := filepath.Join(outputDir,
		fmt.Sprintf("%s_%s_studyguide.docx", safeName(plan.ChapterName), safeName(plan.GroupName)))

	pkg, err := newArchive(path)
	if err != nil {
		return "", err
	}

	parts := []struct {
		name string
		data string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRootRels},
		{"word/_rels/document.xml.rels", docxDocumentRels},
		{"word/styles.xml", docxStyles},
		{"word/document.xml", b.documentXML(plan)},
	}
	for _, part := range parts {
		if err := pkg.addPart(part.name, []byte(part.data)); err != nil {
			pkg.close()
			os.Remove(path)
			return "", err
		}
	}

	if err := pkg.close(); err != nil {
		os.Remove(path)
		return "", err
	}

	b.logger.Info().
		Int("slides", len(plan.Slides)).
		Str("path", path).
		Msg("Rendered study guide")

	return path, nil
}

func (b *GuideBuilder) documentXML(plan *domain.PresentationPlan) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<w:document ` + wordNS + `><w:body>`)

	// Title page.
	sb.WriteString(wordPara(plan.ChapterName, wordStyle{size: 14, color: colorGray}))
	title := plan.ChapterTitle
	if title == "" {
		title = plan.ChapterName
	}
	sb.WriteString(wordPara(title, wordStyle{size: 36, bold: true, color: colorOrange}))
	sb.WriteString(wordPara("Study Guide — "+plan.GroupName, wordStyle{size: 16, color: colorGray}))
	sb.WriteString(wordPara("", wordStyle{}))

	// Study summary.
	if plan.StudySummary != "" {
		sb.WriteString(wordPara("Summary", wordStyle{size: 18, bold: true, color: colorOrange}))
		for _, line := range strings.Split(plan.StudySummary, "\n") {
			sb.WriteString(wordPara(line, wordStyle{size: 11}))
		}
		sb.WriteString(wordPara("", wordStyle{}))
	}

	// Key concepts, capped.
	if len(plan.KeyConcepts) > 0 {
		sb.WriteString(wordPara("Key Concepts", wordStyle{size: 18, bold: true, color: colorOrange}))
		concepts := plan.KeyConcepts
		if len(concepts) > maxKeyConcepts {
			concepts = concepts[:maxKeyConcepts]
		}
		for i, concept := range concepts {
			sb.WriteString(wordPara(fmt.Sprintf("%d. %s", i+1, concept), wordStyle{size: 11}))
		}
		sb.WriteString(wordPara("", wordStyle{}))
	}

	// Per-slide presentation guide with durations.
	totalMinutes := (plan.TotalDurationSeconds() + 59) / 60
	sb.WriteString(wordPara("Presentation Guide", wordStyle{size: 18, bold: true, color: colorOrange}))
	sb.WriteString(wordPara(fmt.Sprintf("Estimated total duration: %d minutes across %d slides.",
		totalMinutes, len(plan.Slides)), wordStyle{size: 11, color: colorGray}))

	for _, slide := range plan.Slides {
		sb.WriteString(wordPara(fmt.Sprintf("Slide %d: %s (%ds)", slide.Number, slide.Title, slide.DurationSeconds),
			wordStyle{size: 13, bold: true}))
		for _, line := range slide.Content {
			sb.WriteString(wordPara("• "+strings.TrimSpace(line), wordStyle{size: 10, color: colorGray}))
		}
		if slide.SpeakerNotes != "" {
			for _, line := range strings.Split(slide.SpeakerNotes, "\n") {
				sb.WriteString(wordPara(line, wordStyle{size: 11}))
			}
		}
		sb.WriteString(wordPara("", wordStyle{}))
	}

	sb.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>`)
	sb.WriteString(`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr>`)
	sb.WriteString(`</w:body></w:document>`)
	return sb.String()
}

// wordStyle is the run styling for one guide paragraph.
type wordStyle struct {
	size  int // points; zero keeps the document default
	bold  bool
	color string
}

func wordPara(text string, style wordStyle) string {
	var sb strings.Builder
	sb.WriteString(`<w:p><w:r><w:rPr>`)
	if style.bold {
		sb.WriteString(`<w:b/>`)
	}
	if style.color != "" {
		fmt.Fprintf(&sb, `<w:color w:val="%s"/>`, style.color)
	}
	if style.size > 0 {
		// Word measures run sizes in half-points.
		fmt.Fprintf(&sb, `<w:sz w:val="%d"/>`, style.size*2)
	}
	sb.WriteString(`</w:rPr>`)
	fmt.Fprintf(&sb, `<w:t xml:space="preserve">%s</w:t>`, esc(text))
	sb.WriteString(`</w:r></w:p>`)
	return sb.String()
}
