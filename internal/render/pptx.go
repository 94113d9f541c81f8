package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
)

// DeckBuilder renders a presentation plan into a PowerPoint package.
type DeckBuilder struct {
	logger *observability.Logger
}

// NewDeckBuilder creates a deck renderer.
func NewDeckBuilder(logger *observability.Logger) *DeckBuilder {
	return &DeckBuilder{logger: logger}
}

// slideMedia is one image embedded on a slide.
type slideMedia struct {
	relID    string
	partName string // under ppt/media/
	srcPath  string
}

// RenderDeck writes <chapter>_<group>_presentation.pptx into outputDir
// and returns the file path. Slides with an unresolved image slot
// render without an image.
func (b *DeckBuilder) RenderDeck(plan *domain.PresentationPlan, outputDir string) (string, error) {
	if len(plan.Slides) == 0 {
		return "", domain.RenderError("plan has no slides to render", nil)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", domain.RenderError("create output directory", err)
	}

	path := filepath.Join(outputDir,
		fmt.Sprintf("%s_%s_presentation.pptx", safeName(plan.ChapterName), safeName(plan.GroupName)))

	pkg, err := newArchive(path)
	if err != nil {
		return "", err
	}

	if err := b.writeParts(pkg, plan); err != nil {
		pkg.close()
		os.Remove(path)
		return "", err
	}

	if err := pkg.close(); err != nil {
		os.Remove(path)
		return "", err
	}

	b.logger.Info().
		Int("slides", len(plan.Slides)).
		Str("path", path).
		Msg("Rendered presentation deck")

	return path, nil
}

func (b *DeckBuilder) writeParts(pkg *archive, plan *domain.PresentationPlan) error {
	static := []struct {
		name string
		data string
	}{
		{"_rels/.rels", pptxRootRels},
		{"ppt/slideMasters/slideMaster1.xml", slideMasterXML},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRels},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayoutXML},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRels},
		{"ppt/notesMasters/notesMaster1.xml", notesMasterXML},
		{"ppt/notesMasters/_rels/notesMaster1.xml.rels", notesMasterRels},
		{"ppt/theme/theme1.xml", fmt.Sprintf(themeXML, "Lectern")},
		{"ppt/theme/theme2.xml", fmt.Sprintf(themeXML, "Lectern Notes")},
	}
	for _, part := range static {
		if err := pkg.addPart(part.name, []byte(part.data)); err != nil {
			return err
		}
	}

	if err := pkg.addPart("[Content_Types].xml", []byte(b.contentTypes(plan))); err != nil {
		return err
	}
	if err := pkg.addPart("ppt/presentation.xml", []byte(b.presentationXML(plan))); err != nil {
		return err
	}
	if err := pkg.addPart("ppt/_rels/presentation.xml.rels", []byte(b.presentationRels(plan))); err != nil {
		return err
	}

	mediaCount := 0
	for i := range plan.Slides {
		slide := &plan.Slides[i]
		num := i + 1

		var media *slideMedia
		if slide.Image != nil && slide.Image.Path != "" {
			mediaCount++
			media = &slideMedia{
				relID:    "rId2",
				partName: fmt.Sprintf("image%d%s", mediaCount, mediaExt(slide.Image.Path)),
				srcPath:  slide.Image.Path,
			}
			if err := pkg.addFilePart("ppt/media/"+media.partName, media.srcPath); err != nil {
				return err
			}
		}

		if err := pkg.addPart(fmt.Sprintf("ppt/slides/slide%d.xml", num), []byte(b.slideXML(plan, slide, media))); err != nil {
			return err
		}
		if err := pkg.addPart(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", num), []byte(slideRels(slide, media))); err != nil {
			return err
		}

		if slide.SpeakerNotes != "" {
			if err := pkg.addPart(fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", num), []byte(notesSlideXML(slide))); err != nil {
				return err
			}
			if err := pkg.addPart(fmt.Sprintf("ppt/notesSlides/_rels/notesSlide%d.xml.rels", num), []byte(notesSlideRels(num))); err != nil {
				return err
			}
		}
	}

	return nil
}

func mediaExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ext
	default:
		return ".png"
	}
}

func (b *DeckBuilder) contentTypes(plan *domain.PresentationPlan) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	sb.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	sb.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	sb.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	sb.WriteString(`<Default Extension="jpg" ContentType="image/jpeg"/>`)
	sb.WriteString(`<Default Extension="jpeg" ContentType="image/jpeg"/>`)
	sb.WriteString(`<Default Extension="gif" ContentType="image/gif"/>`)
	sb.WriteString(`<Default Extension="webp" ContentType="image/webp"/>`)
	sb.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/notesMasters/notesMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.notesMaster+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/theme/theme2.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)

	for i := range plan.Slides {
		num := i + 1
		fmt.Fprintf(&sb, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, num)
		if plan.Slides[i].SpeakerNotes != "" {
			fmt.Fprintf(&sb, `<Override PartName="/ppt/notesSlides/notesSlide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"/>`, num)
		}
	}

	sb.WriteString(`</Types>`)
	return sb.String()
}

func (b *DeckBuilder) presentationXML(plan *domain.PresentationPlan) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<p:presentation ` + nsDecls + `>`)
	sb.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	sb.WriteString(`<p:notesMasterIdLst><p:notesMasterId r:id="rId2"/></p:notesMasterIdLst>`)
	sb.WriteString(`<p:sldIdLst>`)
	for i := range plan.Slides {
		fmt.Fprintf(&sb, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, 3+i)
	}
	sb.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&sb, `<p:sldSz cx="%d" cy="%d"/>`, slideWidthEMU, slideHeightEMU)
	sb.WriteString(`<p:notesSz cx="6858000" cy="9144000"/>`)
	sb.WriteString(`</p:presentation>`)
	return sb.String()
}

func (b *DeckBuilder) presentationRels(plan *domain.PresentationPlan) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Relationships xmlns="` + relNS + `">`)
	sb.WriteString(`<Relationship Id="rId1" Type="` + officeRelNS + `/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	sb.WriteString(`<Relationship Id="rId2" Type="` + officeRelNS + `/notesMaster" Target="notesMasters/notesMaster1.xml"/>`)
	for i := range plan.Slides {
		fmt.Fprintf(&sb, `<Relationship Id="rId%d" Type="%s/slide" Target="slides/slide%d.xml"/>`, 3+i, officeRelNS, i+1)
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

func slideRels(slide *domain.Slide, media *slideMedia) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Relationships xmlns="` + relNS + `">`)
	sb.WriteString(`<Relationship Id="rId1" Type="` + officeRelNS + `/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>`)
	if media != nil {
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="%s/image" Target="../media/%s"/>`, media.relID, officeRelNS, media.partName)
	}
	if slide.SpeakerNotes != "" {
		fmt.Fprintf(&sb, `<Relationship Id="rId3" Type="%s/notesSlide" Target="../notesSlides/notesSlide%d.xml"/>`, officeRelNS, slide.Number)
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

func notesSlideRels(num int) string {
	return xmlHeader +
		`<Relationships xmlns="` + relNS + `">` +
		`<Relationship Id="rId1" Type="` + officeRelNS + `/notesMaster" Target="../notesMasters/notesMaster1.xml"/>` +
		fmt.Sprintf(`<Relationship Id="rId2" Type="%s/slide" Target="../slides/slide%d.xml"/>`, officeRelNS, num) +
		`</Relationships>`
}

func notesSlideXML(slide *domain.Slide) string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<p:notes ` + nsDecls + `>`)
	sb.WriteString(`<p:cSld><p:spTree>` + emptySpTree)
	sb.WriteString(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Notes Placeholder"/>`)
	sb.WriteString(`<p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr>`)
	sb.WriteString(`<p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr>`)
	sb.WriteString(`<p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/>`)
	for _, line := range strings.Split(slide.SpeakerNotes, "\n") {
		sb.WriteString(textParagraph(line, paraStyle{size: 12, color: colorDarkText, font: fontBody}))
	}
	sb.WriteString(`</p:txBody></p:sp>`)
	sb.WriteString(`</p:spTree></p:cSld>`)
	sb.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	sb.WriteString(`</p:notes>`)
	return sb.String()
}

// slideXML dispatches on slide type. Conclusion slides share the
// content layout.
func (b *DeckBuilder) slideXML(plan *domain.PresentationPlan, slide *domain.Slide, media *slideMedia) string {
	var shapes string
	switch slide.Type {
	case domain.SlideTypeTitle:
		shapes = titleSlideShapes(plan, slide, media)
	case domain.SlideTypeIndex:
		shapes = indexSlideShapes(slide)
	default:
		shapes = contentSlideShapes(slide, media)
	}

	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<p:sld ` + nsDecls + `>`)
	sb.WriteString(`<p:cSld><p:spTree>` + emptySpTree)
	sb.WriteString(shapes)
	sb.WriteString(bottomStripeShapes())
	sb.WriteString(`</p:spTree></p:cSld>`)
	sb.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	sb.WriteString(`</p:sld>`)
	return sb.String()
}

func titleSlideShapes(plan *domain.PresentationPlan, slide *domain.Slide, media *slideMedia) string {
	title := slide.Title
	if title == "" {
		title = plan.ChapterTitle
	}

	textWidth := emu(11.8)
	if media != nil {
		textWidth = emu(7.6)
	}

	var sb strings.Builder
	sb.WriteString(textBox(10, "Chapter Label", emu(0.6), emu(0.5), emu(6), emu(0.6),
		[]styledLine{{text: plan.ChapterName, style: paraStyle{size: 16, color: colorGray, font: fontBody}}}))
	sb.WriteString(textBox(11, "Title", emu(0.6), emu(1.6), textWidth, emu(1.8),
		[]styledLine{{text: title, style: paraStyle{size: 44, bold: true, color: colorOrange, font: fontTitle}}}))
	sb.WriteString(fillRect(12, "Separator", emu(0.6), emu(3.5), emu(5), emu(0.04), colorAmber))
	sb.WriteString(textBox(13, "Group", emu(0.6), emu(3.8), emu(4), emu(0.6),
		[]styledLine{{text: plan.GroupName, style: paraStyle{size: 18, color: colorGray, font: fontBody}}}))
	if media != nil {
		sb.WriteString(picture(14, media, emu(8.6), emu(1.5), emu(4), emu(3)))
	}
	return sb.String()
}

func indexSlideShapes(slide *domain.Slide) string {
	size, spacing := indexFontSize(len(slide.Content))

	lines := make([]styledLine, 0, len(slide.Content))
	for i, item := range slide.Content {
		lines = append(lines, styledLine{
			text:  fmt.Sprintf("%d. %s", i+1, stripIndexNumber(item)),
			style: paraStyle{size: size, color: colorDarkText, font: fontBody, spaceAfter: spacing},
		})
	}

	var sb strings.Builder
	sb.WriteString(slideTitleShapes(slide.Title))
	sb.WriteString(textBox(20, "Index", emu(0.8), emu(1.5), emu(11.2), emu(5.2), lines))
	return sb.String()
}

func contentSlideShapes(slide *domain.Slide, media *slideMedia) string {
	textWidth := emu(12)
	if media != nil {
		textWidth = emu(5.8)
	}

	lines := make([]styledLine, 0, len(slide.Content))
	for _, raw := range slide.Content {
		switch classifyLine(raw) {
		case lineHeader:
			lines = append(lines, styledLine{
				text:  strings.TrimSpace(raw),
				style: paraStyle{size: 18, bold: true, color: colorOrange, font: fontBody, spaceAfter: 6},
			})
		case lineSubPoint:
			lines = append(lines, styledLine{
				text:  "– " + stripBulletPrefix(raw),
				style: paraStyle{size: 15, color: colorGray, font: fontBody, indent: emu(0.4), spaceAfter: 4},
			})
		default:
			lines = append(lines, styledLine{
				text:  strings.TrimSpace(raw),
				style: paraStyle{size: 16, color: colorDarkText, font: fontBody, spaceAfter: 5},
			})
		}
	}

	var sb strings.Builder
	sb.WriteString(slideTitleShapes(slide.Title))
	sb.WriteString(textBox(30, "Content", emu(0.6), emu(1.5), textWidth, emu(5.2), lines))
	if media != nil {
		sb.WriteString(picture(31, media, emu(6.8), emu(1.6), emu(6), emu(4.2)))
	}
	return sb.String()
}

// slideTitleShapes draws the shared slide header: title plus separator.
func slideTitleShapes(title string) string {
	return textBox(2, "Slide Title", emu(0.6), emu(0.4), emu(12), emu(0.9),
		[]styledLine{{text: title, style: paraStyle{size: 28, bold: true, color: colorDarkText, font: fontTitle}}}) +
		fillRect(3, "Title Separator", emu(0.6), emu(1.3), emu(12), emu(0.03), colorAmber)
}

// bottomStripeShapes draws the footer stripe every slide carries.
func bottomStripeShapes() string {
	return fillRect(98, "Accent Line", 0, emu(7.14), slideWidthEMU, emu(0.06), colorOrange) +
		fillRect(99, "Bottom Stripe", 0, emu(7.2), slideWidthEMU, emu(0.3), colorStripe)
}

// paraStyle is the resolved paragraph styling for one line.
type paraStyle struct {
	size       int // points
	bold       bool
	underline  bool
	color      string
	font       string
	indent     int64 // EMU left margin
	spaceAfter int   // points
}

// styledLine pairs a text line with its paragraph style.
type styledLine struct {
	text  string
	style paraStyle
}

// textParagraph renders one paragraph, splitting inline bold and
// underline markers into separate runs.
func textParagraph(line string, style paraStyle) string {
	var sb strings.Builder
	sb.WriteString(`<a:p><a:pPr`)
	if style.indent > 0 {
		fmt.Fprintf(&sb, ` marL="%d"`, style.indent)
	}
	sb.WriteString(`>`)
	if style.spaceAfter > 0 {
		fmt.Fprintf(&sb, `<a:spcAft><a:spcPts val="%d"/></a:spcAft>`, style.spaceAfter*100)
	}
	sb.WriteString(`<a:buNone/></a:pPr>`)

	for _, run := range parseRuns(line) {
		sb.WriteString(`<a:r><a:rPr lang="en-US"`)
		fmt.Fprintf(&sb, ` sz="%d"`, style.size*100)
		if style.bold || run.Bold {
			sb.WriteString(` b="1"`)
		}
		if style.underline || run.Underline {
			sb.WriteString(` u="sng"`)
		}
		sb.WriteString(` dirty="0">`)
		fmt.Fprintf(&sb, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, style.color)
		fmt.Fprintf(&sb, `<a:latin typeface="%s"/>`, style.font)
		sb.WriteString(`</a:rPr>`)
		fmt.Fprintf(&sb, `<a:t>%s</a:t></a:r>`, esc(run.Text))
	}

	sb.WriteString(`</a:p>`)
	return sb.String()
}

// textBox renders a free-floating text shape.
func textBox(id int, name string, x, y, w, h int64, lines []styledLine) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`, id, esc(name))
	fmt.Fprintf(&sb, `<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, x, y, w, h)
	sb.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>`)
	sb.WriteString(`<p:txBody><a:bodyPr wrap="square"><a:normAutofit/></a:bodyPr><a:lstStyle/>`)
	for _, line := range lines {
		sb.WriteString(textParagraph(line.text, line.style))
	}
	sb.WriteString(`</p:txBody></p:sp>`)
	return sb.String()
}

// fillRect renders a borderless solid rectangle. Separators and the
// footer stripe are rectangles, not connector shapes.
func fillRect(id int, name string, x, y, w, h int64, color string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr/></p:nvSpPr>`, id, esc(name))
	fmt.Fprintf(&sb, `<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, x, y, w, h)
	sb.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom>`)
	fmt.Fprintf(&sb, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill><a:ln><a:noFill/></a:ln></p:spPr>`, color)
	sb.WriteString(`<p:txBody><a:bodyPr/><a:lstStyle/><a:p/></p:txBody></p:sp>`)
	return sb.String()
}

// picture embeds a slide image by relationship id.
func picture(id int, media *slideMedia, x, y, w, h int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="Slide Image"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`, id)
	fmt.Fprintf(&sb, `<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`, media.relID)
	fmt.Fprintf(&sb, `<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, x, y, w, h)
	sb.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`)
	return sb.String()
}
