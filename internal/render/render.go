// Package render turns a presentation plan into OOXML documents: a
// PowerPoint deck and a Word study guide. Rendering is pure file
// assembly; no network calls, no provider involvement. Layout rules are
// deterministic and depend only on slide type and simple text heuristics.
package render

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/lectern-ai/lectern/internal/domain"
)

// Deck palette and fonts. Fixed styling, applied uniformly.
const (
	colorOrange   = "E07A2F"
	colorAmber    = "F5A623"
	colorGray     = "4A4A4A"
	colorDarkText = "2D2D2D"
	colorStripe   = "B4783C" // RGB 180,120,60
	colorWhite    = "FFFFFF"

	fontTitle = "Calibri Light"
	fontBody  = "Calibri"
)

// emuPerInch converts inches to English Metric Units.
const emuPerInch = 914400

// Slide canvas, 16:9.
const (
	slideWidthEMU  = 12192000
	slideHeightEMU = 6858000
)

func emu(inches float64) int64 {
	return int64(inches * emuPerInch)
}

// archive writes OOXML package parts into a zip on disk.
type archive struct {
	file *os.File
	zw   *zip.Writer
}

func newArchive(path string) (*archive, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("create output file %s", path), err)
	}
	return &archive{file: file, zw: zip.NewWriter(file)}, nil
}

// addPart writes one named part into the package.
func (a *archive) addPart(name string, data []byte) error {
	w, err := a.zw.Create(name)
	if err != nil {
		return domain.RenderError(fmt.Sprintf("create package part %s", name), err)
	}
	if _, err := w.Write(data); err != nil {
		return domain.RenderError(fmt.Sprintf("write package part %s", name), err)
	}
	return nil
}

// addFilePart copies a file from disk into the package.
func (a *archive) addFilePart(name, srcPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return domain.RenderError(fmt.Sprintf("read media file %s", srcPath), err)
	}
	return a.addPart(name, data)
}

func (a *archive) close() error {
	if err := a.zw.Close(); err != nil {
		a.file.Close()
		return domain.RenderError("finalize package", err)
	}
	if err := a.file.Close(); err != nil {
		return domain.RenderError("close output file", err)
	}
	return nil
}

// esc escapes text for embedding in an XML element.
func esc(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return ""
	}
	return b.String()
}

// safeName reduces a free-text label to something usable in a filename.
func safeName(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}
