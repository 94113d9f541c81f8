package render

import (
	"regexp"
	"strings"
	"unicode"
)

// lineKind classifies a content line for layout.
type lineKind int

const (
	lineNormal lineKind = iota
	lineHeader
	lineSubPoint
)

// headerMaxLen bounds how long an ALL-CAPS line can be and still count
// as a section header.
const headerMaxLen = 50

// classifyLine applies the content-slide text heuristics: short
// ALL-CAPS lines are section headers, lines led by a dash or bullet
// (or indented) are sub-points, everything else is a normal bullet.
func classifyLine(line string) lineKind {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return lineNormal
	}

	if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "•") ||
		strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t") {
		return lineSubPoint
	}

	if isHeaderLine(trimmed) {
		return lineHeader
	}
	return lineNormal
}

// isHeaderLine reports whether a trimmed line reads like a section
// header: all caps, short, carries at least one letter and does not
// start with a digit.
func isHeaderLine(trimmed string) bool {
	if len(trimmed) >= headerMaxLen {
		return false
	}

	runes := []rune(trimmed)
	if unicode.IsDigit(runes[0]) {
		return false
	}

	hasLetter := false
	for _, r := range runes {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}

// stripBulletPrefix removes the leading dash or bullet from a sub-point.
func stripBulletPrefix(line string) string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "-")
	trimmed = strings.TrimPrefix(trimmed, "•")
	return strings.TrimSpace(trimmed)
}

// indexNumberPrefix matches a pre-existing "1." or "2)" numbering the
// model sometimes adds to index lines; the renderer numbers them itself.
var indexNumberPrefix = regexp.MustCompile(`^\d+[.)]\s*`)

// stripIndexNumber removes a leading number from an index item.
func stripIndexNumber(line string) string {
	return indexNumberPrefix.ReplaceAllString(strings.TrimSpace(line), "")
}

// indexFontSize buckets the index font by item count: few items render
// large, crowded lists shrink. Returns (points, space-after points).
func indexFontSize(items int) (int, int) {
	switch {
	case items <= 6:
		return 18, 8
	case items <= 10:
		return 16, 6
	default:
		return 14, 4
	}
}

// textRun is a fragment of a line with inline styling resolved.
type textRun struct {
	Text      string
	Bold      bool
	Underline bool
}

// parseRuns splits inline **bold** and __underline__ markers into
// styled runs. Unterminated markers render literally.
func parseRuns(line string) []textRun {
	var runs []textRun
	rest := line

	for rest != "" {
		boldIdx := strings.Index(rest, "**")
		underIdx := strings.Index(rest, "__")

		idx, marker := -1, ""
		if boldIdx >= 0 && (underIdx < 0 || boldIdx <= underIdx) {
			idx, marker = boldIdx, "**"
		} else if underIdx >= 0 {
			idx, marker = underIdx, "__"
		}

		if idx < 0 {
			runs = append(runs, textRun{Text: rest})
			break
		}

		end := strings.Index(rest[idx+2:], marker)
		if end < 0 {
			runs = append(runs, textRun{Text: rest})
			break
		}

		if idx > 0 {
			runs = append(runs, textRun{Text: rest[:idx]})
		}
		styled := textRun{Text: rest[idx+2 : idx+2+end]}
		if marker == "**" {
			styled.Bold = true
		} else {
			styled.Underline = true
		}
		if styled.Text != "" {
			runs = append(runs, styled)
		}
		rest = rest[idx+2+end+2:]
	}

	if len(runs) == 0 {
		runs = append(runs, textRun{Text: ""})
	}
	return runs
}
