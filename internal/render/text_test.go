package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want lineKind
	}{
		{"all caps short", "PHOTOSYNTHESIS BASICS", lineHeader},
		{"all caps with punctuation", "STAGE 2: CALVIN CYCLE", lineHeader},
		{"digit led caps", "3 LAWS OF MOTION", lineNormal},
		{"too long for header", "THIS LINE IS FAR TOO LONG TO BE TREATED AS A SECTION HEADER AT ALL", lineNormal},
		{"mixed case", "Photosynthesis basics", lineNormal},
		{"leading dash", "- light dependent reactions", lineSubPoint},
		{"leading bullet", "• chloroplast structure", lineSubPoint},
		{"indented", "  nested detail", lineSubPoint},
		{"tab indented", "\tnested detail", lineSubPoint},
		{"digits only", "2024", lineNormal},
		{"empty", "", lineNormal},
		{"plain sentence", "Plants absorb light through chlorophyll.", lineNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyLine(tt.line))
		})
	}
}

func TestIndexFontSizeBuckets(t *testing.T) {
	tests := []struct {
		items   int
		size    int
		spacing int
	}{
		{1, 18, 8},
		{6, 18, 8},
		{7, 16, 6},
		{10, 16, 6},
		{11, 14, 4},
		{25, 14, 4},
	}

	for _, tt := range tests {
		size, spacing := indexFontSize(tt.items)
		assert.Equal(t, tt.size, size, "items=%d", tt.items)
		assert.Equal(t, tt.spacing, spacing, "items=%d", tt.items)
	}
}

func TestStripIndexNumber(t *testing.T) {
	assert.Equal(t, "Light reactions", stripIndexNumber("1. Light reactions"))
	assert.Equal(t, "Calvin cycle", stripIndexNumber("12) Calvin cycle"))
	assert.Equal(t, "No numbering", stripIndexNumber("No numbering"))
	assert.Equal(t, "2024 in review", stripIndexNumber("2024 in review"))
}

func TestParseRuns(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		runs := parseRuns("nothing special here")
		assert.Equal(t, []textRun{{Text: "nothing special here"}}, runs)
	})

	t.Run("bold segment", func(t *testing.T) {
		runs := parseRuns("the **Calvin cycle** fixes carbon")
		assert.Equal(t, []textRun{
			{Text: "the "},
			{Text: "Calvin cycle", Bold: true},
			{Text: " fixes carbon"},
		}, runs)
	})

	t.Run("underline segment", func(t *testing.T) {
		runs := parseRuns("__chlorophyll__ absorbs light")
		assert.Equal(t, []textRun{
			{Text: "chlorophyll", Underline: true},
			{Text: " absorbs light"},
		}, runs)
	})

	t.Run("mixed markers", func(t *testing.T) {
		runs := parseRuns("**bold** and __underlined__")
		assert.Equal(t, []textRun{
			{Text: "bold", Bold: true},
			{Text: " and "},
			{Text: "underlined", Underline: true},
		}, runs)
	})

	t.Run("unterminated marker renders literally", func(t *testing.T) {
		runs := parseRuns("a **dangling marker")
		assert.Equal(t, []textRun{{Text: "a **dangling marker"}}, runs)
	})

	t.Run("empty line yields one empty run", func(t *testing.T) {
		runs := parseRuns("")
		assert.Equal(t, []textRun{{Text: ""}}, runs)
	})
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "KWC05", safeName("KWC05"))
	assert.Equal(t, "Cell_Biology", safeName("Cell Biology"))
	assert.Equal(t, "ab-c_1", safeName("  a/b-c_1?  "))
	assert.Equal(t, "untitled", safeName("///"))
}
