package extract

import (
	"strings"

	"github.com/joseph-ayodele/contract-extractor/internal/entity"
)

const truncationMarker = "\n…(truncated)"

// RenderedText is the query body for one group call.
type RenderedText struct {
	Text      string
	Kept      int // sections included in full or in part
	Dropped   int // sections dropped from the end to respect the cap
	Truncated bool
}

func renderHeader(meta entity.Metadata) string {
	pairs := meta.Pairs()
	if len(pairs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("=== METADATA ===\n")
	for _, kv := range pairs {
		b.WriteString(kv[0])
		b.WriteString(": ")
		b.WriteString(kv[1])
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func renderSection(s entity.Section) string {
	var b strings.Builder
	if s.IsPreamble() {
		b.WriteString("=== PREAMBLE ===\n")
	} else {
		b.WriteString("=== Section ")
		b.WriteString(s.Number)
		b.WriteString(": ")
		b.WriteString(s.Title)
		b.WriteString(" ===\n")
	}
	b.WriteString(s.Text)
	b.WriteString("\n\n")
	return b.String()
}

// RenderSections builds the metadata header plus sections, capped at maxChars.
// Over the cap, sections are dropped from the end; a single remaining section is cut.
// The result is a pure function of its inputs.
func RenderSections(meta entity.Metadata, sections []entity.Section, maxChars int) RenderedText {
	header := renderHeader(meta)
	parts := make([]string, len(sections))
	total := len(header)
	for i, s := range sections {
		parts[i] = renderSection(s)
		total += len(parts[i])
	}

	kept := len(parts)
	if maxChars > 0 {
		for kept > 1 && total > maxChars {
			kept--
			total -= len(parts[kept])
		}
	}

	var b strings.Builder
	b.Grow(total)
	b.WriteString(header)
	for _, p := range parts[:kept] {
		b.WriteString(p)
	}
	out := RenderedText{Text: b.String(), Kept: kept, Dropped: len(parts) - kept}

	if maxChars > 0 && len(out.Text) > maxChars {
		cut := maxChars - len(truncationMarker)
		if cut < 0 {
			cut = 0
		}
		out.Text = cutUTF8(out.Text, cut) + truncationMarker
		out.Truncated = true
	}
	return out
}

// cutUTF8 trims s to at most n bytes without splitting a rune.
func cutUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && n < len(s) && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
