package notelog

import (
	"regexp"
	"strings"

	"github.com/starford/othala/internal/models"
)

// inlinePattern is one delimiter class of the markup subset. Patterns are
// tried in slice order; the leftmost match wins, with slice order breaking
// ties at the same position.
type inlinePattern struct {
	re    *regexp.Regexp
	style models.Style
	link  bool
}

var inlinePatterns = []inlinePattern{
	{re: regexp.MustCompile(`\[(.*?)\]\((.*?)\)`), link: true},
	{re: regexp.MustCompile(`~~(.+?)~~`), style: models.StyleStrike},
	{re: regexp.MustCompile(`\*\*(.+?)\*\*`), style: models.StyleBold},
	{re: regexp.MustCompile(`__(.+?)__`), style: models.StyleBold},
	{re: regexp.MustCompile(`_([^_\n]+)_`), style: models.StyleUnderline},
	{re: regexp.MustCompile(`\*([^*\n]+)\*`), style: models.StyleItalic},
}

var headingRe = regexp.MustCompile(`^#+\s*`)

// RenderContent decodes a segment's content into inline spans. Lines are
// decoded independently and rejoined with plain newline spans, so no
// delimiter pair ever matches across a line break. A line starting with
// one or more '#' characters is a heading: the markers are stripped, the
// rest of the line is decoded normally, and bold is forced onto every
// resulting span.
func RenderContent(content string) []models.InlineSpan {
	var spans []models.InlineSpan
	for i, line := range strings.Split(content, "\n") {
		if i > 0 {
			spans = append(spans, models.InlineSpan{Text: "\n"})
		}
		if loc := headingRe.FindStringIndex(line); loc != nil && loc[1] > 0 {
			lineSpans := decodeInline(line[loc[1]:])
			for j := range lineSpans {
				lineSpans[j].Style |= models.StyleBold
			}
			spans = append(spans, lineSpans...)
			continue
		}
		spans = append(spans, decodeInline(line)...)
	}
	return coalesce(spans)
}

// decodeInline consumes text left to right, emitting unstyled spans for
// plain runs and recursing into matched delimiter pairs so that nested
// markup (e.g. a link inside bold) keeps both styles.
func decodeInline(text string) []models.InlineSpan {
	var spans []models.InlineSpan
	for text != "" {
		var (
			bestPat inlinePattern
			bestLoc []int
		)
		for _, p := range inlinePatterns {
			loc := p.re.FindStringSubmatchIndex(text)
			if loc == nil {
				continue
			}
			if bestLoc == nil || loc[0] < bestLoc[0] {
				bestPat, bestLoc = p, loc
			}
		}
		if bestLoc == nil {
			spans = append(spans, models.InlineSpan{Text: text})
			break
		}
		if bestLoc[0] > 0 {
			spans = append(spans, models.InlineSpan{Text: text[:bestLoc[0]]})
		}

		inner := decodeInline(text[bestLoc[2]:bestLoc[3]])
		if bestPat.link {
			url := text[bestLoc[4]:bestLoc[5]]
			for i := range inner {
				// Links do not nest; the innermost link wins.
				if inner[i].Link == "" {
					inner[i].Link = url
				}
			}
		} else {
			for i := range inner {
				inner[i].Style |= bestPat.style
			}
		}
		spans = append(spans, inner...)
		text = text[bestLoc[1]:]
	}
	return spans
}

// coalesce drops empty spans and merges adjacent spans sharing the same
// style and link, preserving the gap-free partition of the content.
func coalesce(spans []models.InlineSpan) []models.InlineSpan {
	var out []models.InlineSpan
	for _, s := range spans {
		if s.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Style == s.Style && out[n-1].Link == s.Link {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}

// ToMarkdown encodes attributed runs back into the markup subset. The
// encoding is deliberately lossy: a linked run emits [text](url) and drops
// any other styles, bold+italic collapses to bold, and underline and
// strikethrough have no output form at all. This mirrors the on-disk
// convention and must not be unified with the decode grammar.
func ToMarkdown(spans []models.InlineSpan) string {
	var b strings.Builder
	for _, s := range spans {
		switch {
		case s.Link != "":
			b.WriteString("[")
			b.WriteString(s.Text)
			b.WriteString("](")
			b.WriteString(s.Link)
			b.WriteString(")")
		case s.Style.Has(models.StyleBold):
			b.WriteString("**")
			b.WriteString(s.Text)
			b.WriteString("**")
		case s.Style.Has(models.StyleItalic):
			b.WriteString("*")
			b.WriteString(s.Text)
			b.WriteString("*")
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}
