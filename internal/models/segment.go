package models

// NoteSegment is one entry of a contact's note log: a bracketed UTC
// timestamp tag plus the trimmed text that follows it. Timestamp is empty
// for legacy content written before the tagging convention (or imported
// from an external source). The exact tag string, brackets included, is
// the segment's identity for targeted edits.
type NoteSegment struct {
	Timestamp string `json:"timestamp,omitempty"`
	Content   string `json:"content"`
}

// Style is a bit set of inline text styles within a note segment.
type Style uint8

const (
	StyleBold Style = 1 << iota
	StyleItalic
	StyleUnderline
	StyleStrike
)

// Has reports whether s includes all bits of other.
func (s Style) Has(other Style) bool { return s&other == other }

// InlineSpan is a run of segment content carrying one style combination.
// Spans partition the decoded content with no gaps or overlaps. Link is
// the target URL when the run is a hyperlink; a linked run never nests
// inside another link.
type InlineSpan struct {
	Text  string `json:"text"`
	Style Style  `json:"style"`
	Link  string `json:"link,omitempty"`
}
