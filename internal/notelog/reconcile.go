package notelog

import (
	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// ApplyEdit replaces the content of the segment identified by target (the
// exact tag string, brackets included) and returns the reserialized notes
// string. All other segments survive byte-for-byte apart from normalized
// joiners. When duplicate tags exist the first match in scan order is the
// one edited. Returns apperr.ErrSegmentNotFound when no segment carries
// the target tag; the input is never partially mutated.
func ApplyEdit(raw, target, newContent string) (string, error) {
	segs := ParseSegments(raw)
	for i := range segs {
		if segs[i].Timestamp != "" && segs[i].Timestamp == target {
			segs[i].Content = newContent
			return Serialize(segs), nil
		}
	}
	return "", apperr.ErrSegmentNotFound
}

// RenderedSegment pairs a segment with its decoded inline spans, ready for
// a presentation layer.
type RenderedSegment struct {
	Timestamp string              `json:"timestamp,omitempty"`
	Content   string              `json:"content"`
	Spans     []models.InlineSpan `json:"spans"`
}

// RenderSegments parses raw and decodes every segment's content.
func RenderSegments(raw string) []RenderedSegment {
	segs := ParseSegments(raw)
	out := make([]RenderedSegment, len(segs))
	for i, s := range segs {
		out[i] = RenderedSegment{
			Timestamp: s.Timestamp,
			Content:   s.Content,
			Spans:     RenderContent(s.Content),
		}
	}
	return out
}
