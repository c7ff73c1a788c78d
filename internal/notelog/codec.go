// Package notelog encodes and decodes the note log layered onto a contact's
// single free-text notes field. Entries are delimited by bracketed UTC
// timestamp tags of the form [2024-01-02T03:04:05.123Z]; text before the
// first tag (or a field with no tags at all) is legacy untagged content.
package notelog

import (
	"regexp"
	"strings"
	"time"

	"github.com/starford/othala/internal/models"
)

// tagRe matches one timestamp tag. Partial tags (wrong digit counts,
// missing trailing Z) never match and stay part of plain content.
var tagRe = regexp.MustCompile(`\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z\]`)

// entryJoiner separates serialized segments.
const entryJoiner = "\n\n"

// tagTimeLayout is the format used for freshly generated tags.
const tagTimeLayout = "2006-01-02T15:04:05.000Z"

// ParseSegments splits a raw notes string into ordered segments, one per
// timestamp tag in scan order (newest first, since new entries are
// prepended). It is total over all inputs: an empty string yields no
// segments, a string without tags yields a single untagged segment, and
// non-blank text before the first tag becomes its own untagged segment.
func ParseSegments(raw string) []models.NoteSegment {
	matches := tagRe.FindAllStringIndex(raw, -1)
	if len(matches) == 0 {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return nil
		}
		return []models.NoteSegment{{Content: trimmed}}
	}

	var segs []models.NoteSegment

	// Malformed/legacy data may carry text ahead of the first tag.
	if pre := strings.TrimSpace(raw[:matches[0][0]]); pre != "" {
		segs = append(segs, models.NoteSegment{Content: pre})
	}

	for i, m := range matches {
		end := len(raw)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		segs = append(segs, models.NoteSegment{
			Timestamp: raw[m[0]:m[1]],
			Content:   strings.TrimSpace(raw[m[1]:end]),
		})
	}
	return segs
}

// Serialize reconstructs the raw notes string from an ordered segment
// sequence. Tagged segments render as "tag\ncontent", untagged ones as
// bare content; entries are joined with a blank line. Reparsing the
// result yields an equivalent sequence (whitespace between entries is
// the only thing normalized).
func Serialize(segs []models.NoteSegment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Timestamp != "" {
			parts = append(parts, s.Timestamp+"\n"+s.Content)
		} else {
			parts = append(parts, s.Content)
		}
	}
	return strings.Join(parts, entryJoiner)
}

// FormatTag renders an instant as a bracketed tag (UTC, millisecond
// precision).
func FormatTag(now time.Time) string {
	return "[" + now.UTC().Format(tagTimeLayout) + "]"
}

// FormatNewEntry produces the "[tag]\ncontent" block for a new note entry
// stamped at now.
func FormatNewEntry(content string, now time.Time) string {
	return FormatTag(now) + "\n" + content
}

// PrependEntry places a formatted entry ahead of the existing raw notes
// string. The existing content is treated as an opaque suffix: it is not
// reparsed or reserialized on this path.
func PrependEntry(raw, entry string) string {
	if strings.TrimSpace(raw) == "" {
		return entry
	}
	return entry + entryJoiner + raw
}
