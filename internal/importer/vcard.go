// Package importer feeds contacts into the book from a watched drop
// directory of vCard files.
package importer

import (
	"fmt"
	"strings"

	"github.com/starford/othala/internal/models"
)

// ParseVCards extracts contacts from vCard 3.0 data. Only the subset the
// book can hold is read (N/FN/ORG/TEL/EMAIL/NOTE); unknown properties are
// skipped. A single file may carry multiple cards.
//
// NOTE payloads land in the contact's raw notes field untagged, the same
// shape as legacy content that predates the timestamp convention.
func ParseVCards(data []byte) ([]*models.Contact, error) {
	lines := unfold(string(data))

	var (
		out     []*models.Contact
		current *models.Contact
	)
	for _, line := range lines {
		name, params, value, ok := splitProperty(line)
		if !ok {
			continue
		}
		_ = params

		switch name {
		case "BEGIN":
			if strings.EqualFold(value, "VCARD") {
				current = &models.Contact{}
			}
		case "END":
			if current != nil && strings.EqualFold(value, "VCARD") {
				if current.GivenName != "" || current.FamilyName != "" || current.Org != "" {
					out = append(out, current)
				}
				current = nil
			}
		case "N":
			if current == nil {
				continue
			}
			// Family;Given;Additional;Prefix;Suffix
			parts := strings.Split(value, ";")
			if len(parts) > 0 {
				current.FamilyName = unescape(parts[0])
			}
			if len(parts) > 1 {
				current.GivenName = unescape(parts[1])
			}
		case "FN":
			if current == nil || current.GivenName != "" || current.FamilyName != "" {
				continue
			}
			// Fall back to splitting the formatted name when N is absent.
			fn := unescape(value)
			if i := strings.LastIndex(fn, " "); i > 0 {
				current.GivenName = fn[:i]
				current.FamilyName = fn[i+1:]
			} else {
				current.GivenName = fn
			}
		case "ORG":
			if current != nil {
				current.Org = unescape(strings.SplitN(value, ";", 2)[0])
			}
		case "TEL":
			if current != nil && value != "" {
				current.Phones = append(current.Phones, unescape(value))
			}
		case "EMAIL":
			if current != nil && value != "" {
				current.Emails = append(current.Emails, unescape(value))
			}
		case "NOTE":
			if current != nil {
				current.Notes = unescape(value)
			}
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("importer: no contacts in vcard data")
	}
	return out, nil
}

// unfold joins continuation lines (RFC 6350: a line starting with space or
// tab continues the previous one) and normalizes line endings.
func unfold(s string) []string {
	raw := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	var lines []string
	for _, l := range raw {
		if (strings.HasPrefix(l, " ") || strings.HasPrefix(l, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += l[1:]
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// splitProperty breaks "NAME;PARAM=V:value" into its pieces.
func splitProperty(line string) (name, params, value string, ok bool) {
	i := strings.Index(line, ":")
	if i < 0 {
		return "", "", "", false
	}
	left, value := line[:i], line[i+1:]
	if j := strings.Index(left, ";"); j >= 0 {
		return strings.ToUpper(left[:j]), left[j+1:], value, true
	}
	return strings.ToUpper(left), "", value, true
}

// unescape reverses vCard text escaping.
func unescape(s string) string {
	r := strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)
	return r.Replace(s)
}
