// Package knowledge turns the company knowledge directory into retrievable chunks.
package knowledge

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// Document is one knowledge file as read from disk.
type Document struct {
	SourceID string // file name relative to the knowledge directory
	Text     string
	Section  string // "1.2" for 1.2-Category-Label.txt, empty otherwise
	Category string
	Label    string
}

// Chunk is a bounded window of a Document; Sequence keeps document order.
type Chunk struct {
	Text     string `json:"text"`
	SourceID string `json:"source_id"`
	Sequence int    `json:"sequence"`
	Category string `json:"category,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Heading renders "Category – Label" for chunks whose source follows the
// numbered naming scheme.
func (c Chunk) Heading() string {
	switch {
	case c.Category != "" && c.Label != "":
		return c.Category + " – " + c.Label
	case c.Category != "":
		return c.Category
	default:
		return c.Label
	}
}

var sectionedName = regexp.MustCompile(`^(\d+(?:\.\d+)*)-([^-]+)-(.+)$`)

// ParseSourceName derives section, category and label from names such as
// "1.2-OurServices-CloudMigration.txt".
func ParseSourceName(name string) (section, category, label string, ok bool) {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	m := sectionedName.FindStringSubmatch(base)
	if m == nil {
		return "", "", "", false
	}
	return m[1], humanize(m[2]), humanize(m[3]), true
}

// humanize splits on non-alphanumerics and camel-case boundaries.
func humanize(s string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if i > 0 && len(cur) > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return strings.Join(words, " ")
}
