package task

import (
	"fmt"
	"regexp"

	"github.com/abatilo/abbrlink/internal/hash"
)

// Extractor finds an already assigned identifier in a document's raw text.
type Extractor struct {
	pattern *regexp.Regexp
}

// NewExtractor builds an Extractor for identifiers of the given length and
// encoding. Hex identifiers must be exactly length characters; decimal ones
// may be shorter.
func NewExtractor(length int, enc hash.Encoding) *Extractor {
	value := fmt.Sprintf(`[a-fA-F0-9]{%d}`, length)
	if enc == hash.EncodingDecimal {
		value = fmt.Sprintf(`[0-9]{1,%d}`, length)
	}
	return &Extractor{
		pattern: regexp.MustCompile(`(?m)^[ \t]*abbrlink:[ \t]*["']?(` + value + `)["']?[ \t]*\r?$`),
	}
}

// Extract returns the first matching identifier in text.
func (e *Extractor) Extract(text string) (string, bool) {
	m := e.pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Extract is a convenience for NewExtractor(length, enc).Extract(text).
func Extract(text string, length int, enc hash.Encoding) (string, bool) {
	return NewExtractor(length, enc).Extract(text)
}
