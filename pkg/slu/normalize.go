package slu

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer applies phrase replacements to recognized text, typically to
// undo systematic recognizer mistakes ("vybni" -> "vypni").
type Normalizer struct {
	from []string
	to   []string
}

// NewNormalizer returns nil when there is nothing to replace. Longer
// patterns are applied first so they win over their own prefixes.
func NewNormalizer(replacements map[string]string) *Normalizer {
	lower := cases.Lower(language.Czech)
	keys := make([]string, 0, len(replacements))
	for k := range replacements {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	n := &Normalizer{}
	for _, k := range keys {
		n.from = append(n.from, lower.String(k))
		n.to = append(n.to, replacements[k])
	}
	return n
}

// Apply rewrites text. A nil normalizer returns text unchanged.
func (n *Normalizer) Apply(text string) string {
	if n == nil {
		return text
	}
	for i, from := range n.from {
		text = strings.ReplaceAll(text, from, n.to[i])
	}
	return text
}
