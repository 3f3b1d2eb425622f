package configutil

import (
	"slices"
	"strings"

	"github.com/harunnryd/domov/pkg/errorsx"
)

// Schema lists the keys a provider accepts in its settings map.
type Schema struct {
	Required     []string
	Optional     []string
	AllowUnknown bool
}

// SettingsError names the offending keys of a rejected settings map.
type SettingsError struct {
	Missing []string
	Unknown []string
}

func (e *SettingsError) Error() string {
	var b strings.Builder
	if len(e.Missing) > 0 {
		b.WriteString("missing: " + strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString("unknown: " + strings.Join(e.Unknown, ", "))
	}
	return b.String()
}

// ValidateSettings checks input against schema. Keys match ignoring case,
// underscores and hyphens, so "api_key", "apiKey" and "API-KEY" are one key.
// A blank string counts as missing. Failures are *SettingsError with
// reason config_invalid.
func ValidateSettings(input map[string]any, schema Schema) error {
	known := make(map[string]bool, len(schema.Required)+len(schema.Optional))
	for _, k := range schema.Optional {
		known[normalizeKey(k)] = true
	}
	for _, k := range schema.Required {
		known[normalizeKey(k)] = true
	}

	given := make(map[string]any, len(input))
	serr := &SettingsError{}
	for k, v := range input {
		nk := normalizeKey(k)
		given[nk] = v
		if !known[nk] && !schema.AllowUnknown {
			serr.Unknown = append(serr.Unknown, k)
		}
	}
	for _, k := range schema.Required {
		if v, ok := given[normalizeKey(k)]; !ok || blank(v) {
			serr.Missing = append(serr.Missing, k)
		}
	}
	if len(serr.Missing) == 0 && len(serr.Unknown) == 0 {
		return nil
	}
	slices.Sort(serr.Missing)
	slices.Sort(serr.Unknown)
	return errorsx.Wrap(serr, errorsx.ReasonConfigInvalid)
}

func blank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	}
	return false
}
