package catalog

import "strings"

// markupReplacer neutralizes the characters WhatsApp and the generative
// backend interpret as markup or instructions: backtick, asterisk,
// underscore, angle brackets and braces. Removal rather than escaping keeps
// the serialized catalog inert inside the grounding context.
var markupReplacer = strings.NewReplacer(
	"`", "",
	"*", "",
	"_", " ",
	"<", "",
	">", "",
	"{", "(",
	"}", ")",
)

// SanitizeText neutralizes markup characters and trims surrounding whitespace.
func SanitizeText(s string) string {
	return strings.TrimSpace(markupReplacer.Replace(s))
}

// sanitizeAll sanitizes every string of a slice, dropping entries that end
// up empty, and caps the result length.
func sanitizeAll(values []string, limit int) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, min(len(values), limit))
	for _, v := range values {
		if len(result) == limit {
			break
		}
		if clean := SanitizeText(v); clean != "" {
			result = append(result, clean)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
