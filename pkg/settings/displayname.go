package settings

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayName returns override when set, otherwise the handle title-cased
// with dashes and underscores as word breaks ("seo-tools" → "Seo Tools").
func DisplayName(handle, override string) string {
	if o := strings.TrimSpace(override); o != "" {
		return o
	}
	words := strings.FieldsFunc(handle, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// LowerDisplayName is DisplayName lowercased, for use mid-sentence.
func LowerDisplayName(handle, override string) string {
	return cases.Lower(language.English).String(DisplayName(handle, override))
}

// PluralDisplayName pluralizes DisplayName with simple English rules.
func PluralDisplayName(handle, override string) string {
	return Pluralize(DisplayName(handle, override))
}

// Pluralize applies simple English plural rules to the last word of s.
func Pluralize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasSuffix(lower, "y") && len(lower) > 1 && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2])):
		return s[:len(s)-1] + matchCase(s[len(s)-1:], "ies")
	case strings.HasSuffix(lower, "s"), strings.HasSuffix(lower, "x"),
		strings.HasSuffix(lower, "ch"), strings.HasSuffix(lower, "sh"), strings.HasSuffix(lower, "z"):
		return s + matchCase(s[len(s)-1:], "es")
	default:
		return s + matchCase(s[len(s)-1:], "s")
	}
}

func matchCase(ref, suffix string) string {
	if ref == strings.ToUpper(ref) && ref != strings.ToLower(ref) {
		return strings.ToUpper(suffix)
	}
	return suffix
}
