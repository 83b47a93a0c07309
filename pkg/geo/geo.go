// Package geo holds static country lookup tables: ISO 3166-1 alpha-2 codes,
// English names, international dial codes and phone-number prefix matching.
// Tables are immutable after package initialization and safe for concurrent use.
package geo

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Country is one row of the lookup table.
type Country struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	DialCode string `json:"dialCode"`
}

// Option is a select-menu value/label pair.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var (
	byCode   map[string]Country
	byName   map[string]string
	byDial   map[string][]string
	sorted   []Country
	maxDigit int
)

// Names people commonly type instead of the table name.
var nameAliases = map[string]string{
	"usa":                      "US",
	"united states of america": "US",
	"uk":                       "GB",
	"great britain":            "GB",
	"czech republic":           "CZ",
	"turkey":                   "TR",
	"ivory coast":              "CI",
	"burma":                    "MM",
	"swaziland":                "SZ",
	"macedonia":                "MK",
	"holy see":                 "VA",
}

func init() {
	byCode = make(map[string]Country, len(countryTable))
	byName = make(map[string]string, len(countryTable)+len(nameAliases))
	byDial = make(map[string][]string)
	sorted = make([]Country, 0, len(countryTable))
	for _, c := range countryTable {
		byCode[c.Code] = c
		byName[strings.ToLower(c.Name)] = c.Code
		byDial[c.DialCode] = append(byDial[c.DialCode], c.Code)
		sorted = append(sorted, c)
		if n := len(c.DialCode) - 1; n > maxDigit {
			maxDigit = n
		}
	}
	for alias, code := range nameAliases {
		byName[alias] = code
	}
	col := collate.New(language.English)
	sort.SliceStable(sorted, func(i, j int) bool { return col.CompareString(sorted[i].Name, sorted[j].Name) < 0 })
}

// Countries returns every country sorted by English name.
func Countries() []Country {
	out := make([]Country, len(sorted))
	copy(out, sorted)
	return out
}

// Lookup returns the table row for an alpha-2 code, case-insensitively.
func Lookup(code string) (Country, bool) {
	c, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// CountryName returns the English name for an alpha-2 code.
func CountryName(code string) (string, bool) {
	c, ok := Lookup(code)
	return c.Name, ok
}

// CountryCode returns the alpha-2 code for an English name or common alias.
func CountryCode(name string) (string, bool) {
	code, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// DialCode returns the international dial code for an alpha-2 code.
func DialCode(code string) (string, bool) {
	c, ok := Lookup(code)
	return c.DialCode, ok
}

// LocalizedCountryName returns the CLDR name of the country in the given
// language, falling back to the English table name.
func LocalizedCountryName(code string, tag language.Tag) (string, bool) {
	c, ok := Lookup(code)
	if !ok {
		return "", false
	}
	region, err := language.ParseRegion(c.Code)
	if err != nil {
		return c.Name, true
	}
	if name := display.Regions(tag).Name(region); name != "" {
		return name, true
	}
	return c.Name, true
}

// Flag returns the regional-indicator emoji for an alpha-2 code, or "".
func Flag(code string) string {
	c, ok := Lookup(code)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, r := range c.Code {
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}

// DialCodeOptions returns "Country (+code)" select options sorted by name.
// The option value is the country code so shared dial codes stay distinct.
func DialCodeOptions() []Option {
	out := make([]Option, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, Option{Value: c.Code, Label: c.Name + " (" + c.DialCode + ")"})
	}
	return out
}

// CountryOptions returns code/name select options sorted by name.
func CountryOptions() []Option {
	out := make([]Option, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, Option{Value: c.Code, Label: c.Name})
	}
	return out
}
