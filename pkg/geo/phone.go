package geo

import "strings"

// NormalizePhone strips formatting from an international number and
// rewrites a leading 00 to +. Numbers without an international prefix are
// returned as digits only with ok=false.
func NormalizePhone(number string) (string, bool) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(number) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.', r == '(', r == ')', r == '/':
		default:
			return "", false
		}
	}
	s := b.String()
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	if !strings.HasPrefix(s, "+") || len(s) < 2 {
		return s, false
	}
	return s, true
}

// CountryByPhone finds the country whose dial code is the longest prefix of
// the number. Shared dial codes resolve to their primary country.
func CountryByPhone(number string) (Country, bool) {
	n, ok := NormalizePhone(number)
	if !ok {
		return Country{}, false
	}
	digits := len(n) - 1
	if digits > maxDigit {
		digits = maxDigit
	}
	for l := digits; l >= 1; l-- {
		codes, found := byDial[n[:l+1]]
		if !found {
			continue
		}
		code := codes[0]
		if len(codes) > 1 {
			if primary, ok := primaryByDialCode[n[:l+1]]; ok {
				code = primary
			}
		}
		return byCode[code], true
	}
	return Country{}, false
}

// CountriesByDialCode lists every country sharing the dial code.
func CountriesByDialCode(dial string) []Country {
	if !strings.HasPrefix(dial, "+") {
		dial = "+" + dial
	}
	codes := byDial[dial]
	out := make([]Country, 0, len(codes))
	for _, code := range codes {
		out = append(out, byCode[code])
	}
	return out
}
