package export

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeCell(t *testing.T) {
	cases := map[string]string{
		"=SUM(A1:A3)": "'=SUM(A1:A3)",
		"+cmd":        "'+cmd",
		"-2+3":        "'-2+3",
		"@import":     "'@import",
		"\tx":         "'\tx",
		"\rx":         "'\nx",
		"-":           "'-",
		"-12.5":       "-12.5",
		"+44":         "+44",
		"1e5":         "1e5",
		"hello":       "hello",
		"a\r\nb":      "a\nb",
		"a\x00b":      "ab",
		"\x00=1":      "'=1",
		"":            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeCell(in), "%q", in)
	}
	assert.Equal(t, 42, SanitizeCell(42))
	assert.Equal(t, true, SanitizeCell(true))
	assert.Nil(t, SanitizeCell(nil))
}

func TestFormatValue(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	ts := time.Date(2024, 3, 7, 18, 5, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-07T19:05:00+01:00", formatValue(ts, berlin))
	assert.Equal(t, "", formatValue(time.Time{}, time.UTC))
	assert.Equal(t, "12.5", formatValue(12.5, time.UTC))
	assert.Equal(t, "7", formatValue(int64(7), time.UTC))
	assert.Equal(t, "false", formatValue(false, time.UTC))
	assert.Equal(t, "'=x", formatValue("=x", time.UTC))
}

func TestSanitizeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("output never starts with a formula trigger unless numeric", prop.ForAll(
		func(s string) bool {
			out := SanitizeCell(s).(string)
			if out == "" || !isTrigger(out[0]) {
				return true
			}
			return plainNumber.MatchString(out)
		},
		gen.AnyString(),
	))

	properties.Property("output never contains NUL or CR", prop.ForAll(
		func(s string) bool {
			out := SanitizeCell(s).(string)
			return !strings.Contains(out, "\x00") && !strings.Contains(out, "\r")
		},
		gen.AnyString(),
	))

	properties.Property("alphabetic strings pass through", prop.ForAll(
		func(s string) bool {
			return SanitizeCell(s) == s
		},
		gen.AlphaString(),
	))

	properties.Property("formula prefixes are quoted", prop.ForAll(
		func(s string) bool {
			return SanitizeCell("="+s) == "'="+s
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
