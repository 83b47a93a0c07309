package export

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 7, 18, 5, 9, 0, time.UTC)

func fixedOptions() Options {
	return Options{Plugin: "Formie Pro", Now: func() time.Time { return fixedNow }}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"csv": FormatCSV, " JSON ": FormatJSON, "xlsx": FormatXLSX,
		"excel": FormatXLSX, "xls": FormatXLSX, "Spreadsheet": FormatXLSX,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestFormatEnabled(t *testing.T) {
	all := Options{}
	assert.True(t, all.FormatEnabled(FormatXLSX))
	assert.False(t, all.FormatEnabled(Format("pdf")))
	assert.Equal(t, AllFormats(), all.EnabledFormats())

	some := Options{Enabled: []Format{FormatJSON}}
	assert.True(t, some.FormatEnabled(FormatJSON))
	assert.False(t, some.FormatEnabled(FormatCSV))
	assert.Equal(t, []Format{FormatJSON}, some.EnabledFormats())
}

func TestFilename(t *testing.T) {
	opts := fixedOptions()
	assert.Equal(t, "formie-pro-form-submissions-2024-03-07.csv", Filename(opts, "Form Submissions", FormatCSV))

	opts.FilenameTemplate = "{name}-{timestamp}"
	assert.Equal(t, "orders-1709834709.json", Filename(opts, "Orders", FormatJSON))

	opts.FilenameTemplate = "{name}_{datetime}_{format}"
	assert.Equal(t, "orders_2024-03-07-180509_xlsx.xlsx", Filename(opts, "Orders", FormatXLSX))

	opts.FilenameTemplate = "../{name}/{plugin}"
	assert.Equal(t, "a-b-formie-pro.csv", Filename(opts, "A B", FormatCSV))

	opts.FilenameTemplate = "{plugin}"
	opts.Plugin = ""
	assert.Equal(t, "export.csv", Filename(opts, "x", FormatCSV))
}

func TestFilenameUsesLocation(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	opts := Options{
		FilenameTemplate: "{date}",
		Location:         berlin,
		Now:              func() time.Time { return time.Date(2024, 3, 7, 23, 30, 0, 0, time.UTC) },
	}
	assert.Equal(t, "2024-03-08.csv", Filename(opts, "", FormatCSV))
}
