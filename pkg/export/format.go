// Package export renders row-oriented tables as downloadable CSV, JSON and
// spreadsheet files, and runs larger exports asynchronously into blob storage.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Format identifies an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

var (
	// ErrFormatDisabled is returned when a known format is switched off in Options.
	ErrFormatDisabled = errors.New("export format disabled")
	// ErrUnsupportedFormat is returned for formats the package cannot produce.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// AllFormats lists every supported format in menu order.
func AllFormats() []Format {
	return []Format{FormatCSV, FormatJSON, FormatXLSX}
}

// ParseFormat resolves a user-supplied format name. Spreadsheet aliases map to xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel", "xls", "spreadsheet":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Extension is the filename extension without the dot.
func (f Format) Extension() string { return string(f) }

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Label is the menu label for the format.
func (f Format) Label() string {
	switch f {
	case FormatCSV:
		return "CSV"
	case FormatJSON:
		return "JSON"
	case FormatXLSX:
		return "Excel"
	default:
		return strings.ToUpper(string(f))
	}
}

// DefaultFilenameTemplate is used when Options.FilenameTemplate is empty.
const DefaultFilenameTemplate = "{plugin}-{name}-{date}"

// Options control which formats are offered and how files are named.
type Options struct {
	// Enabled restricts the offered formats. Empty enables all of them.
	Enabled          []Format `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	FilenameTemplate string   `json:"filenameTemplate" mapstructure:"filenameTemplate" yaml:"filenameTemplate"`
	Plugin           string   `json:"plugin" mapstructure:"plugin" yaml:"plugin"`
	// CSVBOM prefixes CSV output with a UTF-8 byte order mark for Excel.
	CSVBOM   bool             `json:"csvBom" mapstructure:"csvBom" yaml:"csvBom"`
	Now      func() time.Time `json:"-" mapstructure:"-" yaml:"-"`
	Location *time.Location   `json:"-" mapstructure:"-" yaml:"-"`
}

// FormatEnabled reports whether f may be produced under these options.
func (o Options) FormatEnabled(f Format) bool {
	if len(o.Enabled) == 0 {
		return isKnown(f)
	}
	for _, e := range o.Enabled {
		if e == f {
			return true
		}
	}
	return false
}

// EnabledFormats lists the formats offered under these options.
func (o Options) EnabledFormats() []Format {
	out := make([]Format, 0, 3)
	for _, f := range AllFormats() {
		if o.FormatEnabled(f) {
			out = append(out, f)
		}
	}
	return out
}

func (o Options) now() time.Time {
	now := time.Now()
	if o.Now != nil {
		now = o.Now()
	}
	return now.In(o.location())
}

func (o Options) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.UTC
}

func isKnown(f Format) bool {
	switch f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return true
	}
	return false
}

func checkFormat(f Format, opts Options) error {
	if !isKnown(f) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if !opts.FormatEnabled(f) {
		return fmt.Errorf("%w: %s", ErrFormatDisabled, f)
	}
	return nil
}
