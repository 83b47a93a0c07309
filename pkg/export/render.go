package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Column maps a row key to its header label.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
}

func (c Column) header() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Key
}

// Row is one exported record keyed by Column.Key.
type Row map[string]any

// Table is a named set of rows with optional explicit columns.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns,omitempty"`
	Rows    []Row    `json:"rows"`
}

// ResolvedColumns returns the explicit columns or, when none are set, the
// sorted union of row keys.
func (t Table) ResolvedColumns() []Column {
	if len(t.Columns) > 0 {
		return t.Columns
	}
	seen := make(map[string]struct{})
	for _, row := range t.Rows {
		for k := range row {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	cols := make([]Column, len(keys))
	for i, k := range keys {
		cols[i] = Column{Key: k}
	}
	return cols
}

// Artifact is a rendered export file.
type Artifact struct {
	Filename    string
	Format      Format
	ContentType string
	Payload     []byte
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Render encodes table in the requested format.
func Render(table Table, format Format, opts Options) (Artifact, error) {
	if err := checkFormat(format, opts); err != nil {
		return Artifact{}, err
	}
	cols := table.ResolvedColumns()
	var (
		payload []byte
		err     error
	)
	switch format {
	case FormatCSV:
		payload, err = encodeCSV(cols, table.Rows, opts)
	case FormatJSON:
		payload, err = encodeJSON(cols, table.Rows, opts)
	case FormatXLSX:
		payload, err = encodeXLSX(table.Name, cols, table.Rows, opts)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", format, err)
	}
	return Artifact{
		Filename:    Filename(opts, table.Name, format),
		Format:      format,
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}

// Serve renders table and writes it as an attachment download.
func Serve(w http.ResponseWriter, table Table, format Format, opts Options) error {
	artifact, err := Render(table, format, opts)
	if err != nil {
		return err
	}
	writeAttachment(w, artifact.Filename, artifact.ContentType, int64(len(artifact.Payload)))
	_, err = w.Write(artifact.Payload)
	return err
}

func writeAttachment(w http.ResponseWriter, filename, contentType string, size int64) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if size >= 0 {
		w.Header().Set("Content-Length", fmt.Sprint(size))
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
}

func encodeCSV(cols []Column, rows []Row, opts Options) ([]byte, error) {
	buf := &bytes.Buffer{}
	if opts.CSVBOM {
		buf.Write(utf8BOM)
	}
	writer := csv.NewWriter(buf)
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = sanitizeString(c.header())
	}
	if err := writer.Write(headers); err != nil {
		return nil, err
	}
	loc := opts.location()
	for _, row := range rows {
		record := make([]string, len(cols))
		for i, c := range cols {
			record[i] = formatValue(row[c.Key], loc)
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// encodeJSON writes an array of objects keyed by column label in column order.
func encodeJSON(cols []Column, rows []Row, opts Options) ([]byte, error) {
	buf := &bytes.Buffer{}
	keys := make([][]byte, len(cols))
	for i, c := range cols {
		k, err := json.Marshal(c.header())
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	loc := opts.location()
	buf.WriteByte('[')
	for r, row := range rows {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for i, c := range cols {
			if i > 0 {
				buf.WriteByte(',')
			}
			v := row[c.Key]
			if t, ok := v.(time.Time); ok {
				v = t.In(loc)
			}
			val, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", c.Key, err)
			}
			buf.Write(keys[i])
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

const (
	maxSheetName  = 31
	minColWidth   = 8
	maxColWidth   = 60
	defaultSheet  = "Sheet1"
	invalidSheets = `[]:*?/\`
)

func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidSheets, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	for utf8.RuneCountInString(name) > maxSheetName {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	if name == "" {
		return defaultSheet
	}
	return name
}

func encodeXLSX(name string, cols []Column, rows []Row, opts Options) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(name)
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, err
		}
	}

	widths := make([]int, len(cols))
	header := make([]any, len(cols))
	for i, c := range cols {
		label := sanitizeString(c.header())
		header[i] = label
		widths[i] = utf8.RuneCountInString(label)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	loc := opts.location()
	for r, row := range rows {
		values := make([]any, len(cols))
		for i, c := range cols {
			v := xlsxValue(row[c.Key], loc)
			values[i] = v
			if n := utf8.RuneCountInString(fmt.Sprint(v)); v != nil && n > widths[i] {
				widths[i] = n
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	if len(cols) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, err
		}
		last, err := excelize.CoordinatesToCellName(len(cols), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return nil, err
		}
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return nil, err
		}
		for i, w := range widths {
			col, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetColWidth(sheet, col, col, clampWidth(w)); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xlsxValue(v any, loc *time.Location) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return sanitizeString(t)
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return t.In(loc).Format("2006-01-02 15:04:05")
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return t
	default:
		return formatValue(v, loc)
	}
}

func clampWidth(n int) float64 {
	w := n + 2
	if w < minColWidth {
		w = minColWidth
	}
	if w > maxColWidth {
		w = maxColWidth
	}
	return float64(w)
}
