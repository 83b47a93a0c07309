package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var plainNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// SanitizeCell neutralizes spreadsheet formula injection. Strings starting
// with = + - @ tab or carriage return are prefixed with a single quote unless
// they are plain numbers. NUL bytes are dropped and line endings become LF.
// Non-string values are returned unchanged.
func SanitizeCell(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return sanitizeString(s)
}

func sanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if s != "" && isTrigger(s[0]) && !plainNumber.MatchString(s) {
		s = "'" + s
	}
	return newlines.Replace(s)
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func isTrigger(c byte) bool {
	switch c {
	case '=', '+', '-', '@', '\t', '\r':
		return true
	}
	return false
}

// formatValue renders a cell for text formats.
func formatValue(value any, loc *time.Location) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return sanitizeString(v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.In(loc).Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return formatValue(*v, loc)
	case bool:
		return strconv.FormatBool(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case fmt.Stringer:
		return sanitizeString(v.String())
	default:
		return sanitizeString(fmt.Sprint(v))
	}
}
