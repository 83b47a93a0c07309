package export

import (
	"strconv"
	"strings"
)

// Filename expands opts.FilenameTemplate for a table name and format. The
// result is lowercased, restricted to [a-z0-9._-] and given the format extension.
func Filename(opts Options, name string, format Format) string {
	tmpl := opts.FilenameTemplate
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultFilenameTemplate
	}
	now := opts.now()
	r := strings.NewReplacer(
		"{plugin}", opts.Plugin,
		"{name}", name,
		"{date}", now.Format("2006-01-02"),
		"{datetime}", now.Format("2006-01-02-150405"),
		"{timestamp}", strconv.FormatInt(now.Unix(), 10),
		"{format}", string(format),
	)
	base := slugify(r.Replace(tmpl))
	if base == "" {
		base = "export"
	}
	return base + "." + format.Extension()
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-.")
}
