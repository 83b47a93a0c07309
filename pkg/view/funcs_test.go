package view

import (
	"bytes"
	"html/template"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pluginkit/pkg/datetime"
	"pluginkit/pkg/edition"
	"pluginkit/pkg/settings"
)

func render(t *testing.T, funcs template.FuncMap, src string, data any) string {
	t.Helper()
	tmpl, err := template.New("t").Funcs(funcs).Parse(src)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, data))
	return buf.String()
}

func TestFuncsGeo(t *testing.T) {
	funcs := Funcs(Options{})
	out := render(t, funcs, `{{countryName "de"}}|{{dialCode "US"}}|{{flag "gb"}}|{{countryName "zz"}}`, nil)
	assert.Equal(t, "Germany|+1|🇬🇧|", out)
}

func TestFuncsDates(t *testing.T) {
	f, err := datetime.New(datetime.Config{DateOrder: datetime.OrderYMD, DateSeparator: "-", Timezone: "Europe/Berlin"})
	require.NoError(t, err)
	now := time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)
	funcs := Funcs(Options{Formatter: f, Now: func() time.Time { return now }})

	ts := time.Date(2024, 3, 7, 9, 30, 0, 0, time.UTC)
	out := render(t, funcs, `{{formatDate .}}|{{formatTime .}}|{{formatDateTime .}}|{{timeAgo .}}`, ts)
	assert.Equal(t, "2024-03-07|10:30|2024-03-07 10:30|2 hours ago", out)

	assert.Equal(t, "|", render(t, funcs, `{{formatDate .}}|{{timeAgo .}}`, time.Time{}))
	assert.Equal(t, "", render(t, funcs, `{{formatDate .}}`, "not a time"))
	assert.Equal(t, "2024-03-07", render(t, funcs, `{{formatDate .}}`, &ts))
}

func TestFuncsColorsAndBytes(t *testing.T) {
	funcs := Funcs(Options{})
	out := render(t, funcs, `{{colorHex "red"}}|{{colorFor "status" "enabled"}}|{{(badge "status" "pending").Color}}|{{colorHex "nope"}}`, nil)
	assert.Equal(t, "#ef4444|green|amber|", out)
	assert.Equal(t, "1.5 kB", render(t, funcs, `{{humanBytes .}}`, 1500))
	assert.Equal(t, "", render(t, funcs, `{{humanBytes .}}`, "x"))
}

func TestFuncsPluginState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seo-tools.yaml"), []byte("siteName: Acme\n"), 0o644))
	overrides, err := settings.LoadOverrides(dir, "seo-tools", "")
	require.NoError(t, err)

	funcs := Funcs(Options{Handle: "seo-tools", Edition: edition.Lite, Overrides: overrides})
	out := render(t, funcs,
		`{{displayName}}|{{editionAtLeast "lite"}}|{{editionAtLeast "pro"}}|{{editionAtLeast "bogus"}}|{{isOverridden "siteName"}}|{{isOverridden "limit"}}`, nil)
	assert.Equal(t, "Seo Tools|true|false|false|true|false", out)
}

func TestFuncsDefaults(t *testing.T) {
	funcs := Funcs(Options{Handle: "seo", DisplayName: "SEO"})
	out := render(t, funcs, `{{displayName}}|{{editionAtLeast "standard"}}|{{editionAtLeast "lite"}}|{{isOverridden "x"}}`, nil)
	assert.Equal(t, "SEO|true|false|false", out)
}
