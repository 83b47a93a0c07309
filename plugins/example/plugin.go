// Package example is a redirect manager plugin used as the reference
// consumer of pluginkit's public packages.
package example

import (
	"embed"
	"io/fs"
	"sort"
	"time"

	"golang.org/x/text/language"

	"pluginkit/pkg/export"
	"pluginkit/pkg/plugin"
)

//go:embed templates
var templateFS embed.FS

// Handle is the plugin handle.
const Handle = "redirects"

// Plugin implements plugin.Plugin and every optional provider.
type Plugin struct{}

// New constructs the plugin.
func New() Plugin { return Plugin{} }

var (
	_ plugin.Plugin              = Plugin{}
	_ plugin.TemplateProvider    = Plugin{}
	_ plugin.TranslationProvider = Plugin{}
	_ plugin.GlobalsProvider     = Plugin{}
)

func (Plugin) Handle() string  { return Handle }
func (Plugin) Name() string    { return "Redirect Manager" }
func (Plugin) Version() string { return "1.4.0" }

// Templates returns the embedded templates directory.
func (Plugin) Templates() fs.FS {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

func (Plugin) Translations() map[language.Tag]map[string]string {
	return map[language.Tag]map[string]string{
		language.English: {
			"Redirects":        "Redirects",
			"%d redirects":     "%d redirects",
			"Last hit":         "Last hit",
			"No redirects yet": "No redirects yet",
		},
		language.German: {
			"Redirects":        "Weiterleitungen",
			"%d redirects":     "%d Weiterleitungen",
			"Last hit":         "Letzter Aufruf",
			"No redirects yet": "Noch keine Weiterleitungen",
		},
	}
}

func (Plugin) Globals() map[string]any {
	return map[string]any{
		"docsUrl":      "https://docs.example.test/redirects",
		"maxRedirects": 500,
	}
}

// Settings is the plugin's settings model.
type Settings struct {
	PluginName    string        `json:"pluginName"`
	Enabled       bool          `json:"enabled"`
	StatusCode    int           `json:"statusCode"`
	TrackHits     bool          `json:"trackHits"`
	CacheDuration time.Duration `json:"cacheDuration"`
	ExportFormats []string      `json:"exportFormats"`
	TrustProxy    bool          `json:"trustProxy"`
	GeoIPProvider string        `json:"geoIpProvider"`
	GeoIPKey      string        `json:"geoIpKey"`
}

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings() Settings {
	return Settings{
		Enabled:       true,
		StatusCode:    301,
		TrackHits:     true,
		CacheDuration: time.Hour,
		ExportFormats: []string{"csv", "json", "xlsx"},
		GeoIPProvider: "ip-api",
	}
}

// Redirect is one managed redirect.
type Redirect struct {
	ID         int
	Source     string
	Target     string
	StatusCode int
	Status     string
	Hits       int
	Country    string
	LastHit    time.Time
}

// Columns lists the export columns in display order.
var Columns = []export.Column{
	{Key: "id", Label: "ID"},
	{Key: "source", Label: "Source URL"},
	{Key: "target", Label: "Target URL"},
	{Key: "statusCode", Label: "Status Code"},
	{Key: "status", Label: "Status"},
	{Key: "hits", Label: "Hits"},
	{Key: "country", Label: "Last Country"},
	{Key: "lastHit", Label: "Last Hit"},
}

// Table converts redirects to an export table ordered by ID.
func Table(redirects []Redirect) export.Table {
	sorted := append([]Redirect(nil), redirects...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	rows := make([]export.Row, 0, len(sorted))
	for _, r := range sorted {
		row := export.Row{
			"id":         r.ID,
			"source":     r.Source,
			"target":     r.Target,
			"statusCode": r.StatusCode,
			"status":     r.Status,
			"hits":       r.Hits,
			"country":    r.Country,
		}
		if !r.LastHit.IsZero() {
			row["lastHit"] = r.LastHit
		}
		rows = append(rows, row)
	}
	return export.Table{Name: "redirects", Columns: Columns, Rows: rows}
}
