package view

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"pluginkit/pkg/color"
	"pluginkit/pkg/export"
)

// Crumb is one breadcrumb link.
type Crumb struct {
	Label string
	URL   string
}

// Tab is one page tab.
type Tab struct {
	ID    string
	Label string
	URL   string
}

// Page describes a control-panel page.
type Page struct {
	Title       string
	Breadcrumbs []Crumb
	Tabs        []Tab
	SelectedTab string
}

// Layout wraps body in the control-panel page chrome.
func Layout(page Page, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="cp-page">`)
		if len(page.Breadcrumbs) > 0 {
			b.WriteString(`<nav class="cp-breadcrumbs" aria-label="Breadcrumbs"><ol>`)
			for _, c := range page.Breadcrumbs {
				fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, href(c.URL), templ.EscapeString(c.Label))
			}
			b.WriteString(`</ol></nav>`)
		}
		fmt.Fprintf(&b, `<header class="cp-header"><h1>%s</h1></header>`, templ.EscapeString(page.Title))
		if len(page.Tabs) > 0 {
			b.WriteString(`<nav class="cp-tabs" role="tablist">`)
			for _, tab := range page.Tabs {
				selected := tab.ID == page.SelectedTab
				class := "cp-tab"
				if selected {
					class += " sel"
				}
				fmt.Fprintf(&b, `<a id="tab-%s" class="%s" href="%s" role="tab" aria-selected="%t">%s</a>`,
					templ.EscapeString(tab.ID), class, href(tab.URL), selected, templ.EscapeString(tab.Label))
			}
			b.WriteString(`</nav>`)
		}
		b.WriteString(`<main class="cp-content">`)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main></div>`)
		return err
	})
}

// Badge renders a coloured status pill.
func Badge(badge color.Badge) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<span class="badge badge-%s" style="background-color:%s;color:%s">%s</span>`,
			templ.EscapeString(badge.Color),
			templ.EscapeString(badge.Background),
			templ.EscapeString(badge.Text),
			templ.EscapeString(badge.Label))
		return err
	})
}

// OverrideNotice tells the user a setting is pinned by config.
func OverrideNotice(key, source string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		msg := fmt.Sprintf("This is being overridden by the %s setting", key)
		if source != "" {
			msg += " in " + source
		}
		_, err := fmt.Fprintf(w, `<p class="warning override-notice" data-setting="%s">%s.</p>`,
			templ.EscapeString(key), templ.EscapeString(msg))
		return err
	})
}

// ExportMenu renders one download link per format. Links are
// baseURL?format=<format>.
func ExportMenu(baseURL string, formats []export.Format) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if len(formats) == 0 {
			return nil
		}
		sep := "?"
		if strings.Contains(baseURL, "?") {
			sep = "&"
		}
		var b strings.Builder
		b.WriteString(`<div class="export-menu"><ul>`)
		for _, f := range formats {
			fmt.Fprintf(&b, `<li><a href="%s" download>%s</a></li>`,
				href(baseURL+sep+"format="+string(f)), templ.EscapeString(f.Label()))
		}
		b.WriteString(`</ul></div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func href(u string) string {
	return templ.EscapeString(string(templ.URL(u)))
}
