// Package templates renders the HTML views of the monitor.
package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/sheetwatch/internal/core"
)

const styles = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}
table{border-collapse:collapse}td,th{padding:.25rem .75rem;text-align:left;border-bottom:1px solid #e5e7eb}
.alert{border:1px solid #fca5a5;background:#fef2f2;padding:.75rem;border-radius:.375rem}
.muted{color:#6b7280}.on{color:#047857}.off{color:#b91c1c}`

// writer accumulates the first write error so markup can be emitted
// without checking every call.
type writer struct {
	w   io.Writer
	err error
}

func (p *writer) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *writer) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *writer) rawf(format string, args ...any) {
	p.raw(fmt.Sprintf(format, args...))
}

func layout(p *writer, title string, body func()) {
	p.raw("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>")
	p.text(title)
	p.raw("</title><style>")
	p.raw(styles)
	p.raw("</style></head><body>")
	body()
	p.raw("</body></html>")
}

// ErrorAlert renders an error fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &writer{w: w}
		p.raw(`<div class="alert" role="alert"><strong>`)
		p.text(message)
		p.raw("</strong>")
		if action != "" {
			p.raw("<p>")
			p.text(action)
			p.raw("</p>")
		}
		p.raw(`<p class="muted">`)
		p.text(code)
		p.raw("</p></div>")
		return p.err
	})
}

// StatusPageParams holds the data shown on a user's status page.
type StatusPageParams struct {
	Status  core.Status
	Pending int
	History []core.ChangeBatch
}

// StatusPage renders one user's monitoring status and recent changes.
func StatusPage(params StatusPageParams) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &writer{w: w}
		st := params.Status
		layout(p, "Monitor: "+st.UserKey, func() {
			p.raw("<h1>")
			p.text(st.UserKey)
			p.raw("</h1><table>")

			row := func(label, value string) {
				p.raw("<tr><th>")
				p.text(label)
				p.raw("</th><td>")
				p.text(value)
				p.raw("</td></tr>")
			}
			row("Sheet URL", orDefault(st.URL, "not set"))
			row("Sheet name", orDefault(st.Sheet, "not set"))
			row("Check interval", fmt.Sprintf("%d seconds", st.IntervalSecs))

			p.raw("<tr><th>Monitoring active</th><td>")
			if st.Running {
				p.raw(`<span class="on">yes</span>`)
			} else {
				p.raw(`<span class="off">no</span>`)
			}
			p.raw("</td></tr>")

			lastCheck := "no data"
			if !st.LastCheck.IsZero() {
				lastCheck = st.LastCheck.UTC().Format("2006-01-02 15:04:05") + " UTC"
			}
			row("Last check", lastCheck)
			row("Errors", fmt.Sprintf("%d/%d", st.ErrorCount, st.MaxErrorCount))
			row("Notification threshold", fmt.Sprintf("%d changes", st.Threshold))
			columns := "all columns"
			if len(st.Columns) > 0 {
				columns = strings.Join(st.Columns, ", ")
			}
			row("Watched columns", columns)
			row("Notification format", st.Format)
			row("Last error", orDefault(st.LastError, "none"))
			row("Undelivered messages", fmt.Sprintf("%d", params.Pending))
			p.raw("</table>")

			p.raw("<h2>Recent changes</h2>")
			if len(params.History) == 0 {
				p.raw(`<p class="muted">No changes recorded.</p>`)
				return
			}
			p.raw("<table><tr><th>Detected</th><th>Cell</th><th>Column</th><th>Old</th><th>New</th></tr>")
			for _, b := range params.History {
				for _, c := range b.Changes {
					p.raw("<tr><td>")
					p.text(b.DetectedAt.UTC().Format("2006-01-02 15:04:05"))
					p.raw("</td><td>")
					p.text(c.Cell)
					p.raw("</td><td>")
					p.text(c.Column)
					p.raw("</td><td>")
					p.text(c.OldText())
					p.raw("</td><td>")
					p.text(c.NewText())
					p.raw("</td></tr>")
				}
			}
			p.raw("</table>")
			p.rawf(`<p><a href="/api/users/%s/history.xlsx">Download as Excel</a></p>`, templ.EscapeString(url.PathEscape(st.UserKey)))
		})
		return p.err
	})
}

// Dashboard lists every known session.
func Dashboard(statuses []core.Status) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &writer{w: w}
		layout(p, "Sheet monitor", func() {
			p.raw("<h1>Sheet monitor</h1>")
			if len(statuses) == 0 {
				p.raw(`<p class="muted">No users yet.</p>`)
				return
			}
			p.raw("<table><tr><th>User</th><th>Sheet</th><th>Active</th><th>Errors</th></tr>")
			for _, st := range statuses {
				p.rawf(`<tr><td><a href="/users/%s">`, templ.EscapeString(url.PathEscape(st.UserKey)))
				p.text(st.UserKey)
				p.raw("</a></td><td>")
				p.text(orDefault(st.Sheet, "not set"))
				p.raw("</td><td>")
				if st.Running {
					p.raw(`<span class="on">yes</span>`)
				} else {
					p.raw(`<span class="off">no</span>`)
				}
				p.rawf("</td><td>%d/%d</td></tr>", st.ErrorCount, st.MaxErrorCount)
			}
			p.raw("</table>")
		})
		return p.err
	})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
