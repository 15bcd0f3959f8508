package webui

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/pondwatch/pondwatch/internal/alertstore"
	"github.com/pondwatch/pondwatch/internal/config"
	"github.com/pondwatch/pondwatch/internal/i18n"
	"github.com/pondwatch/pondwatch/internal/notifier"
	"github.com/pondwatch/pondwatch/internal/ponds"
	"github.com/pondwatch/pondwatch/internal/types"
)

// Page is the data every page template receives
type Page struct {
	Lang    i18n.Language
	Dir     string
	Nav     string
	Now     time.Time
	Version string
	Path    string
	Data    any
}

// DashboardData feeds the home page
type DashboardData struct {
	Overview     ponds.Overview
	Ponds        []ponds.Pond
	Counts       alertstore.Counts
	Active       []types.Alert
	Acknowledged []types.Alert
}

// AlertsData feeds the alerts page
type AlertsData struct {
	Alerts   []types.Alert
	Total    int
	Query    string
	Severity string
	Status   string
}

// PondData feeds the pond detail page
type PondData struct {
	Pond       ponds.Pond
	Parameters []ParameterColumn
	History    []types.Reading
	Alerts     []types.Alert
}

// ParameterColumn is one column of the history table
type ParameterColumn struct {
	ID    string
	Label i18n.Label
	Unit  string
}

// SettingsData feeds the settings page
type SettingsData struct {
	Global   config.GlobalConfig
	Behavior config.AlertBehavior
	Channels []notifier.Channel
	Logs     []LogEntry
	Flapping []string
}

var funcs = template.FuncMap{
	"t":             i18n.T,
	"severityLabel": alertstore.SeverityLabel,
	"relTime":       alertstore.RelativeTime,
	"shortTime":     alertstore.ShortRelativeTime,
	"text":          func(l i18n.Label, lang i18n.Language) string { return l.Text(lang) },
	"num":           i18n.FormatNumber,
	"langs":         func() []i18n.Language { return i18n.Supported },
	"severities":    func() []types.Severity { return types.Severities },
	"ackData": func(id, redirect string, lang i18n.Language) map[string]any {
		return map[string]any{"ID": id, "Redirect": redirect, "Lang": lang}
	},
	"threatData": func(threats []ponds.Threat, lang i18n.Language) map[string]any {
		return map[string]any{"Threats": threats, "Lang": lang}
	},
	"value": func(values map[string]float64, id string) string {
		v, ok := values[id]
		if !ok {
			return "-"
		}
		return fmt.Sprintf("%.2f", v)
	},
	"levelClass": func(level string) string {
		switch level {
		case "error", "fatal":
			return "log-error"
		case "warn":
			return "log-warn"
		case "debug":
			return "log-debug"
		default:
			return "log-info"
		}
	},
}

var base = template.Must(template.New("base").Funcs(funcs).Parse(baseHTML))

var pages = map[string]*template.Template{
	"dashboard": page(dashboardHTML),
	"alerts":    page(alertsHTML),
	"pond":      page(pondHTML),
	"settings":  page(settingsHTML),
}

func page(content string) *template.Template {
	return template.Must(template.Must(base.Clone()).Parse(content))
}

// Render writes a full page
func Render(w io.Writer, name string, p Page) error {
	tmpl, ok := pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return tmpl.ExecuteTemplate(w, "base", p)
}

const baseHTML = `
<!DOCTYPE html>
<html lang="{{.Lang}}" dir="{{.Dir}}">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{t "appTitle" .Lang}}</title>
    <style>
        :root {
            --bg-primary: #f4f8fb;
            --bg-card: #ffffff;
            --border-color: #d8e3ea;
            --text-primary: #12303f;
            --text-secondary: #5b7483;
            --accent-blue: #0e7c9b;
            --accent-green: #2e9e5b;
            --accent-yellow: #d9931a;
            --accent-red: #d43d3d;
        }
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: 'Segoe UI', Tahoma, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.5;
        }
        .container { max-width: 1300px; margin: 0 auto; padding: 1.5rem; }
        header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            margin-bottom: 1.5rem;
            padding-bottom: 1rem;
            border-bottom: 1px solid var(--border-color);
        }
        h1 { font-size: 1.5rem; color: var(--accent-blue); }
        nav a {
            margin-inline-start: 1rem;
            color: var(--text-secondary);
            text-decoration: none;
            font-weight: 500;
        }
        nav a.active { color: var(--accent-blue); border-bottom: 2px solid var(--accent-blue); }
        .lang-switch a { margin-inline-start: 0.5rem; font-size: 0.85rem; }
        .stats-grid { display: grid; grid-template-columns: repeat(4, 1fr); gap: 1rem; margin-bottom: 1.5rem; }
        .grid { display: grid; grid-template-columns: 2fr 1fr; gap: 1.5rem; }
        @media (max-width: 900px) { .stats-grid, .grid { grid-template-columns: 1fr; } }
        .card {
            background: var(--bg-card);
            border: 1px solid var(--border-color);
            border-radius: 10px;
            padding: 1rem 1.25rem;
            margin-bottom: 1rem;
        }
        .card-title { font-weight: 600; margin-bottom: 0.75rem; }
        .stat-label { color: var(--text-secondary); font-size: 0.85rem; }
        .stat-value { font-size: 1.75rem; font-weight: 700; }
        .green { color: var(--accent-green); }
        .red { color: var(--accent-red); }
        .blue { color: var(--accent-blue); }
        .pond-grid { display: grid; grid-template-columns: repeat(auto-fill, minmax(260px, 1fr)); gap: 1rem; }
        .badge {
            display: inline-block;
            padding: 0.1rem 0.6rem;
            border-radius: 12px;
            font-size: 0.75rem;
            font-weight: 600;
            color: #fff;
        }
        .badge.optimal, .badge.low { background: var(--accent-green); }
        .badge.warning, .badge.medium { background: var(--accent-yellow); }
        .badge.critical, .badge.high { background: var(--accent-red); }
        .readings { list-style: none; margin-top: 0.5rem; }
        .readings li { display: flex; justify-content: space-between; font-size: 0.9rem; padding: 0.15rem 0; }
        .readings li.breach { color: var(--accent-red); font-weight: 600; }
        .alert-item {
            display: flex;
            gap: 0.75rem;
            align-items: flex-start;
            padding: 0.6rem 0;
            border-bottom: 1px solid var(--border-color);
        }
        .alert-item.acknowledged { opacity: 0.6; }
        .alert-content { flex: 1; }
        .alert-meta { color: var(--text-secondary); font-size: 0.8rem; }
        .btn {
            padding: 0.35rem 0.9rem;
            border: 1px solid var(--accent-blue);
            border-radius: 6px;
            background: var(--accent-blue);
            color: #fff;
            cursor: pointer;
            font-family: inherit;
        }
        .btn-secondary { background: transparent; color: var(--accent-blue); }
        form.filters { display: flex; flex-wrap: wrap; gap: 0.75rem; margin-bottom: 1rem; }
        form.filters input, form.filters select {
            padding: 0.35rem 0.6rem;
            border: 1px solid var(--border-color);
            border-radius: 6px;
            font-family: inherit;
        }
        table { width: 100%; border-collapse: collapse; font-size: 0.85rem; }
        th, td { padding: 0.35rem 0.5rem; border-bottom: 1px solid var(--border-color); text-align: start; }
        .empty-state { color: var(--text-secondary); padding: 1rem 0; text-align: center; }
        .log-container { max-height: 360px; overflow-y: auto; font-family: monospace; font-size: 0.8rem; direction: ltr; }
        .log-entry { display: flex; gap: 0.75rem; }
        .log-error { color: var(--accent-red); }
        .log-warn { color: var(--accent-yellow); }
        .log-debug { color: var(--text-secondary); }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>{{t "appTitle" .Lang}}</h1>
            <nav>
                <a href="/" class="{{if eq .Nav "dashboard"}}active{{end}}">{{t "dashboard" .Lang}}</a>
                <a href="/alerts" class="{{if eq .Nav "alerts"}}active{{end}}">{{t "alerts" .Lang}}</a>
                <a href="/settings" class="{{if eq .Nav "settings"}}active{{end}}">{{t "settings" .Lang}}</a>
                <span class="lang-switch">
                    {{$cur := .Lang}}{{range langs}}{{if ne . $cur}}<a href="/lang?to={{.}}">{{.}}</a>{{end}}{{end}}
                </span>
            </nav>
        </header>
        {{template "content" .}}
    </div>
</body>
</html>
`

const ackForm = `{{define "ack"}}
<form method="POST" action="/alerts/ack">
    <input type="hidden" name="id" value="{{.ID}}">
    <input type="hidden" name="redirect" value="{{.Redirect}}">
    <button class="btn btn-secondary" type="submit">{{t "acknowledge" .Lang}}</button>
</form>
{{end}}`

const threatList = `{{define "threats"}}{{$lang := .Lang}}{{if .Threats}}
<div class="alert-meta">{{t "biologicalThreats" $lang}}</div>
<ul class="readings">
    {{range .Threats}}
    <li class="{{if .Detected}}breach{{end}}">
        <span>{{text .Label $lang}}</span>
        <span>{{if .Detected}}{{text .Organism $lang}} · {{t "risk" $lang}} {{t (printf "risk.%s" .Risk) $lang}}{{else}}{{t "notDetected" $lang}}{{end}}</span>
    </li>
    {{end}}
</ul>
{{end}}{{end}}`

const dashboardHTML = ackForm + threatList + `
{{define "content"}}{{$lang := .Lang}}{{$now := .Now}}{{with .Data}}
        <div class="stats-grid">
            <div class="card">
                <div class="stat-label">{{t "totalPonds" $lang}}</div>
                <div class="stat-value blue">{{.Overview.Total}}</div>
            </div>
            <div class="card">
                <div class="stat-label">{{t "activeAlerts" $lang}}</div>
                <div class="stat-value {{if gt .Counts.Active 0}}red{{else}}green{{end}}">{{.Counts.Active}}</div>
            </div>
            <div class="card">
                <div class="stat-label">{{t "optimalPonds" $lang}}</div>
                <div class="stat-value green">{{.Overview.Optimal}}</div>
            </div>
            <div class="card">
                <div class="stat-label">{{t "globalHealth" $lang}}</div>
                <div class="stat-value blue">{{.Overview.HealthPercent}}%</div>
            </div>
        </div>

        <div class="grid">
            <div class="pond-grid">
                {{range .Ponds}}
                <div class="card">
                    <div class="card-title">
                        <a href="/pond/{{.ID}}">{{text .Name $lang}}</a>
                        <span class="badge {{.Status}}">{{t (printf "%s" .Status) $lang}}</span>
                    </div>
                    <div class="alert-meta">{{t "fishType" $lang}}: {{text .FishType $lang}} · {{t "capacity" $lang}}: {{num .Capacity $lang}}{{if .Location}} · {{t "location" $lang}}: {{.Location}}{{end}}</div>
                    <ul class="readings">
                        {{range .Readings}}
                        <li class="{{if .Severity}}breach{{end}}"><span>{{text .Label $lang}}</span><span>{{num .Value $lang}} {{.Unit}}</span></li>
                        {{end}}
                    </ul>
                    {{template "threats" (threatData .Threats $lang)}}
                    {{if not .LastUpdate.IsZero}}<div class="alert-meta">{{t "lastUpdated" $lang}}: {{shortTime .LastUpdate $now $lang}}</div>{{end}}
                </div>
                {{end}}
                <div class="card">
                    <details>
                        <summary class="card-title">{{t "addPond" $lang}}</summary>
                        <form class="filters" method="POST" action="/ponds/add">
                            <input type="text" name="id" placeholder="{{t "pondID" $lang}}">
                            <input type="text" name="name" placeholder="{{t "pondName" $lang}}">
                            <input type="text" name="name_ar" placeholder="{{t "pondNameAr" $lang}}">
                            <input type="text" name="fish_type" placeholder="{{t "fishType" $lang}}">
                            <input type="number" name="capacity" min="0" step="1" placeholder="{{t "capacity" $lang}}">
                            <input type="text" name="location" placeholder="{{t "location" $lang}}">
                            <button class="btn" type="submit">{{t "create" $lang}}</button>
                        </form>
                    </details>
                </div>
            </div>

            <div class="card">
                <div class="card-title">{{t "recentAlerts" $lang}}</div>
                {{if or .Active .Acknowledged}}
                {{range .Active}}
                <div class="alert-item">
                    <span class="badge {{.Severity}}">{{severityLabel .Severity $lang}}</span>
                    <div class="alert-content">
                        <div>{{text .Message $lang}}</div>
                        <div class="alert-meta">{{text .Pond $lang}} · {{shortTime .Timestamp $now $lang}}</div>
                    </div>
                    {{template "ack" (ackData .ID "/" $lang)}}
                </div>
                {{end}}
                {{range .Acknowledged}}
                <div class="alert-item acknowledged">
                    <span class="badge {{.Severity}}">{{severityLabel .Severity $lang}}</span>
                    <div class="alert-content">
                        <div>{{text .Message $lang}}</div>
                        <div class="alert-meta">{{text .Pond $lang}} · {{shortTime .Timestamp $now $lang}} · {{t "acknowledged" $lang}}</div>
                    </div>
                </div>
                {{end}}
                {{else}}
                <div class="empty-state">{{t "noActiveAlerts" $lang}}</div>
                {{end}}
            </div>
        </div>
{{end}}{{end}}
`

const alertsHTML = ackForm + `
{{define "content"}}{{$lang := .Lang}}{{$now := .Now}}{{$path := .Path}}{{with .Data}}
        <div class="card">
            <div class="card-title">{{t "filterAlerts" $lang}}</div>
            <form class="filters" method="GET" action="/alerts">
                <input type="search" name="q" value="{{.Query}}" placeholder="{{t "search" $lang}}">
                <select name="severity">
                    <option value="all">{{t "severity" $lang}}: {{t "all" $lang}}</option>
                    {{$sel := .Severity}}
                    {{range severities}}<option value="{{.}}" {{if eq (printf "%s" .) $sel}}selected{{end}}>{{severityLabel . $lang}}</option>{{end}}
                </select>
                <select name="status">
                    <option value="all" {{if eq .Status "all"}}selected{{end}}>{{t "status" $lang}}: {{t "all" $lang}}</option>
                    <option value="active" {{if eq .Status "active"}}selected{{end}}>{{t "active" $lang}}</option>
                    <option value="acknowledged" {{if eq .Status "acknowledged"}}selected{{end}}>{{t "acknowledged" $lang}}</option>
                </select>
                <button class="btn" type="submit">{{t "filter" $lang}}</button>
            </form>
        </div>

        <div class="card">
            <div class="card-title">{{t "alerts" $lang}} ({{len .Alerts}}/{{.Total}})</div>
            {{if .Alerts}}
            {{range .Alerts}}
            <div class="alert-item {{if .Acknowledged}}acknowledged{{end}}">
                <span class="badge {{.Severity}}">{{severityLabel .Severity $lang}}</span>
                <div class="alert-content">
                    <div>{{text .Message $lang}}</div>
                    <div class="alert-meta">
                        {{text .Pond $lang}} · {{text .Parameter $lang}} ·
                        {{if .Organism}}{{t "organism" $lang}}: {{text .Organism $lang}} ·{{else}}{{t "value" $lang}}: {{num .Value $lang}} · {{t "threshold" $lang}}: {{num .Threshold $lang}} ·{{end}}
                        {{relTime .Timestamp $now $lang}}
                    </div>
                </div>
                {{if not .Acknowledged}}{{template "ack" (ackData .ID $path $lang)}}{{end}}
            </div>
            {{end}}
            {{else if eq .Total 0}}
            <div class="empty-state">{{t "noAlerts" $lang}}</div>
            {{else}}
            <div class="empty-state">{{t "noAlertsMatch" $lang}}</div>
            {{end}}
        </div>
{{end}}{{end}}
`

const pondHTML = ackForm + threatList + `
{{define "content"}}{{$lang := .Lang}}{{$now := .Now}}{{$path := .Path}}{{with .Data}}
        <div class="card">
            <div class="card-title">
                {{text .Pond.Name $lang}}
                <span class="badge {{.Pond.Status}}">{{t (printf "%s" .Pond.Status) $lang}}</span>
            </div>
            <div class="alert-meta">{{t "fishType" $lang}}: {{text .Pond.FishType $lang}} · {{t "capacity" $lang}}: {{num .Pond.Capacity $lang}}{{if .Pond.Location}} · {{t "location" $lang}}: {{.Pond.Location}}{{end}}</div>
            <ul class="readings">
                {{range .Pond.Readings}}
                <li class="{{if .Severity}}breach{{end}}">
                    <span>{{text .Label $lang}}</span>
                    <span>{{num .Value $lang}} {{.Unit}}{{if .Severity}} · {{severityLabel .Severity $lang}}{{end}}</span>
                </li>
                {{end}}
            </ul>
            {{template "threats" (threatData .Pond.Threats $lang)}}
        </div>

        <div class="grid">
            <div class="card">
                <div class="card-title">{{t "history" $lang}}</div>
                {{if .History}}
                <table>
                    <tr>
                        <th></th>
                        {{range .Parameters}}<th>{{text .Label $lang}}{{if .Unit}} ({{.Unit}}){{end}}</th>{{end}}
                    </tr>
                    {{$params := .Parameters}}
                    {{range .History}}{{$values := .Values}}
                    <tr>
                        <td>{{shortTime .Timestamp $now $lang}}</td>
                        {{range $params}}<td>{{value $values .ID}}</td>{{end}}
                    </tr>
                    {{end}}
                </table>
                {{else}}
                <div class="empty-state">-</div>
                {{end}}
            </div>

            <div class="card">
                <div class="card-title">{{t "alerts" $lang}}</div>
                {{if .Alerts}}
                {{range .Alerts}}
                <div class="alert-item {{if .Acknowledged}}acknowledged{{end}}">
                    <span class="badge {{.Severity}}">{{severityLabel .Severity $lang}}</span>
                    <div class="alert-content">
                        <div>{{text .Message $lang}}</div>
                        <div class="alert-meta">{{if .Organism}}{{t "organism" $lang}}: {{text .Organism $lang}} · {{end}}{{relTime .Timestamp $now $lang}}</div>
                    </div>
                    {{if not .Acknowledged}}{{template "ack" (ackData .ID $path $lang)}}{{end}}
                </div>
                {{end}}
                {{else}}
                <div class="empty-state">{{t "noAlerts" $lang}}</div>
                {{end}}
            </div>
        </div>
{{end}}{{end}}
`

const settingsHTML = `
{{define "content"}}{{$lang := .Lang}}{{with .Data}}
        <div class="grid">
            <div>
                <div class="card">
                    <div class="card-title">{{t "chooseLanguage" $lang}}</div>
                    {{range langs}}
                    <a class="btn {{if ne . $lang}}btn-secondary{{end}}" href="/lang?to={{.}}&redirect=/settings">{{.}}</a>
                    {{end}}
                </div>

                <div class="card">
                    <div class="card-title">{{t "channels" $lang}}</div>
                    {{if .Channels}}
                    <table>
                        <tr>
                            <th></th>
                            <th>{{t "type" $lang}}</th>
                            <th>{{t "language" $lang}}</th>
                            <th>{{t "severityFilter" $lang}}</th>
                            <th>{{t "delay" $lang}}</th>
                        </tr>
                        {{range .Channels}}
                        <tr>
                            <td>{{.Name}}</td>
                            <td>{{.Config.Type}}</td>
                            <td>{{.Config.Language}}</td>
                            <td>{{if .Config.SeverityFilter}}{{range .Config.SeverityFilter}}{{severityLabel . $lang}} {{end}}{{else}}{{t "all" $lang}}{{end}}</td>
                            <td>{{if .Config.EscalationDelay}}{{.Config.EscalationDelay}}{{else}}-{{end}}</td>
                        </tr>
                        {{end}}
                    </table>
                    {{else}}
                    <div class="empty-state">-</div>
                    {{end}}
                </div>

                <div class="card">
                    <div class="card-title">{{t "systemStatus" $lang}}</div>
                    <table>
                        <tr><td>simulation_interval</td><td>{{.Global.SimulationInterval}}</td></tr>
                        <tr><td>history_size</td><td>{{.Global.HistorySize}}</td></tr>
                        <tr><td>deduplication_window</td><td>{{.Behavior.DeduplicationWindow}}</td></tr>
                        <tr><td>flap</td><td>{{.Behavior.Flap.Threshold}} / {{.Behavior.Flap.Window}}</td></tr>
                        {{if .Flapping}}<tr><td>flapping</td><td>{{range .Flapping}}{{.}} {{end}}</td></tr>{{end}}
                    </table>
                    <form method="POST" action="/settings/reload" style="margin-top: 0.75rem;">
                        <button class="btn" type="submit">{{t "reload" $lang}}</button>
                    </form>
                </div>
            </div>

            <div class="card">
                <div class="card-title">{{t "logs" $lang}}</div>
                <div class="log-container">
                    {{range .Logs}}
                    <div class="log-entry {{levelClass .Level}}">
                        <span>{{.Timestamp.Format "15:04:05"}}</span>
                        <span>{{.Level}}</span>
                        {{if .Component}}<span>[{{.Component}}]</span>{{end}}
                        <span>{{.Message}}</span>
                    </div>
                    {{end}}
                </div>
            </div>
        </div>
{{end}}{{end}}
`
