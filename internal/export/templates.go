package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
}).Parse(reportTemplateHTML))

// RenderReportHTML renders the project report template with provided data
func RenderReportHTML(data ReportData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.ProjectName}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.5; color: #1f2937; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 3px solid {{.Color}}; padding-bottom: 0.5rem; }
    h2 { margin-top: 2rem; border-bottom: 1px solid #e5e7eb; padding-bottom: 0.25rem; }
    .meta { color: #6b7280; font-size: 0.9em; margin-bottom: 1.5rem; }
    .progress-bar { background: #e5e7eb; border-radius: 4px; height: 12px; width: 100%; }
    .progress-fill { background: {{.Color}}; border-radius: 4px; height: 12px; }
    table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
    th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #e5e7eb; font-size: 0.9em; }
    th { background: #f9fafb; }
    .subtask td { color: #6b7280; padding-left: 28px; }
    .status { display: inline-block; padding: 1px 8px; border-radius: 10px; font-size: 0.8em; background: #f3f4f6; }
    .status.done { background: #d1fae5; }
    .status.in_progress { background: #dbeafe; }
    .report { background: #f9fafb; padding: 0.75rem 1rem; margin: 0.75rem 0; border-left: 3px solid {{.Color}}; }
    .blockers { color: #b91c1c; }
  </style>
</head>
<body>
  <h1>{{.ProjectName}}</h1>
  <div class="meta">
    Status: {{.Status}} · Progress: {{.Progress}}% · Generated {{formatDate .GeneratedAt "Jan 2, 2006 15:04"}}
  </div>
  {{if .Description}}<p>{{.Description}}</p>{{end}}
  <div class="progress-bar"><div class="progress-fill" style="width: {{.Progress}}%"></div></div>

  {{if .Members}}
  <h2>Team</h2>
  <table>
    <tr><th>Name</th><th>Role</th></tr>
    {{range .Members}}<tr><td>{{.Name}}</td><td>{{.Role}}</td></tr>{{end}}
  </table>
  {{end}}

  <h2>Tasks</h2>
  {{if .Tasks}}
  <table>
    <tr><th>Title</th><th>Status</th><th>Priority</th><th>Progress</th><th>Assignee</th><th>Due</th></tr>
    {{range .Tasks}}
    <tr>
      <td>{{.Title}}</td>
      <td><span class="status {{lower .Status}}">{{.Status}}</span></td>
      <td>{{.Priority}}</td>
      <td>{{.Progress}}%</td>
      <td>{{.Assignee}}</td>
      <td>{{.Due}}</td>
    </tr>
    {{range .Subtasks}}
    <tr class="subtask">
      <td>{{.Title}}</td>
      <td><span class="status {{lower .Status}}">{{.Status}}</span></td>
      <td></td>
      <td>{{.Progress}}%</td>
      <td></td>
      <td></td>
    </tr>
    {{end}}
    {{end}}
  </table>
  {{else}}
  <p>No tasks yet.</p>
  {{end}}

  {{if .Reports}}
  <h2>Daily Reports</h2>
  {{range .Reports}}
  <div class="report">
    <strong>{{.Date}}</strong> — {{.Author}}
    <p>{{.Summary}}</p>
    {{if .Blockers}}<p class="blockers">Blockers: {{.Blockers}}</p>{{end}}
  </div>
  {{end}}
  {{end}}
</body>
</html>`
