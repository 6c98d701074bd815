package server

import "html/template"

const pageStyle = `
    :root {
      --bg: #f5f3ef;
      --card: #ffffff;
      --ink: #0f172a;
      --muted: #64748b;
      --accent: #0f766e;
      --border: #e2e8f0;
    }
    body { margin: 0; background: var(--bg); color: var(--ink); font-family: "Georgia", "Times New Roman", serif; }
    .page-shell { max-width: 1180px; margin: 0 auto; padding: 20px; }
    .logo { font-size: 14px; letter-spacing: 0.16em; text-transform: uppercase; font-weight: 700; color: var(--accent); text-decoration: none; }
    .card { background: var(--card); border: 1px solid var(--border); border-radius: 12px; padding: 16px; margin-top: 16px; overflow-x: auto; }
    table { border-collapse: collapse; font-size: 13px; }
    th, td { border-bottom: 1px solid var(--border); padding: 4px 8px; text-align: right; white-space: nowrap; }
    th:first-child, td:first-child { text-align: left; }
    .muted { color: var(--muted); }
    .pager a { margin-right: 12px; color: var(--accent); }
`

var indexPageTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{ .title }}</title>
  <style>` + pageStyle + `</style>
</head>
<body>
  <div class="page-shell">
    <a class="logo" href="/">lvstat</a>
    <div class="card">
      <h1>Tables</h1>
      {{ if .tables }}
      <ul>
        {{ range .tables }}<li><a href="/table/{{ .Name }}">{{ .Name }}</a> <span class="muted">{{ .Rows }} rows</span></li>
        {{ end }}
      </ul>
      {{ else }}
      <p class="muted">No tables exported yet.</p>
      {{ end }}
    </div>
    {{ if .plots }}<div class="card"><a href="/plots/">EDA plots</a></div>{{ end }}
  </div>
</body>
</html>
`))

var tablePageTemplate = template.Must(template.New("table").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{ .title }}</title>
  <style>` + pageStyle + `</style>
</head>
<body>
  <div class="page-shell">
    <a class="logo" href="/">lvstat</a>
    <div class="card">
      <h1>{{ .name }}</h1>
      <p class="muted">{{ .total }} rows, page {{ .page }} of {{ .pages }}</p>
      <table>
        <thead><tr>{{ range .columns }}<th>{{ . }}</th>{{ end }}</tr></thead>
        <tbody>
          {{ range .rows }}<tr>{{ range . }}<td>{{ . }}</td>{{ end }}</tr>
          {{ end }}
        </tbody>
      </table>
      <p class="pager">
        {{ with .prev }}<a href="?page={{ . }}">previous</a>{{ end }}
        {{ with .next }}<a href="?page={{ . }}">next</a>{{ end }}
      </p>
    </div>
  </div>
</body>
</html>
`))
