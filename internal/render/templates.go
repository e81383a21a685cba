package render

// ── Base layout ───────────────────────────────────────────────────────────────

const tmplBase = `
{{define "base"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.WorkflowID}} — dagview</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:'JetBrains Mono',monospace,sans-serif;background:#0d1117;color:#c9d1d9;font-size:13px;line-height:1.5}
a{color:#58a6ff;text-decoration:none}
a:hover{text-decoration:underline}
nav{background:#161b22;border-bottom:1px solid #30363d;padding:8px 16px;display:flex;gap:16px;align-items:center;flex-wrap:wrap}
nav .brand{color:#f0f6fc;font-weight:700;font-size:15px;margin-right:8px}
nav a{color:#8b949e;padding:4px 8px;border-radius:4px}
nav a:hover{color:#c9d1d9;background:#21262d;text-decoration:none}
main{padding:16px}
h1{font-size:16px;font-weight:700;color:#f0f6fc;margin-bottom:12px}
.banner{background:#3d1d1f;border:1px solid #f87171;color:#f87171;border-radius:6px;padding:8px 12px;margin-bottom:12px;display:flex;gap:12px;align-items:center}
.banner form{margin-left:auto}
.banner button{background:#21262d;border:1px solid #30363d;color:#c9d1d9;border-radius:4px;padding:2px 10px;cursor:pointer;font-size:12px}
.toolbar{display:flex;gap:8px;flex-wrap:wrap;align-items:center;margin-bottom:12px;background:#161b22;padding:8px 12px;border-radius:6px;border:1px solid #30363d}
.toolbar label{font-size:11px;color:#8b949e}
.toolbar select,.toolbar input{background:#0d1117;border:1px solid #30363d;color:#c9d1d9;border-radius:4px;padding:3px 6px;font-size:12px;font-family:inherit}
.toolbar button{background:#1f6feb;border:none;color:#fff;padding:4px 12px;border-radius:4px;cursor:pointer;font-size:12px}
.toolbar .mode{margin-left:auto;font-size:11px;color:#8b949e}
.legend{display:flex;gap:6px;flex-wrap:wrap;margin-bottom:12px}
.legend a{display:inline-flex;align-items:center;gap:5px;font-size:11px;color:#8b949e;border:1px solid #30363d;border-radius:4px;padding:2px 8px}
.legend a.active{border-color:#1f6feb;color:#c9d1d9}
.legend .swatch{width:10px;height:10px;border-radius:2px;display:inline-block}
.canvas{background:#161b22;border:1px solid #30363d;border-radius:6px;overflow:auto}
svg text{font-family:inherit;font-size:11px}
.node-rect{stroke:#30363d;stroke-width:1}
.node-rect.emphasis{stroke:#1f6feb;stroke-width:2}
.node-label{fill:#0d1117;font-weight:600}
.edge{fill:none;stroke:#8b949e;stroke-width:1.5}
.hl-hovered .node-rect{stroke:#f0f6fc;stroke-width:2}
.hl-upstream .node-rect{stroke:#f59e0b;stroke-width:2}
.hl-downstream .node-rect{stroke:#3b82f6;stroke-width:2}
.row-label{fill:#c9d1d9}
.row-label.synthetic{fill:#8b949e;font-style:italic}
.cell{stroke:#0d1117;stroke-width:1}
.caret{fill:#8b949e;cursor:pointer}
.run-hdr{fill:#8b949e;font-size:9px}
</style>
</head>
<body>
<nav>
  <span class="brand">dagview</span>
  <a href="/graph">Graph</a>
  <a href="/tree">Tree</a>
</nav>
<main>
{{if .PollError}}
<div class="banner">
  <span>State refresh failed: {{.PollError}}. Auto-refresh is paused.</span>
  <form method="POST" action="/refresh"><button type="submit">Refresh now</button></form>
</div>
{{end}}
{{template "content" .}}
</main>
</body>
</html>
{{end}}
`

// ── Graph view ────────────────────────────────────────────────────────────────

const tmplGraph = `
{{define "content"}}
<h1>{{.WorkflowID}}</h1>

<div class="toolbar">
  <form method="GET" action="/graph" style="display:inline-flex;gap:6px;align-items:center">
    <label>Search <input type="text" name="search" value="{{.SearchTerm}}" placeholder="task id"></label>
    <button type="submit">Filter</button>
    {{if .SearchTerm}}<a href="/graph" style="font-size:11px;color:#8b949e">clear</a>{{end}}
  </form>
  <form method="POST" action="/rearrange" style="display:inline-flex;gap:6px;align-items:center">
    <label>Layout
      <select name="dir">
        <option value="TB" {{if eq .Direction "TB"}}selected{{end}}>Top / Down</option>
        <option value="LR" {{if eq .Direction "LR"}}selected{{end}}>Left / Right</option>
      </select>
    </label>
    <button type="submit">Rearrange</button>
  </form>
  {{if .Runs}}
  <form method="POST" action="/run" style="display:inline-flex;gap:6px;align-items:center">
    <label>Run
      <select name="run_id">
        {{range .Runs}}<option value="{{.ID}}" {{if .Selected}}selected{{end}}>{{.Label}}</option>{{end}}
      </select>
    </label>
    <button type="submit">Select</button>
  </form>
  {{end}}
  <span class="mode">mode: {{.Mode}}{{if .FocusedState}} · {{title (printf "%s" .FocusedState)}}{{end}}</span>
</div>

<div class="legend">
{{$focused := .FocusedState}}
{{range .Legend}}
  <a href="/graph?focus={{.State}}" {{if eq .State $focused}}class="active"{{end}}>
    <span class="swatch" style="background:{{.Color}}"></span>{{title (printf "%s" .State)}}
  </a>
{{end}}
</div>

<div class="canvas">
<svg width="{{.Width}}" height="{{.Height}}" data-transition-ms="{{fmtMillis .Transition}}">
  {{range .Edges}}
  <polyline class="edge" points="{{points .Points}}" opacity="{{.Opacity}}"/>
  {{end}}
  {{range .Nodes}}
  <g class="node hl-{{.Highlight}}" transform="translate({{.Pos.X}},{{.Pos.Y}})" opacity="{{.Opacity}}">
    <title>{{.Tooltip}}</title>
    <rect class="node-rect{{if .Emphasis}} emphasis{{end}}" x="-60" y="-15" width="120" height="30" rx="4" fill="{{stateColor .Class}}"/>
    <text class="node-label" text-anchor="middle" dy="4">{{truncate .Label 18}}</text>
  </g>
  {{end}}
</svg>
</div>

{{if .Operators}}
<div class="legend" style="margin-top:12px">
{{range .Operators}}
  <a><span class="swatch" style="background:{{.Color}}"></span>{{.Name}}</a>
{{end}}
</div>
{{end}}
{{end}}
`

// ── Tree view ─────────────────────────────────────────────────────────────────

const tmplTree = `
{{define "content"}}
<h1>{{.WorkflowID}}</h1>

<div class="toolbar">
  <form method="GET" action="/tree" style="display:inline-flex;gap:6px;align-items:center">
    <label>Search <input type="text" name="search" value="{{.SearchTerm}}" placeholder="task id"></label>
    <button type="submit">Filter</button>
    {{if .SearchTerm}}<a href="/tree" style="font-size:11px;color:#8b949e">clear</a>{{end}}
  </form>
  <form method="POST" action="/window" style="display:inline-flex;gap:6px;align-items:center">
    <label>Base date <input type="date" name="base_date" value="{{.BaseDate}}"></label>
    <label>Runs <input type="number" name="num_runs" value="{{.NumRuns}}" min="1" style="width:60px"></label>
    <button type="submit">Update</button>
  </form>
  <span class="mode">mode: {{.Mode}}{{if .FocusedState}} · {{title (printf "%s" .FocusedState)}}{{end}}</span>
</div>

<div class="legend">
{{$focused := .FocusedState}}
{{range .Legend}}
  <a href="/tree?focus={{.State}}" {{if eq .State $focused}}class="active"{{end}}>
    <span class="swatch" style="background:{{.Color}}"></span>{{title (printf "%s" .State)}}
  </a>
{{end}}
</div>

<div class="canvas">
<svg width="{{addf .Width (mul 18.0 (len .RunDates))}}" height="{{addf .Height 30.0}}" data-transition-ms="{{fmtMillis .Transition}}">
  {{$w := .Width}}
  {{range $i, $d := .RunDates}}
  <text class="run-hdr" x="{{addf $w (mul 18.0 $i)}}" y="12" transform="rotate(-45 {{addf $w (mul 18.0 $i)}} 12)">{{fmtDate $d}}</text>
  {{end}}
  <g transform="translate(0,20)">
  {{range .Links}}
  <polyline class="edge" points="{{points .Points}}" opacity="{{.Opacity}}"/>
  {{end}}
  {{range .Rows}}
  <g transform="translate({{.Pos.X}},{{.Pos.Y}})" opacity="{{.Opacity}}">
    {{if .HasChildren}}
    <a href="/tree/toggle?key={{.Key}}">
      <text class="caret" x="-14" dy="4">{{if .Collapsed}}▸{{else}}▾{{end}}</text>
    </a>
    {{end}}
    <circle r="5" class="cell" fill="{{stateColor .Class}}"/>
    <text class="row-label{{if .Synthetic}} synthetic{{end}}" x="10" dy="4" {{if .Emphasis}}font-weight="bold"{{end}}>{{.Label}}</text>
  </g>
  {{end}}
  {{range .Rows}}
  {{$y := .Pos.Y}}{{$op := .Opacity}}
  {{range $i, $c := .Cells}}
  <g transform="translate({{addf $w (mul 18.0 $i)}},{{$y}})" opacity="{{$op}}">
    <title>{{$c.Tooltip}}</title>
    <rect class="cell" x="0" y="-7" width="14" height="14" rx="2" fill="{{stateColor (printf "%s" $c.State)}}"{{if not $c.HasData}} fill-opacity="0.35"{{end}}/>
  </g>
  {{end}}
  {{end}}
  </g>
</svg>
</div>
{{end}}
`
