package web

import "html/template"

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>cardseek</title>
<style>
body { font-family: sans-serif; max-width: 60em; margin: 2em auto; }
.card { display: flex; gap: 1em; border-bottom: 1px solid #ccc; padding: 1em 0; }
.card img { width: 146px; }
.score { color: #666; }
.notice, .error { padding: 0.5em; background: #fff3cd; }
.error { background: #f8d7da; }
</style>
</head>
<body>
<h1>cardseek</h1>
<form method="get" action="/">
  <label><input type="radio" name="mode" value="text"{{if not .ByName}} checked{{end}}> Describe a card</label>
  <label><input type="radio" name="mode" value="name"{{if .ByName}} checked{{end}}> Find cards like</label>
  <br>
  <input type="text" name="q" value="{{.Query}}" size="60" autofocus>
  <button type="submit">Search</button>
</form>
{{with .Message}}<p class="error">{{.}}</p>{{end}}
{{with .Notice}}<p class="notice">{{.}}</p>{{end}}
{{with .Matched}}<p>Cards like <strong>{{.}}</strong>:</p>{{end}}
{{range .Hits}}
<div class="card">
  {{with .Image}}<img src="{{.}}" alt="">{{end}}
  <div>
    <h3>{{.Name}} <span class="score">{{printf "%.2f" .Score}}</span></h3>
    <p>{{.ManaCost}} {{.Type}}</p>
    {{range .Lines}}<p>{{.}}</p>{{end}}
  </div>
</div>
{{end}}
</body>
</html>
`))
