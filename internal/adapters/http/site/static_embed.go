package site

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html.tmpl").Funcs(template.FuncMap{
	"rating": func(r float64) string { return fmt.Sprintf("%.1f", r) },
}).ParseFS(templateFS, "templates/index.html.tmpl"))
