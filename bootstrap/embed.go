package bootstrap

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// templates parses the embedded relay templates once. Values rendered with
// js become JSON literals, which are valid JavaScript expressions.
var templates = sync.OnceValues(func() (*template.Template, error) {
	tpl, err := template.New("relay").Funcs(template.FuncMap{
		"js": func(value any) (string, error) {
			quoted, err := json.Marshal(value)
			return string(quoted), err
		},
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse relay templates: %w", err)
	}
	return tpl, nil
})
