/*
Package impl contains the builder pipeline stages: planner, architect,
coder, reviewer, fixer, test generator, test runner and finalizer.
*/
package impl

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"sync"
	"text/template"
)

var promptFuncs = template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"upper": func(v any) string { return strings.ToUpper(fmt.Sprint(v)) },
	"join":  strings.Join,
}

var (
	templatesMu sync.Mutex
	templates   = map[string]*template.Template{}
)

// render executes a prompt template, parsing it once per name.
func render(name, text string, data any) (string, error) {
	templatesMu.Lock()
	tmpl, ok := templates[name]
	if !ok {
		var err error
		tmpl, err = template.New(name).Funcs(promptFuncs).Parse(text)
		if err != nil {
			templatesMu.Unlock()
			return "", fmt.Errorf("parse %s template: %w", name, err)
		}
		templates[name] = tmpl
	}
	templatesMu.Unlock()

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", name, err)
	}
	return buf.String(), nil
}

// fileExt returns the lowercase extension of p without the dot.
func fileExt(p string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}
