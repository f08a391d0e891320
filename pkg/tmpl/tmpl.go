// Package tmpl compiles user supplied line templates, such as the
// `huddle dump --template` output format.
package tmpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"
)

var funcs = template.FuncMap{
	"oneline":  oneline,
	"truncate": truncate,
	"pad":      pad,
	"json":     toJSON,
}

// oneline joins the lines of s with a single space.
func oneline(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " ")
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(n int, s string) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

// pad right-pads s with spaces to n runes.
func pad(n int, s string) string {
	if w := utf8.RuneCountInString(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}

func toJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Template is a parsed template. Undefined keys are an error at execution.
type Template struct {
	t *template.Template
}

// Compile parses src. Available functions: oneline, truncate N, pad N, json.
func Compile(src string) (*Template, error) {
	t, err := template.New("line").Funcs(funcs).Option("missingkey=error").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Template{t: t}, nil
}

// Execute renders the template with data.
func (t *Template) Execute(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// Render compiles and executes src once.
func Render(src string, data any) (string, error) {
	t, err := Compile(src)
	if err != nil {
		return "", err
	}
	return t.Execute(data)
}
