package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// promptFuncs are the helpers available to consumer instruction templates.
var promptFuncs = template.FuncMap{
	"default": func(fallback any, val any) any {
		if val == nil || val == "" {
			return fallback
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"title": func(s string) string { return cases.Title(language.Und).String(s) },
	"join": func(sep string, v any) string {
		return strings.Join(stringItems(v), sep)
	},
	"bullets": func(v any) string {
		items := stringItems(v)
		for i, s := range items {
			items[i] = "- " + s
		}
		return strings.Join(items, "\n")
	},
	"truncate": func(n int, s string) string {
		if n <= 0 || utf8.RuneCountInString(s) <= n {
			return s
		}
		return string([]rune(s)[:n]) + "..."
	},
}

// stringItems flattens a section value into display strings.
func stringItems(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

// RenderTemplate renders a consumer instruction template against state.
// Prompts are plain text, so nothing is escaped. Text without template
// markers is returned as is.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("instructions").Funcs(promptFuncs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
