// Package templates handles HTML fragment rendering for popups and the map page.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Files holds the built-in fragment and page templates.
//
//go:embed fragments/*.html pages/*.html
var Files embed.FS

// Patterns match every built-in template in Files.
var Patterns = []string{"fragments/*.html", "pages/*.html"}

var idr = message.NewPrinter(language.Indonesian)

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict builds the argument map for a nested template call
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	"join":   strings.Join,
	"rupiah": Rupiah,
	"kg":     Kilograms,
	"number": func(n int) string { return idr.Sprintf("%d", n) },
	"first": func(list []string) string {
		if len(list) == 0 {
			return ""
		}
		return list[0]
	},
}

// Rupiah formats an amount as Indonesian currency, e.g. "Rp 15.000".
func Rupiah(amount int64) string {
	return idr.Sprintf("Rp %d", amount)
}

// Kilograms formats a weight with one decimal, e.g. "12,5 kg".
func Kilograms(w float64) string {
	return idr.Sprintf("%.1f kg", w)
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New parses the templates in fsys matching patterns.
func New(fsys fs.FS, patterns ...string) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(fsys, patterns...)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Default returns a renderer over the embedded fragments.
func Default() (*Renderer, error) {
	return New(Files, Patterns...)
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Reload re-parses templates from fsys, typically a directory on disk
// during template development. On error the current templates stay.
func (r *Renderer) Reload(fsys fs.FS, patterns ...string) error {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(fsys, patterns...)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
