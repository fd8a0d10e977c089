package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/atimot/najilaboule/internal/format"
)

// Analytics holds client instrumentation IDs surfaced to templates.
type Analytics struct {
	GA4MeasurementID string
	GTMContainerID   string
	Debug            bool
}

// Enabled reports whether any snippet should be rendered.
func (a Analytics) Enabled() bool {
	return a.GA4MeasurementID != "" || a.GTMContainerID != ""
}

// Templates parses and executes the page templates. In dev mode the files
// are parsed again on every render so edits show up without a restart.
type Templates struct {
	fsys  fs.FS
	dev   bool
	cache *template.Template
}

// NewTemplates parses every *.tmpl file in fsys.
func NewTemplates(fsys fs.FS, dev bool) (*Templates, error) {
	t := &Templates{fsys: fsys, dev: dev}
	tc, err := t.parse()
	if err != nil {
		return nil, err
	}
	t.cache = tc
	return t, nil
}

func (t *Templates) parse() (*template.Template, error) {
	funcMap := template.FuncMap{
		"multiline": format.Multiline,
		"withSep":   format.WithSeparator,
		"jsonld":    func(s string) template.JS { return template.JS(s) },
		"lower":     strings.ToLower,
	}
	var files []string
	if err := fs.WalkDir(t.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found")
	}
	return template.New("_root").Funcs(funcMap).ParseFS(t.fsys, files...)
}

func (t *Templates) current() (*template.Template, error) {
	if t.dev {
		return t.parse()
	}
	return t.cache, nil
}

// Execute renders the named template into a buffer first so a failing
// template never leaves a half-written response.
func (t *Templates) Execute(name string, data any) ([]byte, error) {
	tc, err := t.current()
	if err != nil {
		return nil, fmt.Errorf("template parse error: %w", err)
	}
	var buf bytes.Buffer
	if err := tc.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("template exec error: %w", err)
	}
	return buf.Bytes(), nil
}

// Render writes the named template as an HTML response.
func (t *Templates) Render(w http.ResponseWriter, status int, name string, data any) error {
	body, err := t.Execute(name, data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}
