// Package templates loads site templates and renders data against them.
//
// Files ending in .html or .htm are parsed with html/template, everything else
// with text/template. Templates are named by their slash-separated path relative
// to the template root, so "partials/nav.html" can be included from any HTML template.
package templates

import (
	"bytes"
	stderrors "errors"
	htmltemplate "html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// ErrTemplateNotFound indicates a named template does not exist under the template root.
var ErrTemplateNotFound = stderrors.New("template not found")

// Renderer holds every parsed template of a site.
type Renderer struct {
	dir     string
	html    *htmltemplate.Template
	text    *texttemplate.Template
	sources map[string]string
	funcs   map[string]any
}

// Load parses every file under dir. A missing dir yields an empty renderer.
func Load(dir string, helpers Helpers) (*Renderer, error) {
	funcs := helpers.FuncMap()
	r := &Renderer{
		dir:     dir,
		html:    htmltemplate.New("").Funcs(funcs),
		text:    texttemplate.New("").Funcs(funcs),
		sources: make(map[string]string),
		funcs:   funcs,
	}
	if dir == "" {
		return r, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return r, nil
	}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		return r.add(filepath.ToSlash(rel), string(data))
	})
	if err != nil {
		if errors.IsClassified(err) {
			return nil, err
		}
		return nil, errors.WrapError(err, errors.CategoryTemplate, "load templates").
			Fatal().WithContext("path", dir).Build()
	}
	return r, nil
}

func (r *Renderer) add(name, src string) error {
	var err error
	if isHTML(name) {
		_, err = r.html.New(name).Parse(src)
	} else {
		_, err = r.text.New(name).Parse(src)
	}
	if err != nil {
		return errors.WrapError(err, errors.CategoryTemplate, "parse template").
			Fatal().WithContext("template", name).Build()
	}
	r.sources[name] = src
	return nil
}

func isHTML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}

// Dir returns the template root.
func (r *Renderer) Dir() string { return r.dir }

// Has reports whether a template with name exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.sources[name]
	return ok
}

// Names returns every template name.
func (r *Renderer) Names() []string {
	names := make([]string, 0, len(r.sources))
	for n := range r.sources {
		names = append(names, n)
	}
	return names
}


// Render executes template name with data. A missing template yields an
// item-level template error wrapping ErrTemplateNotFound.
func (r *Renderer) Render(name string, data any) ([]byte, error) {
	if !r.Has(name) {
		return nil, errors.WrapError(ErrTemplateNotFound, errors.CategoryTemplate, "template not found").
			WithContext("template", name).Build()
	}
	var buf bytes.Buffer
	var err error
	if isHTML(name) {
		err = r.html.ExecuteTemplate(&buf, name, data)
	} else {
		err = r.text.ExecuteTemplate(&buf, name, data)
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryTemplate, "execute template").
			WithContext("template", name).Build()
	}
	return buf.Bytes(), nil
}

// RenderString parses src as a standalone template named name and executes it.
// The engine is chosen by name's extension.
func (r *Renderer) RenderString(name, src string, data any) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if isHTML(name) {
		var t *htmltemplate.Template
		if t, err = htmltemplate.New(name).Funcs(r.funcs).Parse(src); err == nil {
			err = t.Execute(&buf, data)
		}
	} else {
		var t *texttemplate.Template
		if t, err = texttemplate.New(name).Funcs(r.funcs).Parse(src); err == nil {
			err = t.Execute(&buf, data)
		}
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryTemplate, "render template").
			WithContext("template", name).Build()
	}
	return buf.Bytes(), nil
}
