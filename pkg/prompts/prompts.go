// Package prompts renders the system prompt variants used by conversations.
// Two template engines are supported behind one Formatter interface: Go
// text/template with sprig functions, and Jinja2 via gonja.
package prompts

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/nikolalohinski/gonja"
)

// Vars is the variable set a prompt template renders with.
type Vars map[string]any

// Formatter renders a prompt template with variables.
type Formatter interface {
	Format(vars Vars) (string, error)
}

var (
	_ Formatter = (*Template)(nil)
	_ Formatter = (*JinjaTemplate)(nil)
)

// Template renders Go text/template prompts with the sprig function set.
// Missing variables are render errors.
type Template struct {
	name string
	tmpl *template.Template
}

// NewTemplate parses a Go text/template prompt.
func NewTemplate(name, text string) (*Template, error) {
	tmpl, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse template %q", name)
	}
	return &Template{
		name: name,
		tmpl: tmpl,
	}, nil
}

// Format implements Formatter.
func (t *Template) Format(vars Vars) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, map[string]any(vars)); err != nil {
		return "", errors.Wrapf(err, "failed to render template %q", t.name)
	}
	return buf.String(), nil
}

// JinjaTemplate renders Jinja2 prompts via gonja, for prompt bodies authored
// in the Jinja dialect.
type JinjaTemplate struct {
	name   string
	render func(vars Vars) (string, error)
}

// NewJinjaTemplate parses a Jinja2 prompt.
func NewJinjaTemplate(name, text string) (*JinjaTemplate, error) {
	tmpl, err := gonja.FromString(text)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse template %q", name)
	}
	return &JinjaTemplate{
		name: name,
		render: func(vars Vars) (string, error) {
			ctx := gonja.Context{}
			for k, v := range vars {
				ctx[k] = v
			}
			return tmpl.Execute(ctx)
		},
	}, nil
}

// Format implements Formatter.
func (t *JinjaTemplate) Format(vars Vars) (string, error) {
	out, err := t.render(vars)
	if err != nil {
		return "", errors.Wrapf(err, "failed to render template %q", t.name)
	}
	return out, nil
}
