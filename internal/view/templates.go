package view

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/kompello/kompello-console/internal/i18n"
	"github.com/kompello/kompello-console/internal/shared"
	"github.com/kompello/kompello-console/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// Viewer is the signed-in user as shown in the layout.
type Viewer struct {
	ID          string
	DisplayName string
	Email       string
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	CompanyID   string
	Viewer      *Viewer
	Theme       string
	Lang        *i18n.Translator
	Errors      map[string]string
	Data        any
}

// T translates key for the request locale.
func (d TemplateData) T(key string, args ...any) string {
	return d.Lang.T(key, args...)
}

// Decimal formats a decimal string for the request locale.
func (d TemplateData) Decimal(value string) string {
	return d.Lang.Decimal(value)
}

// FieldError returns the translated error of a form field, if any.
func (d TemplateData) FieldError(field string) string {
	key, ok := d.Errors[field]
	if !ok {
		return ""
	}
	return d.Lang.T(key)
}

// Locale returns the request locale for the html lang attribute.
func (d TemplateData) Locale() string {
	return d.Lang.Locale()
}

// NewTemplateData fills the per-request fields from the request context.
// Popping the flash marks the session dirty; the session middleware commits it.
func NewTemplateData(r *http.Request, title string, data any) TemplateData {
	ctx := r.Context()
	td := TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		Viewer:      ViewerFromContext(ctx),
		Theme:       "system",
		Lang:        i18n.FromContext(ctx),
		Data:        data,
	}
	if sess := shared.SessionFromContext(ctx); sess != nil {
		td.CSRFToken = sess.Get(shared.CSRFSessionKey)
		td.Flash = sess.PopFlash()
		td.Theme = sess.Theme()
	}
	return td
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders into a buffer first so that a template error can still
// produce a proper error response.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

type viewerContextKey struct{}

// ContextWithViewer stores the viewer for the layout.
func ContextWithViewer(ctx context.Context, v *Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey{}, v)
}

// ViewerFromContext returns the viewer or nil.
func ViewerFromContext(ctx context.Context) *Viewer {
	v, _ := ctx.Value(viewerContextKey{}).(*Viewer)
	return v
}
