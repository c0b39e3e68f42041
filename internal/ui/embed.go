// Package ui renders the server side console pages: the sign-in form and the
// dashboard shell whose sidebar only lists sections the session may read.
package ui

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/phdlabs/admind/internal/authz"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// LoginPage is the data of the sign-in form.
type LoginPage struct {
	ReturnURL string
	Email     string
	Error     string
}

// SectionPage is the data of a dashboard section.
type SectionPage struct {
	Title   string
	Path    string
	Admin   string
	Nav     []authz.Route
	Tabs    []authz.Route
	APIPath string
}

// Active reports whether r is the section being shown or one of its parents.
func (p SectionPage) Active(r authz.Route) bool {
	return p.Path == r.Path || strings.HasPrefix(p.Path, r.Path+"/")
}

// RenderLogin writes the sign-in page.
func RenderLogin(w io.Writer, p LoginPage) error {
	return templates.ExecuteTemplate(w, "login.html", p)
}

// RenderSection writes a dashboard section.
func RenderSection(w io.Writer, p SectionPage) error {
	return templates.ExecuteTemplate(w, "section.html", p)
}
