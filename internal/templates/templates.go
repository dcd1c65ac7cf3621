// Package templates renders the HTML pages of the device activation UI
package templates

import (
	"embed"
	"html/template"
	"io"
)

//go:embed html/*.html
var content embed.FS

// Templates manages the HTML templates
type Templates struct {
	activate *template.Template
	approved *template.Template
	error    *template.Template
}

// Load parses all embedded HTML templates
func Load() (*Templates, error) {
	t := &Templates{}
	var err error

	if t.activate, err = template.ParseFS(content, "html/activate.html", "html/layout.html"); err != nil {
		return nil, err
	}
	if t.approved, err = template.ParseFS(content, "html/approved.html", "html/layout.html"); err != nil {
		return nil, err
	}
	if t.error, err = template.ParseFS(content, "html/error.html", "html/layout.html"); err != nil {
		return nil, err
	}

	return t, nil
}

// ActivateData holds data for the user code entry form
type ActivateData struct {
	PrefilledCode string
	CSRFToken     string
	Subject       string
	Teams         []string
	Error         string
}

// RenderActivate renders the activation form
func (t *Templates) RenderActivate(w io.Writer, data ActivateData) error {
	return t.activate.ExecuteTemplate(w, "layout", data)
}

// ApprovedData holds data for the approval confirmation page
type ApprovedData struct {
	Subject string
	Team    string
}

// RenderApproved renders the approval confirmation page
func (t *Templates) RenderApproved(w io.Writer, data ApprovedData) error {
	return t.approved.ExecuteTemplate(w, "layout", data)
}

// ErrorData holds data for the rejection page
type ErrorData struct {
	Title   string
	Message string
}

// RenderError renders the rejection page
func (t *Templates) RenderError(w io.Writer, data ErrorData) error {
	return t.error.ExecuteTemplate(w, "layout", data)
}
