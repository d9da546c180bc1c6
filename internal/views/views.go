// Package views renders the HTML pages from the embedded templates.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/patric-chuzhbe/tinyapp/internal/models"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	URLsIndex = "urls_index"
	URLsNew   = "urls_new"
	URLsShow  = "urls_show"
	Login     = "login"
	Register  = "register"
)

// Page carries what every template needs: the logged-in user for the header.
type Page struct {
	User *models.User
}

type URLRow struct {
	ShortID string
	LongURL string
}

type URLsIndexPage struct {
	Page
	Rows []URLRow
}

type URLsShowPage struct {
	Page
	ID      string
	LongURL string
}

type Views struct {
	templates *template.Template
}

func New() (*Views, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Views{templates: templates}, nil
}

// Render executes the named page into a buffer first so that a template
// error never leaves a half-written response.
func (v *Views) Render(response http.ResponseWriter, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := v.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}

	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(response)

	return err
}
