// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/samber/oops"

	"github.com/keystead/keystead/internal/auth"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	pageHome     = "home"
	pageSignup   = "signup"
	pageSignedUp = "signedup"
	pageLogin    = "login"
	pageProfile  = "profile"
	pageError    = "error"
)

var pageTitles = map[string]string{
	pageHome:     "Home",
	pageSignup:   "Sign up",
	pageSignedUp: "Signed up",
	pageLogin:    "Log in",
	pageProfile:  "My profile",
	pageError:    "Error",
}

// formValues echoes non-secret input back into a re-rendered form.
type formValues struct {
	Username string
	Email    string
}

type viewData struct {
	Title    string
	Identity *auth.Identity
	Error    string
	Form     formValues
}

type views struct {
	pages map[string]*template.Template
}

func loadViews() (*views, error) {
	v := &views{pages: make(map[string]*template.Template, len(pageTitles))}
	for page := range pageTitles {
		tmpl, err := template.New(page).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, oops.Code("WEB_TEMPLATE_INVALID").With("page", page).Wrap(err)
		}
		v.pages[page] = tmpl
	}
	return v, nil
}

// render executes page into a buffer so that a template failure never
// leaves a half-written response.
func (v *views) render(w http.ResponseWriter, status int, page string, data viewData) error {
	tmpl, ok := v.pages[page]
	if !ok {
		return oops.Code("WEB_TEMPLATE_MISSING").With("page", page).Errorf("unknown page %q", page)
	}
	if data.Title == "" {
		data.Title = pageTitles[page]
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return oops.Code("WEB_RENDER_FAILED").With("page", page).Wrap(err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
