// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

// Package web is the HTML presentation layer: it maps form posts onto the
// auth flows and flow outcomes onto views, status codes and redirects.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/keystead/keystead/internal/auth"
	"github.com/keystead/keystead/pkg/errutil"
)

// maxFormBytes bounds a form body.
const maxFormBytes = 64 << 10

// Flows is the subset of auth.Service the handlers drive.
type Flows interface {
	Register(ctx context.Context, in auth.RegistrationInput) (*auth.Account, error)
	Login(ctx context.Context, sess *auth.Session, in auth.LoginInput) (*auth.Account, error)
	Logout(ctx context.Context, sess *auth.Session) error
}

var _ Flows = (*auth.Service)(nil)

// Handler serves the account pages.
type Handler struct {
	flows    Flows
	sessions auth.SessionStore
	views    *views
	cookie   CookieOptions
	logger   *slog.Logger
}

// NewHandler creates a Handler. A nil logger discards log output.
func NewHandler(flows Flows, sessions auth.SessionStore, cookie CookieOptions, logger *slog.Logger) (*Handler, error) {
	if flows == nil {
		return nil, oops.Code("WEB_INVALID_HANDLER").Errorf("flows are required")
	}
	if sessions == nil {
		return nil, oops.Code("WEB_INVALID_HANDLER").Errorf("session store is required")
	}
	if cookie.Name == "" {
		return nil, oops.Code("WEB_INVALID_HANDLER").Errorf("cookie name is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	return &Handler{flows: flows, sessions: sessions, views: v, cookie: cookie, logger: logger}, nil
}

// Routes returns the router. Paths match case-insensitively.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(lowercasePath)
	r.Use(middleware.RequestID)
	r.Use(h.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(h.loadSession)

	r.Get("/", h.home)

	r.Group(func(r chi.Router) {
		r.Use(RequireAnonymous)
		r.Get("/signup", h.signupForm)
		r.Post("/signup", h.signup)
		r.Get("/signedup", h.signedUp)
		r.Get("/login", h.loginForm)
		r.Post("/login", h.login)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireAuthenticated)
		r.Get("/myprofile", h.profile)
		r.Post("/logout", h.logout)
	})

	return r
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageHome, viewData{Identity: SessionFromContext(r.Context()).Identity})
}

func (h *Handler) signupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageSignup, viewData{})
}

func (h *Handler) signedUp(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageSignedUp, viewData{})
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageLogin, viewData{})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageProfile, viewData{Identity: SessionFromContext(r.Context()).Identity})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, pageSignup, viewData{Error: auth.MsgSignupMissingFields})
		return
	}

	in := auth.RegistrationInput{
		Username: r.PostForm.Get("username"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}
	if _, err := h.flows.Register(r.Context(), in); err != nil {
		h.flowFailed(w, r, pageSignup, formValues{Username: in.Username, Email: in.Email}, err)
		return
	}

	http.Redirect(w, r, "/myprofile", http.StatusSeeOther)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, pageLogin, viewData{Error: auth.MsgLoginMissingFields})
		return
	}

	session := SessionFromContext(r.Context())
	in := auth.LoginInput{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}
	if _, err := h.flows.Login(r.Context(), session, in); err != nil {
		h.flowFailed(w, r, pageLogin, formValues{Email: in.Email}, err)
		return
	}

	// Login returns only after the session write is durable.
	h.setCookie(w, session)
	http.Redirect(w, r, "/myprofile", http.StatusSeeOther)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	err := h.flows.Logout(r.Context(), SessionFromContext(r.Context()))
	h.clearCookie(w)
	if err != nil {
		h.renderError(w, r)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// flowFailed re-renders page with the failure message for expected
// failures and shows the generic error page otherwise.
func (h *Handler) flowFailed(w http.ResponseWriter, r *http.Request, page string, form formValues, err error) {
	f, ok := auth.AsFailure(err)
	if !ok || !f.Expected() {
		if !ok {
			errutil.LogError(r.Context(), h.logger, "unexpected flow error", err)
		}
		h.renderError(w, r)
		return
	}
	h.render(w, r, StatusFor(f.Kind), page, viewData{Error: f.Message, Form: form})
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusInternalServerError, pageError, viewData{})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data viewData) {
	if err := h.views.render(w, status, page, data); err != nil {
		errutil.LogError(r.Context(), h.logger, "render failed", err, "page", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// StatusFor maps a failure kind to the response status of the re-rendered form.
func StatusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindMissingFields, auth.KindPasswordTooShort, auth.KindPasswordTooWeak, auth.KindPasswordTooLong:
		return http.StatusBadRequest
	case auth.KindDuplicateAccount:
		return http.StatusConflict
	case auth.KindInvalidAccountData:
		return http.StatusUnprocessableEntity
	case auth.KindInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
