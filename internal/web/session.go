// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package web

import (
	"context"
	"net/http"

	"github.com/keystead/keystead/internal/auth"
	"github.com/keystead/keystead/pkg/errutil"
)

type sessionKey struct{}

// WithSession returns a context carrying session.
func WithSession(ctx context.Context, session *auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext returns the request's session. A context without one
// yields a fresh anonymous session.
func SessionFromContext(ctx context.Context) *auth.Session {
	if s, ok := ctx.Value(sessionKey{}).(*auth.Session); ok && s != nil {
		return s
	}
	return auth.NewAnonymousSession()
}

// CookieOptions controls the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
}

// loadSession resolves the session cookie before any handler runs.
func (h *Handler) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if c, err := r.Cookie(h.cookie.Name); err == nil {
			token = c.Value
		}

		session, err := h.sessions.Load(r.Context(), token)
		if err != nil {
			errutil.LogError(r.Context(), h.logger, "session load failed", err)
			h.renderError(w, r)
			return
		}
		if token != "" && session.IsAnonymous() {
			// Stale or unknown token.
			h.clearCookie(w)
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

func (h *Handler) setCookie(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireAnonymous sends authenticated callers to the home page.
func RequireAnonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()).IsAuthenticated() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthenticated sends anonymous callers to the login form.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()).IsAnonymous() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
