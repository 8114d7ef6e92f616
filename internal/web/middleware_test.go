// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

package web

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowercasePath(t *testing.T) {
	var seen string
	h := lowercasePath(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r.URL.Path
	}))

	req := httptest.NewRequest(http.MethodGet, "/MyProfile?Next=/Home", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "/myprofile", seen)
	assert.Equal(t, "/MyProfile", req.URL.Path, "original request is not mutated")
}

func TestAccessLog_LevelByStatus(t *testing.T) {
	tests := []struct {
		status    int
		wantLevel string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusSeeOther, "INFO"},
		{http.StatusUnauthorized, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var buf bytes.Buffer
			h := &Handler{logger: slog.New(slog.NewJSONHandler(&buf, nil))}

			wrapped := h.accessLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/login", nil))

			var record map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
			assert.Equal(t, tt.wantLevel, record["level"])
			assert.Equal(t, "/login", record["path"])
			assert.InDelta(t, float64(tt.status), record["status"], 0)
		})
	}
}

func TestAccessLog_ImplicitOK(t *testing.T) {
	var buf bytes.Buffer
	h := &Handler{logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	wrapped := h.accessLog(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Contains(t, buf.String(), `"status":200`)
}
