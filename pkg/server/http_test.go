// Copyright 2026 Manifold Works
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testTransport(t *testing.T, ttl time.Duration) *HTTPTransport {
	t.Helper()
	tr := NewHTTPTransport(HTTPTransportConfig{
		Server:     testServer(t),
		Logger:     zaptest.NewLogger(t),
		SessionTTL: ttl,
	})
	t.Cleanup(tr.Close)
	return tr
}

func postJSON(t *testing.T, tr *HTTPTransport, body, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	w := httptest.NewRecorder()
	tr.ServeHTTP(w, req)
	return w
}

func TestHTTPTransport_InitializeCreatesSession(t *testing.T) {
	tr := testTransport(t, 0)

	w := postJSON(t, tr, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	sessionID := w.Header().Get("Mcp-Session-Id")
	require.NotEmpty(t, sessionID)
	assert.Equal(t, 1, tr.SessionCount())

	// The session's connection state carries Initialized across requests.
	w2 := postJSON(t, tr, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, sessionID)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), `"add"`)
}

func TestHTTPTransport_UnknownSession(t *testing.T) {
	tr := testTransport(t, 0)
	w := postJSON(t, tr, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, "no-such-session")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHTTPTransport_NoSessionHeaderIsPermitted(t *testing.T) {
	tr := testTransport(t, 0)
	w := postJSON(t, tr, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, "")
	assert.Equal(t, http.StatusOK, w.Code)
	// No session is minted for non-initialize requests.
	assert.Empty(t, w.Header().Get("Mcp-Session-Id"))
	assert.Equal(t, 0, tr.SessionCount())
}

func TestHTTPTransport_NotificationAccepted(t *testing.T) {
	tr := testTransport(t, 0)
	w := postJSON(t, tr, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHTTPTransport_RejectsBadContentType(t *testing.T) {
	tr := testTransport(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	tr.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestHTTPTransport_RejectsEmptyBody(t *testing.T) {
	tr := testTransport(t, 0)
	w := postJSON(t, tr, ``, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPTransport_MethodNotAllowed(t *testing.T) {
	tr := testTransport(t, 0)
	req := httptest.NewRequest(http.MethodPut, "/mcp", nil)
	w := httptest.NewRecorder()
	tr.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "POST, DELETE", w.Header().Get("Allow"))
}

func TestHTTPTransport_DeleteSession(t *testing.T) {
	tr := testTransport(t, 0)

	w := postJSON(t, tr, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, "")
	sessionID := w.Header().Get("Mcp-Session-Id")
	require.NotEmpty(t, sessionID)

	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	req.Header.Set("Mcp-Session-Id", sessionID)
	rec := httptest.NewRecorder()
	tr.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, tr.SessionCount())

	// Deleting again reports not found.
	rec2 := httptest.NewRecorder()
	tr.ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusNotFound, rec2.Code)
}

func TestHTTPTransport_DeleteRequiresHeader(t *testing.T) {
	tr := testTransport(t, 0)
	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	w := httptest.NewRecorder()
	tr.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPTransport_SessionExpiry(t *testing.T) {
	tr := testTransport(t, time.Minute)

	w := postJSON(t, tr, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, "")
	require.NotEmpty(t, w.Header().Get("Mcp-Session-Id"))
	require.Equal(t, 1, tr.SessionCount())

	tr.expireSessions(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, tr.SessionCount())
}
