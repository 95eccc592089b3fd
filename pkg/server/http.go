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
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSessionTTL is the recommended idle session TTL.
const DefaultSessionTTL = 30 * time.Minute

// maxBodySize caps a single JSON-RPC request body at 10MB.
const maxBodySize = 10 * 1024 * 1024

// HTTPTransport serves the JSON-RPC dispatcher over a single POST endpoint.
// Each message body carries one JSON-RPC request; the JSON response is
// written back in the same HTTP exchange. Sessions are tracked via the
// Mcp-Session-Id header: an initialize request without one mints a new
// session, and each session carries its own connection state so that
// initialization is remembered across requests. Requests without a session
// header run against a throwaway connection state.
//
// DELETE terminates a session. Idle sessions are expired by a background
// sweeper when a TTL is configured.
type HTTPTransport struct {
	server      *Server
	sessions    map[string]*httpSession
	mu          sync.RWMutex
	logger      *zap.Logger
	sessionTTL  time.Duration
	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

type httpSession struct {
	id           string
	conn         *ConnState
	lastActivity time.Time
}

// HTTPTransportConfig configures the HTTP transport.
type HTTPTransportConfig struct {
	Server     *Server
	Logger     *zap.Logger
	SessionTTL time.Duration // TTL for idle sessions; 0 disables cleanup
}

// NewHTTPTransport creates an http.Handler serving the dispatcher.
func NewHTTPTransport(config HTTPTransportConfig) *HTTPTransport {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	ttl := config.SessionTTL
	if ttl < 0 {
		ttl = 0
	}

	t := &HTTPTransport{
		server:      config.Server,
		sessions:    make(map[string]*httpSession),
		logger:      config.Logger,
		sessionTTL:  ttl,
		stopCleanup: make(chan struct{}),
	}

	if ttl > 0 {
		t.startCleanup()
	}

	return t
}

// ServeHTTP implements http.Handler.
func (t *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		t.handlePost(w, r)
	case http.MethodDelete:
		t.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (t *HTTPTransport) handlePost(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	// Accept "application/json" with optional params like charset.
	ct := r.Header.Get("Content-Type")
	if ct != "" {
		mediaType, _, _ := mime.ParseMediaType(ct)
		if mediaType != "application/json" {
			http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		t.logger.Error("failed to read request body", zap.Error(err))
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	if len(body) == 0 {
		http.Error(w, "Empty request body", http.StatusBadRequest)
		return
	}

	isInit := isInitializeRequest(body)

	var conn *ConnState
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID != "" {
		t.mu.Lock()
		sess, exists := t.sessions[sessionID]
		if exists {
			sess.lastActivity = time.Now()
			conn = sess.conn
		}
		t.mu.Unlock()
		if !exists {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
	} else {
		conn = NewConnState()
	}

	resp, err := t.server.HandleMessage(r.Context(), conn, body)
	if err != nil {
		t.logger.Error("dispatcher error", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if isInit && sessionID == "" {
		newSessionID := uuid.New().String()
		t.mu.Lock()
		t.sessions[newSessionID] = &httpSession{
			id:           newSessionID,
			conn:         conn,
			lastActivity: time.Now(),
		}
		t.mu.Unlock()
		w.Header().Set("Mcp-Session-Id", newSessionID)
		t.logger.Info("created new session", zap.String("session_id", newSessionID))
	}

	if resp == nil {
		// Notification, accepted but no content.
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp)
}

func (t *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Mcp-Session-Id header required", http.StatusBadRequest)
		return
	}

	t.mu.Lock()
	_, exists := t.sessions[sessionID]
	if exists {
		delete(t.sessions, sessionID)
	}
	t.mu.Unlock()

	if !exists {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	t.logger.Info("session terminated", zap.String("session_id", sessionID))
	w.WriteHeader(http.StatusOK)
}

// isInitializeRequest checks if the body contains an initialize method call.
func isInitializeRequest(body []byte) bool {
	var req struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return false
	}
	return req.Method == "initialize"
}

// SessionCount returns the number of active sessions.
func (t *HTTPTransport) SessionCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}

// Close stops the background session sweeper. Safe to call multiple times.
func (t *HTTPTransport) Close() {
	t.cleanupOnce.Do(func() {
		close(t.stopCleanup)
	})
}

// startCleanup runs a background goroutine that removes expired sessions.
// The sweep interval is half the session TTL.
func (t *HTTPTransport) startCleanup() {
	interval := t.sessionTTL / 2
	if interval < time.Second {
		interval = time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-t.stopCleanup:
				return
			case now := <-ticker.C:
				t.expireSessions(now)
			}
		}
	}()
}

func (t *HTTPTransport) expireSessions(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, sess := range t.sessions {
		if now.Sub(sess.lastActivity) > t.sessionTTL {
			delete(t.sessions, id)
			t.logger.Info("session expired", zap.String("session_id", id))
		}
	}
}
