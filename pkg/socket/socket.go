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

// Package socket implements the WebSocket adapter. Each inbound frame is a
// tool call; the outbound frame carries either the result value or an
// error message. Connections get a welcome frame on accept and are capped
// to protect the server.
package socket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/manifold-works/manifold/pkg/capability"
	"github.com/manifold-works/manifold/pkg/envelope"
	"go.uber.org/zap"
)

const (
	// MaxConnections caps concurrent socket clients.
	MaxConnections = 100

	// maxFrameSize rejects inbound frames above 1MB with an error frame.
	maxFrameSize = 1 << 20

	// readLimit is the hard cap past which the connection is torn down.
	readLimit = 2 << 20
)

// Frame is an inbound socket message.
type Frame struct {
	Type       string                 `json:"type"`
	Tool       string                 `json:"tool"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Handler upgrades HTTP requests to WebSocket connections and serves tool
// calls over them.
type Handler struct {
	registry *capability.Registry
	engine   *capability.Engine
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*websocket.Conn
}

// Config configures the socket adapter.
type Config struct {
	Registry *capability.Registry
	Engine   *capability.Engine
	Logger   *zap.Logger

	// CheckOrigin overrides the upgrader's origin policy. Nil allows all
	// origins, matching the REST adapter's open CORS default.
	CheckOrigin func(r *http.Request) bool
}

// NewHandler creates the socket adapter.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	checkOrigin := cfg.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Handler{
		registry: cfg.Registry,
		engine:   cfg.Engine,
		logger:   cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		clients: make(map[string]*websocket.Conn),
	}
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	clientID := uuid.New().String()
	if !h.register(clientID, conn) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections"),
			closeDeadline())
		_ = conn.Close()
		return
	}
	defer h.unregister(clientID, conn)

	h.logger.Info("websocket client connected", zap.String("client_id", clientID))

	if err := conn.WriteJSON(map[string]interface{}{
		"type":     "connection",
		"clientId": clientID,
	}); err != nil {
		h.logger.Warn("welcome frame failed", zap.String("client_id", clientID), zap.Error(err))
		return
	}

	conn.SetReadLimit(readLimit)
	h.readLoop(r, clientID, conn)
}

func (h *Handler) register(clientID string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) >= MaxConnections {
		return false
	}
	h.clients[clientID] = conn
	return true
}

func (h *Handler) unregister(clientID string, conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, clientID)
	h.mu.Unlock()
	_ = conn.Close()
	h.logger.Info("websocket client disconnected", zap.String("client_id", clientID))
}

func (h *Handler) readLoop(r *http.Request, clientID string, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read error", zap.String("client_id", clientID), zap.Error(err))
			}
			return
		}

		if len(data) > maxFrameSize {
			h.send(clientID, conn, map[string]interface{}{"error": "Message too large"})
			continue
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.send(clientID, conn, map[string]interface{}{"error": "Invalid JSON frame"})
			continue
		}
		if frame.Type != "tool_call" {
			h.send(clientID, conn, map[string]interface{}{"error": "Unsupported frame type: " + frame.Type})
			continue
		}
		if frame.Tool == "" {
			h.send(clientID, conn, map[string]interface{}{"error": "Tool name is required"})
			continue
		}

		tool, err := h.registry.Tool(frame.Tool)
		if err != nil {
			h.send(clientID, conn, envelope.SocketError(err))
			continue
		}

		value, err := h.engine.CallTool(r.Context(), tool, frame.Parameters)
		if err != nil {
			h.send(clientID, conn, envelope.SocketError(err))
			continue
		}

		h.logger.Debug("socket tool executed",
			zap.String("client_id", clientID),
			zap.String("tool", frame.Tool),
		)
		h.send(clientID, conn, envelope.SocketResult(value))
	}
}

func (h *Handler) send(clientID string, conn *websocket.Conn, frame map[string]interface{}) {
	if err := conn.WriteJSON(frame); err != nil {
		h.logger.Warn("websocket write failed", zap.String("client_id", clientID), zap.Error(err))
	}
}

func closeDeadline() time.Time {
	return time.Now().Add(5 * time.Second)
}
