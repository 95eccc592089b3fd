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

// Package server implements the MCP JSON-RPC adapter: a method dispatcher
// over the capability registry and invocation engine, plus the HTTP
// transport that serves it on POST /mcp.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/manifold-works/manifold/pkg/capability"
	"github.com/manifold-works/manifold/pkg/protocol"
	"go.uber.org/zap"
)

// MethodHandler processes a JSON-RPC method call. params is the raw JSON
// params object from the request.
type MethodHandler func(ctx context.Context, conn *ConnState, params json.RawMessage) (interface{}, error)

// ConnState carries the per-connection MCP handshake state: Uninitialized
// until a successful initialize call, Initialized afterward. The HTTP
// transport keys one per session; the socket adapter keeps one per
// connection.
type ConnState struct {
	initialized atomic.Bool
}

// NewConnState returns a fresh, uninitialized connection state.
func NewConnState() *ConnState { return &ConnState{} }

// Initialized reports whether the initialize handshake completed.
func (c *ConnState) Initialized() bool { return c.initialized.Load() }

func (c *ConnState) markInitialized() { c.initialized.Store(true) }

// Server dispatches MCP JSON-RPC method calls to handlers backed by the
// capability registry and invocation engine.
//
// By default the server is permissive about ordering: method calls that
// arrive before initialize are served, matching the stateless POST
// transport most clients use. WithStrictInitialization restores the
// letter of the MCP contract (InvalidRequest before the handshake).
type Server struct {
	info     protocol.Implementation
	registry *capability.Registry
	engine   *capability.Engine
	logger   *zap.Logger
	strict   bool

	mu       sync.RWMutex
	handlers map[string]MethodHandler
}

// Option configures a Server.
type Option func(*Server)

// WithStrictInitialization rejects non-handshake methods on connections
// that have not completed initialize, with an InvalidRequest error.
func WithStrictInitialization() Option {
	return func(s *Server) { s.strict = true }
}

// New creates an MCP server over the given registry and engine. A nil
// logger is replaced with a no-op logger.
func New(name, version string, reg *capability.Registry, eng *capability.Engine, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		info:     protocol.Implementation{Name: name, Version: version},
		registry: reg,
		engine:   eng,
		logger:   logger,
		handlers: make(map[string]MethodHandler),
	}

	s.registerHandler("initialize", s.handleInitialize)
	s.registerHandler("notifications/initialized", s.handleNotificationsInitialized)
	s.registerHandler("ping", s.handlePing)
	s.registerHandler("tools/list", s.handleToolsList)
	s.registerHandler("tools/call", s.handleToolsCall)
	s.registerHandler("resources/list", s.handleResourcesList)
	s.registerHandler("resources/read", s.handleResourcesRead)
	s.registerHandler("resources/templates/list", s.handleTemplatesList)
	s.registerHandler("prompts/list", s.handlePromptsList)
	s.registerHandler("prompts/get", s.handlePromptsGet)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) registerHandler(method string, handler MethodHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
}

// handshakeMethod reports whether a method is allowed before initialize.
func handshakeMethod(method string) bool {
	switch method {
	case "initialize", "notifications/initialized", "ping":
		return true
	}
	return false
}

// HandleMessage processes a single JSON-RPC message and returns the
// response bytes. For notifications (no id), it returns nil.
func (s *Server) HandleMessage(ctx context.Context, conn *ConnState, msg []byte) ([]byte, error) {
	if conn == nil {
		conn = NewConnState()
	}

	var req protocol.Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return marshalResponse(nil, nil, protocol.NewError(protocol.ParseError, "invalid JSON", nil))
	}

	if err := protocol.ValidateRequest(&req); err != nil {
		return marshalResponse(req.ID, nil, protocol.NewError(protocol.InvalidRequest, err.Error(), nil))
	}

	s.logger.Debug("handling request", zap.String("method", req.Method), zap.Stringer("id", req.ID))
	start := time.Now()

	if s.strict && !conn.Initialized() && !handshakeMethod(req.Method) {
		if req.ID == nil {
			return nil, nil
		}
		return marshalResponse(req.ID, nil, protocol.NewError(protocol.InvalidRequest, "server not initialized", nil))
	}

	s.mu.RLock()
	handler, ok := s.handlers[req.Method]
	s.mu.RUnlock()

	if !ok {
		if req.ID == nil {
			// Notification for an unknown method is ignored silently.
			return nil, nil
		}
		return marshalResponse(req.ID, nil, protocol.NewError(protocol.MethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil))
	}

	result, err := handler(ctx, conn, req.Params)
	duration := time.Since(start)

	if err != nil {
		s.logger.Warn("handler error",
			zap.String("method", req.Method),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		if req.ID == nil {
			return nil, nil
		}
		var rpcErr *protocol.Error
		if errors.As(err, &rpcErr) {
			return marshalResponse(req.ID, nil, rpcErr)
		}
		return marshalResponse(req.ID, nil, protocol.NewError(protocol.InternalError, err.Error(), nil))
	}

	s.logger.Debug("request handled",
		zap.String("method", req.Method),
		zap.Duration("duration", duration),
	)

	if req.ID == nil {
		return nil, nil
	}
	return marshalResponse(req.ID, result, nil)
}

// Info returns the server identity reported to clients.
func (s *Server) Info() protocol.Implementation { return s.info }

// marshalResponse creates a JSON-RPC response.
func marshalResponse(id *protocol.RequestID, result interface{}, rpcErr *protocol.Error) ([]byte, error) {
	resp := protocol.Response{
		JSONRPC: protocol.JSONRPCVersion,
		ID:      id,
		Error:   rpcErr,
	}

	if result != nil {
		resultBytes, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		resp.Result = resultBytes
	}

	return json.Marshal(resp)
}
