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

// Package envelope normalizes invocation outcomes into transport-specific
// payloads. All three adapters share the mapping tables here so a given
// failure is classified identically on REST, MCP, and the socket channel.
package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/manifold-works/manifold/pkg/capability"
	"github.com/manifold-works/manifold/pkg/protocol"
)

// Stringify renders a handler return value as the text embedded in an MCP
// text-content block. Strings pass through; everything else (numbers,
// booleans, mappings, sequences) is serialized as canonical JSON text.
func Stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// ToolResult wraps a tool value as an MCP text-content result.
func ToolResult(value interface{}) *protocol.CallToolResult {
	return &protocol.CallToolResult{
		Content: []protocol.Content{{Type: "text", Text: Stringify(value)}},
	}
}

// ResourceResult wraps resource content as an MCP contents result.
func ResourceResult(uri, mimeType string, value interface{}) *protocol.ReadResourceResult {
	return &protocol.ReadResourceResult{
		Contents: []protocol.ResourceContents{{
			URI:      uri,
			MimeType: mimeType,
			Text:     Stringify(value),
		}},
	}
}

// PromptResult converts a prompt's message sequence into the shared
// messages envelope used verbatim by both REST and MCP.
func PromptResult(description string, messages []capability.Message) *protocol.GetPromptResult {
	out := make([]protocol.PromptMessage, len(messages))
	for i, m := range messages {
		out[i] = protocol.PromptMessage{
			Role: string(m.Role),
			Content: protocol.MessageContent{
				Type: m.Content.Type,
				Text: m.Content.Text,
			},
		}
	}
	return &protocol.GetPromptResult{Description: description, Messages: out}
}

// RESTToolBody is the REST envelope for a tool result.
func RESTToolBody(value interface{}) map[string]interface{} {
	return map[string]interface{}{"result": value}
}

// RESTResourceBody is the REST envelope for resource content.
func RESTResourceBody(uri, mimeType string, value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"content":  value,
		"uri":      uri,
		"mimeType": mimeType,
	}
}

// RESTStatus maps an invocation failure to its REST status code and the
// detail string for the {"detail": ...} error body. Lookup misses are
// client faults (404), validation failures are client faults (400), and
// anything raised inside a handler is a server fault (500). UserError
// detail is surfaced verbatim; unexpected errors get a generic detail so
// internals never leak onto the wire.
func RESTStatus(err error) (int, string) {
	var notFound *capability.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound, notFound.Error()
	}

	var missing *capability.MissingParameterError
	if errors.As(err, &missing) {
		return http.StatusBadRequest, "Invalid parameters: " + missing.Error()
	}
	var invalid *capability.InvalidParameterError
	if errors.As(err, &invalid) {
		return http.StatusBadRequest, "Invalid parameters: " + invalid.Error()
	}

	var user *capability.UserError
	if errors.As(err, &user) {
		return http.StatusInternalServerError, user.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}

// RPCError maps an invocation failure to its JSON-RPC error. Unknown
// capability names and validation failures are both invalid-params per the
// MCP contract; handler failures are internal errors and keep their
// message (UserError verbatim by construction).
func RPCError(err error) *protocol.Error {
	var rpcErr *protocol.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	var notFound *capability.NotFoundError
	if errors.As(err, &notFound) {
		return protocol.NewError(protocol.InvalidParams, notFound.Error(), nil)
	}
	var missing *capability.MissingParameterError
	if errors.As(err, &missing) {
		return protocol.NewError(protocol.InvalidParams, missing.Error(), nil)
	}
	var invalid *capability.InvalidParameterError
	if errors.As(err, &invalid) {
		return protocol.NewError(protocol.InvalidParams, invalid.Error(), nil)
	}

	return protocol.NewError(protocol.InternalError, err.Error(), nil)
}

// SocketResult is the socket frame for a successful tool call.
func SocketResult(value interface{}) map[string]interface{} {
	return map[string]interface{}{"result": value}
}

// SocketError is the socket frame for a failed tool call. The message
// follows the REST detail policy (UserError verbatim, internals generic).
func SocketError(err error) map[string]interface{} {
	_, detail := RESTStatus(err)
	return map[string]interface{}{"error": detail}
}
