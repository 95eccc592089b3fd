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

// Package capability implements the source-of-truth registry for tools,
// resources, and prompts, plus the invocation engine that validates raw
// wire arguments and dispatches them to registered handlers. All three
// protocol adapters (REST, MCP JSON-RPC, WebSocket) are thin consumers of
// this package.
package capability

import "context"

// Kind identifies the capability namespace a definition belongs to.
// The three namespaces are independent: a Tool and a Resource may share
// a name.
type Kind string

const (
	KindTool     Kind = "tool"
	KindResource Kind = "resource"
	KindPrompt   Kind = "prompt"
	KindTemplate Kind = "resource_template"
)

// Mode describes how the engine calls a handler. Both modes share the
// same Go calling convention (a context-taking function); Suspending marks
// handlers that may block on the context, Sync marks handlers that return
// without suspending. The engine reports the tag in its invocation logs.
type Mode int

const (
	ModeSync Mode = iota
	ModeSuspending
)

func (m Mode) String() string {
	if m == ModeSuspending {
		return "suspending"
	}
	return "synchronous"
}

// Handler is the uniform calling convention for all capabilities. The
// engine invokes it with coerced arguments; args never contains keys
// outside the capability's schema. Handlers that block must honor ctx.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Tool is a registered callable producing a computed result.
type Tool struct {
	Name        string
	Description string
	Schema      *ParameterSchema
	Handler     Handler
	Mode        Mode
}

// Resource is a registered, URI-addressed data provider.
type Resource struct {
	Name        string
	Description string
	URI         string
	MIMEType    string
	Schema      *ParameterSchema
	Handler     Handler
	Mode        Mode
}

// ResourceTemplate is a parameterized resource whose URI contains
// {placeholder} segments. Placeholder values extracted from a concrete URI
// are passed to the handler as string arguments and coerced by the engine.
type ResourceTemplate struct {
	Name        string
	Description string
	URITemplate string
	MIMEType    string
	Schema      *ParameterSchema
	Handler     Handler
	Mode        Mode

	segments []templateSegment // parsed form of URITemplate
}

// Prompt is a registered generator of a message sequence. Its handler must
// return []Message, a single Message, or a bare string (normalized to one
// user message).
type Prompt struct {
	Name        string
	Description string
	Schema      *ParameterSchema
	Handler     Handler
	Mode        Mode
}

// Role is a prompt message author role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single entry in a prompt's message sequence.
type Message struct {
	Role    Role           `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent is the content block of a prompt message. Only text
// content is produced by this server.
type MessageContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TextMessage builds a text message for the given role.
func TextMessage(role Role, text string) Message {
	return Message{
		Role:    role,
		Content: MessageContent{Type: "text", Text: text},
	}
}

func (t *Tool) schema() *ParameterSchema              { return t.Schema }
func (r *Resource) schema() *ParameterSchema          { return r.Schema }
func (rt *ResourceTemplate) schema() *ParameterSchema { return rt.Schema }
func (p *Prompt) schema() *ParameterSchema            { return p.Schema }

func (t *Tool) handler() Handler              { return t.Handler }
func (r *Resource) handler() Handler          { return r.Handler }
func (rt *ResourceTemplate) handler() Handler { return rt.Handler }
func (p *Prompt) handler() Handler            { return p.Handler }

func (t *Tool) mode() Mode              { return t.Mode }
func (r *Resource) mode() Mode          { return r.Mode }
func (rt *ResourceTemplate) mode() Mode { return rt.Mode }
func (p *Prompt) mode() Mode            { return p.Mode }

// invocable is the view of a capability the engine needs: its schema for
// validation, its handler for dispatch, and its mode for diagnostics.
type invocable interface {
	schema() *ParameterSchema
	handler() Handler
	mode() Mode
}
