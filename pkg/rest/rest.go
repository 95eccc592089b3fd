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

// Package rest implements the REST adapter: plain JSON routes over the
// capability registry and invocation engine. Every capability kind gets a
// list route, an info route, and an invoke route; failures are rendered as
// {"detail": ...} bodies with the status mapped from the error category.
package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/manifold-works/manifold/pkg/capability"
	"github.com/manifold-works/manifold/pkg/envelope"
	"go.uber.org/zap"
)

// maxArgsBody caps the request body for invoke routes.
const maxArgsBody = 1 << 20

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// API serves the REST routes for a registry.
type API struct {
	name     string
	version  string
	registry *capability.Registry
	engine   *capability.Engine
	logger   *zap.Logger

	// endpoint paths advertised by the root route
	mcpEndpoint string
	wsEndpoint  string
}

// Config configures the REST adapter.
type Config struct {
	Name        string
	Version     string
	Registry    *capability.Registry
	Engine      *capability.Engine
	Logger      *zap.Logger
	MCPEndpoint string
	WSEndpoint  string
}

// New creates the REST adapter.
func New(cfg Config) *API {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &API{
		name:        cfg.Name,
		version:     cfg.Version,
		registry:    cfg.Registry,
		engine:      cfg.Engine,
		logger:      cfg.Logger,
		mcpEndpoint: cfg.MCPEndpoint,
		wsEndpoint:  cfg.WSEndpoint,
	}
}

// Register mounts all REST routes on the given router.
func (a *API) Register(r chi.Router) {
	r.Get("/", a.handleRoot)
	r.Get("/health", a.handleHealth)

	r.Get("/tools", a.handleListTools)
	r.Get("/tools/{name}", a.handleToolInfo)
	r.Post("/tools/{name}", a.handleToolCall)

	r.Get("/resources", a.handleListResources)
	r.Get("/resources/by-uri/*", a.handleResourceByURI)
	r.Get("/resources/{name}", a.handleResourceRead)

	r.Get("/resource-templates", a.handleListTemplates)
	r.Get("/resource-templates/{name}", a.handleTemplateInfo)
	r.Post("/resource-templates/{name}", a.handleTemplateRead)

	r.Get("/prompts", a.handleListPrompts)
	r.Get("/prompts/{name}", a.handlePromptInfo)
	r.Post("/prompts/{name}", a.handlePromptCall)
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	tools := a.registry.ListTools()
	resources := a.registry.ListResources()
	prompts := a.registry.ListPrompts()

	toolNames := make([]string, len(tools))
	for i, t := range tools {
		toolNames[i] = t.Name
	}
	resourceNames := make([]string, len(resources))
	for i, res := range resources {
		resourceNames[i] = res.Name
	}
	promptNames := make([]string, len(prompts))
	for i, p := range prompts {
		promptNames[i] = p.Name
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":      a.name,
		"version":   a.version,
		"tools":     toolNames,
		"resources": resourceNames,
		"prompts":   promptNames,
		"endpoints": map[string]interface{}{
			"rest_api": map[string]string{
				"tools":     "/tools",
				"resources": "/resources",
				"prompts":   "/prompts",
			},
			"mcp": map[string]string{
				"endpoint": a.mcpEndpoint,
			},
			"websocket": map[string]string{
				"endpoint": a.wsEndpoint,
			},
		},
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	tools, resources, prompts, _ := a.registry.Counts()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"tools":     tools,
		"resources": resources,
		"prompts":   prompts,
	})
}

func (a *API) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools := a.registry.ListTools()
	out := make([]map[string]interface{}, len(tools))
	for i, t := range tools {
		out[i] = toolInfo(t)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tools": out,
		"count": len(out),
	})
}

func (a *API) handleToolInfo(w http.ResponseWriter, r *http.Request) {
	name, ok := capabilityName(w, r)
	if !ok {
		return
	}
	t, err := a.registry.Tool(name)
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toolInfo(t))
}

func (a *API) handleToolCall(w http.ResponseWriter, r *http.Request) {
	name, ok := capabilityName(w, r)
	if !ok {
		return
	}
	args, ok := decodeArgs(w, r)
	if !ok {
		return
	}

	t, err := a.registry.Tool(name)
	if err != nil {
		writeErrorFor(w, err)
		return
	}

	value, err := a.engine.CallTool(r.Context(), t, args)
	if err != nil {
		writeErrorFor(w, err)
		return
	}

	a.logger.Info("tool executed", zap.String("tool", name))
	writeJSON(w, http.StatusOK, envelope.RESTToolBody(value))
}

func (a *API) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources := a.registry.ListResources()
	out := make([]map[string]interface{}, len(resources))
	for i, res := range resources {
		out[i] = map[string]interface{}{
			"name":        res.Name,
			"uri":         res.URI,
			"description": res.Description,
			"mimeType":    res.MIMEType,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"resources": out,
		"count":     len(out),
	})
}

func (a *API) handleResourceRead(w http.ResponseWriter, r *http.Request) {
	name, ok := capabilityName(w, r)
	if !ok {
		return
	}
	res, err := a.registry.Resource(name)
	if err != nil {
		writeErrorFor(w, err)
		return
	}

	value, err := a.engine.ReadResource(r.Context(), res, nil)
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope.RESTResourceBody(res.URI, res.MIMEType, value))
}

// handleResourceByURI reads a resource addressed by its full URI, taken
// from the wildcard path tail and percent-decoded. Literal resources win;
// otherwise templates are tried in registration order.
func (a *API) handleResourceByURI(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")
	uri, err := url.PathUnescape(raw)
	if err != nil {
		uri = raw
	}
	if uri == "" || len(uri) > 500 {
		writeError(w, http.StatusBadRequest, "Invalid URI")
		return
	}

	if res, err := a.registry.ResourceByURI(uri); err == nil {
		value, err := a.engine.ReadResource(r.Context(), res, nil)
		if err != nil {
			writeErrorFor(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope.RESTResourceBody(uri, res.MIMEType, value))
		return
	}

	rt, bindings, err := a.registry.ResolveTemplate(uri)
	if err != nil {
		writeErrorFor(w, &capability.NotFoundError{
			Kind: capability.KindResource,
			Name: uri,
		})
		return
	}

	value, err := a.engine.ReadTemplate(r.Context(), rt, bindings)
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope.RESTResourceBody(uri, rt.MIMEType, value))
}

func (a *API) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := a.registry.ListTemplates()
	out := make([]map[string]interface{}, len(templates))
	for i, rt := range templates {
		out[i] = templateInfo(rt)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"templates": out,
		"count":     len(out),
	})
}

func (a *API) handleTemplateInfo(w http.ResponseWriter, r *http.Request) {
	name, ok := capabilityName(w, r)
	if !ok {
		return
	}
	rt, err := a.registry.Template(name)
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templateInfo(rt))
}

func (a *API) handleTemplateRead(w http.ResponseWriter, r *http.Request) {
	name, ok := capabilityName(w, r)
	if !ok {
		return
	}

	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxArgsBody)

	var req struct {
		Parameters map[string]string `json:"parameters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid parameters: request body must be a JSON object")
		return
	}
	params := req.Parameters
	if params == nil {
		params = map[string]string{}
	}

	rt, err := a.registry.Template(name)
	if err != nil {
		writeErrorFor(w, err)
		return
	}

	value, err := a.engine.ReadTemplate(r.Context(), rt, params)
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope.RESTResourceBody(rt.ResolveURI(params), rt.MIMEType, value))
}

func (a *API) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	prompts := a.registry.ListPrompts()
	out := make([]map[string]interface{}, len(prompts))
	for i, p := range prompts {
		out[i] = promptInfo(p)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"prompts": out,
		"count":   len(out),
	})
}

func (a *API) handlePromptInfo(w http.ResponseWriter, r *http.Request) {
	name, ok := capabilityName(w, r)
	if !ok {
		return
	}
	p, err := a.registry.Prompt(name)
	if err != nil {
		writeErrorFor(w, err)
		return
	}
	writeJSON(w, http.StatusOK, promptInfo(p))
}

func (a *API) handlePromptCall(w http.ResponseWriter, r *http.Request) {
	name, ok := capabilityName(w, r)
	if !ok {
		return
	}
	args, ok := decodeArgs(w, r)
	if !ok {
		return
	}

	p, err := a.registry.Prompt(name)
	if err != nil {
		writeErrorFor(w, err)
		return
	}

	messages, err := a.engine.GetPrompt(r.Context(), p, args)
	if err != nil {
		writeErrorFor(w, err)
		return
	}

	a.logger.Info("prompt executed", zap.String("prompt", name))
	writeJSON(w, http.StatusOK, envelope.PromptResult(p.Description, messages))
}

func toolInfo(t *capability.Tool) map[string]interface{} {
	return map[string]interface{}{
		"name":        t.Name,
		"description": t.Description,
		"parameters":  t.Schema.JSONSchema(),
	}
}

func templateInfo(rt *capability.ResourceTemplate) map[string]interface{} {
	return map[string]interface{}{
		"name":        rt.Name,
		"uriTemplate": rt.URITemplate,
		"description": rt.Description,
		"mimeType":    rt.MIMEType,
		"parameters":  rt.ParamNames(),
	}
}

func promptInfo(p *capability.Prompt) map[string]interface{} {
	args := make([]map[string]interface{}, 0, p.Schema.Len())
	for _, param := range p.Schema.Parameters() {
		args = append(args, map[string]interface{}{
			"name":        param.Name,
			"description": param.Description,
			"required":    param.Required,
		})
	}
	return map[string]interface{}{
		"name":        p.Name,
		"description": p.Description,
		"arguments":   args,
	}
}

// capabilityName extracts and validates the {name} route parameter.
func capabilityName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if !namePattern.MatchString(name) {
		writeError(w, http.StatusBadRequest, "Invalid capability name")
		return "", false
	}
	return name, true
}

// decodeArgs reads the request body as an argument mapping. An empty body
// is treated as no arguments.
func decodeArgs(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxArgsBody)

	args := map[string]interface{}{}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&args); err != nil {
		if errors.Is(err, io.EOF) {
			return args, true
		}
		writeError(w, http.StatusBadRequest, "Invalid parameters: request body must be a JSON object")
		return nil, false
	}
	return args, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeErrorFor classifies err into a REST status and detail message.
func writeErrorFor(w http.ResponseWriter, err error) {
	status, detail := envelope.RESTStatus(err)
	writeError(w, status, detail)
}
