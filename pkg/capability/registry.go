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

package capability

import (
	"fmt"
	"sync"
)

// Registry holds every registered capability. The three namespaces
// (tools, resources, prompts) are independent; resource URIs and template
// URI patterns share one global uniqueness domain. Listing preserves
// registration order.
//
// Registration happens once at process startup, before any transport
// accepts requests; after that the registry is read-only. The RWMutex
// keeps concurrent reads safe and covers any future move to dynamic
// registration.
type Registry struct {
	mu sync.RWMutex

	tools     map[string]*Tool
	toolOrder []string

	resources     map[string]*Resource
	resourceByURI map[string]*Resource
	resourceOrder []string

	prompts     map[string]*Prompt
	promptOrder []string

	templates       []*ResourceTemplate // registration order; first match wins
	templatePattern map[string]bool     // uri_template uniqueness
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:           make(map[string]*Tool),
		resources:       make(map[string]*Resource),
		resourceByURI:   make(map[string]*Resource),
		prompts:         make(map[string]*Prompt),
		templatePattern: make(map[string]bool),
	}
}

// RegisterTool adds a tool. Fails with DuplicateNameError if the name is
// taken in the tool namespace.
func (r *Registry) RegisterTool(t *Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("tool must have a name")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q must have a handler", t.Name)
	}
	if t.Schema == nil {
		t.Schema = EmptySchema()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return &DuplicateNameError{Kind: KindTool, Name: t.Name}
	}
	r.tools[t.Name] = t
	r.toolOrder = append(r.toolOrder, t.Name)
	return nil
}

// RegisterResource adds a literal resource. Fails with DuplicateNameError
// on a name collision and DuplicateURIError when the URI is already taken
// by a resource or a template pattern.
func (r *Registry) RegisterResource(res *Resource) error {
	if res == nil || res.Name == "" {
		return fmt.Errorf("resource must have a name")
	}
	if res.URI == "" {
		return fmt.Errorf("resource %q must have a URI", res.Name)
	}
	if res.Handler == nil {
		return fmt.Errorf("resource %q must have a handler", res.Name)
	}
	if res.Schema == nil {
		res.Schema = EmptySchema()
	}
	if res.MIMEType == "" {
		res.MIMEType = "text/plain"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resources[res.Name]; exists {
		return &DuplicateNameError{Kind: KindResource, Name: res.Name}
	}
	if _, exists := r.resourceByURI[res.URI]; exists {
		return &DuplicateURIError{URI: res.URI}
	}
	if r.templatePattern[res.URI] {
		return &DuplicateURIError{URI: res.URI}
	}
	r.resources[res.Name] = res
	r.resourceByURI[res.URI] = res
	r.resourceOrder = append(r.resourceOrder, res.Name)
	return nil
}

// RegisterTemplate adds a URI-template resource provider. The pattern must
// not collide with another template or a literal resource URI.
func (r *Registry) RegisterTemplate(rt *ResourceTemplate) error {
	if rt == nil || rt.Name == "" {
		return fmt.Errorf("resource template must have a name")
	}
	if rt.URITemplate == "" {
		return fmt.Errorf("resource template %q must have a URI template", rt.Name)
	}
	if rt.Handler == nil {
		return fmt.Errorf("resource template %q must have a handler", rt.Name)
	}
	if rt.Schema == nil {
		rt.Schema = EmptySchema()
	}
	if rt.MIMEType == "" {
		rt.MIMEType = "text/plain"
	}
	rt.segments = parseTemplate(rt.URITemplate)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.templates {
		if existing.Name == rt.Name {
			return &DuplicateNameError{Kind: KindTemplate, Name: rt.Name}
		}
	}
	if r.templatePattern[rt.URITemplate] {
		return &DuplicateURIError{URI: rt.URITemplate}
	}
	if _, exists := r.resourceByURI[rt.URITemplate]; exists {
		return &DuplicateURIError{URI: rt.URITemplate}
	}
	r.templatePattern[rt.URITemplate] = true
	r.templates = append(r.templates, rt)
	return nil
}

// RegisterPrompt adds a prompt generator.
func (r *Registry) RegisterPrompt(p *Prompt) error {
	if p == nil || p.Name == "" {
		return fmt.Errorf("prompt must have a name")
	}
	if p.Handler == nil {
		return fmt.Errorf("prompt %q must have a handler", p.Name)
	}
	if p.Schema == nil {
		p.Schema = EmptySchema()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.prompts[p.Name]; exists {
		return &DuplicateNameError{Kind: KindPrompt, Name: p.Name}
	}
	r.prompts[p.Name] = p
	r.promptOrder = append(r.promptOrder, p.Name)
	return nil
}

// Tool looks up a tool by name.
func (r *Registry) Tool(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, &NotFoundError{Kind: KindTool, Name: name}
	}
	return t, nil
}

// Resource looks up a resource by name.
func (r *Registry) Resource(name string) (*Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[name]
	if !ok {
		return nil, &NotFoundError{Kind: KindResource, Name: name}
	}
	return res, nil
}

// ResourceByURI looks up a literal resource by its exact URI.
func (r *Registry) ResourceByURI(uri string) (*Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resourceByURI[uri]
	if !ok {
		return nil, &NotFoundError{Kind: KindResource, Name: uri}
	}
	return res, nil
}

// Prompt looks up a prompt by name.
func (r *Registry) Prompt(name string) (*Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prompts[name]
	if !ok {
		return nil, &NotFoundError{Kind: KindPrompt, Name: name}
	}
	return p, nil
}

// Template looks up a resource template by name.
func (r *Registry) Template(name string) (*ResourceTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rt := range r.templates {
		if rt.Name == name {
			return rt, nil
		}
	}
	return nil, &NotFoundError{Kind: KindTemplate, Name: name}
}

// ResolveTemplate matches a concrete URI against registered templates by
// exact segment comparison, binding placeholder segments. Templates are
// tried in registration order; the first match wins.
func (r *Registry) ResolveTemplate(uri string) (*ResourceTemplate, map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rt := range r.templates {
		if params, ok := rt.Match(uri); ok {
			return rt, params, nil
		}
	}
	return nil, nil, &NotFoundError{Kind: KindTemplate, Name: uri}
}

// ListTools returns all tools in registration order.
func (r *Registry) ListTools() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.toolOrder))
	for _, name := range r.toolOrder {
		out = append(out, r.tools[name])
	}
	return out
}

// ListResources returns all literal resources in registration order.
func (r *Registry) ListResources() []*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Resource, 0, len(r.resourceOrder))
	for _, name := range r.resourceOrder {
		out = append(out, r.resources[name])
	}
	return out
}

// ListTemplates returns all resource templates in registration order.
func (r *Registry) ListTemplates() []*ResourceTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ResourceTemplate, len(r.templates))
	copy(out, r.templates)
	return out
}

// ListPrompts returns all prompts in registration order.
func (r *Registry) ListPrompts() []*Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Prompt, 0, len(r.promptOrder))
	for _, name := range r.promptOrder {
		out = append(out, r.prompts[name])
	}
	return out
}

// Counts reports how many capabilities of each kind are registered.
func (r *Registry) Counts() (tools, resources, prompts, templates int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools), len(r.resources), len(r.prompts), len(r.templates)
}
