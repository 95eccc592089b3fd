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
	"context"
	"encoding/json"
	"fmt"

	"github.com/manifold-works/manifold/pkg/capability"
	"github.com/manifold-works/manifold/pkg/envelope"
	"github.com/manifold-works/manifold/pkg/protocol"
	"go.uber.org/zap"
)

func (s *Server) handleInitialize(_ context.Context, conn *ConnState, params json.RawMessage) (interface{}, error) {
	var initParams protocol.InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, protocol.NewError(protocol.InvalidParams, fmt.Sprintf("invalid initialize params: %v", err), nil)
		}
	}

	if initParams.ProtocolVersion != "" && initParams.ProtocolVersion != protocol.ProtocolVersion {
		s.logger.Warn("client protocol version mismatch",
			zap.String("client_version", initParams.ProtocolVersion),
			zap.String("server_version", protocol.ProtocolVersion),
		)
	}
	if initParams.ClientInfo.Name != "" {
		s.logger.Info("client connected",
			zap.String("client_name", initParams.ClientInfo.Name),
			zap.String("client_version", initParams.ClientInfo.Version),
		)
	}

	conn.markInitialized()

	return protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolVersion,
		Capabilities: protocol.ServerCapabilities{
			Tools:     map[string]interface{}{},
			Resources: map[string]interface{}{},
			Prompts:   map[string]interface{}{},
		},
		ServerInfo: s.info,
	}, nil
}

func (s *Server) handleNotificationsInitialized(_ context.Context, _ *ConnState, _ json.RawMessage) (interface{}, error) {
	s.logger.Debug("client initialized")
	return struct{}{}, nil
}

func (s *Server) handlePing(_ context.Context, _ *ConnState, _ json.RawMessage) (interface{}, error) {
	return struct{}{}, nil
}

func (s *Server) handleToolsList(_ context.Context, _ *ConnState, _ json.RawMessage) (interface{}, error) {
	tools := s.registry.ListTools()
	out := make([]protocol.Tool, len(tools))
	for i, t := range tools {
		out[i] = protocol.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Schema.JSONSchema(),
		}
	}
	return protocol.ToolListResult{Tools: out}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, _ *ConnState, params json.RawMessage) (interface{}, error) {
	var callParams protocol.CallToolParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, protocol.NewError(protocol.InvalidParams, fmt.Sprintf("invalid tool call params: %v", err), nil)
	}
	if callParams.Name == "" {
		return nil, protocol.NewError(protocol.InvalidParams, "tool name is required", nil)
	}

	tool, err := s.registry.Tool(callParams.Name)
	if err != nil {
		return nil, envelope.RPCError(err)
	}

	value, err := s.engine.CallTool(ctx, tool, callParams.Arguments)
	if err != nil {
		return nil, envelope.RPCError(err)
	}
	return envelope.ToolResult(value), nil
}

func (s *Server) handleResourcesList(_ context.Context, _ *ConnState, _ json.RawMessage) (interface{}, error) {
	resources := s.registry.ListResources()
	out := make([]protocol.Resource, len(resources))
	for i, res := range resources {
		out[i] = protocol.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MimeType:    res.MIMEType,
		}
	}
	return protocol.ResourceListResult{Resources: out}, nil
}

// handleResourcesRead serves literal resources first, then falls back to
// template resolution so parameterized URIs read the same way.
func (s *Server) handleResourcesRead(ctx context.Context, _ *ConnState, params json.RawMessage) (interface{}, error) {
	var readParams protocol.ReadResourceParams
	if err := json.Unmarshal(params, &readParams); err != nil {
		return nil, protocol.NewError(protocol.InvalidParams, fmt.Sprintf("invalid resource read params: %v", err), nil)
	}
	if readParams.URI == "" {
		return nil, protocol.NewError(protocol.InvalidParams, "resource URI is required", nil)
	}

	if res, err := s.registry.ResourceByURI(readParams.URI); err == nil {
		value, err := s.engine.ReadResource(ctx, res, nil)
		if err != nil {
			return nil, envelope.RPCError(err)
		}
		return envelope.ResourceResult(readParams.URI, res.MIMEType, value), nil
	}

	rt, bindings, err := s.registry.ResolveTemplate(readParams.URI)
	if err != nil {
		return nil, envelope.RPCError(&capability.NotFoundError{Kind: capability.KindResource, Name: readParams.URI})
	}
	value, err := s.engine.ReadTemplate(ctx, rt, bindings)
	if err != nil {
		return nil, envelope.RPCError(err)
	}
	return envelope.ResourceResult(readParams.URI, rt.MIMEType, value), nil
}

func (s *Server) handleTemplatesList(_ context.Context, _ *ConnState, _ json.RawMessage) (interface{}, error) {
	templates := s.registry.ListTemplates()
	out := make([]protocol.ResourceTemplate, len(templates))
	for i, rt := range templates {
		out[i] = protocol.ResourceTemplate{
			URITemplate: rt.URITemplate,
			Name:        rt.Name,
			Description: rt.Description,
			MimeType:    rt.MIMEType,
		}
	}
	return protocol.ResourceTemplateListResult{ResourceTemplates: out}, nil
}

func (s *Server) handlePromptsList(_ context.Context, _ *ConnState, _ json.RawMessage) (interface{}, error) {
	prompts := s.registry.ListPrompts()
	out := make([]protocol.Prompt, len(prompts))
	for i, p := range prompts {
		out[i] = protocol.Prompt{
			Name:        p.Name,
			Description: p.Description,
			Arguments:   promptArguments(p.Schema),
		}
	}
	return protocol.PromptListResult{Prompts: out}, nil
}

func (s *Server) handlePromptsGet(ctx context.Context, _ *ConnState, params json.RawMessage) (interface{}, error) {
	var getParams protocol.GetPromptParams
	if err := json.Unmarshal(params, &getParams); err != nil {
		return nil, protocol.NewError(protocol.InvalidParams, fmt.Sprintf("invalid prompt params: %v", err), nil)
	}
	if getParams.Name == "" {
		return nil, protocol.NewError(protocol.InvalidParams, "prompt name is required", nil)
	}

	prompt, err := s.registry.Prompt(getParams.Name)
	if err != nil {
		return nil, envelope.RPCError(err)
	}

	messages, err := s.engine.GetPrompt(ctx, prompt, getParams.Arguments)
	if err != nil {
		return nil, envelope.RPCError(err)
	}
	return envelope.PromptResult(prompt.Description, messages), nil
}

// promptArguments renders a prompt's parameter schema as the MCP argument
// descriptor list.
func promptArguments(schema *capability.ParameterSchema) []protocol.PromptArgument {
	params := schema.Parameters()
	if len(params) == 0 {
		return nil
	}
	out := make([]protocol.PromptArgument, len(params))
	for i, p := range params {
		out[i] = protocol.PromptArgument{
			Name:        p.Name,
			Description: p.Description,
			Required:    p.Required,
		}
	}
	return out
}
