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

package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/manifold-works/manifold/pkg/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := zaptest.NewLogger(t)

	reg := capability.NewRegistry()
	require.NoError(t, reg.RegisterTool(&capability.Tool{
		Name:        "add",
		Description: "Add two numbers together",
		Schema:      capability.MustSchema(capability.Int("a"), capability.Int("b")),
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return args["a"].(int64) + args["b"].(int64), nil
		},
	}))
	require.NoError(t, reg.RegisterTool(&capability.Tool{
		Name:        "divide",
		Description: "Divide two numbers",
		Schema:      capability.MustSchema(capability.Number("a"), capability.Number("b")),
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			if args["b"].(float64) == 0 {
				return nil, capability.Userf("cannot divide by zero")
			}
			return args["a"].(float64) / args["b"].(float64), nil
		},
	}))
	require.NoError(t, reg.RegisterResource(&capability.Resource{
		Name:        "settings",
		URI:         "config://settings",
		Description: "Application settings",
		MIMEType:    "application/json",
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"theme": "dark"}, nil
		},
	}))
	require.NoError(t, reg.RegisterTemplate(&capability.ResourceTemplate{
		Name:        "project-file",
		URITemplate: "file://project/{project_id}/file/{file_name}",
		Schema: capability.MustSchema(
			capability.String("project_id"),
			capability.String("file_name"),
		),
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return "contents of " + args["file_name"].(string), nil
		},
	}))
	require.NoError(t, reg.RegisterPrompt(&capability.Prompt{
		Name:        "code_review",
		Description: "Generate a code review prompt",
		Schema:      capability.MustSchema(capability.String("language")),
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return []capability.Message{
				capability.TextMessage(capability.RoleUser, "review some "+args["language"].(string)),
			}, nil
		},
	}))

	api := New(Config{
		Name:        "test-server",
		Version:     "1.0.0",
		Registry:    reg,
		Engine:      capability.NewEngine(logger),
		Logger:      logger,
		MCPEndpoint: "/mcp",
		WSEndpoint:  "/ws",
	})

	r := chi.NewRouter()
	api.Register(r)
	return r
}

func do(t *testing.T, r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRoot(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "test-server", body["name"])
	assert.Equal(t, []interface{}{"add", "divide"}, body["tools"])
	endpoints := body["endpoints"].(map[string]interface{})
	assert.Contains(t, endpoints, "mcp")
	assert.Contains(t, endpoints, "websocket")
}

func TestHealth(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(2), body["tools"])
	assert.Equal(t, float64(1), body["resources"])
	assert.Equal(t, float64(1), body["prompts"])
}

func TestListTools(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/tools", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(2), body["count"])
	tools := body["tools"].([]interface{})
	first := tools[0].(map[string]interface{})
	assert.Equal(t, "add", first["name"])
	assert.Contains(t, first, "parameters")
}

func TestToolInfo(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/tools/add", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "add", decode(t, w)["name"])
}

func TestToolInfo_NotFound(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/tools/nonexistent", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Tool 'nonexistent' not found", decode(t, w)["detail"])
}

func TestToolCall(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodPost, "/tools/add", `{"a":5,"b":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(8), decode(t, w)["result"])
}

func TestToolCall_MissingArgument(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodPost, "/tools/add", `{"a":5}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	detail := decode(t, w)["detail"].(string)
	assert.True(t, strings.HasPrefix(detail, "Invalid parameters: "))
}

func TestToolCall_HandlerError(t *testing.T) {
	r := testRouter(t)

	w := do(t, r, http.MethodPost, "/tools/divide", `{"a":10,"b":0}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "cannot divide by zero", decode(t, w)["detail"])

	w = do(t, r, http.MethodPost, "/tools/divide", `{"a":10,"b":4}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2.5), decode(t, w)["result"])
}

func TestToolCall_InvalidBody(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodPost, "/tools/add", `[1,2,3]`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestToolCall_InvalidName(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodPost, "/tools/bad$name", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReadResource(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/resources/settings", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "config://settings", body["uri"])
	assert.Equal(t, "application/json", body["mimeType"])
	content := body["content"].(map[string]interface{})
	assert.Equal(t, "dark", content["theme"])
}

func TestReadResourceByURI(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/resources/by-uri/config%3A%2F%2Fsettings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "config://settings", decode(t, w)["uri"])
}

func TestReadResourceByURI_TemplateFallback(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/resources/by-uri/file%3A%2F%2Fproject%2F42%2Ffile%2Fnotes.txt", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "file://project/42/file/notes.txt", body["uri"])
	assert.Equal(t, "contents of notes.txt", body["content"])
}

func TestReadResourceByURI_NotFound(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/resources/by-uri/missing%3A%2F%2Fnothing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w)["detail"], "not found")
}

func TestListTemplates(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/resource-templates", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])
	first := body["templates"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "file://project/{project_id}/file/{file_name}", first["uriTemplate"])
}

func TestReadTemplate(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodPost, "/resource-templates/project-file",
		`{"parameters":{"project_id":"42","file_name":"notes.txt"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "file://project/42/file/notes.txt", body["uri"])
	assert.Equal(t, "contents of notes.txt", body["content"])
}

func TestReadTemplate_MissingParameter(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodPost, "/resource-templates/project-file",
		`{"parameters":{"project_id":"42"}}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPrompts(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodGet, "/prompts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["count"])
}

func TestPromptCall(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodPost, "/prompts/code_review", `{"language":"go"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "Generate a code review prompt", body["description"])
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]interface{})
	assert.Equal(t, "user", msg["role"])
	content := msg["content"].(map[string]interface{})
	assert.Equal(t, "review some go", content["text"])
}

func TestPromptCall_NotFound(t *testing.T) {
	r := testRouter(t)
	w := do(t, r, http.MethodPost, "/prompts/nonexistent", `{}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Prompt 'nonexistent' not found", decode(t, w)["detail"])
}
