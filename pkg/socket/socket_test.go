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

package socket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/manifold-works/manifold/pkg/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testHandler(t *testing.T) *Handler {
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

	return NewHandler(Config{
		Registry: reg,
		Engine:   capability.NewEngine(logger),
		Logger:   logger,
	})
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestWelcomeFrame(t *testing.T) {
	h := testHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	welcome := readFrame(t, conn)
	assert.Equal(t, "connection", welcome["type"])
	assert.NotEmpty(t, welcome["clientId"])
}

func TestToolCall(t *testing.T) {
	h := testHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       "tool_call",
		"tool":       "add",
		"parameters": map[string]interface{}{"a": 5, "b": 3},
	}))

	frame := readFrame(t, conn)
	assert.Equal(t, float64(8), frame["result"])
	assert.NotContains(t, frame, "error")
}

func TestToolCall_UnknownTool(t *testing.T) {
	h := testHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "tool_call",
		"tool": "nonexistent",
	}))

	frame := readFrame(t, conn)
	assert.Equal(t, "Tool 'nonexistent' not found", frame["error"])
}

func TestToolCall_MissingArgument(t *testing.T) {
	h := testHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       "tool_call",
		"tool":       "add",
		"parameters": map[string]interface{}{"a": 5},
	}))

	frame := readFrame(t, conn)
	errMsg := frame["error"].(string)
	assert.Contains(t, errMsg, `missing required parameter "b"`)
}

func TestInvalidJSONFrame(t *testing.T) {
	h := testHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	frame := readFrame(t, conn)
	assert.Equal(t, "Invalid JSON frame", frame["error"])
}

func TestUnsupportedFrameType(t *testing.T) {
	h := testHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "subscribe"}))
	frame := readFrame(t, conn)
	assert.Equal(t, "Unsupported frame type: subscribe", frame["error"])
}

func TestMissingToolName(t *testing.T) {
	h := testHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "tool_call"}))
	frame := readFrame(t, conn)
	assert.Equal(t, "Tool name is required", frame["error"])
}

func TestClientCount(t *testing.T) {
	h := testHandler(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	assert.Equal(t, 0, h.ClientCount())

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	readFrame(t, conn)
	assert.Equal(t, 1, h.ClientCount())

	conn.Close()
	require.Eventually(t, func() bool {
		return h.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
