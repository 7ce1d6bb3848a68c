package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xk9labs/pagepilot/api/schemas"
	"github.com/xk9labs/pagepilot/internal/dispatch"
	"github.com/xk9labs/pagepilot/internal/envelope"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubHandler struct {
	mu    sync.Mutex
	calls []dispatch.Request
	reply func(req dispatch.Request) envelope.Envelope
}

func (h *stubHandler) Handle(ctx context.Context, req dispatch.Request) envelope.Envelope {
	h.mu.Lock()
	h.calls = append(h.calls, req)
	h.mu.Unlock()
	if h.reply != nil {
		return h.reply(req)
	}
	return envelope.Text("ok")
}

func (h *stubHandler) Schemas() []schemas.ToolSchema {
	return []schemas.ToolSchema{
		{Name: "navigate", Description: "Navigate the session tab.",
			InputSchema: schemas.Object(map[string]schemas.Property{
				"url": {Type: schemas.TypeString},
			}, "url")},
	}
}

// serve feeds input lines through a server and returns the parsed response
// lines. Run exits on EOF, so a plain string reader is enough.
func serve(t *testing.T, h Handler, input string) []Response {
	t.Helper()

	var out safeBuffer
	srv := NewServer(strings.NewReader(input), &out, h, "pagepilot", "test", zap.NewNop())
	require.NoError(t, srv.Run(context.Background()))

	var responses []Response
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp), "line: %s", line)
		responses = append(responses, resp)
	}
	return responses
}

// safeBuffer guards writes because tools/call responses come from worker
// goroutines.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestInitializeHandshake(t *testing.T) {
	responses := serve(t, &stubHandler{},
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18"}}`+"\n")

	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	var result initializeResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	assert.Equal(t, protocolVersion, result.ProtocolVersion)
	assert.Equal(t, "pagepilot", result.ServerInfo.Name)
}

func TestToolsListReturnsCatalog(t *testing.T) {
	responses := serve(t, &stubHandler{},
		`{"jsonrpc":"2.0","id":"a","method":"tools/list"}`+"\n")

	require.Len(t, responses, 1)
	var result struct {
		Tools []schemas.ToolSchema `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "navigate", result.Tools[0].Name)
	assert.Equal(t, []string{"url"}, result.Tools[0].InputSchema.Required)
}

func TestToolsCallRoutesToHandler(t *testing.T) {
	h := &stubHandler{reply: func(req dispatch.Request) envelope.Envelope {
		return envelope.Textf("Navigated to %s", "https://example.com")
	}}
	responses := serve(t, h,
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"navigate","arguments":{"url":"https://example.com"}}}`+"\n")

	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error, "tool results are never protocol errors")

	var result callResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	assert.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "Navigated to https://example.com", result.Content[0].Text)

	require.Len(t, h.calls, 1)
	assert.Equal(t, "navigate", h.calls[0].Name)
	assert.JSONEq(t, `{"url":"https://example.com"}`, string(h.calls[0].Arguments))
}

func TestToolsCallErrorEnvelopeStaysSoft(t *testing.T) {
	h := &stubHandler{reply: func(req dispatch.Request) envelope.Envelope {
		return envelope.Errorf(envelope.KindUnknownTool, "no tool named %q", req.Name)
	}}
	responses := serve(t, h,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"bogus"}}`+"\n")

	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	var result callResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "UnknownTool:")
}

func TestToolsCallBinaryContentBecomesImageBlock(t *testing.T) {
	h := &stubHandler{reply: func(req dispatch.Request) envelope.Envelope {
		return envelope.Binary("", "image/png", []byte("hello"))
	}}
	responses := serve(t, h,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"screenshot"}}`+"\n")

	var result callResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "image", result.Content[0].Type)
	assert.Equal(t, "aGVsbG8=", result.Content[0].Data)
	assert.Equal(t, "image/png", result.Content[0].MimeType)
}

func TestToolsCallPDFContentBecomesResourceBlock(t *testing.T) {
	h := &stubHandler{reply: func(req dispatch.Request) envelope.Envelope {
		return envelope.Binary("", "application/pdf", []byte("pdf"))
	}}
	responses := serve(t, h,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"pdf"}}`+"\n")

	var result callResult
	require.NoError(t, json.Unmarshal(responses[0].Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "resource", result.Content[0].Type)
	require.NotNil(t, result.Content[0].Resource)
	assert.Equal(t, "application/pdf", result.Content[0].Resource.MimeType)
	assert.Equal(t, "cGRm", result.Content[0].Resource.Blob)
}

func TestPing(t *testing.T) {
	responses := serve(t, &stubHandler{},
		`{"jsonrpc":"2.0","id":9,"method":"ping"}`+"\n")

	require.Len(t, responses, 1)
	assert.JSONEq(t, `{}`, string(responses[0].Result))
}

func TestUnknownMethod(t *testing.T) {
	responses := serve(t, &stubHandler{},
		`{"jsonrpc":"2.0","id":5,"method":"resources/list"}`+"\n")

	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, codeMethodNotFound, responses[0].Error.Code)
}

func TestNotificationsGetNoResponse(t *testing.T) {
	h := &stubHandler{}
	responses := serve(t, h,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n"+
			`{"jsonrpc":"2.0","method":"notifications/unknown"}`+"\n"+
			`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n")

	require.Len(t, responses, 1, "only the ping may be answered")
	assert.Nil(t, responses[0].Error)
}

func TestParseErrorAndBlankLines(t *testing.T) {
	responses := serve(t, &stubHandler{},
		"\n{not json}\n"+`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n")

	require.Len(t, responses, 2)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, codeParseError, responses[0].Error.Code)
	assert.Nil(t, responses[1].Error)
}

func TestNullIDIsRejected(t *testing.T) {
	responses := serve(t, &stubHandler{},
		`{"jsonrpc":"2.0","id":null,"method":"ping"}`+"\n")

	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, codeInvalidRequest, responses[0].Error.Code)
}

func TestToolsCallWithoutParamsName(t *testing.T) {
	responses := serve(t, &stubHandler{},
		`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{}}`+"\n")

	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, codeInvalidParams, responses[0].Error.Code)
}

func TestWrongJSONRPCVersion(t *testing.T) {
	responses := serve(t, &stubHandler{},
		`{"jsonrpc":"1.0","id":1,"method":"ping"}`+"\n")

	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, codeInvalidRequest, responses[0].Error.Code)
}

func TestEOFShutsDownCleanly(t *testing.T) {
	var out safeBuffer
	srv := NewServer(strings.NewReader(""), &out, &stubHandler{}, "pagepilot", "test", zap.NewNop())
	assert.NoError(t, srv.Run(context.Background()))
	assert.Empty(t, out.String())
}

func TestRequestIDRoundTrip(t *testing.T) {
	responses := serve(t, &stubHandler{},
		`{"jsonrpc":"2.0","id":"req-42","method":"ping"}`+"\n")

	require.Len(t, responses, 1)
	assert.Equal(t, "req-42", responses[0].ID)
}
