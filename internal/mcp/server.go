package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xk9labs/pagepilot/api/schemas"
	"github.com/xk9labs/pagepilot/internal/dispatch"
	"github.com/xk9labs/pagepilot/internal/envelope"
)

// maxLineBytes bounds a single request line. Screenshots travel in the
// other direction, so inbound messages stay small; this is headroom for
// large evaluate payloads.
const maxLineBytes = 16 * 1024 * 1024

// Handler executes a resolved tool call and describes the catalog. It is
// satisfied by dispatch.Dispatcher.
type Handler interface {
	Handle(ctx context.Context, req dispatch.Request) envelope.Envelope
	Schemas() []schemas.ToolSchema
}

// Server reads newline-delimited JSON-RPC requests from in and writes one
// response line per request to out. Responses to concurrent calls may
// interleave in any order; each write is a single atomic line.
type Server struct {
	in      io.Reader
	out     io.Writer
	handler Handler
	logger  *zap.Logger

	name    string
	version string

	writeMu sync.Mutex
}

// NewServer builds a stdio server. name and version are reported during the
// initialize handshake.
func NewServer(in io.Reader, out io.Writer, handler Handler, name, version string, logger *zap.Logger) *Server {
	return &Server{
		in:      in,
		out:     out,
		handler: handler,
		logger:  logger,
		name:    name,
		version: version,
	}
}

// Run serves until in reaches EOF or ctx is canceled. A closed stdin is the
// normal shutdown signal for stdio transports, so EOF returns nil.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var wg sync.WaitGroup
	defer wg.Wait()

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			s.logger.Warn("Unparseable request line.", zap.Error(err))
			s.write(errorResponse(nil, codeParseError, "parse error: "+err.Error()))
			continue
		}

		// tools/call can block on the browser for its full per-call
		// timeout; serving it off the read loop keeps pings responsive.
		if req.Method == "tools/call" && !req.IsNotification() && !req.idInvalid {
			wg.Add(1)
			go func(req Request) {
				defer wg.Done()
				s.write(s.handleToolsCall(ctx, req))
			}(req)
			continue
		}

		if resp, ok := s.dispatchMethod(req); ok {
			s.write(resp)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	s.logger.Info("Input closed, shutting down transport.")
	return nil
}

// dispatchMethod handles everything except tools/call. The second return is
// false when the request was a notification and no response may be sent.
func (s *Server) dispatchMethod(req Request) (Response, bool) {
	if req.idInvalid {
		return errorResponse(nil, codeInvalidRequest, "request id must be a string or number"), true
	}
	if req.JSONRPC != "2.0" {
		if req.IsNotification() {
			return Response{}, false
		}
		return errorResponse(req.ID, codeInvalidRequest, `jsonrpc must be "2.0"`), true
	}

	switch req.Method {
	case "initialize":
		result := initializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      serverInfo{Name: s.name, Version: s.version},
		}
		return resultResponse(req.ID, mustMarshal(result)), true

	case "notifications/initialized", "notifications/cancelled":
		return Response{}, false

	case "ping":
		return resultResponse(req.ID, json.RawMessage(`{}`)), true

	case "tools/list":
		tools := mustMarshal(s.handler.Schemas())
		return resultResponse(req.ID, mustMarshal(listResult{Tools: tools})), true

	case "tools/call":
		// Reached only for notification-shaped calls; a call with no id
		// has no way to receive its result.
		return errorResponse(nil, codeInvalidRequest, "tools/call requires an id"), true

	default:
		if req.IsNotification() {
			s.logger.Debug("Ignoring unknown notification.", zap.String("method", req.Method))
			return Response{}, false
		}
		return errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method)), true
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req Request) Response {
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error())
	}
	if params.Name == "" {
		return errorResponse(req.ID, codeInvalidParams, "tools/call params require a name")
	}

	env := s.handler.Handle(ctx, dispatch.Request{Name: params.Name, Arguments: params.Arguments})
	return resultResponse(req.ID, mustMarshal(toCallResult(env)))
}

// toCallResult converts the internal result envelope to MCP content blocks.
func toCallResult(env envelope.Envelope) callResult {
	blocks := make([]ContentBlock, 0, len(env.Content))
	for _, item := range env.Content {
		switch item.Type {
		case envelope.ContentBinary:
			if strings.HasPrefix(item.MimeType, "image/") {
				blocks = append(blocks, ContentBlock{Type: "image", Data: item.Data, MimeType: item.MimeType})
				continue
			}
			blocks = append(blocks, ContentBlock{
				Type: "resource",
				Resource: &embeddedResource{
					URI:      "pagepilot://result",
					MimeType: item.MimeType,
					Blob:     item.Data,
				},
			})
		default:
			blocks = append(blocks, ContentBlock{Type: "text", Text: item.Text})
		}
	}
	return callResult{Content: blocks, IsError: env.IsError}
}

func (s *Server) write(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("Response marshal failed.", zap.Error(err))
		data = []byte(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"response marshal failed"}}`)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.logger.Error("Response write failed.", zap.Error(err))
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
