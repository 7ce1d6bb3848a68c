// Package mcp implements the stdio JSON-RPC 2.0 transport that exposes the
// tool catalog to MCP clients. It owns framing and protocol errors only;
// tool semantics live behind the Handler interface.
package mcp

import (
	"bytes"
	"encoding/json"
)

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// protocolVersion is the MCP revision this server speaks.
const protocolVersion = "2025-06-18"

// Request is an incoming JSON-RPC 2.0 request or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`

	idPresent bool
	idInvalid bool
}

// UnmarshalJSON tracks whether id was present and whether it held a value
// JSON-RPC 2.0 forbids. Requests without an id are notifications and must
// not be answered; requests with a broken id still deserve an error response.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*r = Request{JSONRPC: p.JSONRPC, Method: p.Method, Params: p.Params}

	rawID, ok := fields["id"]
	if !ok {
		return nil
	}
	r.idPresent = true
	if bytes.Equal(bytes.TrimSpace(rawID), []byte("null")) {
		r.idInvalid = true
		return nil
	}
	var id any
	if err := json.Unmarshal(rawID, &id); err != nil {
		return err
	}
	switch id.(type) {
	case string, float64:
		r.ID = id
	default:
		r.idInvalid = true
	}
	return nil
}

// IsNotification reports whether the request carries no id at all.
func (r Request) IsNotification() bool { return !r.idPresent }

// Response is an outgoing JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 protocol-level error. Tool failures never use
// this; they travel as results with isError set.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func resultResponse(id any, result json.RawMessage) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id any, code int, message string) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// initializeResult is the handshake payload.
type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    capabilities `json:"capabilities"`
	ServerInfo      serverInfo   `json:"serverInfo"`
}

type capabilities struct {
	Tools struct{} `json:"tools"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// callParams is the tools/call parameter shape.
type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ContentBlock is one MCP content item. Text blocks use Text; image blocks
// use Data plus MimeType; everything else travels as an embedded resource.
type ContentBlock struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Data     string            `json:"data,omitempty"`
	MimeType string            `json:"mimeType,omitempty"`
	Resource *embeddedResource `json:"resource,omitempty"`
}

type embeddedResource struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// callResult is the tools/call result payload.
type callResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// listResult is the tools/list result payload.
type listResult struct {
	Tools json.RawMessage `json:"tools"`
}
