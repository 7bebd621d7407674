// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package jsonrpc holds the small amount of JSON-RPC knowledge the translator
// needs: building the tool discovery call and reading request fields for logs.
package jsonrpc

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

const (
	// Version is the only protocol version the translator emits.
	Version = "2.0"
	// MethodToolsList is the MCP tool discovery method.
	MethodToolsList = "tools/list"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// ToolsListRequest returns the tool discovery call issued for GET /mcp.
func ToolsListRequest() Request {
	return Request{
		JSONRPC: Version,
		ID:      1,
		Method:  MethodToolsList,
		Params:  json.RawMessage(`{}`),
	}
}

// Summary carries the request fields worth logging.
type Summary struct {
	Method string
	ID     string
}

// Summarize reads method and id from an arbitrary JSON body. Bodies that are
// not JSON-RPC objects produce an empty Summary.
func Summarize(body []byte) Summary {
	fields := gjson.GetManyBytes(body, "method", "id")
	return Summary{
		Method: fields[0].String(),
		ID:     fields[1].String(),
	}
}
