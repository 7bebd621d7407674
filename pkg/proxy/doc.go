// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package proxy provides the HTTP front end that bridges REST style clients
// with an MCP server speaking JSON-RPC over Server-Sent Events. A posted
// JSON-RPC call is replayed upstream as an event-stream request, the stream is
// read to completion and the last JSON event is returned as a plain JSON
// response. GET /mcp is a shortcut for tool discovery.
package proxy
