// Package mcp holds the Model Context Protocol tool registry.
//
// Tools are described with the official MCP SDK types and invoked in process.
// The registry answers tools/list and tools/call; the surrounding JSON-RPC
// handling lives in the protocol package.
package mcp
