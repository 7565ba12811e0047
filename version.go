package bslmcp

// Name identifies the server in MCP handshakes and /status.
const Name = "bsl-mcp-server"

// Version is the server version. Release builds override it with
// -ldflags "-X github.com/wagiedev/bsl-mcp-server.Version=...".
var Version = "0.1.0"
