// Package mcpbridge exposes a channel client as a Model Context Protocol
// server.
//
// Each channel command becomes one MCP tool. Tool arguments are validated
// against the tool's input schema before the command is sent, and replies
// from the peer are returned as JSON text content. Failures are reported as
// error results rather than protocol errors, so the calling model can see
// them.
package mcpbridge
