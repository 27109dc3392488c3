// Package tools aggregates the tool catalogs advertised by remote MCP
// backends into one addressable registry and routes tool invocations to the
// owning backend, with deterministic precedence for name collisions and
// structured recovery for authentication failures.
package tools
