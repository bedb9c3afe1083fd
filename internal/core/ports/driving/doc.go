// Package driving defines the interfaces external actors (CLI, MCP server,
// folder watcher) use to call INTO the core.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
package driving
