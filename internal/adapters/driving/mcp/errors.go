// Package mcp provides an MCP (Model Context Protocol) server adapter for attest.
// It lets AI assistants search an engagement's evidence and collect citations.
package mcp

import "errors"

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrMissingEngagement is returned when no engagement is selected.
	ErrMissingEngagement = errors.New("mcp: engagement id is required")

	// errCitationsDisabled is returned by citation tools when no citation service is wired.
	errCitationsDisabled = errors.New("citations are not available")
)
