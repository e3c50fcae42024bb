// Package mcp provides an MCP (Model Context Protocol) server adapter for docqa.
// It enables AI assistants like Claude to search and question the local corpus.
package mcp

import "errors"

// ErrMissingRetriever is returned when the retrieval service is not provided.
var ErrMissingRetriever = errors.New("mcp: retrieval service is required")
