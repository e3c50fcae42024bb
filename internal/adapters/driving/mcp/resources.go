package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for docqa resources.
	uriScheme = "docqa://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource describing the index contents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "corpus",
		Name:        "corpus",
		Description: "Index statistics: entry count, dimensions, and per-source breakdown",
		MIMEType:    "application/json",
	}, s.handleCorpusResource)

	// Static resource for provider usage accounting.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "usage",
		Name:        "usage",
		Description: "Aggregated provider token usage and cost",
		MIMEType:    "application/json",
	}, s.handleUsageResource)
}

// handleCorpusResource returns statistics about the vector index.
func (s *Server) handleCorpusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Ingestor == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	stats, err := s.ports.Ingestor.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading index stats: %w", err)
	}

	// Build simplified index summary.
	type corpusInfo struct {
		Entries    int            `json:"entries"`
		Dimensions int            `json:"dimensions"`
		Sources    map[string]int `json:"sources,omitempty"`
	}

	data, err := json.MarshalIndent(corpusInfo{
		Entries:    stats.Count,
		Dimensions: stats.Dimensions,
		Sources:    stats.Sources,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling index stats: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleUsageResource returns aggregated provider usage.
func (s *Server) handleUsageResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Usage == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	report, err := s.ports.Usage.Report(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("building usage report: %w", err)
	}

	// Daily breakdown is omitted; assistants want the aggregate view.
	type usageInfo struct {
		Totals      domain.UsageTotals                      `json:"totals"`
		ByOperation map[domain.Operation]domain.UsageTotals `json:"by_operation,omitempty"`
		ByModel     map[string]domain.UsageTotals           `json:"by_model,omitempty"`
		CacheHits   int                                     `json:"cache_hits"`
	}

	data, err := json.MarshalIndent(usageInfo{
		Totals:      report.Totals,
		ByOperation: report.ByOperation,
		ByModel:     report.ByModel,
		CacheHits:   report.CacheHits,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling usage report: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
