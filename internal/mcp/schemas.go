package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// manualFindTool returns the tool definition for manual_find
func manualFindTool() mcp.Tool {
	return mcp.Tool{
		Name:        "manual_find",
		Description: "Run the gate and fusion retrieval pipeline against a manual and return a ranked, trace-addressable payload",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"manual_id": map[string]interface{}{
					"type":        "string",
					"description": "Identifier of the manual to search",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language or keyword query",
				},
				"required_terms": map[string]interface{}{
					"type":        "array",
					"description": "1 or 2 terms that must be present, subject to the document-frequency guard",
					"items": map[string]interface{}{
						"type": "string",
					},
					"minItems": 1,
					"maxItems": 2,
				},
				"expand_scope": map[string]interface{}{
					"type":        "boolean",
					"description": "Folded into the semantic-cache key; it does not change which nodes are searched",
					"default":     false,
				},
				"only_unscanned_from_trace_id": map[string]interface{}{
					"type":        "string",
					"description": "trace_id of a prior manual_find; the call fails with not_found if that trace is gone and bypasses the semantic cache. The searched nodes are not restricted by it",
				},
				"include_claim_graph": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, bypass the semantic cache; claim_graph is always present and its claims, evidences and edges are always empty",
					"default":     false,
				},
				"use_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "If false, bypass the semantic cache for this call",
					"default":     true,
				},
				"budget": map[string]interface{}{
					"type":        "object",
					"description": "Time and candidate-count limits for this pass",
					"properties": map[string]interface{}{
						"time_ms": map[string]interface{}{
							"type":        "integer",
							"description": "Time budget in milliseconds",
							"minimum":     1,
						},
						"max_candidates": map[string]interface{}{
							"type":        "integer",
							"description": "Maximum candidates to return",
							"minimum":     1,
						},
					},
				},
				"inline_hits": map[string]interface{}{
					"type":        "object",
					"description": "Request a small page of integrated_top hits inline with a compact response",
					"properties": map[string]interface{}{
						"limit": map[string]interface{}{
							"type":        "integer",
							"description": "Inline hits page size, 1-5",
							"minimum":     1,
							"maximum":     5,
						},
					},
				},
				"compact": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, return the compact status/failure_reason/inline_hits shape instead of the full payload",
					"default":     false,
				},
			},
			Required: []string{"manual_id", "query", "required_terms"},
		},
	}
}

// manualHitsTool returns the tool definition for manual_hits
func manualHitsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "manual_hits",
		Description: "Page through a prior manual_find trace's hit arrays without rerunning the pipeline",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"trace_id": map[string]interface{}{
					"type":        "string",
					"description": "trace_id returned by a prior manual_find call",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Which hit array to page through",
					"enum": []string{
						"candidates", "unscanned", "conflicts", "gaps", "integrated_top",
						"claims", "evidences", "edges", "gate_runs", "fusion_debug",
					},
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Zero-based offset into the array",
					"default":     0,
					"minimum":     0,
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of entries to return",
					"default":     20,
					"minimum":     1,
				},
			},
			Required: []string{"trace_id", "kind"},
		},
	}
}

// manualInvalidateTool returns the tool definition for manual_invalidate
func manualInvalidateTool() mcp.Tool {
	return mcp.Tool{
		Name:        "manual_invalidate",
		Description: "Drop a manual's cached index, semantic-cache entries, and traces after its source files change",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"manual_id": map[string]interface{}{
					"type":        "string",
					"description": "Identifier of the manual to invalidate",
				},
			},
			Required: []string{"manual_id"},
		},
	}
}
