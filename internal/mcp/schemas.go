package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// chunkCodebaseTool returns the tool definition for chunk_codebase
func chunkCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_codebase",
		Description: "Partition a codebase into token-bounded chunks that fit an LLM context window",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Local directory, single file, or remote git URL to chunk",
				},
				"strategy": map[string]interface{}{
					"type":        "string",
					"description": "Chunking strategy",
					"enum":        []string{"file", "directory", "semantic", "hybrid"},
					"default":     "hybrid",
				},
				"max_tokens": map[string]interface{}{
					"type":        "integer",
					"description": "Token budget per chunk",
					"minimum":     1,
				},
				"overlap_tokens": map[string]interface{}{
					"type":        "integer",
					"description": "Context carried over from the previous chunk (must be below max_tokens)",
					"minimum":     0,
				},
				"include": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns for files to include",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"exclude": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns for files to exclude",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"model": map[string]interface{}{
					"type":        "string",
					"description": "Tokenizer model for exact counts (default: fast heuristic)",
				},
				"include_content": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include rendered chunk content in the response",
					"default":     false,
				},
			},
			Required: []string{"source"},
		},
	}
}

// scanSourceTool returns the tool definition for scan_source
func scanSourceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "scan_source",
		Description: "Report file, byte, token, and language totals for a source without chunking it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Local directory, single file, or remote git URL to scan",
				},
				"include": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns for files to include",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"exclude": map[string]interface{}{
					"type":        "array",
					"description": "Glob patterns for files to exclude",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"model": map[string]interface{}{
					"type":        "string",
					"description": "Tokenizer model for exact counts (default: fast heuristic)",
				},
			},
			Required: []string{"source"},
		},
	}
}
