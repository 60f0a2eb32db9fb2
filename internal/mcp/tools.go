package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"repochunk/internal/chunk"
	"repochunk/internal/ingest"
	"repochunk/internal/token"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeSourceUnavailable = -32001 // Source path or repository cannot be read
	ErrorCodeIngestTimeout     = -32002 // Fetching the source took too long
)

// handleChunkCodebase handles the chunk_codebase tool invocation
func (s *Server) handleChunkCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	source, ok := args["source"].(string)
	if !ok || source == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "source parameter is required", map[string]interface{}{
			"param":  "source",
			"reason": "missing or empty",
		})
	}

	// Parse optional parameters, falling back to server config
	strategy := getStringDefault(args, "strategy", s.cfg.Chunking.Strategy)
	if _, err := chunk.ParseStrategy(strategy); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid strategy", map[string]interface{}{
			"param":   "strategy",
			"value":   strategy,
			"allowed": []string{"file", "directory", "semantic", "hybrid"},
		})
	}

	maxTokens := getIntDefault(args, "max_tokens", s.cfg.Chunking.MaxTokens)
	if maxTokens < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_tokens must be positive", map[string]interface{}{
			"param": "max_tokens",
			"value": maxTokens,
		})
	}

	overlapTokens := getIntDefault(args, "overlap_tokens", s.cfg.Chunking.OverlapTokens)
	if overlapTokens < 0 || overlapTokens >= maxTokens {
		return nil, newMCPError(ErrorCodeInvalidParams, "overlap_tokens must be in [0, max_tokens)", map[string]interface{}{
			"param": "overlap_tokens",
			"value": overlapTokens,
		})
	}

	model := getStringDefault(args, "model", s.cfg.Chunking.Model)
	includeContent := getBoolDefault(args, "include_content", false)

	files, err := s.loadSource(ctx, args, source)
	if err != nil {
		return nil, err
	}

	engine := chunk.NewEngine(s.counterFor(model), s.logger)

	start := time.Now()
	result, err := engine.Chunk(ctx, files, chunk.Config{
		Strategy:      chunk.Strategy(strategy),
		MaxTokens:     maxTokens,
		OverlapTokens: overlapTokens,
		Workers:       s.cfg.Chunking.Workers,
		ScanSecrets:   true,
	})
	if err != nil {
		if errors.Is(err, chunk.ErrInvalidConfig) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid chunking config", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "chunking failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Format response
	chunks := make([]map[string]interface{}, 0, len(result.Chunks))
	for _, c := range result.Chunks {
		entry := map[string]interface{}{
			"index":                 c.Index,
			"files":                 c.Files,
			"token_count":           c.TokenCount,
			"overlap_with_previous": c.OverlapTokens,
		}
		if c.PrimaryLanguage != "" {
			entry["primary_language"] = c.PrimaryLanguage
		}
		if c.Oversized {
			entry["oversized"] = true
		}
		if c.HasSecrets {
			entry["has_secrets"] = true
		}
		if includeContent {
			entry["content"] = c.Content
		}
		chunks = append(chunks, entry)
	}

	response := map[string]interface{}{
		"source":   source,
		"strategy": string(result.Strategy),
		"chunks":   chunks,
		"stats": map[string]interface{}{
			"files":            result.Stats.FileCount,
			"chunks":           result.Stats.ChunkCount,
			"total_tokens":     result.Stats.TotalTokens,
			"max_tokens":       result.Stats.MaxTokens,
			"overlap_tokens":   result.Stats.OverlapTokens,
			"oversized_chunks": result.Stats.OversizedChunks,
			"forced_splits":    result.Stats.ForcedSplits,
		},
		"duration_ms": time.Since(start).Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleScanSource handles the scan_source tool invocation
func (s *Server) handleScanSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	source, ok := args["source"].(string)
	if !ok || source == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "source parameter is required", map[string]interface{}{
			"param":  "source",
			"reason": "missing or empty",
		})
	}

	files, err := s.loadSource(ctx, args, source)
	if err != nil {
		return nil, err
	}

	counter := s.counterFor(getStringDefault(args, "model", s.cfg.Chunking.Model))

	var totalBytes int64
	var totalTokens int
	languages := make(map[string]int)

	for _, f := range files {
		n, err := counter.Count(ctx, f.Content)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "token counting failed", map[string]interface{}{
				"file":  f.Path,
				"error": err.Error(),
			})
		}

		totalBytes += f.Size
		totalTokens += n

		lang := f.Language
		if lang == "" {
			lang = "other"
		}
		languages[lang]++
	}

	response := map[string]interface{}{
		"source":       source,
		"files":        len(files),
		"total_bytes":  totalBytes,
		"total_tokens": totalTokens,
		"languages":    languages,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// loadSource ingests a source with per-call include/exclude overrides.
func (s *Server) loadSource(ctx context.Context, args map[string]interface{}, source string) ([]chunk.SourceFile, error) {
	include := getStringSlice(args, "include")
	if len(include) == 0 {
		include = s.cfg.Ingest.Include
	}
	exclude := getStringSlice(args, "exclude")
	if len(exclude) == 0 {
		exclude = s.cfg.Ingest.Exclude
	}

	ing := ingest.New(ingest.Options{
		Include:     include,
		Exclude:     exclude,
		MaxFileSize: s.cfg.Ingest.MaxFileSize,
	}, s.logger)

	files, err := ing.Load(ctx, source)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrIngestTimeout):
			return nil, newMCPError(ErrorCodeIngestTimeout, "source fetch timed out", map[string]interface{}{
				"source": source,
				"error":  err.Error(),
			})
		case errors.Is(err, ingest.ErrSourceUnavailable):
			return nil, newMCPError(ErrorCodeSourceUnavailable, "source unavailable", map[string]interface{}{
				"source": source,
				"error":  err.Error(),
			})
		default:
			return nil, newMCPError(ErrorCodeInternalError, "ingest failed", map[string]interface{}{
				"source": source,
				"error":  err.Error(),
			})
		}
	}

	return files, nil
}

// counterFor picks the token oracle for a request. An empty model keeps the
// fast heuristic so tool calls never block on tokenizer data.
func (s *Server) counterFor(model string) token.Counter {
	if model == "" {
		return token.Heuristic{}
	}
	return token.NewCounter(model, s.logger)
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
