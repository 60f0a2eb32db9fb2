package metrics

import (
	"bufio"
	"encoding/json"
	"os"
	"sort"
	"time"
)

// Analyzer processes metrics logs.
type Analyzer struct {
	logPath string
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(logPath string) *Analyzer {
	return &Analyzer{logPath: logPath}
}

// Summary contains aggregated metrics.
type Summary struct {
	Period          string         `json:"period"`
	TotalRuns       int            `json:"total_runs"`
	RunsByStrategy  map[string]int `json:"runs_by_strategy"`
	AvgDurationMs   int64          `json:"avg_duration_ms"`
	TotalFiles      int            `json:"total_files"`
	TotalChunks     int            `json:"total_chunks"`
	TotalTokens     int64          `json:"total_tokens"`
	ForcedSplits    int            `json:"forced_splits"`
	OversizedChunks int            `json:"oversized_chunks"`
	PartialRuns     int            `json:"partial_runs"`
	ErrorCount      int            `json:"error_count"`
	TopSources      []SourceCount  `json:"top_sources"`
}

// SourceCount represents a chunked source with its run count.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// Analyze processes logs for a time period.
func (a *Analyzer) Analyze(since time.Duration) (*Summary, error) {
	file, err := os.Open(a.logPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cutoff := time.Now().Add(-since)
	summary := &Summary{
		Period:         since.String(),
		RunsByStrategy: make(map[string]int),
	}

	sourceCounts := make(map[string]int)
	var totalDuration int64
	var durationCount int

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}

		// Parse timestamp
		tsStr, ok := event["ts"].(string)
		if !ok {
			continue
		}
		ts, err := time.Parse(time.RFC3339, tsStr)
		if err != nil || ts.Before(cutoff) {
			continue
		}

		// Process by event type
		eventType, _ := event["event"].(string)
		switch eventType {
		case "chunk_run":
			summary.TotalRuns++

			if strategy, ok := event["strategy"].(string); ok {
				summary.RunsByStrategy[strategy]++
			}

			if files, ok := event["files"].(float64); ok {
				summary.TotalFiles += int(files)
			}

			if chunks, ok := event["chunks"].(float64); ok {
				summary.TotalChunks += int(chunks)
			}

			if tokens, ok := event["total_tokens"].(float64); ok {
				summary.TotalTokens += int64(tokens)
			}

			if forced, ok := event["forced_splits"].(float64); ok {
				summary.ForcedSplits += int(forced)
			}

			if oversized, ok := event["oversized"].(float64); ok {
				summary.OversizedChunks += int(oversized)
			}

			if partial, ok := event["partial"].(bool); ok && partial {
				summary.PartialRuns++
			}

			if duration, ok := event["duration_ms"].(float64); ok {
				totalDuration += int64(duration)
				durationCount++
			}

			if source, ok := event["source"].(string); ok {
				sourceCounts[source]++
			}
		case "error":
			summary.ErrorCount++
		}
	}

	// Calculate average duration
	if durationCount > 0 {
		summary.AvgDurationMs = totalDuration / int64(durationCount)
	}

	// Get top sources
	type kv struct {
		Key   string
		Value int
	}
	var sorted []kv
	for k, v := range sourceCounts {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})

	for i := 0; i < len(sorted) && i < 10; i++ {
		summary.TopSources = append(summary.TopSources, SourceCount{
			Source: sorted[i].Key,
			Count:  sorted[i].Value,
		})
	}

	return summary, nil
}

// OperationCount represents a failed operation with its count.
type OperationCount struct {
	Operation string `json:"operation"`
	Count     int    `json:"count"`
}

// GetErrors returns error events grouped by operation.
func (a *Analyzer) GetErrors(since time.Duration) ([]OperationCount, error) {
	file, err := os.Open(a.logPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cutoff := time.Now().Add(-since)
	operationCounts := make(map[string]int)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}

		tsStr, ok := event["ts"].(string)
		if !ok {
			continue
		}
		ts, err := time.Parse(time.RFC3339, tsStr)
		if err != nil || ts.Before(cutoff) {
			continue
		}

		eventType, _ := event["event"].(string)
		if eventType != "error" {
			continue
		}

		operation, _ := event["operation"].(string)
		operationCounts[operation]++
	}

	var result []OperationCount
	for op, c := range operationCounts {
		result = append(result, OperationCount{Operation: op, Count: c})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})

	return result, nil
}
