// Package metrics provides JSONL event logging for analytics.
package metrics

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Logger writes metrics events to JSONL file.
type Logger struct {
	file *os.File
	mu   sync.Mutex
}

// NewLogger creates a new metrics logger.
func NewLogger(path string) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	return &Logger{file: file}, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	return l.file.Close()
}

func (l *Logger) log(event string, data map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := map[string]interface{}{
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"event": event,
	}
	for k, v := range data {
		e[k] = v
	}

	line, _ := json.Marshal(e)
	l.file.Write(line)
	l.file.Write([]byte("\n"))
}

// RunRecord describes one completed chunking run.
type RunRecord struct {
	Source       string
	Strategy     string
	Files        int
	Chunks       int
	TotalTokens  int
	Oversized    int
	ForcedSplits int
	DurationMs   int64
	Partial      bool
}

// LogChunkRun logs a chunking run event.
func (l *Logger) LogChunkRun(r RunRecord) {
	l.log("chunk_run", map[string]interface{}{
		"source":        r.Source,
		"strategy":      r.Strategy,
		"files":         r.Files,
		"chunks":        r.Chunks,
		"total_tokens":  r.TotalTokens,
		"oversized":     r.Oversized,
		"forced_splits": r.ForcedSplits,
		"duration_ms":   r.DurationMs,
		"partial":       r.Partial,
	})
}

// LogError logs an error event.
func (l *Logger) LogError(operation, message string) {
	l.log("error", map[string]interface{}{
		"operation": operation,
		"message":   message,
	})
}
