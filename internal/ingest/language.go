package ingest

import (
	"path/filepath"
	"strings"
)

// languageByExt maps file extensions to the canonical language names the
// boundary scanner understands.
var languageByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".rs":    "rust",
	".rb":    "ruby",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".cxx":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".swift": "swift",
	".scala": "scala",
	".php":   "php",
	".dart":  "dart",
	".md":    "markdown",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
	".sql":   "sql",
	".sh":    "shell",
	".bash":  "shell",
	".proto": "protobuf",
}

// DetectLanguage determines a file's language from its extension, or from
// well-known basenames without one. Empty means unknown.
func DetectLanguage(path string) string {
	if lang, ok := languageByExt[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	switch filepath.Base(path) {
	case "Dockerfile":
		return "dockerfile"
	case "Makefile":
		return "make"
	}
	return ""
}
