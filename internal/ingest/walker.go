package ingest

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Walker traverses directories respecting include/exclude glob patterns.
type Walker struct {
	includes []string
	excludes []string
}

// NewWalker creates a file walker with the given include and exclude
// patterns. If no includes are specified, a default set of source, config,
// and documentation extensions is used.
func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{
			"**/*.go", "**/*.py", "**/*.js", "**/*.jsx", "**/*.ts", "**/*.tsx",
			"**/*.java", "**/*.rs", "**/*.rb", "**/*.c", "**/*.h", "**/*.cpp",
			"**/*.hpp", "**/*.cs", "**/*.kt", "**/*.swift", "**/*.scala",
			"**/*.php", "**/*.dart", "**/*.sql", "**/*.sh", "**/*.proto",
			"**/*.md", "**/*.yaml", "**/*.yml", "**/*.json", "**/*.toml",
		}
	}

	// Default excludes for directories that never hold chunkable source.
	defaultExcludes := []string{
		"**/.git/**",
		"**/__pycache__/**",
		"**/*.pyc",
		"**/node_modules/**",
		"**/venv/**",
		"**/.venv/**",
		"**/vendor/**",
		"**/dist/**",
		"**/build/**",
		"**/target/**",
		"**/coverage/**",
		"**/.idea/**",
		"**/.vscode/**",
		"**/*.min.js",
		"**/*.bundle.js",
	}
	excludes = append(defaultExcludes, excludes...)

	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Walk traverses the tree rooted at root, calling fn for each file that
// matches the include patterns and none of the exclude patterns. fn receives
// the filesystem path and the slash-separated path relative to root.
func (w *Walker) Walk(root string, fn func(path, relPath string) error) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if w.shouldExcludeDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if w.isExcluded(relPath) {
			return nil
		}
		if w.isIncluded(relPath) {
			return fn(path, relPath)
		}
		return nil
	})
}

func (w *Walker) shouldExcludeDir(relPath string) bool {
	dirPath := relPath + "/"
	for _, pattern := range w.excludes {
		if matched, _ := doublestar.Match(pattern, dirPath); matched {
			return true
		}
		// "**/.git/**" should also match the ".git" entry itself.
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}

func (w *Walker) isExcluded(relPath string) bool {
	for _, pattern := range w.excludes {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}

func (w *Walker) isIncluded(relPath string) bool {
	for _, pattern := range w.includes {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}
