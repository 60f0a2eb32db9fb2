// Package chunk partitions an ingested file set into an ordered sequence of
// token-bounded, overlapping chunks suitable for a model context window.
package chunk

// SourceFile is one ingested file. Immutable once created; a chunking run
// owns its input exclusively and never mutates it.
type SourceFile struct {
	Path     string `json:"path"` // relative, slash-separated
	Content  string `json:"-"`
	Size     int64  `json:"size"`
	Language string `json:"language,omitempty"`
}

// UnitKind tags the granularity a Unit was cut at.
type UnitKind string

const (
	UnitDeclaration UnitKind = "declaration"
	UnitBlock       UnitKind = "block"
	UnitWholeFile   UnitKind = "whole-file"
)

// Unit is a contiguous slice of one SourceFile's text, atomic for the
// assembler. Units are derived per run and never persisted.
type Unit struct {
	Path   string
	Start  int
	End    int
	Kind   UnitKind
	Tokens int
	Forced bool // produced by a hard cut at the token cap
}

// Segment is a byte-range of one SourceFile. Segments are the canonical
// record of chunk membership; Content is rendered from them.
type Segment struct {
	Path  string `json:"path"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Chunk is one token-bounded slice of the codebase.
type Chunk struct {
	Index int `json:"index"`

	// Segments hold the chunk's own content; Overlap holds byte-ranges
	// copied from the tail of the previous chunk (empty for chunk 0).
	Segments []Segment `json:"segments"`
	Overlap  []Segment `json:"overlap,omitempty"`

	// Content is the rendered, self-contained form with file separators.
	Content string `json:"content"`

	Files           []string `json:"files"`
	TokenCount      int      `json:"token_count"`
	OverlapTokens   int      `json:"overlap_with_previous"`
	PrimaryLanguage string   `json:"primary_language,omitempty"`
	Oversized       bool     `json:"oversized,omitempty"`
	HasSecrets      bool     `json:"has_secrets,omitempty"`
}

// Stats aggregates a chunking run.
type Stats struct {
	FileCount         int   `json:"file_count"`
	ChunkCount        int   `json:"chunk_count"`
	TotalTokens       int   `json:"total_tokens"`
	MaxTokens         int   `json:"max_tokens_per_chunk"`
	OverlapTokens     int   `json:"overlap_tokens"`
	OversizedChunks   int   `json:"oversized_chunks"`
	ForcedSplits      int   `json:"forced_splits"`
	TokenDistribution []int `json:"token_distribution"` // tokens per chunk index
}

// Result is the terminal value of a chunking run. No component retains
// references to it after returning.
type Result struct {
	Source   string   `json:"source,omitempty"`
	Strategy Strategy `json:"strategy"`
	Chunks   []Chunk  `json:"chunks"`
	Stats    Stats    `json:"stats"`
	Partial  bool     `json:"partial,omitempty"` // run was cancelled mid-way
}

// fileSet indexes SourceFiles by path for segment rendering.
type fileSet map[string]*SourceFile

func newFileSet(files []SourceFile) fileSet {
	fs := make(fileSet, len(files))
	for i := range files {
		fs[files[i].Path] = &files[i]
	}
	return fs
}

// slice returns the text a segment refers to.
func (fs fileSet) slice(s Segment) string {
	f, ok := fs[s.Path]
	if !ok {
		return ""
	}
	return f.Content[s.Start:s.End]
}

func (fs fileSet) language(path string) string {
	if f, ok := fs[path]; ok {
		return f.Language
	}
	return ""
}
