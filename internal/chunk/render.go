package chunk

import "strings"

// Rendered chunk layout follows the ingestion wire format: every file body
// is preceded by a 48-char separator block naming the file, and overlap
// content is announced by a banner line so the model can tell copied context
// from fresh content.
const (
	separatorLine = "================================================"
	overlapBanner = "[Context from previous chunk]"
)

// fileHeader renders the separator block that opens a file's content inside
// a chunk. continued marks a segment that resumes mid-file.
func fileHeader(path string, continued bool) string {
	name := path
	if continued {
		name += " (continued)"
	}
	return separatorLine + "\nFILE: " + name + "\n" + separatorLine + "\n"
}

// renderSegments concatenates segment texts, opening each with its file
// header. Adjacent segments of one file are expected to be pre-merged.
func renderSegments(segs []Segment, fs fileSet) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(fileHeader(s.Path, s.Start > 0))
		b.WriteString(fs.slice(s))
	}
	return b.String()
}

// renderChunk produces the final self-contained chunk text: overlap first
// under its banner, then the chunk's own content.
func renderChunk(overlap, segs []Segment, fs fileSet) string {
	var b strings.Builder
	if len(overlap) > 0 {
		b.WriteString(overlapBanner)
		b.WriteString("\n")
		b.WriteString(renderSegments(overlap, fs))
		b.WriteString("\n\n")
	}
	b.WriteString(renderSegments(segs, fs))
	return b.String()
}

// mergeSegments coalesces adjacent byte-ranges of the same file. Units
// arrive in file order, so one merged segment per file per chunk results.
func mergeSegments(segs []Segment) []Segment {
	if len(segs) < 2 {
		return segs
	}
	merged := segs[:1]
	for _, s := range segs[1:] {
		last := &merged[len(merged)-1]
		if s.Path == last.Path && s.Start == last.End {
			last.End = s.End
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// segmentFiles lists the distinct file paths of segs in first-appearance
// order.
func segmentFiles(segs []Segment) []string {
	var files []string
	seen := make(map[string]bool, len(segs))
	for _, s := range segs {
		if !seen[s.Path] {
			seen[s.Path] = true
			files = append(files, s.Path)
		}
	}
	return files
}

// dominantLanguage picks the language covering the most segment bytes.
func dominantLanguage(segs []Segment, fs fileSet) string {
	bytesPerLang := make(map[string]int)
	for _, s := range segs {
		if lang := fs.language(s.Path); lang != "" {
			bytesPerLang[lang] += s.End - s.Start
		}
	}
	best, bestBytes := "", 0
	for lang, n := range bytesPerLang {
		if n > bestBytes || (n == bestBytes && lang < best) {
			best, bestBytes = lang, n
		}
	}
	return best
}
