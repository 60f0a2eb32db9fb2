package chunk

import (
	"regexp"
	"strings"
)

// Boundary is a candidate split point: a byte offset at a line start with a
// semantic cost in [0,1]. Lower cost means cutting there breaks less
// structure. Boundaries are heuristic; a missed good boundary degrades
// packing quality, never correctness.
type Boundary struct {
	Offset int
	Cost   float64
	Decl   bool // offset starts a top-level declaration
}

// Split costs by structural position.
const (
	costFree       = 0.0 // blank-line gap between top-level blocks
	costDecl       = 0.1 // top-level declaration start without a gap
	costTopLevel   = 0.4 // other top-level statement start
	costNestedGap  = 0.3 // blank-line gap inside nesting, plus depth
	costNestedLine = 0.6 // arbitrary nested line, plus depth
	costDepthStep  = 0.15
	costMax        = 0.95
)

type langFamily int

const (
	famProse  langFamily = iota // paragraph boundaries only
	famBrace                    // brace-delimited blocks
	famIndent                   // indentation-delimited blocks
)

func familyOf(language string) langFamily {
	switch language {
	case "go", "c", "cpp", "csharp", "java", "javascript", "typescript",
		"rust", "kotlin", "swift", "scala", "php", "dart":
		return famBrace
	case "python", "ruby":
		return famIndent
	default:
		return famProse
	}
}

var (
	// Leading visibility/linkage modifiers stripped before keyword matching.
	declPrefixRe = regexp.MustCompile(`^(?:export\s+|default\s+|pub(?:\([a-z]+\))?\s+|public\s+|private\s+|protected\s+|internal\s+|abstract\s+|final\s+|static\s+|async\s+|unsafe\s+)*`)

	indentDeclRe = regexp.MustCompile(`^(?:async\s+)?(?:def|class)\b|^@\w`)
)

// Keywords that open a top-level declaration in brace languages.
var braceDeclWords = map[string]bool{
	"func": true, "fn": true, "function": true, "def": true,
	"type": true, "class": true, "interface": true, "struct": true,
	"enum": true, "impl": true, "trait": true, "namespace": true,
	"module": true, "const": true, "var": true, "let": true,
	"import": true, "package": true, "use": true,
}

func isBraceDecl(trimmed string) bool {
	rest := declPrefixRe.ReplaceAllString(trimmed, "")
	word := rest
	if i := strings.IndexFunc(rest, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_')
	}); i >= 0 {
		word = rest[:i]
	}
	return braceDeclWords[word]
}

// findBoundaries scans text once and emits at most one candidate per line,
// at the line's start offset. Pure function of its inputs.
func findBoundaries(text, language string) []Boundary {
	if text == "" {
		return nil
	}
	fam := familyOf(language)

	var bounds []Boundary
	depth := 0
	prevBlank := false
	prevDecorator := false

	offset := 0
	for offset < len(text) {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		var line string
		if lineEnd < 0 {
			line = text[offset:]
			lineEnd = len(text)
		} else {
			line = text[offset : offset+lineEnd]
			lineEnd = offset + lineEnd + 1
		}

		trimmed := strings.TrimSpace(line)
		blank := trimmed == ""

		if offset > 0 && !blank {
			if b, ok := boundaryAt(fam, trimmed, line, depth, prevBlank, prevDecorator); ok {
				b.Offset = offset
				bounds = append(bounds, b)
			}
		}

		if fam == famBrace && !blank {
			depth += braceDelta(line)
			if depth < 0 {
				depth = 0
			}
		}
		if !blank {
			prevDecorator = fam == famIndent && strings.HasPrefix(trimmed, "@")
		}
		prevBlank = blank
		offset = lineEnd
	}
	return bounds
}

// boundaryAt scores a cut immediately before the current line.
func boundaryAt(fam langFamily, trimmed, line string, depth int, prevBlank, prevDecorator bool) (Boundary, bool) {
	switch fam {
	case famProse:
		if prevBlank {
			return Boundary{Cost: costFree}, true
		}
		return Boundary{}, false

	case famBrace:
		indented := indentWidth(line) > 0
		if depth == 0 && !indented {
			decl := isBraceDecl(trimmed)
			if prevBlank {
				return Boundary{Cost: costFree, Decl: decl}, true
			}
			if decl {
				return Boundary{Cost: costDecl, Decl: true}, true
			}
			return Boundary{Cost: costTopLevel}, true
		}
		return nestedBoundary(depth, prevBlank), true

	case famIndent:
		indent := indentWidth(line)
		if indent == 0 {
			decl := indentDeclRe.MatchString(trimmed)
			cost := costTopLevel
			switch {
			case prevDecorator:
				// Keep decorators attached to what they decorate.
				cost = costMax
				decl = false
			case prevBlank:
				cost = costFree
			case decl:
				cost = costDecl
			}
			return Boundary{Cost: cost, Decl: decl}, true
		}
		return nestedBoundary(1+indent/4, prevBlank), true
	}
	return Boundary{}, false
}

func nestedBoundary(depth int, prevBlank bool) Boundary {
	if depth < 1 {
		depth = 1
	}
	base := costNestedLine
	if prevBlank {
		base = costNestedGap
	}
	cost := base + costDepthStep*float64(depth-1)
	if cost > costMax {
		cost = costMax
	}
	return Boundary{Cost: cost}
}

// braceDelta counts curly-brace depth change on one line, skipping string
// literals and line comments. Multi-line strings and block comments are not
// tracked.
func braceDelta(line string) int {
	delta := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return delta
			}
		case '#':
			return delta
		case '{':
			delta++
		case '}':
			delta--
		}
	}
	return delta
}

func indentWidth(line string) int {
	w := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return w
		}
	}
	return w
}
