// Package security flags credential material in source content so chunk
// output destined for external models can be held back or redacted.
package security

import (
	"regexp"
	"strings"
)

// Finding locates one credential match inside a scanned file.
type Finding struct {
	Type  string `json:"type"`
	Path  string `json:"path,omitempty"`
	Line  int    `json:"line"`
	Match string `json:"match"` // redacted excerpt, never the raw value
}

// Scanner matches known credential shapes line by line. Pattern matching
// only; it does not parse or validate the surrounding code.
type Scanner struct {
	patterns     []credentialPattern
	placeholders []string
}

type credentialPattern struct {
	name   string
	regex  *regexp.Regexp
	redact func(match string) string
}

var quotedValue = regexp.MustCompile(`["'][^"']+["']`)

func redactQuoted(match string) string {
	return quotedValue.ReplaceAllString(match, `"[REDACTED]"`)
}

// NewScanner builds a scanner with the default credential patterns.
func NewScanner() *Scanner {
	return &Scanner{
		patterns: []credentialPattern{
			{
				name:   "api_key",
				regex:  regexp.MustCompile(`(?i)(api[_-]?key|apikey|api_secret)\s*[=:]\s*["']([a-zA-Z0-9_\-]{20,})["']`),
				redact: redactQuoted,
			},
			{
				name:  "aws_access_key",
				regex: regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
				redact: func(string) string {
					return "[REDACTED_AWS_KEY]"
				},
			},
			{
				name:  "github_token",
				regex: regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`),
				redact: func(string) string {
					return "[REDACTED_GITHUB_TOKEN]"
				},
			},
			{
				name:   "password",
				regex:  regexp.MustCompile(`(?i)(password|passwd|pwd|secret)\s*[=:]\s*["']([^\s"']{8,})["']`),
				redact: redactQuoted,
			},
			{
				name:  "connection_string",
				regex: regexp.MustCompile(`(?i)(mongodb|postgres|mysql|redis|amqp)://[^\s"']+`),
				redact: func(match string) string {
					// Keep protocol and host, strip credentials.
					re := regexp.MustCompile(`(://[^:/]+:)[^@]+(@)`)
					return re.ReplaceAllString(match, "${1}[REDACTED]${2}")
				},
			},
			{
				name:  "private_key",
				regex: regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
				redact: func(string) string {
					return "[REDACTED_PRIVATE_KEY]"
				},
			},
			{
				name:  "jwt_token",
				regex: regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),
				redact: func(string) string {
					return "[REDACTED_JWT]"
				},
			},
		},
		placeholders: []string{
			"your-", "example", "placeholder", "xxx", "changeme",
			"TODO", "FIXME", "<", ">", "${", "{{",
		},
	}
}

// ScanFile reports every credential match in content, tagged with path.
// Lines that look like documentation placeholders are skipped.
func (s *Scanner) ScanFile(path, content string) []Finding {
	var findings []Finding

	for lineNum, line := range strings.Split(content, "\n") {
		if s.isPlaceholder(line) {
			continue
		}
		for _, p := range s.patterns {
			for _, match := range p.regex.FindAllString(line, -1) {
				findings = append(findings, Finding{
					Type:  p.name,
					Path:  path,
					Line:  lineNum + 1,
					Match: p.redact(match),
				})
			}
		}
	}

	return findings
}

// HasSecrets reports whether content contains at least one credential
// match. Stops at the first hit.
func (s *Scanner) HasSecrets(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if s.isPlaceholder(line) {
			continue
		}
		for _, p := range s.patterns {
			if p.regex.MatchString(line) {
				return true
			}
		}
	}
	return false
}

// Redact rewrites every credential match in content with its placeholder.
func (s *Scanner) Redact(content string) string {
	result := content
	for _, p := range s.patterns {
		result = p.regex.ReplaceAllStringFunc(result, p.redact)
	}
	return result
}

func (s *Scanner) isPlaceholder(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range s.placeholders {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
