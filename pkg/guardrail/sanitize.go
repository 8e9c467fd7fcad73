package guardrail

import (
	"regexp"
	"strings"
)

const RedactionMarker = "[REDACTED]"

// Secret-like tokens that must never leave the system, whatever check
// verdicts said.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),            // OpenAI-style keys
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),               // AWS access keys
	regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`),            // GitHub tokens
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]{20,}`), // bearer tokens
}

var codeBlockPattern = regexp.MustCompile("(?s)```.*?```")

// Sanitizer rewrites content that already passed validation: redacts personal
// data, strips secrets, optionally collapses code blocks, and enforces the
// output length cap. It always runs, independent of check verdicts.
type Sanitizer struct {
	CollapseCodeBlocks bool
	MaxOutputChars     int
}

func NewSanitizer(maxOutputChars int) *Sanitizer {
	if maxOutputChars <= 0 {
		maxOutputChars = 8000
	}
	return &Sanitizer{MaxOutputChars: maxOutputChars}
}

func (s *Sanitizer) Sanitize(text string) string {
	out := text

	for _, p := range piiPatterns {
		out = p.re.ReplaceAllString(out, RedactionMarker)
	}
	for _, re := range secretPatterns {
		out = re.ReplaceAllString(out, RedactionMarker)
	}

	if s.CollapseCodeBlocks {
		out = codeBlockPattern.ReplaceAllString(out, "[code omitted]")
	}

	out = strings.TrimSpace(out)

	// The marker counts toward the cap, so truncated output never exceeds it.
	if runes := []rune(out); len(runes) > s.MaxOutputChars {
		out = string(runes[:s.MaxOutputChars-1]) + "…"
	}

	return out
}
