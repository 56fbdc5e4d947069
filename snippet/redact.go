// Package snippet indexes the user's snippet journal for semantic retrieval.
package snippet

import (
	"regexp"
	"strings"
)

// Journal snippets are prose the user wrote, but credentials still end up
// pasted into notes. Everything leaving the machine (embedding requests,
// prompt context) goes through Redact first.
var (
	reBearer    = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]{16,}`)
	reKeyAssign = regexp.MustCompile(`(?i)\b([A-Za-z0-9_-]*(?:key|token|secret|password|passwd|credential))\b(\s*[:=]\s*)(\S+)`)
	reSKKey     = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{8,}\b`)
	reAWSKey    = regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)
	reHexBlob   = regexp.MustCompile(`\b[0-9a-fA-F]{40,}\b`)
)

// Redact masks credential-shaped content in a snippet.
// Prose is left alone; only values that look like secrets are replaced.
func Redact(s string) string {
	s = reBearer.ReplaceAllString(s, "Bearer ***")
	s = reKeyAssign.ReplaceAllString(s, "$1$2***")
	s = reSKKey.ReplaceAllString(s, "sk-***")
	s = reAWSKey.ReplaceAllString(s, "AKIA***")
	s = reHexBlob.ReplaceAllString(s, "***")
	return s
}

// RedactAll applies Redact to each element.
func RedactAll(snippets []string) []string {
	out := make([]string, len(snippets))
	for i, s := range snippets {
		out[i] = Redact(s)
	}
	return out
}

// parseJournalLine normalizes one journal line. Blank lines and comment
// lines (leading #) yield an empty string.
func parseJournalLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	return line
}
