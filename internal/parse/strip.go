package parse

import "strings"

// Reasoning-capable models wrap their chain of thought in think tags and
// sometimes emit an opening tag without ever closing it. Both forms are
// non-payload and must be removed before extraction.
const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// StripArtifacts removes known non-payload artifacts from raw oracle
// output: think blocks and fenced code annotations. The result is
// trimmed. Escape sequences are left alone: inside a JSON envelope they
// are load-bearing and must survive until the decoder sees them.
func StripArtifacts(raw string) string {
	s := stripThink(raw)
	s = stripFences(s)
	return strings.TrimSpace(s)
}

// decodeEscapes rewrites literal \n sequences into newlines. Only for
// plain-text output that failed structured extraction.
func decodeEscapes(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `\n`, "\n"))
}

func stripThink(s string) string {
	for {
		open := strings.Index(strings.ToLower(s), thinkOpen)
		if open < 0 {
			return s
		}
		rest := s[open+len(thinkOpen):]
		close := strings.Index(strings.ToLower(rest), thinkClose)
		if close < 0 {
			// Unterminated reasoning block swallows the remainder.
			return s[:open]
		}
		s = s[:open] + rest[close+len(thinkClose):]
	}
}

// stripFences unwraps ```lang ... ``` fences, keeping the inner payload.
// A dangling fence marker is dropped together with its language tag line.
func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
