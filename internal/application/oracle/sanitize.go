package oracle

import (
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)```")

// StripMarkdownFence removes a markdown code fence around an oracle reply.
// Text outside the first fenced block is discarded; unfenced input is only trimmed.
func StripMarkdownFence(raw string) string {
	trimmed := strings.TrimSpace(raw)

	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}

	// Unterminated fence: drop the opening marker and language tag.
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.IndexAny(trimmed, "{["); idx >= 0 {
			trimmed = trimmed[idx:]
		}
	}

	return strings.TrimSpace(trimmed)
}
