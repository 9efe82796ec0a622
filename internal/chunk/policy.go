package chunk

import "strings"

const (
	DefaultMaxLines = 5000
	DefaultMaxBytes = 1024 * 1024

	// bytes per token for the length heuristic
	charsPerToken = 4
)

// Policy decides whether a transcript blob is too large to hand downstream in
// one piece.
type Policy struct {
	MaxLines int
	MaxBytes int
}

// DefaultPolicy returns the 5000 line / 1 MiB thresholds.
func DefaultPolicy() Policy {
	return Policy{MaxLines: DefaultMaxLines, MaxBytes: DefaultMaxBytes}
}

// ShouldSplit reports whether content has more lines than MaxLines or more
// UTF-8 bytes than MaxBytes. Non-positive limits fall back to the defaults.
func (p Policy) ShouldSplit(content string) bool {
	maxLines, maxBytes := p.MaxLines, p.MaxBytes
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return LineCount(content) > maxLines || len(content) > maxBytes
}

// LineCount counts transcript lines the same way transcript.Lines splits them:
// a single trailing newline does not open a new line.
func LineCount(content string) int {
	if content == "" {
		return 0
	}
	content = strings.TrimSuffix(content, "\n")
	return strings.Count(content, "\n") + 1
}

// EstimateTokens approximates a token count as ceil(bytes / 4).
func EstimateTokens(s string) int {
	return (len(s) + charsPerToken - 1) / charsPerToken
}
