package utils

import (
	"fmt"
	"strings"
)

// MaxTokenLength bounds a single voter token. Tokens are student ids or
// issued codes, never free text.
const MaxTokenLength = 64

// NormalizeToken trims surrounding whitespace from a voter token and
// rejects tokens with inner whitespace or excessive length.
func NormalizeToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", fmt.Errorf("token is empty")
	}
	if len(trimmed) > MaxTokenLength {
		return "", fmt.Errorf("token exceeds %d characters", MaxTokenLength)
	}
	if strings.ContainsAny(trimmed, " \t") {
		return "", fmt.Errorf("token must not contain whitespace")
	}
	return trimmed, nil
}

// ParseTokenList splits a newline-separated token list into normalized,
// de-duplicated tokens. Blank lines are skipped; the first occurrence of
// a duplicated token wins. Malformed lines are returned alongside the
// valid tokens so callers can report them.
func ParseTokenList(raw string) (tokens []string, invalid []string) {
	seen := make(map[string]bool)
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		token, err := NormalizeToken(line)
		if err != nil {
			invalid = append(invalid, strings.TrimSpace(line))
			continue
		}
		if seen[token] {
			continue
		}
		seen[token] = true
		tokens = append(tokens, token)
	}
	return tokens, invalid
}
