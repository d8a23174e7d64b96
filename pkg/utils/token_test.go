package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeToken(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{
			name:     "plain token",
			input:    "STU-2024-001",
			expected: "STU-2024-001",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  STU-2024-001\t",
			expected: "STU-2024-001",
		},
		{
			name:        "empty",
			input:       "",
			expectError: true,
		},
		{
			name:        "whitespace only",
			input:       "   ",
			expectError: true,
		},
		{
			name:        "inner whitespace",
			input:       "STU 2024",
			expectError: true,
		},
		{
			name:        "too long",
			input:       strings.Repeat("a", MaxTokenLength+1),
			expectError: true,
		},
		{
			name:     "exactly max length",
			input:    strings.Repeat("a", MaxTokenLength),
			expected: strings.Repeat("a", MaxTokenLength),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := NormalizeToken(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, token)
		})
	}
}

func TestParseTokenList(t *testing.T) {
	t.Run("mixed list", func(t *testing.T) {
		tokens, invalid := ParseTokenList("A-1\n\n  B-2  \nbad token\nA-1\nC-3")
		assert.Equal(t, []string{"A-1", "B-2", "C-3"}, tokens)
		assert.Equal(t, []string{"bad token"}, invalid)
	})

	t.Run("windows line endings", func(t *testing.T) {
		tokens, invalid := ParseTokenList("A-1\r\nB-2\r\n")
		assert.Equal(t, []string{"A-1", "B-2"}, tokens)
		assert.Empty(t, invalid)
	})

	t.Run("empty input", func(t *testing.T) {
		tokens, invalid := ParseTokenList("")
		assert.Empty(t, tokens)
		assert.Empty(t, invalid)
	})

	t.Run("first occurrence wins", func(t *testing.T) {
		tokens, _ := ParseTokenList("B-2\nA-1\nB-2")
		assert.Equal(t, []string{"B-2", "A-1"}, tokens)
	})
}
