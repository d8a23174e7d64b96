package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// Voting key builders
func (kb *KeyBuilder) KeyCandidatesAll() string {
	return kb.BuildKey(KeyCandidatesAll)
}

func (kb *KeyBuilder) KeyResults() string {
	return kb.BuildKey(KeyResults)
}

func (kb *KeyBuilder) KeySession() string {
	return kb.BuildKey(KeySession)
}

func (kb *KeyBuilder) KeyVoterStatus(identifier string) string {
	return kb.BuildKey(fmt.Sprintf(KeyVoterStatus, identifier))
}

// KeyCustom builds a key from a custom pattern
func (kb *KeyBuilder) KeyCustom(pattern string, args ...interface{}) string {
	return kb.BuildKey(fmt.Sprintf(pattern, args...))
}
