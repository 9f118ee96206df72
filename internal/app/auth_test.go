package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokensMatch(t *testing.T) {
	assert.True(t, tokensMatch("sk-subcrs-abc123", "sk-subcrs-abc123"))
	assert.False(t, tokensMatch("sk-subcrs-abc123", "sk-subcrs-abc124"))
	assert.False(t, tokensMatch("sk-subcrs-abc123", "sk-subcrs-abc"))
	assert.False(t, tokensMatch("sk-subcrs-abc123", ""))
}
