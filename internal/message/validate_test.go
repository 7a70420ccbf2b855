package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCleanTemplate(t *testing.T) {
	engine := NewEngine()

	result := engine.Validate("{Hi|Hello} {name}, I was looking at {domain_name} and wanted to reach out.")
	assert.True(t, result.Valid())
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateUnbalancedBraces(t *testing.T) {
	engine := NewEngine()

	result := engine.Validate("{Hi|Hello {name}")
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0], "unclosed")

	result = engine.Validate("Hi} {name}")
	require.False(t, result.Valid())
	assert.Contains(t, result.Errors[0], "without matching")
}

func TestValidateEmptyAlternative(t *testing.T) {
	engine := NewEngine()

	result := engine.Validate("{Hi||Hello} {name}, thanks for the great resources on your site.")
	assert.True(t, result.Valid())
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "empty alternative")
}

func TestValidateUnknownPlaceholder(t *testing.T) {
	engine := NewEngine()

	result := engine.Validate("{greeting_word} {name}, I had a look around your site earlier today.")
	assert.True(t, result.Valid())
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "unknown placeholder")
}

func TestValidateShortRendering(t *testing.T) {
	engine := NewEngine()

	result := engine.Validate("{Hi|Yo}")
	assert.True(t, result.Valid())
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "characters")
}
