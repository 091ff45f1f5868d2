package cardid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveDeterministic(t *testing.T) {
	a := Derive("What is the capital of France?", "Paris")
	b := Derive("What is the capital of France?", "Paris")
	assert.Equal(t, a, b, "identical content must yield the identical id")
}

func TestDeriveNormalizesContent(t *testing.T) {
	// Cosmetic whitespace and casing changes must not change identity.
	a := Derive("  What is   the capital of France? ", "PARIS")
	b := Derive("what is the capital of france?", "paris")
	assert.Equal(t, a, b)
}

func TestDeriveDistinguishesContent(t *testing.T) {
	a := Derive("What is the capital of France?", "Paris")
	b := Derive("What is the capital of Spain?", "Madrid")
	assert.NotEqual(t, a, b)

	// Front/back must not be interchangeable.
	c := Derive("Paris", "What is the capital of France?")
	assert.NotEqual(t, a, c)
}

func TestDeriveCarriesVersionPrefix(t *testing.T) {
	id := Derive("front", "back")
	assert.True(t, strings.HasPrefix(id, Prefix))
	assert.False(t, IsLegacy(id), "content-derived ids must never classify as legacy")
}

func TestIsLegacy(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		legacy bool
	}{
		{"old random token", "k3j2h1g4f5d6s7a8", true},
		{"long lowercase hex blob", "a1b2c3d4e5f6a7b8c9d0", true},
		{"current scheme id", Derive("q", "a"), false},
		{"too short", "abc123", false},
		{"letters only", "abcdefghijklmnopqrst", false},
		{"digits only", "12345678901234567890", false},
		{"contains uppercase", "A1b2c3d4e5f6a7b8c9d0", false},
		{"contains dash", "a1b2c3d4-e5f6-a7b8c9", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.legacy, IsLegacy(tt.id), "id %q", tt.id)
		})
	}
}
