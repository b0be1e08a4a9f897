package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSubstitutesName(t *testing.T) {
	r := Render("Hi [NUME]", "Hello [NUME],\nwelcome!", "Ana", "Client")

	assert.Equal(t, "Hi Ana", r.Subject)
	assert.Equal(t, "Hello Ana,\nwelcome!", r.Text)
	assert.Equal(t, "Hello Ana,<br>welcome!", r.HTML)
}

func TestRenderDefaultName(t *testing.T) {
	cases := []struct {
		name     string
		expected string
	}{
		{"", "Hi Client"},
		{"   ", "Hi Client"},
		{"Bob", "Hi Bob"},
	}

	for _, tc := range cases {
		r := Render("Hi [NUME]", "body", tc.name, "Client")
		assert.Equal(t, tc.expected, r.Subject)
	}
}

func TestRenderConfigurableDefault(t *testing.T) {
	r := Render("Hi [NUME]", "b", "", "MANAGER")
	assert.Equal(t, "Hi MANAGER", r.Subject)
}

func TestRenderIsPure(t *testing.T) {
	first := Render("Hi [NUME]", "Bye [NUME]", "Ana", "Client")
	second := Render("Hi [NUME]", "Bye [NUME]", "Ana", "Client")

	assert.Equal(t, first, second)
}

func TestRenderMultipleOccurrences(t *testing.T) {
	r := Render("[NUME] [NUME]", "x", "Ana", "Client")
	assert.Equal(t, "Ana Ana", r.Subject)
}
