package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPromptContainsContract(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("I can speak French", []string{"English", "French", "German"})

	assert.Contains(t, prompt, `"I can speak French"`)
	assert.Contains(t, prompt, "- English\n")
	assert.Contains(t, prompt, "- French\n")
	assert.Contains(t, prompt, "- German\n")
	// Negation and universal-quantifier rules are part of the wire contract.
	assert.Contains(t, prompt, "negated")
	assert.Contains(t, prompt, "all options")
	assert.Contains(t, prompt, `"none"`)
}

func TestParseCandidates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{"single name", "Spanish", []string{"Spanish"}},
		{"multiple names", "French, German", []string{"French", "German"}},
		{"messy whitespace", "  French ,German  ", []string{"French", "German"}},
		{"none token", "none", nil},
		{"none token uppercase", "None", nil},
		{"empty response", "", nil},
		{"whitespace only", "   ", nil},
		{"empty fragments dropped", "French,,German,", []string{"French", "German"}},
		{"none mixed with names", "none, French", []string{"French"}},
		{"order preserved", "Catering, Delivery, Pickup", []string{"Catering", "Delivery", "Pickup"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseCandidates(tt.response))
		})
	}
}
