package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPersonaType(t *testing.T) {
	assert.True(t, ValidPersonaType(PersonaGirlfriend))
	assert.True(t, ValidPersonaType(PersonaBoyfriend))
	assert.False(t, ValidPersonaType("husband"))
	assert.False(t, ValidPersonaType(""))
}

func TestBuildSystemPrompt_EncodesContract(t *testing.T) {
	mem := &Memory{
		EmotionalState:   "happy",
		RecentTopics:     []string{"movies", "hiking"},
		UserPreferences:  map[string]any{"favorite_food": "ramen"},
		RelationshipData: map[string]any{"anniversary": "2026-02-14"},
	}

	prompt := buildSystemPrompt(PersonaGirlfriend, "Chloe", "Arjun", "dating", mem)

	assert.Contains(t, prompt, "You are Chloe.")
	assert.Contains(t, prompt, "not an AI")
	assert.Contains(t, prompt, "Arjun")
	assert.Contains(t, prompt, "'dating' stage")
	assert.Contains(t, prompt, "same language and script")
	assert.Contains(t, prompt, "BE PROACTIVE")
	// memory rendered as recollections
	assert.Contains(t, prompt, "movies")
	assert.Contains(t, prompt, "ramen")
	assert.Contains(t, prompt, "anniversary")
	assert.Contains(t, prompt, "happy")
}

func TestBuildSystemPrompt_VariantsDiffer(t *testing.T) {
	gf := buildSystemPrompt(PersonaGirlfriend, "Chloe", "Arjun", "dating", nil)
	bf := buildSystemPrompt(PersonaBoyfriend, "Dev", "Priya", "dating", nil)

	assert.NotEqual(t, gf, bf)
	assert.Contains(t, gf, "playful")
	assert.Contains(t, bf, "confident")
}

func TestBuildSystemPrompt_EmptyMemoryDefaults(t *testing.T) {
	prompt := buildSystemPrompt(PersonaBoyfriend, "Dev", "Priya", "new", nil)

	assert.Contains(t, prompt, "Our recent chats: []")
	assert.Contains(t, prompt, "Things I know about them: {}")
	assert.Contains(t, prompt, "feeling excited to talk to them!")
}
