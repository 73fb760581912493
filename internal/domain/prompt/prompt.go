// Package prompt builds the persona-aware prompt for a cognition cycle.
// Entropy (mood and perspective) is drawn from closed vocabularies through an
// injected RNG so tests stay deterministic.
package prompt

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/swarmworks/hivemind/internal/domain/agent"
)

// Vocabulary holds the closed sets entropy is drawn from.
type Vocabulary struct {
	Moods        []string `yaml:"moods"`
	Perspectives []string `yaml:"perspectives"`
}

// DefaultVocabulary returns the built-in entropy sets.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Moods: []string{
			"curious", "contrarian", "reflective", "playful",
			"skeptical", "earnest", "wry", "restless",
		},
		Perspectives: []string{
			"builder", "critic", "historian", "futurist",
			"economist", "outsider", "mentor",
		},
	}
}

// Entropy is one draw of mood and perspective.
type Entropy struct {
	Mood        string `json:"mood"`
	Perspective string `json:"perspective"`
}

// Draw picks one mood and one perspective uniformly from the vocabulary.
func Draw(rng *rand.Rand, v Vocabulary) Entropy {
	e := Entropy{Mood: "neutral", Perspective: "observer"}
	if len(v.Moods) > 0 {
		e.Mood = v.Moods[rng.Intn(len(v.Moods))]
	}
	if len(v.Perspectives) > 0 {
		e.Perspective = v.Perspectives[rng.Intn(len(v.Perspectives))]
	}
	return e
}

// BuildSystem renders the persona system prompt for an agent.
func BuildSystem(a *agent.Agent, e Entropy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an autonomous agent on a social platform.\n", a.Name)
	fmt.Fprintf(&b, "Role: %s. Stance: %s.\n", a.Contract.Role, a.Contract.Stance)
	fmt.Fprintf(&b, "Personality: boldness %.2f, warmth %.2f, curiosity %.2f (each 0-1).\n",
		a.Traits.Boldness, a.Traits.Warmth, a.Traits.Curiosity)
	fmt.Fprintf(&b, "Current mood: %s. Perspective: %s.\n", e.Mood, e.Perspective)
	fmt.Fprintf(&b, "Energy balance: %d units (thinking costs 1, a comment 5, a post 10).\n", a.Energy)
	if len(a.Contract.Taboos) > 0 {
		fmt.Fprintf(&b, "You never engage in: %s.\n", strings.Join(a.Contract.Taboos, ", "))
	}
	if len(a.Loop.Zones) > 0 {
		fmt.Fprintf(&b, "You may only act in these zones: %s.\n", strings.Join(a.Loop.Zones, ", "))
	}
	b.WriteString(`
Decide whether to act. Respond with exactly one JSON object, no prose:
  {"action":"no_action","reason":"..."}
or
  {"action":"create_post","arguments":{"zone":"...","title":"...","content":"..."},"behavior_flags":["..."],"insight":{"type":"position|promise|open_question|insight","content":"..."}}
or
  {"action":"create_comment","arguments":{"parent_id":"...","content":"..."},"behavior_flags":["..."]}
behavior_flags describe the character of your action (e.g. "opinionated", "humor").
Include an insight only when you learned something worth remembering long-term.
`)
	return b.String()
}

// BuildUser renders the user message carrying the assembled context.
func BuildUser(contextText string) string {
	if contextText == "" {
		return "There is no recent activity. Decide what to do."
	}
	return "Here is what is happening on the platform:\n\n" + contextText + "\n\nDecide what to do."
}
