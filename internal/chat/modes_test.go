package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Mode
	}{
		{"claims keyword", "How do I file a disability claim?", ModeClaims},
		{"claims form", "I got a letter about VA Form 21-526EZ", ModeClaims},
		{"benefits keyword", "Am I eligible for the GI Bill?", ModeBenefits},
		{"benefits home loan", "Tell me about the VA home loan program", ModeBenefits},
		{"appeals keyword", "The decision was denied, what next?", ModeAppeals},
		{"appeals hlr", "Should I file a Higher-Level Review?", ModeAppeals},
		{"crisis keyword", "I've been thinking about suicide", ModeCrisis},
		{"general fallback", "What's the weather at the VA office?", ModeGeneral},
		{"empty", "", ModeGeneral},
		{"case insensitive", "CLAIM status please", ModeClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text))
		})
	}
}

func TestDetect_CrisisWinsOverTopical(t *testing.T) {
	// A message matching both crisis and claims keywords must route to
	// crisis handling.
	got := Detect("My claim was denied and I want to end my life")
	assert.Equal(t, ModeCrisis, got)
}

func TestSystemPrompt_DistinctPerMode(t *testing.T) {
	seen := map[string]Mode{}
	for _, m := range []Mode{ModeCrisis, ModeClaims, ModeBenefits, ModeAppeals, ModeGeneral} {
		p := SystemPrompt(m)
		assert.NotEmpty(t, p)
		if prev, ok := seen[p]; ok {
			t.Fatalf("modes %s and %s share a prompt", prev, m)
		}
		seen[p] = m
	}
}

func TestSystemPrompt_CrisisMentionsLifeline(t *testing.T) {
	assert.Contains(t, SystemPrompt(ModeCrisis), "988")
}
