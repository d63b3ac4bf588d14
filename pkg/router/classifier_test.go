package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetaQueries(t *testing.T) {
	c := NewHeuristicClassifier()

	for _, q := range []string{
		"What tools do you have?",
		"which tools can I use",
		"list your tools please",
		"tell me about your capabilities",
	} {
		cls := c.Classify(q)
		assert.True(t, cls.Meta, q)
		assert.False(t, cls.ToolRelevant, q)
	}
}

func TestToolDetectors(t *testing.T) {
	tests := []struct {
		query    string
		detector string
	}{
		{"Calculate 12 * 8", "arithmetic"},
		{"what is 3+4", "arithmetic"},
		{"compute the interest", "arithmetic"},
		{"what's the weather in Paris", "weather"},
		{"is it raining in Tokyo?", "weather"},
		{"what time is it", "time"},
		{"today's date please", "time"},
		{"search the web for go generics", "search"},
		{"look up the train schedule", "search"},
		{"generate a uuid for me", "identifier"},
		{"I need a random identifier", "identifier"},
	}

	c := NewHeuristicClassifier()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			cls := c.Classify(tt.query)
			assert.True(t, cls.ToolRelevant)
			assert.Contains(t, cls.Detectors, tt.detector)
		})
	}
}

func TestPlainChatIsNotToolRelevant(t *testing.T) {
	c := NewHeuristicClassifier()

	for _, q := range []string{
		"tell me a joke",
		"how are you today",
		"summarize our conversation",
		"",
	} {
		cls := c.Classify(q)
		assert.False(t, cls.ToolRelevant, q)
		assert.False(t, cls.Meta, q)
	}
}

func TestMultiToolHint(t *testing.T) {
	c := NewHeuristicClassifier()

	cls := c.Classify("what's the weather in Paris and also calculate 12 * 8")
	assert.True(t, cls.ToolRelevant)
	assert.True(t, cls.MultiToolHint)
	assert.ElementsMatch(t, []string{"weather", "arithmetic"}, cls.Detectors)

	single := c.Classify("calculate 12 * 8")
	assert.False(t, single.MultiToolHint)
}

func TestMultiToolHintFromNumberedList(t *testing.T) {
	c := NewHeuristicClassifier()

	// The second marker ends the message; the hint must still fire.
	cls := c.Classify("please do two jobs: 1) calculate 3 * 4 2) weather in Oslo")
	assert.True(t, cls.ToolRelevant)
	assert.True(t, cls.MultiToolHint)
}
