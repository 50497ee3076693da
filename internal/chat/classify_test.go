package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		sentiment string
		topics    []string
	}{
		{
			name:      "plain json",
			raw:       `{"sentiment":"happy","topics":["work","travel"]}`,
			sentiment: "happy",
			topics:    []string{"work", "travel"},
		},
		{
			name:      "fenced with language tag",
			raw:       "```json\n{\"sentiment\":\"sad\",\"topics\":[\"exams\"]}\n```",
			sentiment: "sad",
			topics:    []string{"exams"},
		},
		{
			name:      "fenced without language tag",
			raw:       "```\n{\"sentiment\":\"excited\",\"topics\":[]}\n```",
			sentiment: "excited",
			topics:    []string{},
		},
		{
			name:      "surrounding whitespace",
			raw:       "  \n{\"sentiment\":\"calm\",\"topics\":[\"music\"]}\n  ",
			sentiment: "calm",
			topics:    []string{"music"},
		},
		{
			name:      "missing fields default",
			raw:       `{}`,
			sentiment: "neutral",
			topics:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := parseClassification(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.sentiment, out.Sentiment)
			assert.Equal(t, tt.topics, out.Topics)
		})
	}
}

func TestParseClassification_Malformed(t *testing.T) {
	for _, raw := range []string{
		"not json",
		"```json\nstill not json\n```",
		"",
		"```",
	} {
		_, err := parseClassification(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestMergeTopics(t *testing.T) {
	merged := mergeTopics(
		[]string{"movies", "Travel"},
		[]string{"travel", "food", "movies", "books"},
		10,
	)
	assert.Equal(t, []string{"movies", "Travel", "food", "books"}, merged)

	capped := mergeTopics(
		[]string{"a", "b", "c"},
		[]string{"d", "e", "f"},
		4,
	)
	assert.Equal(t, []string{"a", "b", "c", "d"}, capped)

	assert.Empty(t, mergeTopics(nil, nil, 10))
	assert.Equal(t, []string{"x"}, mergeTopics([]string{" x ", ""}, nil, 10))
}
