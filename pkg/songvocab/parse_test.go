package songvocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		message string
		title   string
		artist  string
		rule    string
	}{
		{"by separator", "Yesterday by The Beatles", "Yesterday", "The Beatles", "by-separator"},
		{"by separator splits once", "Stand by Me by Ben E. King", "Stand", "Me by Ben E. King", "by-separator"},
		{"trailing artist", "Hey Jude The Beatles", "Hey Jude", "The Beatles", "trailing-artist"},
		{"single token", "Imagine", "Imagine", "", "title-only"},
		{"two tokens", "99 Luftballons", "99 Luftballons", "", "title-only"},
		{"surrounding whitespace", "  Yesterday   by  The Beatles ", "Yesterday", "The Beatles", "by-separator"},
		// Known ambiguity: a three-word title with no artist is mis-split.
		{"three word title", "Stairway To Heaven", "Stairway", "To Heaven", "trailing-artist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest(tt.message)
			require.NoError(t, err)
			assert.Equal(t, tt.title, got.Title)
			assert.Equal(t, tt.artist, got.Artist)
			assert.Equal(t, tt.rule, got.Rule)
		})
	}
}

func TestParseRequestInvalid(t *testing.T) {
	for _, msg := range []string{"", "   ", "\t\n", " by "} {
		_, err := ParseRequest(msg)
		require.Error(t, err, "message %q", msg)
		assert.Equal(t, KindInvalidRequest, KindOf(err))
	}
}
