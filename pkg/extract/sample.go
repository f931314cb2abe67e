package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

// Sample is a deterministic stand-in for a model: it returns the first
// MaxItems words of the lyrics.
type Sample struct {
	MaxItems int
}

// Extract implements Extractor.
func (s Sample) Extract(ctx context.Context, lyrics string) ([]songvocab.VocabularyItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := s.MaxItems
	if n <= 0 {
		n = DefaultMaxItems
	}
	var items []songvocab.VocabularyItem
	for _, f := range strings.Fields(lyrics) {
		word := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if word == "" {
			continue
		}
		items = append(items, songvocab.VocabularyItem{
			Word:    word,
			Context: fmt.Sprintf("Found in lyrics: '%s'", word),
		})
		if len(items) == n {
			break
		}
	}
	return items, nil
}
