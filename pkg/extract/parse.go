package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

// ErrNoJSON is returned when a model response holds no JSON array.
var ErrNoJSON = errors.New("extract: no JSON array in model response")

// Prompt builds the instruction sent to generative models.
func Prompt(lyrics string, maxItems int) string {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Extract the %d most useful vocabulary words for a language learner from the song lyrics below.\n", maxItems)
	b.WriteString("Respond with only a JSON array. Each element must be an object with two string fields:\n")
	b.WriteString(`"word" (the word in its dictionary form) and "context" (the lyric line it appears in).` + "\n")
	b.WriteString("Do not add explanations.\n\nLyrics:\n")
	b.WriteString(lyrics)
	return b.String()
}

// ParseItems decodes vocabulary items from free-form model output. It accepts
// an object with a "vocabulary" array, or any text containing a JSON array
// between its first '[' and last ']'. Elements that are not objects with
// string "word" and "context" fields are skipped.
func ParseItems(text string) ([]songvocab.VocabularyItem, error) {
	raw, err := locateArray(text)
	if err != nil {
		return nil, err
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("decode vocabulary array: %w", err)
	}

	items := make([]songvocab.VocabularyItem, 0, len(elems))
	for _, e := range elems {
		var obj map[string]any
		if err := json.Unmarshal(e, &obj); err != nil {
			continue
		}
		word, _ := obj["word"].(string)
		context, _ := obj["context"].(string)
		if strings.TrimSpace(word) == "" || strings.TrimSpace(context) == "" {
			continue
		}
		items = append(items, songvocab.VocabularyItem{
			Word:    strings.TrimSpace(word),
			Context: strings.TrimSpace(context),
		})
	}
	return items, nil
}

func locateArray(text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		var wrapper struct {
			Vocabulary json.RawMessage `json:"vocabulary"`
		}
		if err := json.Unmarshal([]byte(trimmed), &wrapper); err == nil && len(wrapper.Vocabulary) > 0 {
			return wrapper.Vocabulary, nil
		}
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, ErrNoJSON
	}
	return []byte(text[start : end+1]), nil
}
