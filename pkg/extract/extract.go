// Package extract turns lyrics into vocabulary items.
//
// An Extractor is a strategy: a generative model (Gemini, OpenAI-compatible),
// a morphological analyser, or a deterministic stand-in. Bounded wraps any of
// them with a deadline, output validation and error classification.
package extract

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

// DefaultMaxItems is used when an extractor is configured without a limit.
const DefaultMaxItems = 5

// Extractor produces vocabulary items from lyrics.
type Extractor interface {
	Extract(ctx context.Context, lyrics string) ([]songvocab.VocabularyItem, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, lyrics string) ([]songvocab.VocabularyItem, error)

func (f ExtractorFunc) Extract(ctx context.Context, lyrics string) ([]songvocab.VocabularyItem, error) {
	return f(ctx, lyrics)
}

// Bounded enforces a deadline on an Extractor and validates its output.
type Bounded struct {
	Extractor Extractor
	Logger    *zap.Logger
}

// NewBounded wraps e.
func NewBounded(e Extractor) *Bounded {
	return &Bounded{Extractor: e, Logger: zap.NewNop()}
}

type extractOutcome struct {
	items []songvocab.VocabularyItem
	err   error
}

// Extract runs the wrapped extractor under timeout. Items without a word or a
// context are dropped; if none remain the call fails.
func (b *Bounded) Extract(ctx context.Context, lyrics string, timeout time.Duration) ([]songvocab.VocabularyItem, error) {
	if strings.TrimSpace(lyrics) == "" {
		return nil, songvocab.Newf(songvocab.KindVocabulary, "cannot extract vocabulary from empty lyrics")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan extractOutcome, 1)
	go func() {
		items, err := b.Extractor.Extract(ctx, lyrics)
		done <- extractOutcome{items: items, err: err}
	}()

	var out extractOutcome
	select {
	case <-ctx.Done():
		return nil, contextError(ctx.Err(), timeout)
	case out = <-done:
	}

	if out.err != nil {
		if ctx.Err() != nil {
			return nil, contextError(ctx.Err(), timeout)
		}
		var se *songvocab.Error
		if errors.As(out.err, &se) {
			return nil, se
		}
		b.Logger.Warn("vocabulary extractor failed", zap.Error(out.err))
		return nil, songvocab.Wrap(songvocab.KindVocabulary, out.err, "error extracting vocabulary")
	}

	items := Filter(out.items)
	if dropped := len(out.items) - len(items); dropped > 0 {
		b.Logger.Debug("dropped invalid vocabulary items", zap.Int("dropped", dropped))
	}
	if len(items) == 0 {
		return nil, songvocab.Newf(songvocab.KindVocabulary, "no valid items")
	}
	return items, nil
}

func contextError(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return songvocab.Wrap(songvocab.KindVocabularyTimeout, err,
			"vocabulary extraction timed out after "+timeout.String())
	}
	return songvocab.Wrap(songvocab.KindVocabulary, err, "vocabulary extraction canceled")
}

// Filter returns the items with a non-empty word and context, trimmed.
func Filter(items []songvocab.VocabularyItem) []songvocab.VocabularyItem {
	out := make([]songvocab.VocabularyItem, 0, len(items))
	for _, it := range items {
		w := strings.TrimSpace(it.Word)
		c := strings.TrimSpace(it.Context)
		if w == "" || c == "" {
			continue
		}
		out = append(out, songvocab.VocabularyItem{Word: w, Context: c})
	}
	return out
}
