package songvocab

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	if Version() == "" {
		t.Fatalf("Version() returned empty string")
	}
}

func TestSongIDFormat(t *testing.T) {
	now := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)
	id := SongID("The Beatles", "Yesterday", now)
	assert.Regexp(t, regexp.MustCompile(`^20240309-[0-9a-f]{8}$`), id)
}

func TestSongIDIsStableForNormalizedInput(t *testing.T) {
	now := time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC)
	later := now.Add(10 * time.Hour)

	a := SongID("The Beatles", "Yesterday", now)
	b := SongID("the beatles!", "YESTERDAY.", later)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, SongID("The Beatles", "Let It Be", now))
	assert.NotEqual(t, a, SongID("The Beatles", "Yesterday", now.AddDate(0, 0, 1)))
}

func TestSongIDKeepsNonASCIILetters(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.NotEqual(t, SongID("Nena", "Über", now), SongID("Nena", "ber", now))
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		kind   Kind
		code   string
		status int
	}{
		{KindInvalidRequest, "INVALID_REQUEST", http.StatusBadRequest},
		{KindLyricsNotFound, "LYRICS_NOT_FOUND", http.StatusNotFound},
		{KindLyrics, "LYRICS_ERROR", http.StatusInternalServerError},
		{KindLyricsTimeout, "LYRICS_TIMEOUT", http.StatusRequestTimeout},
		{KindVocabulary, "VOCABULARY_ERROR", http.StatusInternalServerError},
		{KindVocabularyTimeout, "VOCAB_TIMEOUT", http.StatusRequestTimeout},
		{KindStorage, "STORAGE_ERROR", http.StatusInternalServerError},
		{KindRateLimited, "RATE_LIMITED", http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			e := Newf(tt.kind, "boom")
			assert.Equal(t, tt.code, e.Code())
			assert.Equal(t, tt.status, e.Status())
		})
	}
}

func TestErrorWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	e := Wrap(KindStorage, cause, "save results")
	require.NotNil(t, e)
	assert.ErrorIs(t, e, cause)
	assert.Equal(t, "save results: disk full", e.Error())

	wrapped := fmt.Errorf("outer: %w", e)
	assert.Equal(t, KindStorage, KindOf(wrapped))
	assert.Same(t, e, AsError(wrapped, KindLyrics))

	assert.Nil(t, Wrap(KindStorage, nil, "nothing"))
}

func TestAsErrorClassifiesUnknown(t *testing.T) {
	e := AsError(errors.New("socket closed"), KindVocabulary)
	assert.Equal(t, KindVocabulary, e.Kind)
	assert.Equal(t, "socket closed", e.Error())
	assert.Nil(t, AsError(nil, KindVocabulary))
}

func TestWithPartialDoesNotMutate(t *testing.T) {
	base := Newf(KindVocabulary, "no valid items")
	vocab := []VocabularyItem{{Word: "Luftballons", Context: "99 Luftballons"}}
	withLyrics := base.WithPartial("99 Luftballons auf ihrem Weg zum Horizont", vocab)

	assert.Empty(t, base.Lyrics)
	assert.Equal(t, "99 Luftballons auf ihrem Weg zum Horizont", withLyrics.Lyrics)
	assert.Equal(t, vocab, withLyrics.Vocabulary)

	vocab[0].Word = "changed"
	assert.Equal(t, "Luftballons", withLyrics.Vocabulary[0].Word)
}

func TestTraceConcurrentAppend(t *testing.T) {
	tr := NewTrace()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Addf("line %d", i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, tr.Len())

	got := tr.Thoughts()
	got[0] = "mutated"
	assert.NotEqual(t, "mutated", tr.Thoughts()[0])

	var nilTrace *Trace
	nilTrace.Addf("ignored")
	assert.Empty(t, nilTrace.Thoughts())
}
