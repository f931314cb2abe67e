package songvocab

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies a failure class of the pipeline.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidRequest
	KindLyricsNotFound
	KindLyrics
	KindLyricsTimeout
	KindVocabulary
	KindVocabularyTimeout
	KindStorage
	KindRateLimited
)

type kindInfo struct {
	name   string
	code   string
	status int
}

var kinds = map[Kind]kindInfo{
	KindUnknown:           {"Unknown", "INTERNAL_ERROR", http.StatusInternalServerError},
	KindInvalidRequest:    {"InvalidRequest", "INVALID_REQUEST", http.StatusBadRequest},
	KindLyricsNotFound:    {"LyricsNotFound", "LYRICS_NOT_FOUND", http.StatusNotFound},
	KindLyrics:            {"Lyrics", "LYRICS_ERROR", http.StatusInternalServerError},
	KindLyricsTimeout:     {"LyricsTimeout", "LYRICS_TIMEOUT", http.StatusRequestTimeout},
	KindVocabulary:        {"Vocabulary", "VOCABULARY_ERROR", http.StatusInternalServerError},
	KindVocabularyTimeout: {"VocabularyTimeout", "VOCAB_TIMEOUT", http.StatusRequestTimeout},
	KindStorage:           {"Storage", "STORAGE_ERROR", http.StatusInternalServerError},
	KindRateLimited:       {"RateLimited", "RATE_LIMITED", http.StatusTooManyRequests},
}

func (k Kind) String() string { return kinds[k].name }

// Code is the stable, externally visible error code.
func (k Kind) Code() string { return kinds[k].code }

// Status is the HTTP status the API boundary answers with.
func (k Kind) Status() int { return kinds[k].status }

// Timeout reports whether k is one of the timeout sub-kinds.
func (k Kind) Timeout() bool {
	return k == KindLyricsTimeout || k == KindVocabularyTimeout
}

// Error is the tagged failure type of the pipeline. It carries whatever the
// pipeline had produced before failing so callers do not lose it.
type Error struct {
	Kind    Kind
	Message string

	// Partial payload.
	Lyrics     string
	Vocabulary []VocabularyItem

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil && e.cause.Error() != e.Message {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the stable error code.
func (e *Error) Code() string { return e.Kind.Code() }

// Status returns the HTTP status for the error.
func (e *Error) Status() int { return e.Kind.Status() }

// WithPartial returns a copy of e carrying the given partial results.
// Fields already set on e are kept.
func (e *Error) WithPartial(lyrics string, vocab []VocabularyItem) *Error {
	cp := *e
	if cp.Lyrics == "" {
		cp.Lyrics = lyrics
	}
	if cp.Vocabulary == nil && vocab != nil {
		cp.Vocabulary = append([]VocabularyItem(nil), vocab...)
	}
	return &cp
}

// Newf builds an Error of the given kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around cause. A nil cause yields nil.
func Wrap(kind Kind, cause error, message string) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, cause: cause}
}

// InvalidRequest reports an empty or unparseable request.
func InvalidRequest(format string, args ...any) *Error {
	return Newf(KindInvalidRequest, format, args...)
}

// LyricsNotFound reports that the provider had nothing for the song.
func LyricsNotFound(title, artist string) *Error {
	return Newf(KindLyricsNotFound, "could not find lyrics for '%s' by '%s'", title, artist)
}

// AsError extracts an *Error from err. Anything else is classified as the
// fallback kind with the original message preserved.
func AsError(err error, fallback Kind) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: fallback, Message: err.Error(), cause: err}
}

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
