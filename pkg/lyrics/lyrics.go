// Package lyrics resolves song lyrics through a pluggable search provider.
//
// Providers implement Searcher. Client wraps a provider with a hard deadline
// and maps its outcomes onto the songvocab error taxonomy.
package lyrics

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

// ErrNotFound is returned by providers that know the song has no lyrics.
var ErrNotFound = errors.New("lyrics: not found")

// Query is what a provider searches for.
type Query struct {
	Title  string
	Artist string
}

func (q Query) String() string {
	if q.Artist == "" {
		return q.Title
	}
	return q.Title + " " + q.Artist
}

// Result is one provider hit.
type Result struct {
	Title  string
	Artist string
	Source string
	Body   string
}

// Searcher is a lyrics provider. Results are returned in the provider's own
// order; the first one wins.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, q Query) ([]Result, error)

func (f SearcherFunc) Search(ctx context.Context, q Query) ([]Result, error) { return f(ctx, q) }

// Client bounds a Searcher with a deadline.
type Client struct {
	Searcher Searcher
	Logger   *zap.Logger
}

// NewClient wraps s.
func NewClient(s Searcher) *Client {
	return &Client{Searcher: s, Logger: zap.NewNop()}
}

type searchOutcome struct {
	results []Result
	err     error
}

// Search returns the lyrics of the first result for title and artist. The
// call returns once timeout has elapsed even if the provider does not honour
// ctx; a non-positive timeout leaves only ctx in charge.
func (c *Client) Search(ctx context.Context, title, artist string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	q := Query{Title: title, Artist: artist}
	done := make(chan searchOutcome, 1)
	go func() {
		results, err := c.Searcher.Search(ctx, q)
		done <- searchOutcome{results: results, err: err}
	}()

	var out searchOutcome
	select {
	case <-ctx.Done():
		return "", c.contextError(ctx.Err(), timeout)
	case out = <-done:
	}

	if out.err != nil {
		if ctx.Err() != nil {
			return "", c.contextError(ctx.Err(), timeout)
		}
		if errors.Is(out.err, ErrNotFound) {
			return "", songvocab.LyricsNotFound(title, artist)
		}
		var se *songvocab.Error
		if errors.As(out.err, &se) {
			return "", se
		}
		c.Logger.Warn("lyrics provider failed", zap.String("query", q.String()), zap.Error(out.err))
		return "", songvocab.Wrap(songvocab.KindLyrics, out.err, "error searching for lyrics")
	}
	if len(out.results) == 0 {
		return "", songvocab.LyricsNotFound(title, artist)
	}

	body := Clean(out.results[0].Body)
	if body == "" {
		return "", songvocab.Newf(songvocab.KindLyrics, "lyrics result for '%s' was empty", title)
	}
	c.Logger.Debug("lyrics resolved",
		zap.String("query", q.String()),
		zap.String("source", out.results[0].Source),
		zap.Int("length", len(body)),
	)
	return body, nil
}

func (c *Client) contextError(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return songvocab.Wrap(songvocab.KindLyricsTimeout, err,
			"lyrics search timed out after "+timeout.String())
	}
	return songvocab.Wrap(songvocab.KindLyrics, err, "lyrics search canceled")
}

var reBlankRuns = regexp.MustCompile(`\n{3,}`)

// Clean normalises line endings, trims trailing spaces on every line and
// collapses runs of blank lines.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t 　")
	}
	s = strings.Join(lines, "\n")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
