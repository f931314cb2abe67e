package lyrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func results(bodies ...string) SearcherFunc {
	return func(ctx context.Context, q Query) ([]Result, error) {
		out := make([]Result, 0, len(bodies))
		for _, b := range bodies {
			out = append(out, Result{Title: q.Title, Artist: q.Artist, Body: b})
		}
		return out, nil
	}
}

func TestClientReturnsFirstResult(t *testing.T) {
	c := NewClient(results("first lyrics\r\nline two  ", "second lyrics"))
	got, err := c.Search(context.Background(), "Yesterday", "The Beatles", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first lyrics\nline two", got)
}

func TestClientNotFound(t *testing.T) {
	tests := map[string]Searcher{
		"no results": results(),
		"sentinel": SearcherFunc(func(context.Context, Query) ([]Result, error) {
			return nil, ErrNotFound
		}),
	}
	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewClient(s).Search(context.Background(), "Nonexistent Song", "Nobody", time.Second)
			require.Error(t, err)
			assert.Equal(t, songvocab.KindLyricsNotFound, songvocab.KindOf(err))
			assert.Contains(t, err.Error(), "Nonexistent Song")
			assert.Contains(t, err.Error(), "Nobody")
		})
	}
}

func TestClientEmptyBody(t *testing.T) {
	_, err := NewClient(results(" \n\n ")).Search(context.Background(), "T", "A", time.Second)
	require.Error(t, err)
	assert.Equal(t, songvocab.KindLyrics, songvocab.KindOf(err))
}

func TestClientProviderFailure(t *testing.T) {
	cause := errors.New("connection refused")
	s := SearcherFunc(func(context.Context, Query) ([]Result, error) { return nil, cause })
	_, err := NewClient(s).Search(context.Background(), "T", "A", time.Second)
	require.Error(t, err)
	assert.Equal(t, songvocab.KindLyrics, songvocab.KindOf(err))
	assert.ErrorIs(t, err, cause)
}

func TestClientTimeoutIsBoundedWhenProviderIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	s := SearcherFunc(func(context.Context, Query) ([]Result, error) {
		<-release
		return nil, nil
	})

	const timeout = 50 * time.Millisecond
	start := time.Now()
	_, err := NewClient(s).Search(context.Background(), "Slow Song", "", timeout)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, songvocab.KindLyricsTimeout, songvocab.KindOf(err))
	assert.Equal(t, "LYRICS_TIMEOUT", songvocab.AsError(err, songvocab.KindLyrics).Code())
	assert.Less(t, elapsed, timeout+500*time.Millisecond)
}

func TestClientTimeoutWhenProviderHonoursContext(t *testing.T) {
	s := SearcherFunc(func(ctx context.Context, _ Query) ([]Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err := NewClient(s).Search(context.Background(), "T", "A", 20*time.Millisecond)
	assert.Equal(t, songvocab.KindLyricsTimeout, songvocab.KindOf(err))
}

func TestClientParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := SearcherFunc(func(ctx context.Context, _ Query) ([]Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err := NewClient(s).Search(ctx, "T", "A", time.Second)
	assert.Equal(t, songvocab.KindLyrics, songvocab.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStaticHonoursContext(t *testing.T) {
	got, err := NewClient(Static{}).Search(context.Background(), "Twinkle", "", time.Second)
	require.NoError(t, err)
	assert.Contains(t, got, "Twinkle, twinkle")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Static{}.Search(ctx, Query{Title: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "a\n\nb", Clean("a\r\n\r\n\r\n\r\nb\n"))
	assert.Equal(t, "", Clean("   "))
}

func TestStripTimestamps(t *testing.T) {
	in := "[00:12.34]Hello there\n[00:15.00][01:15.00] Chorus line\nno stamp"
	assert.Equal(t, "Hello there\nChorus line\nno stamp", StripTimestamps(in))
}

func TestSanitizeRuby(t *testing.T) {
	in := []byte(`<ruby>漢字<rp>(</rp><rt>かんじ</rt><rp>)</rp></ruby>`)
	assert.Equal(t, `<ruby>漢字</ruby>`, string(SanitizeRuby(in)))
}
