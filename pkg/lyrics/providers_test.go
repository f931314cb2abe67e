package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

func TestLRCLibSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode([]lrclibTrack{
			{ID: 1, TrackName: "Interlude", Instrumental: true},
			{ID: 2, TrackName: "99 Luftballons", ArtistName: "Nena", SyncedLyrics: "[00:01.00]Hast du etwas Zeit für mich\n[00:04.50]Dann singe ich ein Lied für dich"},
			{ID: 3, TrackName: "99 Luftballons", ArtistName: "Nena", PlainLyrics: "plain text"},
		})
	}))
	defer srv.Close()

	l := NewLRCLib(srv.URL + "/")
	res, err := l.Search(context.Background(), Query{Title: "99 Luftballons", Artist: "Nena"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Hast du etwas Zeit für mich\nDann singe ich ein Lied für dich", res[0].Body)
	assert.Equal(t, "lrclib:2", res[0].Source)
	assert.Equal(t, "plain text", res[1].Body)
	assert.Contains(t, gotQuery, "track_name=99+Luftballons")
	assert.Contains(t, gotQuery, "artist_name=Nena")
}

func TestLRCLibErrors(t *testing.T) {
	status := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	l := NewLRCLib(srv.URL)
	_, err := l.Search(context.Background(), Query{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	status = http.StatusBadGateway
	_, err = l.Search(context.Background(), Query{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

const lyricsPage = `<!DOCTYPE html>
<html><head><title>Sakura Lyrics</title>
<script>var tracking = "should not appear";</script>
<style>.x { color: red; }</style></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Sakura Lyrics</h1>
<p>さくら<rp>(</rp><rt>ruby-reading</rt><rp>)</rp> さくら, 野山も里も, 見わたす限り, かすみか雲か, 朝日ににおう.</p>
<p>Cherry blossoms, cherry blossoms, across the fields and the villages, as far as the eye can see, mist or clouds, fragrant in the morning sun.</p>
<p>Cherry blossoms, cherry blossoms, in full bloom, let us go, let us go and see them, out in the spring light, together with friends.</p>
</article>
</body></html>`

func newWebFixture(t *testing.T, pages map[string]int) (*httptest.Server, *Web) {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		assert.True(t, strings.HasSuffix(r.URL.Query().Get("q"), " lyrics"))
		links := make([]organicResult, 0, len(pages))
		for _, p := range []string{"/broken", "/empty", "/lyrics"} {
			if _, ok := pages[p]; ok {
				links = append(links, organicResult{Title: p, Link: srv.URL + p})
			}
		}
		_ = json.NewEncoder(w).Encode(searchResponse{OrganicResults: links})
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>hi</p></body></html>`)
	})
	mux.HandleFunc("/lyrics", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, lyricsPage)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, NewWeb(srv.URL+"/search.json", "secret")
}

func TestWebSearchSkipsUnusablePages(t *testing.T) {
	srv, w := newWebFixture(t, map[string]int{"/broken": 1, "/empty": 1, "/lyrics": 1})

	res, err := w.Search(context.Background(), Query{Title: "Sakura", Artist: "Traditional"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, srv.URL+"/lyrics", res[0].Source)
	assert.Contains(t, res[0].Body, "Cherry blossoms")
	assert.NotContains(t, res[0].Body, "ruby-reading")
	assert.NotContains(t, res[0].Body, "should not appear")
}

func TestWebSearchNoLinks(t *testing.T) {
	_, w := newWebFixture(t, map[string]int{})
	_, err := w.Search(context.Background(), Query{Title: "Sakura"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWebSearchThroughClient(t *testing.T) {
	_, w := newWebFixture(t, map[string]int{"/lyrics": 1})
	got, err := NewClient(w).Search(context.Background(), "Sakura", "", 5*time.Second)
	require.NoError(t, err)
	assert.Contains(t, got, "fragrant in the morning sun")
}

func TestWebSearchUnusablePagesIsLyricsError(t *testing.T) {
	for name, pages := range map[string]map[string]int{
		"blank page":        {"/empty": 1},
		"blank and refused": {"/broken": 1, "/empty": 1},
	} {
		t.Run(name, func(t *testing.T) {
			_, w := newWebFixture(t, pages)

			_, err := w.Search(context.Background(), Query{Title: "Sakura"})
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNotFound)

			_, err = NewClient(w).Search(context.Background(), "Sakura", "", 5*time.Second)
			require.Error(t, err)
			assert.Equal(t, songvocab.KindLyrics, songvocab.KindOf(err))
			assert.Equal(t, "LYRICS_ERROR", songvocab.AsError(err, songvocab.KindUnknown).Code())
		})
	}
}
