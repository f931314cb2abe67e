package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultLRCLibURL is the public lrclib.net API root.
	DefaultLRCLibURL = "https://lrclib.net/api"
	userAgent        = "songvocab/0.2 (https://github.com/japaniel/songvocab)"
)

// LRCLib searches lrclib.net.
type LRCLib struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewLRCLib creates a client for the lrclib API at baseURL, or the public
// instance when baseURL is empty.
func NewLRCLib(baseURL string) *LRCLib {
	if baseURL == "" {
		baseURL = DefaultLRCLibURL
	}
	return &LRCLib{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// lrclibTrack is one entry of the /search response.
type lrclibTrack struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Search implements Searcher. Instrumental tracks are skipped.
func (l *LRCLib) Search(ctx context.Context, q Query) ([]Result, error) {
	params := url.Values{}
	params.Set("track_name", q.Title)
	if q.Artist != "" {
		params.Set("artist_name", q.Artist)
	}
	reqURL := fmt.Sprintf("%s/search?%s", l.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var tracks []lrclibTrack
	if err := json.NewDecoder(resp.Body).Decode(&tracks); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]Result, 0, len(tracks))
	for _, t := range tracks {
		if t.Instrumental {
			continue
		}
		body := t.PlainLyrics
		if body == "" {
			body = StripTimestamps(t.SyncedLyrics)
		}
		results = append(results, Result{
			Title:  t.TrackName,
			Artist: t.ArtistName,
			Source: fmt.Sprintf("lrclib:%d", t.ID),
			Body:   body,
		})
	}
	return results, nil
}

var reLRCTimestamp = regexp.MustCompile(`(?m)^(?:\[\d{1,3}:\d{2}(?:[.:]\d{1,3})?\])+ ?`)

// StripTimestamps removes LRC line timestamps such as "[01:02.33]".
func StripTimestamps(synced string) string {
	return reLRCTimestamp.ReplaceAllString(synced, "")
}
