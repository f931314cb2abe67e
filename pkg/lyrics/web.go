package lyrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

const (
	// DefaultSearchURL is the SerpApi JSON endpoint.
	DefaultSearchURL = "https://serpapi.com/search.json"

	maxBodySize = 10 * 1024 * 1024 // 10 MB limit for HTML content
	minLyrics   = 10
)

// Web finds lyrics pages through a SerpApi-compatible search endpoint and
// extracts the page text with readability.
type Web struct {
	SearchURL  string
	APIKey     string
	MaxPages   int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewWeb creates a web searcher. An empty searchURL selects SerpApi.
func NewWeb(searchURL, apiKey string) *Web {
	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return &Web{
		SearchURL:  searchURL,
		APIKey:     apiKey,
		MaxPages:   3,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     zap.NewNop(),
	}
}

type organicResult struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

type searchResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
	Error          string          `json:"error"`
}

// Search implements Searcher. It returns at most one result: the first page
// that yields usable text. ErrNotFound means the search found no pages; pages
// without usable text are an error.
func (w *Web) Search(ctx context.Context, q Query) ([]Result, error) {
	links, err := w.searchLinks(ctx, q.String()+" lyrics")
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, ErrNotFound
	}

	limit := w.MaxPages
	if limit <= 0 || limit > len(links) {
		limit = len(links)
	}
	for _, link := range links[:limit] {
		text, err := w.fetchPage(ctx, link.Link)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			w.Logger.Debug("skipping lyrics page", zap.String("url", link.Link), zap.Error(err))
			continue
		}
		if len(strings.TrimSpace(text)) < minLyrics {
			continue
		}
		return []Result{{Title: link.Title, Artist: q.Artist, Source: link.Link, Body: text}}, nil
	}
	// Results exist, so this is not ErrNotFound.
	return nil, fmt.Errorf("no usable lyrics text in %d pages", limit)
}

func (w *Web) searchLinks(ctx context.Context, query string) ([]organicResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", "google")
	if w.APIKey != "" {
		params.Set("api_key", w.APIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.SearchURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: unexpected status: %s", resp.Status)
	}
	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if sr.Error != "" {
		return nil, fmt.Errorf("search: %s", sr.Error)
	}
	return sr.OrganicResults, nil
}

// fetchPage downloads a page with browser-like headers and returns its main
// text content.
func (w *Web) fetchPage(ctx context.Context, pageURL string) (string, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	// Some lyrics sites answer 403 to non-browser clients.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ja;q=0.8")

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch: status %d", resp.StatusCode)
	}
	if resp.ContentLength > maxBodySize {
		return "", fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, maxBodySize)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(body) >= maxBodySize {
		return "", fmt.Errorf("response body exceeded maximum size limit of %d bytes", maxBodySize)
	}

	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(body)), parsedURL)
	if err != nil {
		return "", fmt.Errorf("extract article: %w", err)
	}
	return article.TextContent, nil
}

var (
	// (?s) allows dot to match newlines, (?i) makes it case-insensitive.
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby drops furigana (<rt>) and ruby parentheses (<rp>) so that
// extracted text does not read "漢字かんじ".
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, nil)
	return reRP.ReplaceAll(cleaned, nil)
}
