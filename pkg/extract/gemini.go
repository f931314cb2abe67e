package extract

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini extracts vocabulary with Google's Gemini API.
type Gemini struct {
	client   *genai.Client
	model    string
	maxItems int
}

// NewGemini creates a Gemini extractor. baseURL is optional and only needed
// for proxies and tests.
func NewGemini(ctx context.Context, apiKey, model, baseURL string, maxItems int) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{client: client, model: model, maxItems: maxItems}, nil
}

// Extract implements Extractor.
func (g *Gemini) Extract(ctx context.Context, lyrics string) ([]songvocab.VocabularyItem, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(Prompt(lyrics, g.maxItems)),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	items, err := ParseItems(resp.Text())
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return limit(items, g.maxItems), nil
}

func limit(items []songvocab.VocabularyItem, n int) []songvocab.VocabularyItem {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
