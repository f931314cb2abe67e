package extract

import (
	"context"
	"fmt"
)

// Extractor kinds selectable by configuration.
const (
	KindGemini = "gemini"
	KindOpenAI = "openai"
	KindTokens = "tokens"
	KindSample = "sample"
)

// Options selects and configures an Extractor.
type Options struct {
	Kind     string
	Model    string
	APIKey   string
	BaseURL  string
	MaxItems int
}

// New builds the extractor named by opts.Kind.
func New(ctx context.Context, opts Options) (Extractor, error) {
	switch opts.Kind {
	case KindGemini:
		return NewGemini(ctx, opts.APIKey, opts.Model, opts.BaseURL, opts.MaxItems)
	case KindOpenAI:
		return NewOpenAI(opts.APIKey, opts.Model, opts.BaseURL, opts.MaxItems)
	case KindTokens:
		return NewTokens(opts.MaxItems)
	case KindSample, "":
		return Sample{MaxItems: opts.MaxItems}, nil
	default:
		return nil, fmt.Errorf("unknown extractor kind %q", opts.Kind)
	}
}
