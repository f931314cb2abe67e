package extract

import (
	"context"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/japaniel/songvocab/pkg/songvocab"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

const systemPrompt = "You are a language teacher who builds vocabulary lists from song lyrics. You answer with JSON only."

// OpenAI extracts vocabulary through an OpenAI-compatible chat completion
// endpoint. Pointing baseURL at Ollama or llama.cpp works as well.
type OpenAI struct {
	client   oai.Client
	model    string
	maxItems int
}

// NewOpenAI creates an OpenAI extractor.
func NewOpenAI(apiKey, model, baseURL string, maxItems int) (*OpenAI, error) {
	if apiKey == "" && baseURL == "" {
		return nil, fmt.Errorf("openai: API key is required unless a base URL is set")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{client: oai.NewClient(opts...), model: model, maxItems: maxItems}, nil
}

// Extract implements Extractor.
func (o *OpenAI) Extract(ctx context.Context, lyrics string) ([]songvocab.VocabularyItem, error) {
	resp, err := o.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(Prompt(lyrics, o.maxItems)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}
	items, err := ParseItems(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return limit(items, o.maxItems), nil
}
