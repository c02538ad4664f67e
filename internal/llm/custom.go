package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// customBackend speaks the OpenAI chat protocol to any compatible server
// (vLLM, Ollama, LM Studio, a corporate gateway) through a base URL
type customBackend struct {
	client openai.Client
	model  openai.ChatModel
	logger *slog.Logger
}

func newCustomBackend(baseURL, apiKey, model string, logger *slog.Logger) (*customBackend, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("custom provider requires a base URL")
	}
	if model == "" {
		return nil, fmt.Errorf("custom provider requires a model name")
	}

	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		// the SDK insists on a key; local servers ignore it
		opts = append(opts, option.WithAPIKey("unused"))
	}

	return &customBackend{
		client: openai.NewClient(opts...),
		model:  openai.ChatModel(model),
		logger: logger.With("provider", ProviderCustom, "model", model, "base_url", baseURL),
	}, nil
}

func (b *customBackend) complete(ctx context.Context, req Request) (Response, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       b.model,
		Temperature: openai.Float(0.1),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("custom completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, fmt.Errorf("custom provider returned no choices")
	}

	text := completion.Choices[0].Message.Content
	tokens := int(completion.Usage.TotalTokens)
	b.logger.Debug("custom completion",
		"prompt_length", len(req.Prompt),
		"response_length", len(text),
		"tokens_used", tokens,
	)
	return Response{Text: text, Tokens: tokens}, nil
}
