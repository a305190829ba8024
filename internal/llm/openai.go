package llm

import (
	"context"
	defError "errors"
	"fmt"
	"prompt-manager/internal/domain"

	openai "github.com/sashabaranov/go-openai"
)

var openAIPrefixes = []string{"gpt-", "o1", "o3", "o4", "chatgpt-"}

type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider talks to the OpenAI API, or to any compatible endpoint
// when baseURL is set.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(cfg)}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Supports(model string) bool { return hasPrefix(model, openAIPrefixes) }

func (p *OpenAIProvider) Run(ctx context.Context, req Request) (*Result, error) {
	system, user := messages(req)

	var msgs []openai.ChatCompletionMessage
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	oReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		oReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		oReq.Temperature = float32(req.Temperature)
	}

	resp, err := p.client.CreateChatCompletion(ctx, oReq)
	if err != nil {
		var apiErr *openai.APIError
		if defError.As(err, &apiErr) && transient(apiErr.HTTPStatusCode) {
			return nil, &TransientError{Err: fmt.Errorf("openai chat: %w", err)}
		}
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	model := resp.Model
	if model == "" {
		model = req.Model
	}

	return &Result{
		Model:  model,
		Output: content,
		Usage: domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
