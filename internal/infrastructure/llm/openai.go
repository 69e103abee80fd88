package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/intent"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/httpclient"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
	openAITemperature    = 0.2
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	HTTP    httpclient.Config
}

// OpenAI classifies through the chat completions endpoint.
type OpenAI struct {
	client  *openai.Client
	http    *httpclient.Client
	model   string
	actions []string
}

func NewOpenAI(cfg OpenAIConfig, actions []string, tel observability.Observability) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	hc := httpclient.New("openai", cfg.HTTP, tel)

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = hc.HTTPClient()

	return &OpenAI{
		client:  openai.NewClientWithConfig(oc),
		http:    hc,
		model:   cfg.Model,
		actions: actions,
	}
}

func (o *OpenAI) Classify(ctx context.Context, text string) (intent.Intent, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(o.actions, text)},
		},
		Temperature: openAITemperature,
	}

	var resp openai.ChatCompletionResponse
	err := o.http.Call(ctx, "chat_completions", func(ctx context.Context) error {
		var err error
		resp, err = o.client.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return intent.Intent{}, fmt.Errorf("llm: openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return intent.Intent{}, fmt.Errorf("%w: no choices", intent.ErrMalformedOutput)
	}
	return ParseIntent(resp.Choices[0].Message.Content)
}
