package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/intent"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/httpclient"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	anthropicMaxTokens    = 512
)

type AnthropicConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, mostly for tests.
	BaseURL string
	HTTP    httpclient.Config
}

// Anthropic classifies through the Messages API.
type Anthropic struct {
	client  anthropic.Client
	http    *httpclient.Client
	model   anthropic.Model
	actions []string
}

func NewAnthropic(cfg AnthropicConfig, actions []string, tel observability.Observability) *Anthropic {
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	hc := httpclient.New("anthropic", cfg.HTTP, tel)

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(hc.HTTPClient()),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Anthropic{
		client:  anthropic.NewClient(opts...),
		http:    hc,
		model:   anthropic.Model(cfg.Model),
		actions: actions,
	}
}

func (a *Anthropic) Classify(ctx context.Context, text string) (intent.Intent, error) {
	var out strings.Builder
	err := a.http.Call(ctx, "messages", func(ctx context.Context) error {
		response, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: anthropicMaxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(a.actions, text))),
			},
		})
		if err != nil {
			return err
		}
		for _, block := range response.Content {
			if block.Type == "text" {
				out.WriteString(block.Text)
			}
		}
		return nil
	})
	if err != nil {
		return intent.Intent{}, fmt.Errorf("llm: anthropic: %w", err)
	}
	return ParseIntent(out.String())
}
