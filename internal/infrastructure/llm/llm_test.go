package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/intent"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var actions = []string{"greet", "show_cart"}

func openAIServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultOpenAIModel, req.Model)
		assert.InDelta(t, 0.2, req.Temperature, 1e-6)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "show me my cart")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_Classify(t *testing.T) {
	srv := openAIServer(t, "```json\n{\"action\":\"show_cart\",\"payload\":{}}\n```", http.StatusOK)
	c := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, actions, observability.Nop())

	got, err := c.Classify(context.Background(), "show me my cart")
	require.NoError(t, err)
	assert.Equal(t, "show_cart", got.Action)
}

func TestOpenAI_MalformedOutput(t *testing.T) {
	srv := openAIServer(t, "I think you want your cart.", http.StatusOK)
	c := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, actions, observability.Nop())

	_, err := c.Classify(context.Background(), "show me my cart")
	assert.ErrorIs(t, err, intent.ErrMalformedOutput)
	assert.NotErrorIs(t, err, shoperr.ErrUpstream)
}

func TestOpenAI_TransportFailure(t *testing.T) {
	srv := openAIServer(t, "", http.StatusUnauthorized)
	c := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, actions, observability.Nop())

	_, err := c.Classify(context.Background(), "show me my cart")
	assert.ErrorIs(t, err, shoperr.ErrUpstream)
	assert.NotErrorIs(t, err, intent.ErrMalformedOutput)
}

func TestAnthropic_Classify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "{\"action\":\"greet\",\"payload\":{}}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 8}
		}`))
	}))
	defer srv.Close()

	c := NewAnthropic(AnthropicConfig{APIKey: "sk-ant-test", BaseURL: srv.URL + "/"}, actions, observability.Nop())
	got, err := c.Classify(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "greet", got.Action)
	assert.JSONEq(t, `{}`, string(got.Payload))
}

func TestAnthropic_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	defer srv.Close()

	c := NewAnthropic(AnthropicConfig{APIKey: "sk-ant-test", BaseURL: srv.URL + "/"}, actions, observability.Nop())
	_, err := c.Classify(context.Background(), "hello")
	assert.ErrorIs(t, err, shoperr.ErrUpstream)
}
