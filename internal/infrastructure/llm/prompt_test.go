package llm

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/intent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		action  string
		payload string
	}{
		{"plain", `{"action":"show_cart"}`, "show_cart", `{}`},
		{"null payload", `{"action":"logout","payload":null}`, "logout", `{}`},
		{"with payload", `{"action":"add_to_cart","payload":{"name":"Apple","quantity":2}}`, "add_to_cart", `{"name":"Apple","quantity":2}`},
		{"fenced", "```json\n{\"action\": \"list_categories\", \"payload\": {}}\n```", "list_categories", `{}`},
		{"bare fence", "```\n{\"action\":\"greet\"}\n```", "greet", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntent(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.action, got.Action)
			assert.JSONEq(t, tt.payload, string(got.Payload))
		})
	}
}

func TestParseIntent_Malformed(t *testing.T) {
	for _, in := range []string{
		"Sure! I'll add apples.",
		`["greet"]`,
		`{"payload":{}}`,
		`{"action":3}`,
		`{"action":"  "}`,
		`{"action":"login","payload":"Ali"}`,
	} {
		_, err := ParseIntent(in)
		assert.ErrorIs(t, err, intent.ErrMalformedOutput, in)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt([]string{"greet", "logout"}, `add "2" apples`)
	assert.Contains(t, p, "- greet\n- logout\n")
	assert.Contains(t, p, `User message: "add \"2\" apples"`)
}
