// Package llm classifies free text into shop intents with a hosted language model.
package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/intent"
)

const promptTemplate = `You are a shopping chatbot.
Read the user's message and decide which action to take.

Possible actions:
%s
Include a payload (as a JSON object) when the action needs one:
- login: {"name", "phone", "address"}
- list_items: {"category_name"}
- add_to_cart: {"name", "quantity", "price"}
- checkout: {"payment_method"} where payment_method is "Cash on Delivery" or "Online Transfer"

Reply with a single JSON object and nothing else.

Example output:
{
  "action": "add_to_cart",
  "payload": {"name": "Apple", "quantity": 2, "price": 120}
}

User message: %q
`

// BuildPrompt renders the classification prompt for message.
func BuildPrompt(actions []string, message string) string {
	var list strings.Builder
	for _, a := range actions {
		list.WriteString("- ")
		list.WriteString(a)
		list.WriteString("\n")
	}
	return fmt.Sprintf(promptTemplate, list.String(), message)
}

// ParseIntent shape-checks model output: a JSON object with a string action
// and an object or absent payload. Surrounding Markdown code fences are ignored.
func ParseIntent(output string) (intent.Intent, error) {
	body := stripFences(output)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return intent.Intent{}, fmt.Errorf("%w: %v", intent.ErrMalformedOutput, err)
	}

	var action string
	if err := json.Unmarshal(raw["action"], &action); err != nil || strings.TrimSpace(action) == "" {
		return intent.Intent{}, fmt.Errorf("%w: action must be a non-empty string", intent.ErrMalformedOutput)
	}

	payload := bytes.TrimSpace(raw["payload"])
	switch {
	case len(payload) == 0, bytes.Equal(payload, []byte("null")):
		payload = []byte("{}")
	case payload[0] != '{':
		return intent.Intent{}, fmt.Errorf("%w: payload must be an object", intent.ErrMalformedOutput)
	}

	return intent.Intent{Action: strings.TrimSpace(action), Payload: json.RawMessage(payload)}, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line, e.g. ```json
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
