package intent

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrMalformedOutput marks classifier output that is not a usable intent.
var ErrMalformedOutput = errors.New("intent: malformed classifier output")

const DefaultAction = "greet"

type Intent struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// Default is the safe action used when classifier output cannot be used.
func Default() Intent {
	return Intent{Action: DefaultAction, Payload: json.RawMessage(`{}`)}
}

// Classifier maps free text to an intent.
type Classifier interface {
	Classify(ctx context.Context, text string) (Intent, error)
}
