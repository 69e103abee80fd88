package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application"
	"github.com/Zhima-Mochi/minishop-assistant/internal/application/dispatcher"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/intent"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	assistantService = "assistant"
	useCaseChatNLP   = "assistant.chat_nlp"

	fallbackMalformed = "malformed_output"
)

var ErrNoClassifier = fmt.Errorf("%w: intent classifier not configured", shoperr.ErrUnavailable)

type Dispatcher interface {
	Dispatch(ctx context.Context, sid string, req dispatcher.Request) (any, error)
}

// Result is a dispatched natural-language request. Fallback is set when the
// classifier output was unusable and the default action ran instead.
type Result struct {
	Action   string `json:"action"`
	Fallback bool   `json:"fallback"`
	Response any    `json:"response"`
}

type Service struct {
	classifier intent.Classifier
	dispatcher Dispatcher
	probe      application.Probe

	fallbacks observability.Counter // intent_fallback_total{reason}
}

// New wires the service; classifier may be nil when no provider is configured.
func New(classifier intent.Classifier, d Dispatcher, tel observability.Observability) *Service {
	_, _, metrics := observability.Parts(tel)
	return &Service{
		classifier: classifier,
		dispatcher: d,
		probe:      application.NewProbe(tel, assistantService),
		fallbacks:  metrics.Counter(observability.MIntentFallbacks),
	}
}

func (s *Service) Enabled() bool { return s.classifier != nil }

// Classify maps text to an intent, downgrading malformed classifier output to
// the default action. Transport failures are returned as upstream errors.
func (s *Service) Classify(ctx context.Context, text string) (intent.Intent, bool, error) {
	if s.classifier == nil {
		return intent.Intent{}, false, shoperr.Upstream("intent classifier unavailable", ErrNoClassifier)
	}
	in, err := s.classifier.Classify(ctx, text)
	if errors.Is(err, intent.ErrMalformedOutput) {
		s.fallbacks.Add(1, observability.L("reason", fallbackMalformed))
		s.probe.Logger(ctx).Warn("intent_fallback",
			observability.F("reason", fallbackMalformed),
			observability.F("error", err.Error()),
		)
		return intent.Default(), true, nil
	}
	if err != nil {
		if shoperr.KindOf(err) != shoperr.KindUpstream {
			err = shoperr.Upstream("intent classifier failed", err)
		}
		return intent.Intent{}, false, err
	}
	return in, false, nil
}

// Handle classifies message and dispatches the result for session sid.
func (s *Service) Handle(ctx context.Context, sid, message string) (_ *Result, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseChatNLP, "ChatNLP", attribute.String("session.id", sid))
	defer func() { run.End(err) }()

	message = strings.TrimSpace(message)
	if message == "" {
		run.Fail("MESSAGE_REQUIRED")
		return nil, shoperr.Validation(shoperr.FieldError{Field: "message", Message: "is required"})
	}

	in, fallback, err := s.Classify(ctx, message)
	if err != nil {
		run.Fail("CLASSIFY_FAILED")
		return nil, err
	}
	if fallback {
		run.Status("INTENT_FALLBACK")
		run.Note(observability.F("fallback", true))
	}
	action := dispatcher.NormalizeAction(in.Action)
	run.Span().SetAttributes(attribute.String("action", action), attribute.Bool("intent.fallback", fallback))

	resp, err := s.dispatcher.Dispatch(ctx, sid, dispatcher.Request{Action: in.Action, Payload: in.Payload})
	if err != nil {
		run.Fail("DISPATCH_FAILED")
		return nil, err
	}
	return &Result{Action: action, Fallback: fallback, Response: resp}, nil
}
