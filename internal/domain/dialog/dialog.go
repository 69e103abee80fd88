// Package dialog holds the per-session state of the chat conversation.
package dialog

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/session"
)

var ErrNotFound = errors.New("dialog: state not found")

// LoginStep tracks how far the shopper got through the login prompts.
type LoginStep int

const (
	StepNotStarted LoginStep = iota
	StepAwaitingName
	StepAwaitingPhone
	StepAwaitingAddress
	StepLoggedIn
)

// PendingCategorySelection is the last category the shopper picked together
// with its items. A newer category match replaces it.
type PendingCategorySelection struct {
	Category string
	Items    []catalog.Item
}

type State struct {
	Step            LoginStep
	Draft           session.Details
	Pending         *PendingCategorySelection
	AwaitingPayment bool
}

// Reset drops everything, sending the shopper back to the start.
func (s *State) Reset() {
	*s = State{}
}

func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Pending != nil {
		p := *s.Pending
		p.Items = append([]catalog.Item(nil), s.Pending.Items...)
		clone.Pending = &p
	}
	return &clone
}

// Repository stores conversation state by session ID.
type Repository interface {
	Get(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, id string, st *State) error
	Delete(ctx context.Context, id string) error
}
