package session

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/cart"
)

var ErrNotFound = errors.New("session: not found")

// State is everything the store keeps for one session key.
type State struct {
	User *User     `json:"user,omitempty"`
	Cart cart.Cart `json:"cart"`
}

func (s *State) LoggedIn() bool { return s != nil && s.User != nil }

func (s *State) Clone() *State {
	if s == nil {
		return &State{}
	}
	return &State{User: s.User.Clone(), Cart: *s.Cart.Clone()}
}

// Repository stores session state by session ID.
type Repository interface {
	Get(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, id string, st *State) error
	Delete(ctx context.Context, id string) error
}
