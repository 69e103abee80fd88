package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/dialog"
)

type ConversationRepository struct {
	mu     sync.RWMutex
	states map[string]*dialog.State
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		states: make(map[string]*dialog.State),
	}
}

func (r *ConversationRepository) Get(_ context.Context, id string) (*dialog.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.states[id]
	if !ok {
		return nil, dialog.ErrNotFound
	}
	return st.Clone(), nil
}

func (r *ConversationRepository) Save(_ context.Context, id string, st *dialog.State) error {
	if id == "" {
		return fmt.Errorf("conversation repository: id is required")
	}
	if st == nil {
		return fmt.Errorf("conversation repository: state is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[id] = st.Clone()
	return nil
}

func (r *ConversationRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, id)
	return nil
}
