package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-assistant/internal/domain/session"
)

type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.State
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*domain.State),
	}
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.State, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return st.Clone(), nil
}

func (r *SessionRepository) Save(ctx context.Context, id string, st *domain.State) error {
	_ = ctx
	if id == "" {
		return fmt.Errorf("session repository: id is required")
	}
	if st == nil {
		return fmt.Errorf("session repository: state is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[id] = st.Clone()
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// Len reports the number of stored sessions.
func (r *SessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
