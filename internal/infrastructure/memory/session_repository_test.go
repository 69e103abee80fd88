package memory

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_RoundTripClones(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	_, err := repo.Get(ctx, "s1")
	require.ErrorIs(t, err, session.ErrNotFound)

	st := &session.State{User: &session.User{Name: "Ali", Phone: "03001234567", Address: "Lahore"}}
	_, _, err = st.Cart.Add("Apple", 1, 120)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "s1", st))

	st.User.Name = "mutated"
	st.Cart.Lines[0].Quantity = 99

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ali", got.User.Name)
	assert.Equal(t, 1, got.Cart.Lines[0].Quantity)

	require.NoError(t, repo.Delete(ctx, "s1"))
	require.NoError(t, repo.Delete(ctx, "s1"))
	assert.Equal(t, 0, repo.Len())
}

func TestSessionRepository_RejectsEmptyID(t *testing.T) {
	err := NewSessionRepository().Save(context.Background(), "", &session.State{})
	assert.Error(t, err)
}
