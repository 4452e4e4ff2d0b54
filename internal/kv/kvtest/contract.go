// Package kvtest holds the contract every kv.Store backend must satisfy.
package kvtest

import (
	"context"
	"testing"

	"github.com/Makepad-fr/tarefas/internal/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s against the kv.Store contract. s must start empty.
func Run(t *testing.T, s kv.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("SetGet", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, kv.TasksKey, []byte(`[{"id":1,"titulo":"a"}]`)))
		got, err := s.Get(ctx, kv.TasksKey)
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1,"titulo":"a"}]`, string(got))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, kv.TasksKey, []byte(`[]`)))
		got, err := s.Get(ctx, kv.TasksKey)
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(got))
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, kv.TokenKey, []byte("secret")))
		tok, err := s.Get(ctx, kv.TokenKey)
		require.NoError(t, err)
		assert.Equal(t, "secret", string(tok))

		tasks, err := s.Get(ctx, kv.TasksKey)
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(tasks))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, kv.TokenKey))
		_, err := s.Get(ctx, kv.TokenKey)
		assert.ErrorIs(t, err, kv.ErrNotFound)

		// deleting twice is fine
		assert.NoError(t, s.Delete(ctx, kv.TokenKey))
	})
}
