package application

import (
	"context"
	"testing"

	"github.com/rocketscienceinc/tictactoe-peersync/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContextRepository(t *testing.T) {
	t.Run("Memory store", func(t *testing.T) {
		// Given: a config asking for the in-memory context store
		conf := &config.Config{ContextStore: config.ContextStoreMemory}

		// When: the repository is built
		repo, closeStore, err := newContextRepository(context.Background(), conf)
		require.NoError(t, err)
		defer closeStore()

		// Then: it starts empty and keeps what is saved
		_, err = repo.Load(context.Background())
		require.ErrorIs(t, err, apperror.ErrContextNotFound)

		require.NoError(t, repo.Save(context.Background(), []byte("profiles")))

		stored, err := repo.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "profiles", string(stored))
	})

	t.Run("Unknown store", func(t *testing.T) {
		conf := &config.Config{ContextStore: "disk"}

		_, _, err := newContextRepository(context.Background(), conf)
		require.ErrorIs(t, err, ErrUnknownContextStore)
	})
}
