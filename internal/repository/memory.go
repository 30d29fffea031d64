package repository

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/tictactoe-peersync/internal/apperror"
)

type memoryContext struct {
	mu      sync.RWMutex
	payload []byte
}

func NewMemoryContextRepository() ContextRepository {
	return &memoryContext{}
}

func (that *memoryContext) Save(_ context.Context, payload []byte) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)

	that.mu.Lock()
	that.payload = stored
	that.mu.Unlock()

	return nil
}

func (that *memoryContext) Load(_ context.Context) ([]byte, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if that.payload == nil {
		return nil, apperror.ErrContextNotFound
	}

	return that.payload, nil
}
