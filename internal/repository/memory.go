package repository

import (
	"context"
	"fmt"
	"sync"

	"clinicbook/internal/domain"
)

// MemoryResourceLocker serializes booking mutations per resource within a
// single process. One buffered channel per resource acts as the mutex so
// acquisition can respect context cancellation.
type MemoryResourceLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewMemoryResourceLocker() *MemoryResourceLocker {
	return &MemoryResourceLocker{locks: make(map[string]chan struct{})}
}

func (l *MemoryResourceLocker) Acquire(ctx context.Context, resourceID string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[resourceID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[resourceID] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-ch })
		}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: acquire lock for resource %s: %v",
			domain.ErrTransientStore, resourceID, ctx.Err())
	}
}
