// Package notifier carries field changes between processes: Kafka in
// production, an in-memory channel for tests and single-process runs.
package notifier

import (
	"context"
	"sync"

	"origo/internal/sync/models"
)

// Memory is an in-process notifier. Publish fans out to every subscriber
// without blocking; a subscriber whose buffer is full misses the change,
// so tests must drain their channels.
type Memory struct {
	mu   sync.RWMutex
	subs []chan models.Change
}

func NewMemory() *Memory {
	return &Memory{}
}

// Subscribe returns a channel receiving every subsequent change.
func (n *Memory) Subscribe(buffer int) <-chan models.Change {
	ch := make(chan models.Change, buffer)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, ch)
	return ch
}

func (n *Memory) Publish(_ context.Context, change models.Change) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, ch := range n.subs {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}
