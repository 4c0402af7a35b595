// Package feed is an in-process pub/sub of newly created alerts, consumed by
// the SSE stream endpoint.
package feed

import (
	"sync"
	"sync/atomic"

	"github.com/mr1hm/go-health-alerts/internal/models"
)

type Broadcaster struct {
	subscribers map[uint64]chan *models.AlertRecord
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan *models.AlertRecord),
	}
}

// Subscribe registers a listener. The channel is buffered so one stalled
// stream cannot block a scan.
func (b *Broadcaster) Subscribe() (uint64, <-chan *models.AlertRecord) {
	id := b.nextID.Add(1)
	ch := make(chan *models.AlertRecord, 32)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Broadcast delivers the alert to every subscriber, dropping it for any
// subscriber whose buffer is full.
func (b *Broadcaster) Broadcast(a *models.AlertRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- a:
		default:
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels so streams exit cleanly on shutdown.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
