package audit

import (
	"sync"
	"sync/atomic"

	"github.com/revittco/anylist-mcp/internal/store"
)

// subscriberBuffer is how far a listener may fall behind before records
// addressed to it are dropped.
const subscriberBuffer = 64

// Bus fans audit records out to live listeners such as the SSE stream.
// The zero value is not usable; call NewBus.
type Bus struct {
	mu      sync.RWMutex
	subs    map[<-chan *store.AuditRecord]chan *store.AuditRecord
	dropped atomic.Int64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[<-chan *store.AuditRecord]chan *store.AuditRecord)}
}

func (b *Bus) Subscribe() <-chan *store.AuditRecord {
	ch := make(chan *store.AuditRecord, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = ch
	return ch
}

// Unsubscribe closes ch. It is safe to call more than once.
func (b *Bus) Unsubscribe(ch <-chan *store.AuditRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	send, ok := b.subs[ch]
	if !ok {
		return
	}
	delete(b.subs, ch)
	close(send)
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped counts deliveries skipped because a listener was full.
func (b *Bus) Dropped() int64 { return b.dropped.Load() }

// Publish does not block on slow listeners.
func (b *Bus) Publish(rec *store.AuditRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- rec:
		default:
			b.dropped.Add(1)
		}
	}
}
