package app

import (
	"sync"

	"github.com/ellieayla/logstash-output-loginsight/internal/domain"
	"github.com/ellieayla/logstash-output-loginsight/pkg/cfapi"
)

// Batcher holds encoded records between flushes. Appends and drains are
// serialized by one mutex, so a record is handed out by exactly one drain.
type Batcher struct {
	mu       sync.Mutex
	pending  []cfapi.Record
	maxItems int
	closed   bool
}

// NewBatcher creates a batcher that reports full every maxItems records.
func NewBatcher(maxItems int) *Batcher {
	if maxItems < 1 {
		maxItems = 1
	}
	return &Batcher{maxItems: maxItems}
}

// Add appends a record. It returns true when at least one whole batch is
// pending, along with the pending count.
func (b *Batcher) Add(rec cfapi.Record) (bool, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false, len(b.pending), domain.ErrClosed
	}
	b.pending = append(b.pending, rec)
	return len(b.pending) >= b.maxItems, len(b.pending), nil
}

// TakeFull drains only whole batches, leaving the remainder pending.
func (b *Batcher) TakeFull() [][]cfapi.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.pending) / b.maxItems * b.maxItems
	if n == 0 {
		return nil
	}
	taken := b.pending[:n:n]
	rest := make([]cfapi.Record, len(b.pending)-n, max(len(b.pending)-n, b.maxItems))
	copy(rest, b.pending[n:])
	b.pending = rest
	return domain.Chunk(taken, b.maxItems)
}

// TakeAll drains every pending record, split into batches of at most
// maxItems.
func (b *Batcher) TakeAll() [][]cfapi.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.swap()
}

// Close drains every pending record and rejects later adds.
func (b *Batcher) Close() [][]cfapi.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.swap()
}

func (b *Batcher) swap() [][]cfapi.Record {
	if len(b.pending) == 0 {
		return nil
	}
	taken := b.pending
	b.pending = nil
	return domain.Chunk(taken, b.maxItems)
}

// Len returns the number of pending records.
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// MaxItems returns the batch size.
func (b *Batcher) MaxItems() int {
	return b.maxItems
}
