package oplog

import (
	"sync"

	"github.com/broyeztony/karlgrid/internal/txn"
)

// UnsavedTransaction is one client-side transaction awaiting server
// acknowledgement: { forward, reverse, sent_to_server }.
type UnsavedTransaction struct {
	Forward      []txn.Operation
	Reverse      []txn.Operation
	SentToServer bool
}

// UnsavedQueue tracks transactions a client produced but hasn't had
// acknowledged yet, so it can replay them in order on reconnect.
type UnsavedQueue struct {
	mu    sync.Mutex
	items []*UnsavedTransaction
}

func NewUnsavedQueue() *UnsavedQueue { return &UnsavedQueue{} }

// Push records a newly-run local transaction as unsaved.
func (q *UnsavedQueue) Push(forward, reverse []txn.Operation) *UnsavedTransaction {
	q.mu.Lock()
	defer q.mu.Unlock()
	u := &UnsavedTransaction{Forward: forward, Reverse: reverse}
	q.items = append(q.items, u)
	return u
}

// Unsent returns every transaction not yet marked sent, in order.
func (q *UnsavedQueue) Unsent() []*UnsavedTransaction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*UnsavedTransaction, 0)
	for _, u := range q.items {
		if !u.SentToServer {
			out = append(out, u)
		}
	}
	return out
}

// MarkSent flags items as delivered to the server, so a later reconnect
// doesn't resend them.
func (q *UnsavedQueue) MarkSent(items []*UnsavedTransaction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, u := range items {
		u.SentToServer = true
	}
}

// Acknowledge drops the oldest n transactions once the server has echoed
// their sequence numbers back.
func (q *UnsavedQueue) Acknowledge(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.items) {
		n = len(q.items)
	}
	q.items = q.items[n:]
}

// Len reports how many transactions are still outstanding.
func (q *UnsavedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
