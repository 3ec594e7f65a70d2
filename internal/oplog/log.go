// Package oplog implements the multiplayer operation log: an append-only
// sequence of transactions a server hands out sequence numbers for, plus
// the client-side bookkeeping of transactions sent but not yet
// acknowledged.
//
// Grounded on spreadsheet/server.go's mutex-protected client/broadcast
// state (Server.clients map[*websocket.Conn]bool, Server.mu), generalized
// from an ephemeral connected-client set to a durable ordered log a
// reconnecting client can resume from.
package oplog

import (
	"sync"

	"github.com/broyeztony/karlgrid/internal/txn"
)

// Entry is one multiplayer log record: Transaction { id, sequence_num?,
// operations, cursor }.
type Entry struct {
	ID          txn.ID
	SequenceNum uint64
	Operations  []txn.Operation
	Cursor      *txn.Cursor
}

// Log is the append-only multiplayer transaction log. Append assigns a
// fresh, monotonically increasing SequenceNum; Since replays whatever a
// reconnecting client might have missed.
type Log interface {
	Append(e Entry) (Entry, error)
	Since(after uint64) ([]Entry, error)
	Head() uint64
}

// MemLog is the in-memory reference implementation.
type MemLog struct {
	mu      sync.Mutex
	entries []Entry
	next    uint64
}

func NewMemLog() *MemLog { return &MemLog{} }

// Append assigns e the next sequence number and stores it.
func (l *MemLog) Append(e Entry) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	e.SequenceNum = l.next
	l.entries = append(l.entries, e)
	return e, nil
}

// Since returns every entry with SequenceNum > after, in order.
func (l *MemLog) Since(after uint64) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, 0)
	for _, e := range l.entries {
		if e.SequenceNum > after {
			out = append(out, e)
		}
	}
	return out, nil
}

// Head returns the highest sequence number appended so far, or 0 if empty.
func (l *MemLog) Head() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next
}
