package oplog

import (
	"testing"

	"github.com/broyeztony/karlgrid/internal/txn"
)

func TestUnsavedQueuePushAndUnsent(t *testing.T) {
	q := NewUnsavedQueue()
	fwd := []txn.Operation{{Kind: txn.OpSetCursorA1}}
	rev := []txn.Operation{{Kind: txn.OpSetCursorA1}}

	u := q.Push(fwd, rev)
	if u.SentToServer {
		t.Fatalf("expected fresh transaction to be unsent")
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 queued transaction, got %d", q.Len())
	}

	unsent := q.Unsent()
	if len(unsent) != 1 {
		t.Fatalf("expected 1 unsent transaction, got %d", len(unsent))
	}

	q.MarkSent(unsent)
	if len(q.Unsent()) != 0 {
		t.Fatalf("expected 0 unsent transactions after MarkSent")
	}
	if q.Len() != 1 {
		t.Fatalf("expected MarkSent to keep the transaction queued, got len %d", q.Len())
	}
}

func TestUnsavedQueueAcknowledge(t *testing.T) {
	q := NewUnsavedQueue()
	q.Push([]txn.Operation{{Kind: txn.OpSetCursorA1}}, nil)
	q.Push([]txn.Operation{{Kind: txn.OpSetCursorA1}}, nil)
	q.Push([]txn.Operation{{Kind: txn.OpSetCursorA1}}, nil)

	q.Acknowledge(2)
	if q.Len() != 1 {
		t.Fatalf("expected 1 remaining transaction, got %d", q.Len())
	}

	q.Acknowledge(10)
	if q.Len() != 0 {
		t.Fatalf("expected Acknowledge to clamp past the queue length, got %d remaining", q.Len())
	}
}
