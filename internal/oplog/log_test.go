package oplog

import (
	"testing"

	"github.com/broyeztony/karlgrid/internal/grid"
	"github.com/broyeztony/karlgrid/internal/txn"
)

func TestMemLogAppendAssignsSequence(t *testing.T) {
	l := NewMemLog()
	e1, err := l.Append(Entry{ID: txn.NewID()})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if e1.SequenceNum != 1 {
		t.Fatalf("expected sequence 1, got %d", e1.SequenceNum)
	}
	e2, err := l.Append(Entry{ID: txn.NewID()})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if e2.SequenceNum != 2 {
		t.Fatalf("expected sequence 2, got %d", e2.SequenceNum)
	}
	if l.Head() != 2 {
		t.Fatalf("expected head 2, got %d", l.Head())
	}
}

func TestMemLogSinceReplaysOnlyNewer(t *testing.T) {
	l := NewMemLog()
	for i := 0; i < 3; i++ {
		if _, err := l.Append(Entry{ID: txn.NewID()}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	entries, err := l.Since(1)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after watermark 1, got %d", len(entries))
	}
	if entries[0].SequenceNum != 2 || entries[1].SequenceNum != 3 {
		t.Fatalf("expected sequences [2 3], got [%d %d]", entries[0].SequenceNum, entries[1].SequenceNum)
	}

	all, err := l.Since(0)
	if err != nil {
		t.Fatalf("since(0): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected all 3 entries since 0, got %d", len(all))
	}
}

func TestMemLogPreservesEntryContents(t *testing.T) {
	l := NewMemLog()
	sheet := grid.NewSheetID()
	cursor := &txn.Cursor{Sheet: sheet, Pos: grid.Pos{X: 3, Y: 4}}
	ops := []txn.Operation{{Kind: txn.OpSetCursorA1, SheetPos: grid.SheetPos{Sheet: sheet, Pos: cursor.Pos}, Cursor: cursor}}

	stored, err := l.Append(Entry{ID: txn.NewID(), Operations: ops, Cursor: cursor})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := l.Since(0)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(got) != 1 || got[0].ID != stored.ID {
		t.Fatalf("expected stored entry to round-trip, got %+v", got)
	}
	if got[0].Cursor.Sheet != sheet {
		t.Fatalf("expected cursor sheet preserved")
	}
}
