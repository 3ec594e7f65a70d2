package txn

import "fmt"

// UnsavedTransaction pairs a locally-committed transaction's forward and
// reverse operations, kept around until the server confirms receipt - the
// rebase algorithm below undoes and replays these when a peer's transaction
// arrives out of order, grounded on
// active_transactions/unsaved_transactions.rs's UnsavedTransaction.
type UnsavedTransaction struct {
	ID           ID
	Forward      []Operation
	Reverse      []Operation
	SentToServer bool
}

// Unsaved returns the transactions not yet confirmed by the server, in
// commit order.
func (e *Engine) Unsaved() []*UnsavedTransaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*UnsavedTransaction(nil), e.unsaved...)
}

// MarkTransactionSent records that id has been handed to the server,
// mirroring unsaved_transactions.rs's mark_transaction_sent (called once the
// multiplayer transport's send succeeds).
func (e *Engine) MarkTransactionSent(id ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, u := range e.unsaved {
		if u.ID == id {
			u.SentToServer = true
			return
		}
	}
}

// ConfirmTransaction drops id from the unsaved list once the server has
// durably sequenced it, so it no longer takes part in future rebases.
func (e *Engine) ConfirmTransaction(id ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, u := range e.unsaved {
		if u.ID == id {
			e.unsaved = append(e.unsaved[:i], e.unsaved[i+1:]...)
			return true
		}
	}
	return false
}

// ApplyPeerTransaction applies a transaction that was committed by another
// collaborator ahead of our own pending local edits: a multiplayer
// transaction may need to apply "underneath" transactions the local client
// has made but not yet sent/had confirmed. It rebases by:
//  1. undoing every local unsaved transaction, most recent first;
//  2. applying the peer's transaction against that clean base;
//  3. replaying each local unsaved transaction's forward operations on top,
//     recomputing its reverse against the new state.
//
// If the peer transaction itself fails, every undone local transaction is
// replayed before the error is returned, leaving local state untouched.
func (e *Engine) ApplyPeerTransaction(ops []Operation, cursor *Cursor) (*PendingTransaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := len(e.unsaved) - 1; i >= 0; i-- {
		if _, err := e.runPipeline(e.unsaved[i].Reverse, TransactionUndo, nil); err != nil {
			return nil, fmt.Errorf("txn: rebase undo of %s failed: %w", e.unsaved[i].ID, err)
		}
	}

	pt, err := e.runPipeline(ops, TransactionMultiplayer, cursor)
	if err != nil {
		for _, u := range e.unsaved {
			if _, rerr := e.runPipeline(u.Forward, TransactionMultiplayer, nil); rerr != nil {
				return nil, fmt.Errorf("txn: peer transaction failed (%w) and local state could not be restored: %v", err, rerr)
			}
		}
		return nil, err
	}
	pt.Complete = true

	for _, u := range e.unsaved {
		replay, rerr := e.runPipeline(u.Forward, TransactionUnsaved, nil)
		if rerr != nil {
			return nil, fmt.Errorf("txn: rebase reapply of %s failed: %w", u.ID, rerr)
		}
		u.Reverse = append([]Operation(nil), replay.ReverseOperations...)
	}
	return pt, nil
}
