// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package chain implements the version-chain operator: the atomic
// reads/writes of a tuple slot's undo-chain head, and the reapplication of
// a before-image into a tuple slot during abort.
//
// The operator treats the underlying tuple storage as opaque, through
// undo.Table — in production that would be the buffer-pool-backed
// DataTable; here it is internal/tuplestore, a minimal stand-in that
// exists so this package and internal/txnmgr are independently testable.
//
// Precondition this package relies on (the open question in the
// specification this module was built from, resolved here explicitly): any
// writer that successfully layers a new undo record atop another
// transaction's still-uncommitted one must first capture, in its own
// before-image, the state the earlier writer had installed. Rollback's
// "abandon silently if we no longer hold the head" step depends on this —
// without it, abandoning a record on a foreign head could strand the
// tuple.
package chain

import "github.com/ferrodb/txnmgr/internal/undo"

// Install publishes rec to the head of slot's version chain, linking it
// ahead of whatever was previously there. The mutation path that produces
// rec's before-image lives outside this package; Install is the one piece
// of that path that touches the chain head, so it lives here.
//
// Callers are responsible for serializing concurrent Install calls against
// the same slot (in this system, via the tuple-write protocol's own
// locking — out of scope here, see the package doc).
func Install(slot undo.Slot, rec *undo.Record) {
	prev := slot.Table.AtomicallyReadVersionPtr(slot)
	rec.SetNext(prev)
	slot.Table.AtomicallyWriteVersionPtr(slot, rec)
}

// Rollback reverses one undo record during an abort, as specified:
//
//  1. Read the current chain head for the record's slot.
//  2. If the head is nil, or its timestamp no longer equals the aborting
//     transaction's id, some other writer has since taken over (or the
//     record was already reclaimed); abandon this record without
//     touching the tuple.
//  3. Otherwise, copy the record's before-image back into the slot.
//  4. Advance the chain head to the record's Next, releasing the logical
//     write lock the aborting transaction held on the slot.
//
// Rollback reports whether it applied the before-image (false means the
// aborting transaction no longer owned the head and nothing was touched).
func Rollback(txnID int64, rec *undo.Record) bool {
	slot := rec.Slot
	head := slot.Table.AtomicallyReadVersionPtr(slot)
	if head == nil || head.Timestamp() != txnID {
		return false
	}
	slot.Table.CopyColumnsFromDelta(slot, rec.Delta)
	slot.Table.AtomicallyWriteVersionPtr(slot, rec.Next())
	return true
}
