// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package txn defines the per-transaction state the manager tracks between
// BeginTransaction and Commit/Abort: the snapshot start time, the mutable
// transaction id readers consult on undo records, and the transaction's
// own undo buffer.
package txn

import (
	"math"
	"sync/atomic"

	"github.com/ferrodb/txnmgr/internal/undo"
)

// ToTransientID packs a non-negative start timestamp into the negative
// transient id a transaction's records carry while it is in flight. The
// high bit set (via wraparound addition of math.MinInt64) is what lets a
// reader tell a transient id from a commit timestamp at a glance: transient
// ids are negative, commit timestamps are never negative.
func ToTransientID(start int64) int64 {
	return start + math.MinInt64
}

// IsTransient reports whether ts is a transient transaction id (negative)
// rather than a committed timestamp (non-negative).
func IsTransient(ts int64) bool {
	return ts < 0
}

// Context is a single transaction's state: the snapshot it reads through,
// the id its undo records are tagged with, and its buffer of before-images.
//
// StartTime is immutable for the life of the Context. TxnID starts as the
// transient id derived from StartTime and is overwritten with the commit
// timestamp by Commit; Abort leaves it transient. Undo is only ever
// accessed by the owning transaction's goroutine until the Context is
// handed to the manager's completed queue.
type Context struct {
	StartTime int64
	txnID     atomic.Int64
	Undo      undo.Buffer
}

// New creates a Context for a transaction whose snapshot start time is
// start. Its transaction id is initialized to the transient id derived
// from start.
func New(start int64) *Context {
	c := &Context{StartTime: start}
	c.txnID.Store(ToTransientID(start))
	return c
}

// TxnID returns the context's current transaction id: transient while the
// transaction is running, or the commit timestamp after Commit.
func (c *Context) TxnID() int64 {
	return c.txnID.Load()
}

// SetTxnID overwrites the context's transaction id. Commit uses this to
// record the commit timestamp on the context itself (distinct from, and
// happening after, stamping the undo records) for completeness — readers
// that consult the context directly, rather than records in a version
// chain, may rely on it too.
func (c *Context) SetTxnID(ts int64) {
	c.txnID.Store(ts)
}
