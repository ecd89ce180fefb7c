// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package txnmgr provides a multi-version concurrency control transaction
// manager: strictly increasing logical timestamps, per-transaction undo
// buffers, and the commit/abort protocol that keeps a tuple store's
// version chains consistent under concurrent readers and writers.
//
// # Quick Start
//
//	import (
//	    "github.com/ferrodb/txnmgr"
//	    "github.com/ferrodb/txnmgr/internal/tuplestore" // importable only inside this module
//	)
//
//	mgr := txnmgr.New(txnmgr.WithGC())
//	table := tuplestore.New("accounts")
//
//	tx, err := mgr.BeginTransaction()
//	if err != nil {
//	    // allocator exhausted; no transaction was registered
//	}
//
//	slot := table.Insert(map[int]any{0: 100})
//	before := table.Write(slot, map[int]any{0: 150})
//	rec := txnmgr.NewRecord(slot, before, tx.TxnID())
//	tx.Undo.Append(rec)
//	txnmgr.Install(slot, rec)
//
//	commitTS := mgr.Commit(tx)
//
// # Key Features
//
//   - Dual-meaning 64-bit timestamps: non-negative values are commit
//     timestamps, negative values are transient in-flight transaction ids
//   - Intrusive, atomically-linked undo-record chains per tuple slot
//   - Reader/writer latch inversion between Begin (reader) and Commit
//     (writer), serializing commit ordering without blocking concurrent
//     begins against each other
//   - A separate table latch guarding the running- and
//     completed-transactions bookkeeping, with a fixed lock-ordering rule
//     relative to the commit latch
//   - Optional hand-off of committed/aborted transactions to a garbage
//     collector, plus the oldest running transaction's start time as the
//     horizon the collector checks before reclaiming them (the hand-off
//     itself returns every queued transaction unconditionally)
//
// # See Also
//
// For the transaction manager's internals, see internal/txnmgr. For the
// version-chain protocol, see internal/chain and internal/undo.
package txnmgr

import (
	"github.com/ferrodb/txnmgr/internal/chain"
	"github.com/ferrodb/txnmgr/internal/clock"
	"github.com/ferrodb/txnmgr/internal/metrics"
	"github.com/ferrodb/txnmgr/internal/obslog"
	"github.com/ferrodb/txnmgr/internal/txn"
	"github.com/ferrodb/txnmgr/internal/txnmgr"
	"github.com/ferrodb/txnmgr/internal/undo"
	"github.com/ferrodb/txnmgr/internal/undopool"
)

// Re-exported core types.
type (
	// Manager is the transaction manager: Begin, Commit, Abort, and the
	// GC-horizon query.
	Manager = txnmgr.Manager

	// Context is a single transaction's state between Begin and
	// Commit/Abort.
	Context = txn.Context

	// Record is a single before-image installed on a tuple slot's version
	// chain.
	Record = undo.Record

	// Slot identifies the tuple an undo Record belongs to.
	Slot = undo.Slot

	// Delta is the before-image a Record restores on rollback.
	Delta = undo.Delta

	// Table is the storage-side interface a version chain reads and
	// writes through.
	Table = undo.Table

	// Option configures a Manager at construction time.
	Option = txnmgr.Option

	// Allocator is the optional hook a Manager consults before admitting
	// a new transaction.
	Allocator = txnmgr.Allocator

	// Metrics bundles a Manager's counters and latency histograms.
	Metrics = metrics.Metrics

	// Logger wraps the manager's structured logger.
	Logger = obslog.Logger

	// RecordPool is a sync.Pool-backed allocator for undo Records.
	RecordPool = undopool.Pool
)

// New creates a ready-to-use Manager.
func New(opts ...Option) *Manager {
	return txnmgr.New(opts...)
}

// WithGC enables queuing completed transactions for the garbage collector.
func WithGC() Option {
	return txnmgr.WithGC()
}

// WithAllocator overrides the manager's default always-succeeds
// Allocator.
func WithAllocator(a Allocator) Option {
	return txnmgr.WithAllocator(a)
}

// WithLogger overrides the manager's default production logger.
func WithLogger(l *Logger) Option {
	return txnmgr.WithLogger(l)
}

// NewLogger creates a production-configured Logger.
func NewLogger() *Logger {
	return obslog.New()
}

// NopLogger returns a Logger that discards everything.
func NopLogger() *Logger {
	return obslog.Nop()
}

// NewRecordPool creates a pool of reusable undo Records.
func NewRecordPool() *RecordPool {
	return undopool.New()
}

// NewRecord creates a Record for slot with the given before-image, tagged
// with the owning transaction's current id.
func NewRecord(slot Slot, delta Delta, txnID int64) *Record {
	return undo.NewRecord(slot, delta, txnID)
}

// Install publishes rec to the head of slot's version chain.
func Install(slot Slot, rec *Record) {
	chain.Install(slot, rec)
}

// Rollback reverses one undo record during an abort. It reports whether
// the before-image was applied.
func Rollback(txnID int64, rec *Record) bool {
	return chain.Rollback(txnID, rec)
}

// IsTransient reports whether ts is a transient transaction id rather
// than a committed timestamp.
func IsTransient(ts int64) bool {
	return txn.IsTransient(ts)
}

// Clock is a standalone strictly-increasing logical timestamp source, the
// same kind a Manager uses internally. Exported for callers that need a
// timestamp source independent of a full Manager (e.g. tests).
type Clock = clock.Source
