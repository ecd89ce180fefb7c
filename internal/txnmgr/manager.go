// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package txnmgr implements the transaction manager: BeginTransaction,
// Commit, Abort, the GC horizon query, and the completed-transaction
// handoff, coordinated by the commit latch and table latch described in
// the specification this module was built from.
//
// The running-transactions table is a github.com/tidwall/btree ordered
// map, the same structure mukeshjc-mvcc-isolation uses for its own
// transaction table, chosen here because it gives sub-linear
// minimum-lookup and point-erase without needing its own locking — the
// table latch already serializes every access to it.
package txnmgr

import (
	"errors"
	"time"

	"github.com/tidwall/btree"

	"github.com/ferrodb/txnmgr/internal/chain"
	"github.com/ferrodb/txnmgr/internal/clock"
	"github.com/ferrodb/txnmgr/internal/latch"
	"github.com/ferrodb/txnmgr/internal/metrics"
	"github.com/ferrodb/txnmgr/internal/obslog"
	"github.com/ferrodb/txnmgr/internal/txn"
	"github.com/ferrodb/txnmgr/internal/undo"
	"go.uber.org/zap"
)

// ErrAllocationFailed is returned by BeginTransaction when the undo
// buffer's backing allocator cannot satisfy the new transaction's first
// allocation. No partial state is registered in the running table when
// this happens.
var ErrAllocationFailed = errors.New("txnmgr: undo buffer allocation failed")

// Allocator is the narrow surface BeginTransaction needs from the
// specification's external BufferPool dependency: a way to fail fast, up
// front, if the pool backing undo storage is exhausted. The pool itself
// (internal/undopool) never actually fails — this hook exists so a real
// fixed-size-block allocator could be wired in without changing the
// manager's contract.
type Allocator interface {
	// Reserve reports whether the allocator can back a new transaction's
	// undo buffer right now.
	Reserve() bool
}

// alwaysReserve is the default Allocator: it never refuses, matching the
// behavior of the sync.Pool-backed internal/undopool, which falls back to
// allocation rather than failing.
type alwaysReserve struct{}

func (alwaysReserve) Reserve() bool { return true }

// Manager orchestrates Begin/Commit/Abort, tracks running transactions,
// and hands completed ones to a garbage collector. A zero Manager is not
// ready to use; call New.
type Manager struct {
	clock clock.Source

	commitLatch *latch.RW    // reader = Begin, writer = Commit
	tableLatch  *latch.Mutex // guards running + completed

	running   btree.Map[int64, *txn.Context]
	completed []*txn.Context

	gcEnabled bool
	allocator Allocator

	metrics *metrics.Metrics
	log     *obslog.Logger
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithGC enables queuing completed transactions for the GC. Disabled by
// default, matching the specification's "if GC is enabled" conditional
// hand-off.
func WithGC() Option {
	return func(m *Manager) { m.gcEnabled = true }
}

// WithAllocator overrides the default always-succeeds Allocator.
func WithAllocator(a Allocator) Option {
	return func(m *Manager) { m.allocator = a }
}

// WithLogger overrides the default production logger, e.g. with
// obslog.Nop() in tests.
func WithLogger(l *obslog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// New creates a ready-to-use Manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		commitLatch: latch.NewRW(),
		tableLatch:  latch.NewMutex(),
		allocator:   alwaysReserve{},
		metrics:     metrics.New(),
		log:         obslog.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Metrics returns the manager's counters and latency histograms.
func (m *Manager) Metrics() *metrics.Metrics {
	return m.metrics
}

// BeginTransaction allocates a new transaction context, registers it in
// the running table, and returns it.
//
// Per the specification's §4.3: the commit latch is held in reader mode
// for the duration of this call. Multiple begins may proceed concurrently
// with each other, but a begin must never straddle a commit's
// timestamp-fetch-and-stamp critical section — reader/writer exclusion
// against Commit's writer-mode hold is what prevents a begin from
// capturing a start time that is "earlier" than a commit yet observing
// that commit's records still tagged transient.
func (m *Manager) BeginTransaction() (*txn.Context, error) {
	start := time.Now()

	m.commitLatch.RLock()
	defer m.commitLatch.RUnlock()

	if !m.allocator.Reserve() {
		return nil, ErrAllocationFailed
	}

	id := m.clock.Next()
	ctx := txn.New(id)

	m.tableLatch.Lock()
	if _, replaced := m.running.Set(ctx.StartTime, ctx); replaced {
		m.tableLatch.Unlock()
		m.log.Invariant("commit start time collision in running-transactions table",
			zap.Int64("start_time", ctx.StartTime))
	}
	m.tableLatch.Unlock()

	m.metrics.RecordBegin(time.Since(start))
	return ctx, nil
}

// Commit stamps every undo record the transaction installed with a fresh
// commit timestamp, deregisters the transaction, and — if GC is enabled —
// queues it for reclamation.
//
// Per §4.4: the commit latch is held in writer mode for the entire call.
// Records are stamped with release semantics before the table latch is
// even acquired, in append order, so that any reader who later observes a
// record's timestamp as non-negative (via an acquiring load) also observes
// every earlier record in the same transaction's undo buffer already
// carrying the same commit timestamp.
func (m *Manager) Commit(t *txn.Context) int64 {
	start := time.Now()

	m.commitLatch.Lock()
	defer m.commitLatch.Unlock()

	commitTime := m.clock.Next()
	t.Undo.ForEach(func(r *undo.Record) {
		r.StoreTimestamp(commitTime)
	})

	m.tableLatch.Lock()
	if _, ok := m.running.Delete(t.StartTime); !ok {
		m.tableLatch.Unlock()
		m.log.Invariant("committed transaction missing from running-transactions table",
			zap.Int64("start_time", t.StartTime))
	}
	t.SetTxnID(commitTime)
	if m.gcEnabled {
		m.completed = append(m.completed, t)
	}
	m.tableLatch.Unlock()

	m.metrics.RecordCommit(time.Since(start))
	return commitTime
}

// Abort walks the transaction's undo buffer newest record first, rolling
// back each record's before-image, then deregisters the transaction.
//
// Per §4.5: Abort does not take the commit latch — it produces no new
// commit timestamp and does not need to serialize with begins; its
// mutations are confined to tuples it still owns.
func (m *Manager) Abort(t *txn.Context) {
	start := time.Now()

	txnID := t.TxnID()
	// Newest first: Rollback only checks that the head carries txnID, so a
	// slot written twice must have its later record undone before its
	// earlier one.
	for i := t.Undo.Len() - 1; i >= 0; i-- {
		applied := chain.Rollback(txnID, t.Undo.At(i))
		m.metrics.RecordRollback(applied)
	}

	m.tableLatch.Lock()
	if _, ok := m.running.Delete(t.StartTime); !ok {
		m.tableLatch.Unlock()
		m.log.Invariant("aborted transaction missing from running-transactions table",
			zap.Int64("start_time", t.StartTime))
	}
	if m.gcEnabled {
		m.completed = append(m.completed, t)
	}
	m.tableLatch.Unlock()

	m.metrics.RecordAbort(time.Since(start))
}

// OldestTransactionStartTime returns the GC safe horizon: the smallest
// start time among currently-running transactions, or — if none are
// running — the timestamp that would be issued next (every future
// snapshot will be at least that large).
func (m *Manager) OldestTransactionStartTime() int64 {
	m.tableLatch.Lock()
	defer m.tableLatch.Unlock()

	iter := m.running.Iter()
	if iter.First() {
		return iter.Key()
	}
	return m.clock.Peek()
}

// TakeCompleted atomically moves the completed-transactions queue out of
// the manager and returns it, leaving the manager's own queue empty. The
// caller (GC) owns the returned contexts and must not destroy one until
// OldestTransactionStartTime has advanced past its commit timestamp.
func (m *Manager) TakeCompleted() []*txn.Context {
	m.tableLatch.Lock()
	defer m.tableLatch.Unlock()

	out := m.completed
	m.completed = nil
	m.metrics.RecordGCHandoff(len(out))
	return out
}

// RunningCount reports the number of currently-running transactions,
// primarily for tests and metrics export.
func (m *Manager) RunningCount() int {
	m.tableLatch.Lock()
	defer m.tableLatch.Unlock()
	return m.running.Len()
}
