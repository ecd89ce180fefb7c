// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package undopool provides a lock-free-ish pooled allocator for undo
// records, standing in for the spec's external BufferPool dependency
// (lock-free allocate/free of raw record-sized blocks).
//
// It is backed by sync.Pool, the same choice the teacher codebase makes
// for its own version objects: allocation and release both avoid locking
// in the common case, and exhaustion is impossible (sync.Pool falls back
// to allocation), so callers here never actually observe the allocation
// failure the specification allows BeginTransaction to propagate — it
// exists in the API for a backing allocator that can run out of fixed-size
// blocks.
package undopool

import (
	"sync"

	"github.com/ferrodb/txnmgr/internal/undo"
)

// Pool hands out and reclaims undo.Record values.
type Pool struct {
	pool sync.Pool
}

// New creates a ready-to-use Pool.
func New() *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return &undo.Record{}
			},
		},
	}
}

// Get returns a record initialized with slot, delta, and the owning
// transaction's transient id, ready to be installed at a version-chain
// head by internal/chain.Install.
func (p *Pool) Get(slot undo.Slot, delta undo.Delta, txnID int64) *undo.Record {
	rec := p.pool.Get().(*undo.Record)
	rec.Reset(slot, delta, txnID)
	return rec
}

// Put returns rec to the pool once the GC has determined it is
// unreachable from any version chain and from any still-open snapshot.
func (p *Pool) Put(rec *undo.Record) {
	rec.Clear()
	p.pool.Put(rec)
}
