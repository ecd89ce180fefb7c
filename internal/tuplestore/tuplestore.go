// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package tuplestore provides a minimal in-memory stand-in for the
// specification's out-of-scope DataTable: just enough slotted column
// storage and an atomic per-slot version-chain head to exercise
// internal/chain and internal/txnmgr end to end, independent of any real
// storage engine.
package tuplestore

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ferrodb/txnmgr/internal/undo"

	"golang.org/x/sys/cpu"
)

// slot holds one tuple's live column values plus the atomic head of its
// undo chain. The cache-line pad keeps adjacent slots' hot head pointers
// from false-sharing a cache line under concurrent readers and writers,
// mirroring the padding the teacher codebase applies to its own
// per-version struct.
type slot struct {
	head    atomic.Pointer[undo.Record]
	mu      sync.Mutex // guards columns; real engines do this with per-column atomics
	columns map[int]any
	_       cpu.CacheLinePad
}

// Table is a fixed table name paired with a growable set of slots, each
// addressed by undo.Slot.Index.
type Table struct {
	name string

	mu    sync.RWMutex
	slots map[uint64]*slot
}

// New creates an empty table named name.
func New(name string) *Table {
	return &Table{name: name, slots: make(map[uint64]*slot)}
}

// Name returns the table's name.
func (t *Table) Name() string {
	return t.name
}

// Insert creates a new slot in t with the given initial column values and
// returns its undo.Slot identifier. There is no undo record for the
// initial image: it has no predecessor to roll back to.
func (t *Table) Insert(columns map[int]any) undo.Slot {
	t.mu.Lock()
	idx := uint64(len(t.slots))
	s := &slot{columns: make(map[int]any, len(columns))}
	for k, v := range columns {
		s.columns[k] = v
	}
	t.slots[idx] = s
	t.mu.Unlock()
	return undo.Slot{Table: t, Index: idx}
}

// Columns returns a snapshot copy of slot's current live column values —
// the tuple image as of the most recent Write/rollback, independent of any
// version chain. Reading through the chain for a given timestamp is the
// job of the table's own MVCC read path, out of scope for this package.
func (t *Table) Columns(s undo.Slot) map[int]any {
	sl := t.mustSlot(s)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	out := make(map[int]any, len(sl.columns))
	for k, v := range sl.columns {
		out[k] = v
	}
	return out
}

func (t *Table) mustSlot(s undo.Slot) *slot {
	t.mu.RLock()
	sl, ok := t.slots[s.Index]
	t.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("tuplestore: unknown slot %d in table %q", s.Index, t.name))
	}
	return sl
}

// Write overwrites the slot's live column image with values and returns
// the before-image Delta the caller should install as a new undo record
// ahead of publishing it to the chain head — the mutation path this
// package is a stand-in for.
func (t *Table) Write(s undo.Slot, values map[int]any) undo.Delta {
	sl := t.mustSlot(s)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	delta := undo.Delta{}
	for col, newVal := range values {
		delta.ColumnIDs = append(delta.ColumnIDs, col)
		delta.Values = append(delta.Values, sl.columns[col])
		sl.columns[col] = newVal
	}
	return delta
}

// AtomicallyReadVersionPtr implements undo.Table.
func (t *Table) AtomicallyReadVersionPtr(s undo.Slot) *undo.Record {
	return t.mustSlot(s).head.Load()
}

// AtomicallyWriteVersionPtr implements undo.Table.
func (t *Table) AtomicallyWriteVersionPtr(s undo.Slot, head *undo.Record) {
	t.mustSlot(s).head.Store(head)
}

// CopyColumnsFromDelta implements undo.Table.
func (t *Table) CopyColumnsFromDelta(s undo.Slot, delta undo.Delta) {
	sl := t.mustSlot(s)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	for i, col := range delta.ColumnIDs {
		sl.columns[col] = delta.Values[i]
	}
}

var _ undo.Table = (*Table)(nil)
