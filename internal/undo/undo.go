// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package undo defines the before-image records a transaction appends as
// it mutates tuples, and the append-only buffer that owns them.
//
// A Record's Timestamp mirrors its owning transaction's transient id while
// the transaction is live, and is flipped to the commit timestamp by
// Commit, atomically from the perspective of any reader traversing a
// version chain (see the txnmgr package for the store/load pairing that
// makes this safe).
package undo

import "sync/atomic"

// Table is the narrow surface a Record's owning table must expose so the
// version-chain operator (internal/chain) can read and write the slot's
// undo-chain head and reapply a before-image during rollback, without this
// package or internal/chain knowing anything about real tuple storage.
// internal/tuplestore is the minimal stand-in used by this repository's
// own tests and demo binaries; a real storage engine's DataTable would
// satisfy the same interface.
type Table interface {
	// AtomicallyReadVersionPtr returns the current head of slot's undo
	// chain, or nil if none exists.
	AtomicallyReadVersionPtr(slot Slot) *Record
	// AtomicallyWriteVersionPtr installs head as slot's new undo-chain
	// head.
	AtomicallyWriteVersionPtr(slot Slot, head *Record)
	// CopyColumnsFromDelta overwrites slot's column values with delta's
	// before-image, column by column.
	CopyColumnsFromDelta(slot Slot, delta Delta)
}

// Slot identifies the tuple a Record is an undo entry for: the table that
// owns it, and an opaque per-table index (a real storage engine's
// page/offset pair, here a flat index into internal/tuplestore).
type Slot struct {
	Table Table
	Index uint64
}

// Delta is a projection of the column ids and prior values a Record
// restores on rollback. Values are stored as interface{} because this
// package has no notion of a tuple's column types; the table consulted by
// Rollback is responsible for interpreting them.
type Delta struct {
	ColumnIDs []int
	Values    []any
}

// Record is a single before-image: the prior state of the columns touched
// by one mutation, plus the link to whatever was previously the head of
// the version chain for Slot.
type Record struct {
	timestamp atomic.Int64 // transient id until Commit, then the commit timestamp
	Slot      Slot
	Delta     Delta
	next      *Record // the version-chain head this record displaced
}

// NewRecord creates a record for slot with the given before-image,
// initially tagged with the owning transaction's transient id.
func NewRecord(slot Slot, delta Delta, txnID int64) *Record {
	r := &Record{Slot: slot, Delta: delta}
	r.timestamp.Store(txnID)
	return r
}

// Reset reinitializes a (possibly pooled) record in place for reuse,
// without copying the embedded atomic word — sync/atomic values must
// never be copied after first use.
func (r *Record) Reset(slot Slot, delta Delta, txnID int64) {
	r.Slot = slot
	r.Delta = delta
	r.next = nil
	r.timestamp.Store(txnID)
}

// Clear resets a record to its zero before-image ahead of returning it to
// a pool.
func (r *Record) Clear() {
	r.Slot = Slot{}
	r.Delta = Delta{}
	r.next = nil
	r.timestamp.Store(0)
}

// Timestamp returns the record's current timestamp word: a transient id
// while the owning transaction is live, or the commit timestamp after
// Commit has run.
func (r *Record) Timestamp() int64 {
	return r.timestamp.Load()
}

// StoreTimestamp overwrites the record's timestamp word with release
// semantics, so that a reader who observes the new value via an acquire
// load also observes every write this call's caller made to Delta and
// Slot before calling StoreTimestamp.
func (r *Record) StoreTimestamp(ts int64) {
	r.timestamp.Store(ts)
}

// Next returns the version-chain entry this record displaced when it was
// installed — the previous head, now one hop further from the chain head.
func (r *Record) Next() *Record {
	return r.next
}

// SetNext links this record to the version-chain entry it displaced. Only
// the installer (the mutation path, external to this package) calls this,
// before the record is published to a chain head.
func (r *Record) SetNext(next *Record) {
	r.next = next
}

// Buffer is the append-only, transaction-local log of undo records a
// transaction has installed, in the order its mutations happened. Only the
// owning transaction's own goroutine appends to or walks a Buffer, so no
// synchronization is needed within it.
type Buffer struct {
	records []*Record
}

// Append adds a record to the end of the buffer.
func (b *Buffer) Append(r *Record) {
	b.records = append(b.records, r)
}

// Len reports the number of records in the buffer.
func (b *Buffer) Len() int {
	return len(b.records)
}

// At returns the i'th record appended to the buffer.
func (b *Buffer) At(i int) *Record {
	return b.records[i]
}

// ForEach visits every record in append order. Commit uses append order;
// Abort walks the buffer newest-first through Len and At instead, so that
// a slot the transaction wrote more than once is unwound one record at a
// time (see internal/chain's Rollback).
func (b *Buffer) ForEach(fn func(*Record)) {
	for _, r := range b.records {
		fn(r)
	}
}
