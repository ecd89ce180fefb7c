// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package latch provides the two coordination primitives the transaction
// manager serializes its public operations with: a reader/writer commit
// latch (readers are Begin, the writer is Commit) and a plain
// mutual-exclusion table latch guarding the running-transactions table and
// the completed-transactions queue.
//
// Both are implemented as channel-based latches rather than sync.RWMutex,
// following the pattern of a hand-rolled reader/writer lock built from a
// single-slot writer channel and a reader-count channel. The channel form
// also gives a context-aware TryLock/TryRLock, so code holding a latch
// directly can honor cancellation. The manager keeps its latches private
// and uses only the blocking Lock/RLock forms.
package latch

import "context"

// RW is a reader/writer latch. Any number of readers may hold it
// concurrently; a writer excludes all readers and all other writers.
type RW struct {
	writer  chan struct{}
	readers chan uint
}

// NewRW creates a ready-to-use reader/writer latch.
func NewRW() *RW {
	return &RW{
		writer:  make(chan struct{}, 1),
		readers: make(chan uint, 1),
	}
}

// Lock acquires the latch in writer mode, excluding all readers and
// writers.
func (l *RW) Lock() {
	l.writer <- struct{}{}
}

// Unlock releases a writer-mode hold.
func (l *RW) Unlock() {
	<-l.writer
}

// RLock acquires the latch in reader mode. It coexists with other readers
// but blocks while a writer holds the latch.
func (l *RW) RLock() {
	var readers uint
	select {
	case l.writer <- struct{}{}:
		// No readers and no writer were active; we're the first reader.
	case readers = <-l.readers:
		// Other readers are already active.
	}
	readers++
	l.readers <- readers
}

// RUnlock releases a reader-mode hold.
func (l *RW) RUnlock() {
	readers := <-l.readers
	readers--
	if readers == 0 {
		// Drain the writer slot we occupied on behalf of all readers.
		<-l.writer
		return
	}
	l.readers <- readers
}

// TryLock acquires the latch in writer mode, or returns false if ctx is
// done first.
func (l *RW) TryLock(ctx context.Context) bool {
	select {
	case l.writer <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// TryRLock acquires the latch in reader mode, or returns false if ctx is
// done first.
func (l *RW) TryRLock(ctx context.Context) bool {
	var readers uint
	select {
	case l.writer <- struct{}{}:
	case readers = <-l.readers:
	case <-ctx.Done():
		return false
	}
	readers++
	l.readers <- readers
	return true
}

// Mutex is a plain mutual-exclusion latch, used for the table latch
// guarding the running-transactions table and completed queue.
type Mutex struct {
	slot chan struct{}
}

// NewMutex creates a ready-to-use mutex latch.
func NewMutex() *Mutex {
	return &Mutex{slot: make(chan struct{}, 1)}
}

// Lock acquires the mutex.
func (m *Mutex) Lock() {
	m.slot <- struct{}{}
}

// Unlock releases the mutex.
func (m *Mutex) Unlock() {
	<-m.slot
}

// TryLock acquires the mutex, or returns false if ctx is done first.
func (m *Mutex) TryLock(ctx context.Context) bool {
	select {
	case m.slot <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}
