// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package clock provides the transaction manager's timestamp source: a
// single atomic counter that hands out a strictly increasing sequence of
// 64-bit logical timestamps.
//
// Both transaction start times and commit times are drawn from the same
// sequence, so any two timestamps issued by a Source are totally ordered
// and never equal. The sign of a timestamp is meaningless to the Source
// itself — callers reinterpret negative values as transient transaction
// ids; see the txn package.
package clock

import "sync/atomic"

// Source issues a strictly increasing sequence of logical timestamps.
//
// A zero Source is ready to use and starts at 1; the value 0 is reserved
// so that "no timestamp has been issued yet" can be distinguished from any
// real timestamp.
type Source struct {
	counter atomic.Int64
}

// Next returns a fresh timestamp, strictly greater than every timestamp
// this Source has previously returned.
func (s *Source) Next() int64 {
	return s.counter.Add(1)
}

// Peek returns the timestamp that the next call to Next would return,
// without consuming it. Used by OldestTransactionStartTime when no
// transaction is running: the next-issuable timestamp is a safe GC
// horizon because every future snapshot will be at least that large.
func (s *Source) Peek() int64 {
	return s.counter.Load() + 1
}
