// Licensed under the MIT License. See LICENSE file in the project root for details.

package undopool

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ferrodb/txnmgr/internal/undo"
)

type noopTable struct{}

func (noopTable) AtomicallyReadVersionPtr(undo.Slot) *undo.Record     { return nil }
func (noopTable) AtomicallyWriteVersionPtr(undo.Slot, *undo.Record)   {}
func (noopTable) CopyColumnsFromDelta(undo.Slot, undo.Delta)          {}

func TestGetReturnsUsableRecord(t *testing.T) {
	Convey("Given a fresh Pool", t, func() {
		p := New()
		slot := undo.Slot{Table: noopTable{}, Index: 1}
		delta := undo.Delta{ColumnIDs: []int{0}, Values: []any{"before"}}

		Convey("Get returns a record tagged with the requested slot, delta, and txn id", func() {
			rec := p.Get(slot, delta, -4)
			So(rec.Timestamp(), ShouldEqual, -4)
			So(rec.Slot, ShouldResemble, slot)
			So(rec.Delta, ShouldResemble, delta)
			So(rec.Next(), ShouldBeNil)
		})
	})
}

func TestPutAndGetRoundTrip(t *testing.T) {
	Convey("Given a record returned to the pool", t, func() {
		p := New()
		slot := undo.Slot{Table: noopTable{}, Index: 1}
		delta := undo.Delta{ColumnIDs: []int{0}, Values: []any{1}}
		rec := p.Get(slot, delta, -1)
		rec.SetNext(p.Get(slot, delta, -2))
		p.Put(rec)

		Convey("A subsequent Get reinitializes whatever the pool hands back, leaking no stale link", func() {
			for i := 0; i < 8; i++ {
				reused := p.Get(slot, delta, -9)
				So(reused.Timestamp(), ShouldEqual, -9)
				So(reused.Next(), ShouldBeNil)
				p.Put(reused)
			}
		})
	})
}
