// Licensed under the MIT License. See LICENSE file in the project root for details.

package chain

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/ferrodb/txnmgr/internal/undo"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memTable is a minimal undo.Table used only to exercise Install and
// Rollback in isolation from internal/tuplestore.
type memTable struct {
	head    *undo.Record
	columns map[int]any
}

func newMemTable(columns map[int]any) *memTable {
	return &memTable{columns: columns}
}

func (m *memTable) AtomicallyReadVersionPtr(undo.Slot) *undo.Record { return m.head }
func (m *memTable) AtomicallyWriteVersionPtr(_ undo.Slot, h *undo.Record) { m.head = h }
func (m *memTable) CopyColumnsFromDelta(_ undo.Slot, d undo.Delta) {
	for i, col := range d.ColumnIDs {
		m.columns[col] = d.Values[i]
	}
}

func TestInstallLinksChainHead(t *testing.T) {
	Convey("Given an empty version chain", t, func() {
		table := newMemTable(map[int]any{0: "v0"})
		slot := undo.Slot{Table: table, Index: 0}

		Convey("Installing one record makes it the head with a nil predecessor", func() {
			r1 := undo.NewRecord(slot, undo.Delta{}, -1)
			Install(slot, r1)
			So(table.AtomicallyReadVersionPtr(slot), ShouldEqual, r1)
			So(r1.Next(), ShouldBeNil)

			Convey("Installing a second record links it ahead of the first", func() {
				r2 := undo.NewRecord(slot, undo.Delta{}, -2)
				Install(slot, r2)
				So(table.AtomicallyReadVersionPtr(slot), ShouldEqual, r2)
				So(r2.Next(), ShouldEqual, r1)
			})
		})
	})
}

func TestRollbackAppliesBeforeImageWhenStillHead(t *testing.T) {
	Convey("Given a record installed by transaction -7 still at the chain head", t, func() {
		table := newMemTable(map[int]any{0: "new"})
		slot := undo.Slot{Table: table, Index: 0}
		delta := undo.Delta{ColumnIDs: []int{0}, Values: []any{"old"}}
		rec := undo.NewRecord(slot, delta, -7)
		Install(slot, rec)

		Convey("Rolling back -7 restores the before-image and advances the head", func() {
			applied := Rollback(-7, rec)
			So(applied, ShouldBeTrue)
			So(table.columns[0], ShouldEqual, "old")
			So(table.AtomicallyReadVersionPtr(slot), ShouldBeNil)
		})
	})
}

func TestRollbackAbandonsWhenNoLongerHead(t *testing.T) {
	Convey("Given a record installed by transaction -7 that a later writer has superseded", t, func() {
		table := newMemTable(map[int]any{0: "newest"})
		slot := undo.Slot{Table: table, Index: 0}
		rec := undo.NewRecord(slot, undo.Delta{ColumnIDs: []int{0}, Values: []any{"old"}}, -7)
		Install(slot, rec)

		later := undo.NewRecord(slot, undo.Delta{ColumnIDs: []int{0}, Values: []any{"newer"}}, -8)
		Install(slot, later)

		Convey("Rolling back -7 is a no-op: the tuple is untouched", func() {
			applied := Rollback(-7, rec)
			So(applied, ShouldBeFalse)
			So(table.columns[0], ShouldEqual, "newest")
			So(table.AtomicallyReadVersionPtr(slot), ShouldEqual, later)
		})
	})
}

func TestRollbackAbandonsOnEmptyChain(t *testing.T) {
	Convey("Given a record whose chain head has already been reclaimed to nil", t, func() {
		table := newMemTable(map[int]any{0: "v"})
		slot := undo.Slot{Table: table, Index: 0}
		rec := undo.NewRecord(slot, undo.Delta{ColumnIDs: []int{0}, Values: []any{"old"}}, -3)

		Convey("Rollback reports false without panicking", func() {
			So(Rollback(-3, rec), ShouldBeFalse)
		})
	})
}
