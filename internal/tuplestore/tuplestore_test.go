// Licensed under the MIT License. See LICENSE file in the project root for details.

package tuplestore

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/ferrodb/txnmgr/internal/undo"
)

func TestInsertAndColumns(t *testing.T) {
	Convey("Given a new table", t, func() {
		table := New("accounts")

		Convey("Insert creates a slot whose Columns match the initial image", func() {
			slot := table.Insert(map[int]any{0: int64(100)})
			So(table.Columns(slot)[0], ShouldEqual, int64(100))
		})

		Convey("Successive inserts get distinct, increasing indexes", func() {
			s1 := table.Insert(map[int]any{0: int64(1)})
			s2 := table.Insert(map[int]any{0: int64(2)})
			So(s2.Index, ShouldEqual, s1.Index+1)
		})
	})
}

func TestWriteReturnsBeforeImage(t *testing.T) {
	Convey("Given a slot with an initial column value", t, func() {
		table := New("accounts")
		slot := table.Insert(map[int]any{0: int64(100)})

		Convey("Write updates the live image and returns the prior value as a Delta", func() {
			delta := table.Write(slot, map[int]any{0: int64(150)})
			So(delta.ColumnIDs, ShouldResemble, []int{0})
			So(delta.Values, ShouldResemble, []any{int64(100)})
			So(table.Columns(slot)[0], ShouldEqual, int64(150))
		})
	})
}

func TestCopyColumnsFromDeltaRestoresPriorValues(t *testing.T) {
	Convey("Given a slot that has been written once", t, func() {
		table := New("accounts")
		slot := table.Insert(map[int]any{0: int64(100)})
		delta := table.Write(slot, map[int]any{0: int64(150)})

		Convey("CopyColumnsFromDelta puts the before-image back", func() {
			table.CopyColumnsFromDelta(slot, delta)
			So(table.Columns(slot)[0], ShouldEqual, int64(100))
		})
	})
}

func TestVersionChainHeadRoundTrip(t *testing.T) {
	Convey("Given a slot with no undo records yet", t, func() {
		table := New("accounts")
		slot := table.Insert(map[int]any{0: int64(1)})

		Convey("AtomicallyReadVersionPtr starts nil", func() {
			So(table.AtomicallyReadVersionPtr(slot), ShouldBeNil)
		})

		Convey("AtomicallyWriteVersionPtr installs a new head that reads back the same pointer", func() {
			rec := undo.NewRecord(slot, undo.Delta{}, -1)
			table.AtomicallyWriteVersionPtr(slot, rec)
			So(table.AtomicallyReadVersionPtr(slot), ShouldEqual, rec)
		})
	})
}

func TestUnknownSlotPanics(t *testing.T) {
	Convey("Given a table with no slots", t, func() {
		table := New("accounts")

		Convey("Reading an unknown slot panics with the table name in the message", func() {
			So(func() {
				table.Columns(undo.Slot{Table: table, Index: 99})
			}, ShouldPanicWith, `tuplestore: unknown slot 99 in table "accounts"`)
		})
	})
}
