// Licensed under the MIT License. See LICENSE file in the project root for details.

package latch

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRWExcludesWriterFromReaders(t *testing.T) {
	Convey("Given an RW latch held by a writer", t, func() {
		l := NewRW()
		l.Lock()

		Convey("TryRLock fails until the writer releases", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			So(l.TryRLock(ctx), ShouldBeFalse)
		})

		l.Unlock()

		Convey("RLock succeeds once the writer has released", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			So(l.TryRLock(ctx), ShouldBeTrue)
			l.RUnlock()
		})
	})
}

func TestRWAllowsConcurrentReaders(t *testing.T) {
	Convey("Given an RW latch", t, func() {
		l := NewRW()

		Convey("Multiple RLock holders coexist", func() {
			l.RLock()
			l.RLock()
			l.RLock()

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			So(l.TryLock(ctx), ShouldBeFalse)

			l.RUnlock()
			l.RUnlock()
			l.RUnlock()
		})
	})
}

func TestRWWriterExcludesWriter(t *testing.T) {
	Convey("Given an RW latch held by one writer", t, func() {
		l := NewRW()
		l.Lock()
		defer l.Unlock()

		Convey("A second writer cannot acquire it", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			So(l.TryLock(ctx), ShouldBeFalse)
		})
	})
}

func TestMutexExcludes(t *testing.T) {
	Convey("Given a Mutex held by one caller", t, func() {
		m := NewMutex()
		m.Lock()
		defer m.Unlock()

		Convey("A second caller cannot acquire it", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			So(m.TryLock(ctx), ShouldBeFalse)
		})
	})
}

func TestMutexSerializesConcurrentIncrements(t *testing.T) {
	Convey("Given a Mutex guarding a shared counter", t, func() {
		m := NewMutex()
		var counter int64
		const n = 200

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.Lock()
				counter++
				m.Unlock()
			}()
		}
		wg.Wait()

		Convey("Every increment was observed", func() {
			So(counter, ShouldEqual, n)
		})
	})
}
