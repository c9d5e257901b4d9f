package atomicstat

import (
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFloat64(t *testing.T) {
	Convey("A Float64 used as a concurrently-read match stat", t, func() {
		Convey("Store then Load round-trips the value", func() {
			f := NewFloat64(0)
			f.Store(42.5)
			So(f.Load(), ShouldEqual, 42.5)
		})

		Convey("concurrent Add calls never lose an update", func() {
			f := NewFloat64(0)
			numOps := 2000
			numWriters := 100

			start := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(numWriters)
			for i := 0; i < numWriters; i++ {
				go func() {
					<-start
					for j := 0; j < numOps; j++ {
						f.Add(1.0)
					}
					wg.Done()
				}()
			}

			time.Sleep(10 * time.Millisecond)
			close(start)
			wg.Wait()

			So(f.Load(), ShouldEqual, float64(numOps*numWriters))
		})

		Convey("concurrent increments and decrements cancel out", func() {
			f := NewFloat64(0)
			numOps := 2000
			numWriters := 100

			start := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(numWriters * 2)
			for i := 0; i < numWriters; i++ {
				go func() {
					<-start
					for j := 0; j < numOps; j++ {
						f.Add(1.0)
					}
					wg.Done()
				}()
				go func() {
					<-start
					for j := 0; j < numOps; j++ {
						f.Add(-1.0)
					}
					wg.Done()
				}()
			}

			time.Sleep(10 * time.Millisecond)
			close(start)
			wg.Wait()

			So(f.Load(), ShouldEqual, 0.0)
		})
	})
}
