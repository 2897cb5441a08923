package clock_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/footsteps/internal/domain/clock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManualClock(t *testing.T) {
	Convey("Given a manual clock", t, func() {
		start := time.Unix(1_700_000_000, 0)
		c := clock.NewManual(start)
		var order []string

		Convey("When callbacks are scheduled out of order", func() {
			c.AfterFunc(30*time.Millisecond, func() { order = append(order, "c") })
			c.AfterFunc(10*time.Millisecond, func() { order = append(order, "a") })
			c.AfterFunc(10*time.Millisecond, func() { order = append(order, "b") })

			Convey("Then nothing fires before the clock moves", func() {
				So(order, ShouldBeEmpty)
				So(c.Pending(), ShouldEqual, 3)
			})

			Convey("Then advancing fires due callbacks by time then scheduling order", func() {
				c.Advance(20 * time.Millisecond)
				So(order, ShouldResemble, []string{"a", "b"})
				So(c.Now(), ShouldEqual, start.Add(20*time.Millisecond))

				c.Advance(10 * time.Millisecond)
				So(order, ShouldResemble, []string{"a", "b", "c"})
				So(c.Pending(), ShouldEqual, 0)
			})
		})

		Convey("When a callback schedules another inside the window", func() {
			c.AfterFunc(10*time.Millisecond, func() {
				order = append(order, "first")
				So(c.Now(), ShouldEqual, start.Add(10*time.Millisecond))
				c.AfterFunc(10*time.Millisecond, func() { order = append(order, "second") })
			})
			c.Advance(25 * time.Millisecond)

			Convey("Then both fire in a single advance", func() {
				So(order, ShouldResemble, []string{"first", "second"})
			})
		})

		Convey("When a timer is stopped", func() {
			var fired atomic.Bool
			tm := c.AfterFunc(5*time.Millisecond, func() { fired.Store(true) })

			Convey("Then it never fires and a second stop reports false", func() {
				So(tm.Stop(), ShouldBeTrue)
				So(tm.Stop(), ShouldBeFalse)
				c.Advance(time.Second)
				So(fired.Load(), ShouldBeFalse)
			})
		})

		Convey("When a fired timer is stopped", func() {
			tm := c.AfterFunc(0, func() {})
			c.Advance(0)
			So(tm.Stop(), ShouldBeFalse)
		})
	})
}

func TestRealClock(t *testing.T) {
	Convey("Given the real clock", t, func() {
		c := clock.NewReal()
		done := make(chan struct{})
		c.AfterFunc(time.Millisecond, func() { close(done) })

		Convey("Then the callback fires", func() {
			select {
			case <-done:
			case <-time.After(time.Second):
				So("timeout", ShouldBeEmpty)
			}
			So(c.Now().IsZero(), ShouldBeFalse)
		})
	})
}
