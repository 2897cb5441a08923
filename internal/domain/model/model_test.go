package model_test

import (
	"math"
	"testing"
	"time"

	model "github.com/okian/footsteps/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestMoveNotification(t *testing.T) {
	convey.Convey("Given a walking move with two waypoints", t, func() {
		move := model.MoveNotification{
			TokenID:        "token-a",
			Prior:          model.Point{X: 0, Y: 0},
			Waypoints:      []model.Point{{X: 100, Y: 0}, {X: 100, Y: 100}},
			MovementAction: model.MovementWalk,
		}

		convey.Convey("Then the path starts at the prior position", func() {
			path := move.Path()
			convey.So(len(path), convey.ShouldEqual, 3)
			convey.So(path[0], convey.ShouldResemble, model.Point{})
			convey.So(path[2], convey.ShouldResemble, model.Point{X: 100, Y: 100})
		})

		convey.Convey("Then it leaves footprints", func() {
			convey.So(move.LeavesFootprints(), convey.ShouldBeTrue)
		})

		convey.Convey("When the token is hidden", func() {
			move.Hidden = true
			convey.So(move.LeavesFootprints(), convey.ShouldBeFalse)
		})

		convey.Convey("When the token is flying", func() {
			move.MovementAction = "fly"
			convey.So(move.LeavesFootprints(), convey.ShouldBeFalse)
		})

		convey.Convey("When the token is elevated", func() {
			move.Elevation = 5
			convey.So(move.LeavesFootprints(), convey.ShouldBeFalse)
		})

		convey.Convey("When there are no waypoints", func() {
			move.Waypoints = nil
			convey.So(move.LeavesFootprints(), convey.ShouldBeFalse)
		})
	})
}

func TestSideAndPoint(t *testing.T) {
	convey.Convey("Given placement indexes", t, func() {
		convey.So(model.SideFor(0), convey.ShouldEqual, model.SideLeft)
		convey.So(model.SideFor(1), convey.ShouldEqual, model.SideRight)
		convey.So(model.SideFor(2).String(), convey.ShouldEqual, "left")
		convey.So(model.SideFor(3).String(), convey.ShouldEqual, "right")
	})

	convey.Convey("Given points", t, func() {
		p := model.Point{X: 1, Y: 2}
		convey.So(p.Add(model.Point{X: 1, Y: 1}), convey.ShouldResemble, model.Point{X: 2, Y: 3})
		convey.So(p.Sub(model.Point{X: 1, Y: 1}), convey.ShouldResemble, model.Point{X: 0, Y: 1})
		convey.So(p.Scale(2), convey.ShouldResemble, model.Point{X: 2, Y: 4})
		convey.So(p.Finite(), convey.ShouldBeTrue)
		convey.So(model.Point{X: math.NaN()}.Finite(), convey.ShouldBeFalse)
	})

	convey.Convey("Given a placement with a delay", t, func() {
		p := model.Placement{ScheduledDelay: 1500 * time.Microsecond}
		convey.So(p.ScheduledDelayMs(), convey.ShouldAlmostEqual, 1.5)
	})
}

func TestDecalPatch(t *testing.T) {
	convey.Convey("Given a decal and an alpha patch", t, func() {
		d := model.Decal{ID: "d1", DecalSpec: model.DecalSpec{Alpha: 0.4, Texture: "left.png"}}
		alpha := 0.1
		patched := model.DecalPatch{Alpha: &alpha}.Apply(d)

		convey.So(patched.Alpha, convey.ShouldEqual, 0.1)
		convey.So(patched.Texture, convey.ShouldEqual, "left.png")
		convey.So(model.DecalPatch{}.Apply(d).Alpha, convey.ShouldEqual, 0.4)
	})
}
