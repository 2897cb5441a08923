package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/okian/footsteps/internal/app"
	"github.com/okian/footsteps/internal/domain/lifecycle"
	"github.com/okian/footsteps/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// eventually polls cond until it holds or a second passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func processed(svc *service.Service) int64 {
	n, _ := svc.GetStats()["processed"].(int64)
	return n
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a running service fed through Submit", t, func() {
		f := newFixture(service.WithQueueSize(100), service.WithDedupeSize(50))
		defer f.close()
		ctx := context.Background()

		Convey("When a host replays a combat round", func() {
			round := []model.Notification{
				{ID: "n1", Kind: model.KindTurnChange, Turn: model.TurnNotification{CombatantTokenID: "tok-a"}},
				{ID: "n2", Kind: model.KindMove, Move: walk("tok-a", model.Point{}, model.Point{X: 140})},
				{ID: "n3", Kind: model.KindTurnChange, Turn: model.TurnNotification{CombatantTokenID: "tok-b"}},
				{ID: "n4", Kind: model.KindMove, Move: walk("tok-b", model.Point{Y: 500}, model.Point{X: 110, Y: 500})},
			}
			for _, n := range round {
				So(f.svc.Submit(ctx, n), ShouldEqual, service.Accepted)
			}
			So(eventually(func() bool { return processed(f.svc) == int64(len(round)) }), ShouldBeTrue)
			f.clk.Advance(time.Second)

			Convey("Then redelivered notifications are dropped", func() {
				So(f.svc.Submit(ctx, round[1]), ShouldEqual, service.Duplicate)
				So(f.svc.Size(), ShouldEqual, int64(len(round)))
			})

			Convey("Then every footprint persists during the encounter", func() {
				stats := f.svc.GetStats()
				So(stats["persistedDecals"], ShouldEqual, 5)
				So(stats["agingDecals"], ShouldEqual, 0)
				So(stats["currentTurn"], ShouldEqual, "tok-b")
			})

			Convey("And when the turn comes back to token A", func() {
				So(f.svc.Submit(ctx, model.Notification{
					ID: "n5", Kind: model.KindTurnChange,
					Turn: model.TurnNotification{CombatantTokenID: "tok-a"},
				}), ShouldEqual, service.Accepted)
				So(eventually(func() bool { return processed(f.svc) == 5 }), ShouldBeTrue)

				Convey("Then only token A's footprints fade away", func() {
					So(f.svc.GetStats()["agingDecals"], ShouldEqual, 3)
					f.clk.Advance(lifecycle.DefaultFadeDuration)
					So(f.ownedBy("tok-a"), ShouldBeEmpty)
					So(f.ownedBy("tok-b"), ShouldHaveLength, 2)
				})
			})

			Convey("And when the encounter ends", func() {
				So(f.svc.Submit(ctx, model.Notification{ID: "n5", Kind: model.KindEncounterEnd}), ShouldEqual, service.Accepted)
				So(eventually(func() bool { return processed(f.svc) == 5 }), ShouldBeTrue)
				f.clk.Advance(lifecycle.DefaultFadeDuration)

				Convey("Then the scene is clean", func() {
					So(f.footprints(), ShouldBeEmpty)
					So(f.svc.GetStats()["encounterActive"], ShouldEqual, false)
				})
			})
		})

		Convey("When a notification has an unknown kind", func() {
			So(f.svc.Submit(ctx, model.Notification{ID: "bad", Kind: "teleport"}), ShouldEqual, service.Accepted)

			Convey("Then it is counted as failed", func() {
				So(eventually(func() bool {
					failed, _ := f.svc.GetStats()["failed"].(int64)
					return failed == 1
				}), ShouldBeTrue)
			})
		})
	})
}

func TestServiceConcurrency(t *testing.T) {
	Convey("Given a service with several workers", t, func() {
		f := newFixture(service.WithWorkerCount(4), service.WithQueueSize(1000))
		defer f.close()
		ctx := context.Background()

		Convey("When many tokens walk at once", func() {
			const tokens = 20
			var wg sync.WaitGroup
			for i := 0; i < tokens; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					y := float64(i * 100)
					n := model.Notification{
						ID:   fmt.Sprintf("move-%d", i),
						Kind: model.KindMove,
						Move: walk(fmt.Sprintf("tok-%d", i), model.Point{Y: y}, model.Point{X: 300, Y: y}),
					}
					if f.svc.Submit(ctx, n) != service.Accepted {
						t.Errorf("submit %s rejected", n.ID)
					}
				}(i)
			}
			wg.Wait()
			So(eventually(func() bool { return processed(f.svc) == tokens }), ShouldBeTrue)
			f.clk.Advance(time.Second)

			Convey("Then each token left its own eight footprints", func() {
				So(f.footprints(), ShouldHaveLength, tokens*8)
				for i := 0; i < tokens; i++ {
					So(f.ownedBy(fmt.Sprintf("tok-%d", i)), ShouldHaveLength, 8)
				}
			})

			Convey("And all of them fade out", func() {
				f.clk.Advance(lifecycle.DefaultFadeDuration)
				So(f.footprints(), ShouldBeEmpty)
			})
		})
	})
}
