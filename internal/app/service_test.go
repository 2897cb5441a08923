package service_test

import (
	"context"
	"testing"
	"time"

	service "github.com/okian/footsteps/internal/app"
	"github.com/okian/footsteps/internal/adapters/repository"
	"github.com/okian/footsteps/internal/domain/clock"
	"github.com/okian/footsteps/internal/domain/lifecycle"
	"github.com/okian/footsteps/internal/domain/model"
	"github.com/okian/footsteps/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var epoch = time.Unix(1_700_000_000, 0)

type fixture struct {
	svc   *service.Service
	store *repository.MemoryStore
	clk   *clock.Manual
}

func newFixture(opts ...service.Option) *fixture {
	f := &fixture{
		store: repository.NewMemoryStore(context.Background()),
		clk:   clock.NewManual(epoch),
	}
	opts = append([]service.Option{
		service.WithStore(f.store),
		service.WithScheduler(f.clk),
		service.WithGridSize(100),
	}, opts...)
	f.svc = service.New(opts...)
	if err := f.svc.Start(context.Background()); err != nil {
		panic(err)
	}
	return f
}

func (f *fixture) close() {
	f.svc.Stop()
	_ = f.store.Close()
}

func (f *fixture) footprints() []model.Decal {
	decals, err := f.store.Query(context.Background(), repository.IsFootprint)
	if err != nil {
		panic(err)
	}
	return decals
}

func (f *fixture) ownedBy(token string) []model.Decal {
	decals, err := f.store.Query(context.Background(), repository.OwnedBy(token))
	if err != nil {
		panic(err)
	}
	return decals
}

func walk(token string, from model.Point, to ...model.Point) model.MoveNotification {
	return model.MoveNotification{
		TokenID:        token,
		Prior:          from,
		Waypoints:      to,
		MovementAction: model.MovementWalk,
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it reports defaults before starting", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["workerCount"], ShouldEqual, 1)
			So(stats["encounterActive"], ShouldEqual, false)
		})

		Convey("Then handlers refuse to run", func() {
			So(svc.HandleMove(context.Background(), walk("tok", model.Point{}, model.Point{X: 300})), ShouldEqual, service.ErrNotStarted)
			So(svc.HandleEncounterEnd(context.Background(), model.EncounterEndNotification{}), ShouldEqual, service.ErrNotStarted)
			So(svc.Submit(context.Background(), model.Notification{ID: "n1"}), ShouldEqual, service.Rejected)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(4),
			service.WithQueueSize(500),
			service.WithDedupeSize(100),
			service.WithDecalSize(0.5),
			service.WithImages("left.png", "right.png"),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
			So(svc.GetStats()["workerCount"], ShouldEqual, 4)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithScheduler(clock.NewManual(epoch)))
		defer svc.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["storedDecals"], ShouldEqual, 0)
				So(stats["queueLength"], ShouldEqual, 0)
			})

			Convey("And when stopping it twice", func() {
				svc.Stop()
				svc.Stop()

				Convey("Then it should be marked as stopped", func() {
					So(svc.GetStats()["started"], ShouldEqual, false)
					_, err := svc.Decals(ctx)
					So(err, ShouldEqual, service.ErrNotStarted)
				})

				Convey("And it can be started again", func() {
					So(svc.Start(ctx), ShouldBeNil)
					So(svc.GetStats()["started"], ShouldEqual, true)
					svc.Stop()
				})
			})
		})
	})
}

func TestService_WalkOutsideEncounter(t *testing.T) {
	Convey("Given a started service outside an encounter", t, func() {
		f := newFixture()
		defer f.close()
		ctx := context.Background()

		Convey("When a token walks three squares", func() {
			So(f.svc.HandleMove(ctx, walk("tok-a", model.Point{}, model.Point{X: 300})), ShouldBeNil)

			Convey("Then eight placements wait on the scheduler", func() {
				So(f.clk.Pending(), ShouldEqual, 8)
				So(f.svc.GetStats()["pendingPlacements"], ShouldEqual, 8)
				So(f.footprints(), ShouldBeEmpty)
			})

			Convey("And when the first placement fires", func() {
				f.clk.Advance(0)
				decals := f.footprints()

				Convey("Then a left footprint is created with the configured shape", func() {
					So(decals, ShouldHaveLength, 1)
					d := decals[0]
					So(d.Texture, ShouldEqual, service.DefaultLeftImage)
					So(d.Width, ShouldAlmostEqual, 33, 1e-9)
					So(d.Height, ShouldAlmostEqual, 33, 1e-9)
					So(d.X, ShouldAlmostEqual, 100.0/3+33, 1e-9)
					So(d.Y, ShouldAlmostEqual, 10+33, 1e-9)
					So(d.Z, ShouldEqual, 100)
					So(d.Alpha, ShouldAlmostEqual, 0.4, 1e-9)
					So(d.Rotation, ShouldAlmostEqual, 90, 1e-9)
					So(d.Locked, ShouldBeTrue)
					So(d.Overhead, ShouldBeFalse)
					So(d.Hidden, ShouldBeFalse)
					So(d.Flags, ShouldResemble, model.Flags{
						IsFootprint:  true,
						OwnerTokenID: "tok-a",
						CreatedAt:    epoch.UnixMilli(),
					})
				})

				Convey("Then it begins fading at once", func() {
					state, ok := f.svc.DecalState(decals[0].ID)
					So(ok, ShouldBeTrue)
					So(state, ShouldEqual, lifecycle.StateAging)
				})
			})

			Convey("And when the move duration elapses", func() {
				f.clk.Advance(450 * time.Millisecond)
				decals := f.footprints()

				Convey("Then every placement exists with alternating textures", func() {
					So(decals, ShouldHaveLength, 8)
					for i, d := range decals {
						want := service.DefaultLeftImage
						if i%2 == 1 {
							want = service.DefaultRightImage
						}
						So(d.Texture, ShouldEqual, want)
						So(d.Flags.CreatedAt, ShouldEqual, epoch.Add(time.Duration(i)*50*time.Millisecond).UnixMilli())
					}
					So(f.svc.GetStats()["pendingPlacements"], ShouldEqual, 0)
				})
			})

			Convey("And when the fade has run for every decal", func() {
				f.clk.Advance(450*time.Millisecond + lifecycle.DefaultFadeDuration)

				Convey("Then the scene is clean", func() {
					So(f.footprints(), ShouldBeEmpty)
					So(f.svc.GetStats()["agingDecals"], ShouldEqual, 0)
				})
			})
		})

		Convey("When moves do not qualify", func() {
			hidden := walk("tok-a", model.Point{}, model.Point{X: 300})
			hidden.Hidden = true
			flying := walk("tok-a", model.Point{}, model.Point{X: 300})
			flying.MovementAction = "fly"
			elevated := walk("tok-a", model.Point{}, model.Point{X: 300})
			elevated.Elevation = 10
			stationary := walk("tok-a", model.Point{})
			short := walk("tok-a", model.Point{}, model.Point{X: 20})
			farAway := walk("tok-a", model.Point{}, model.Point{X: 1e12})
			overflow := walk("tok-a", model.Point{}, model.Point{X: 1e300})

			for _, m := range []model.MoveNotification{hidden, flying, elevated, stationary, short, farAway, overflow} {
				So(f.svc.HandleMove(ctx, m), ShouldBeNil)
			}

			Convey("Then nothing is scheduled", func() {
				So(f.clk.Pending(), ShouldEqual, 0)
				f.clk.Advance(time.Second)
				So(f.footprints(), ShouldBeEmpty)
			})
		})
	})
}

func TestService_CombatGating(t *testing.T) {
	Convey("Given an encounter in progress", t, func() {
		f := newFixture()
		defer f.close()
		ctx := context.Background()

		So(f.svc.HandleTurnChange(ctx, model.TurnNotification{CombatantTokenID: "tok-c"}), ShouldBeNil)
		So(f.svc.GetStats()["encounterActive"], ShouldEqual, true)

		// 140px leaves three footprints, 110px leaves two.
		So(f.svc.HandleMove(ctx, walk("tok-a", model.Point{}, model.Point{X: 140})), ShouldBeNil)
		So(f.svc.HandleMove(ctx, walk("tok-b", model.Point{Y: 500}, model.Point{X: 110, Y: 500})), ShouldBeNil)
		f.clk.Advance(time.Second)

		Convey("When time passes", func() {
			f.clk.Advance(10 * lifecycle.DefaultFadeDuration)

			Convey("Then no footprint receives an alpha change", func() {
				So(f.ownedBy("tok-a"), ShouldHaveLength, 3)
				So(f.ownedBy("tok-b"), ShouldHaveLength, 2)
				for _, d := range f.footprints() {
					So(d.Alpha, ShouldAlmostEqual, 0.4, 1e-9)
					state, _ := f.svc.DecalState(d.ID)
					So(state, ShouldEqual, lifecycle.StatePersisted)
				}
			})
		})

		Convey("When the turn advances to token A", func() {
			So(f.svc.HandleTurnChange(ctx, model.TurnNotification{CombatantTokenID: "tok-a"}), ShouldBeNil)

			Convey("Then only token A's footprints start fading", func() {
				for _, d := range f.ownedBy("tok-a") {
					state, _ := f.svc.DecalState(d.ID)
					So(state, ShouldEqual, lifecycle.StateAging)
				}
				for _, d := range f.ownedBy("tok-b") {
					state, _ := f.svc.DecalState(d.ID)
					So(state, ShouldEqual, lifecycle.StatePersisted)
				}
			})

			Convey("And after the fade duration only token B's footprints remain", func() {
				f.clk.Advance(lifecycle.DefaultFadeDuration)
				So(f.ownedBy("tok-a"), ShouldBeEmpty)
				remaining := f.ownedBy("tok-b")
				So(remaining, ShouldHaveLength, 2)
				for _, d := range remaining {
					So(d.Alpha, ShouldAlmostEqual, 0.4, 1e-9)
				}
			})
		})

		Convey("When the turn passes to a combatant without a token", func() {
			So(f.svc.HandleTurnChange(ctx, model.TurnNotification{}), ShouldBeNil)

			Convey("Then nothing is retired and the encounter stays active", func() {
				So(f.svc.GetStats()["agingDecals"], ShouldEqual, 0)
				So(f.svc.GetStats()["persistedDecals"], ShouldEqual, 5)
				So(f.svc.GetStats()["encounterActive"], ShouldEqual, true)
			})
		})

		Convey("When the encounter ends", func() {
			So(f.svc.HandleEncounterEnd(ctx, model.EncounterEndNotification{}), ShouldBeNil)

			Convey("Then all five footprints fade regardless of owner", func() {
				So(f.svc.GetStats()["agingDecals"], ShouldEqual, 5)
				So(f.svc.GetStats()["encounterActive"], ShouldEqual, false)
				f.clk.Advance(lifecycle.DefaultFadeDuration)
				So(f.footprints(), ShouldBeEmpty)
			})

			Convey("And new footprints fade on their own", func() {
				So(f.svc.HandleMove(ctx, walk("tok-a", model.Point{}, model.Point{X: 110})), ShouldBeNil)
				f.clk.Advance(time.Second)
				for _, d := range f.ownedBy("tok-a") {
					So(d.Alpha, ShouldBeLessThan, 0.4)
				}
			})
		})
	})

	Convey("Given a move that reports the encounter flag itself", t, func() {
		f := newFixture()
		defer f.close()
		ctx := context.Background()

		active := true
		m := walk("tok-a", model.Point{}, model.Point{X: 110})
		m.EncounterActive = &active
		So(f.svc.HandleMove(ctx, m), ShouldBeNil)
		f.clk.Advance(time.Second)

		Convey("Then its footprints persist", func() {
			decals := f.footprints()
			So(decals, ShouldHaveLength, 2)
			for _, d := range decals {
				state, _ := f.svc.DecalState(d.ID)
				So(state, ShouldEqual, lifecycle.StatePersisted)
			}
		})
	})
}

type fixedEncounter bool

func (e fixedEncounter) Active(context.Context) bool { return bool(e) }

func TestService_EncounterStateOverride(t *testing.T) {
	Convey("Given a host that reports an encounter directly", t, func() {
		f := newFixture(service.WithEncounterState(fixedEncounter(true)))
		defer f.close()
		ctx := context.Background()

		So(f.svc.HandleMove(ctx, walk("tok-a", model.Point{}, model.Point{X: 110})), ShouldBeNil)
		f.clk.Advance(time.Second)

		Convey("Then footprints persist without any turn notification", func() {
			So(f.svc.GetStats()["persistedDecals"], ShouldEqual, 2)
		})
	})
}

func TestService_StopCancelsPlacements(t *testing.T) {
	Convey("Given a move whose placements have not fired", t, func() {
		f := newFixture()
		defer func() { _ = f.store.Close() }()
		ctx := context.Background()

		So(f.svc.HandleMove(ctx, walk("tok-a", model.Point{}, model.Point{X: 300})), ShouldBeNil)
		f.clk.Advance(60 * time.Millisecond)
		So(f.footprints(), ShouldHaveLength, 2)

		Convey("When the service stops", func() {
			f.svc.Stop()
			f.clk.Advance(time.Minute)

			Convey("Then no further decal is created or faded", func() {
				decals := f.footprints()
				So(decals, ShouldHaveLength, 2)
				for _, d := range decals {
					So(d.Alpha, ShouldAlmostEqual, 0.4, 1e-9)
				}
				So(f.clk.Pending(), ShouldEqual, 0)
			})
		})
	})
}

func TestService_Decals(t *testing.T) {
	Convey("Given a scene with footprints and other decals", t, func() {
		f := newFixture()
		defer f.close()
		ctx := context.Background()

		_, err := f.store.Create(ctx, []model.DecalSpec{{Texture: "map-pin.png"}})
		So(err, ShouldBeNil)
		So(f.svc.HandleMove(ctx, walk("tok-a", model.Point{}, model.Point{X: 110})), ShouldBeNil)
		f.clk.Advance(time.Second)

		Convey("Then Decals lists only the footprints", func() {
			decals, err := f.svc.Decals(ctx)
			So(err, ShouldBeNil)
			So(decals, ShouldHaveLength, 2)
			for _, d := range decals {
				So(d.IsFootprint(), ShouldBeTrue)
			}
			So(f.svc.GetStats()["storedDecals"], ShouldEqual, 3)
		})
	})
}

func TestService_Options(t *testing.T) {
	Convey("Given custom decal and sampling options", t, func() {
		f := newFixture(
			service.WithImages("l.webp", "r.webp"),
			service.WithDecalSize(0.5),
			service.WithDecalZ(7),
			service.WithSampling(2, 0.25, 200*time.Millisecond, false),
			service.WithFade(time.Second, 4, 1),
		)
		defer f.close()
		ctx := context.Background()

		So(f.svc.HandleMove(ctx, walk("tok-a", model.Point{}, model.Point{X: 200})), ShouldBeNil)

		Convey("When the unpaced placements fire", func() {
			f.clk.Advance(0)
			decals := f.footprints()

			Convey("Then they all exist at once with the custom shape", func() {
				So(decals, ShouldHaveLength, 3)
				So(decals[0].Texture, ShouldEqual, "l.webp")
				So(decals[1].Texture, ShouldEqual, "r.webp")
				So(decals[0].Width, ShouldAlmostEqual, 50, 1e-9)
				So(decals[0].X, ShouldAlmostEqual, 50+50, 1e-9)
				So(decals[0].Y, ShouldAlmostEqual, 25+50, 1e-9)
				So(decals[0].Z, ShouldEqual, 7)
				So(decals[0].Alpha, ShouldAlmostEqual, 1, 1e-9)
			})

			Convey("And the custom fade removes them after one second", func() {
				f.clk.Advance(250 * time.Millisecond)
				So(f.footprints()[0].Alpha, ShouldAlmostEqual, 0.75, 1e-9)
				f.clk.Advance(750 * time.Millisecond)
				So(f.footprints(), ShouldBeEmpty)
			})
		})
	})
}
