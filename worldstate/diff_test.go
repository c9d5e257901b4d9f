package worldstate

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"sc2runtime/protocol"
)

func marine(tag uint64, alliance protocol.Alliance) protocol.RawUnit {
	return protocol.RawUnit{Tag: tag, UnitType: 48, Alliance: alliance, Health: 45, HealthMax: 45}
}

func TestDiffUnitDestroyed(t *testing.T) {
	Convey("Given a world with a domestic unit present at tick 5", t, func() {
		w := New(protocol.RaceTerran)
		w.Diff(protocol.RawObservation{
			GameLoop: 5,
			Units:    []protocol.RawUnit{marine(42, protocol.AllianceDomestic)},
		})

		Convey("When tick 6 reports the same tag destroyed", func() {
			events := w.Diff(protocol.RawObservation{
				GameLoop:  6,
				Units:     nil,
				EventsRaw: protocol.RawEvents{DeadUnitTags: []uint64{42}},
			})

			Convey("Then exactly one UnitDestroyed(42) is emitted", func() {
				So(events, ShouldHaveLength, 1)
				So(events[0].Kind, ShouldEqual, EventUnitDestroyed)
				So(events[0].UnitTag, ShouldEqual, uint64(42))
			})
		})

		Convey("When tick 6 reports the same tag absent but it was Enemy", func() {
			w2 := New(protocol.RaceTerran)
			w2.Diff(protocol.RawObservation{
				GameLoop: 5,
				Units:    []protocol.RawUnit{marine(99, protocol.AllianceEnemy)},
			})
			events := w2.Diff(protocol.RawObservation{GameLoop: 6})

			Convey("Then no UnitDestroyed event is emitted and the unit is retained", func() {
				So(events, ShouldBeEmpty)
				retained, ok := w2.LastSeen(99)
				So(ok, ShouldBeTrue)
				So(retained.Tag, ShouldEqual, uint64(99))
			})
		})
	})
}

func TestDiffUnitCreatedAndDetected(t *testing.T) {
	Convey("Given an empty world", t, func() {
		w := New(protocol.RaceTerran)

		Convey("When an enemy unit is first observed", func() {
			events := w.Diff(protocol.RawObservation{
				GameLoop: 1,
				Units:    []protocol.RawUnit{marine(7, protocol.AllianceEnemy)},
			})

			Convey("Then UnitDetected precedes UnitCreated", func() {
				So(events, ShouldHaveLength, 2)
				So(events[0].Kind, ShouldEqual, EventUnitDetected)
				So(events[1].Kind, ShouldEqual, EventUnitCreated)
			})
		})

		Convey("When a domestic unit is first observed", func() {
			events := w.Diff(protocol.RawObservation{
				GameLoop: 1,
				Units:    []protocol.RawUnit{marine(8, protocol.AllianceDomestic)},
			})

			Convey("Then only UnitCreated is emitted", func() {
				So(events, ShouldHaveLength, 1)
				So(events[0].Kind, ShouldEqual, EventUnitCreated)
			})
		})
	})
}

func TestDiffIdleAndBuildingComplete(t *testing.T) {
	Convey("Given a unit with an order and a building under construction", t, func() {
		w := New(protocol.RaceTerran)
		w.Diff(protocol.RawObservation{
			GameLoop: 1,
			Units: []protocol.RawUnit{
				{Tag: 1, Alliance: protocol.AllianceDomestic, Orders: []protocol.UnitOrder{{AbilityID: 1}}},
				{Tag: 2, Alliance: protocol.AllianceDomestic, IsBuilding: true, BuildProgress: 0.9},
			},
		})

		Convey("When the order completes and the building finishes", func() {
			events := w.Diff(protocol.RawObservation{
				GameLoop: 2,
				Units: []protocol.RawUnit{
					{Tag: 1, Alliance: protocol.AllianceDomestic},
					{Tag: 2, Alliance: protocol.AllianceDomestic, IsBuilding: true, BuildProgress: 1.0},
				},
			})

			Convey("Then BuildingComplete precedes UnitIdle", func() {
				So(events, ShouldHaveLength, 2)
				So(events[0].Kind, ShouldEqual, EventBuildingComplete)
				So(events[0].UnitTag, ShouldEqual, uint64(2))
				So(events[1].Kind, ShouldEqual, EventUnitIdle)
				So(events[1].UnitTag, ShouldEqual, uint64(1))
			})
		})
	})
}

func TestDiffUpgradeComplete(t *testing.T) {
	Convey("Given a world with no upgrades", t, func() {
		w := New(protocol.RaceTerran)

		Convey("When an upgrade first appears", func() {
			events := w.Diff(protocol.RawObservation{GameLoop: 1, Upgrades: []uint32{77}})

			Convey("Then UpgradeComplete(77) is emitted once", func() {
				So(events, ShouldHaveLength, 1)
				So(events[0].Kind, ShouldEqual, EventUpgradeComplete)
				So(events[0].UpgradeID, ShouldEqual, uint32(77))
			})

			Convey("And a later tick with the same upgrade emits nothing more", func() {
				more := w.Diff(protocol.RawObservation{GameLoop: 2, Upgrades: []uint32{77}})
				So(more, ShouldBeEmpty)
			})
		})
	})
}

func TestWithLifecycleOrdering(t *testing.T) {
	Convey("Given a tick's diff events and a game-ending result", t, func() {
		events := []Event{unitEvent(EventUnitDestroyed, 5)}

		Convey("When lifecycle events are merged in", func() {
			merged := WithLifecycle(events, false, false, true)

			Convey("Then GameEnd sorts after the destroyed event", func() {
				So(merged, ShouldHaveLength, 2)
				So(merged[0].Kind, ShouldEqual, EventUnitDestroyed)
				So(merged[1].Kind, ShouldEqual, EventGameEnd)
			})
		})
	})
}
