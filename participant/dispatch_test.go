package participant

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"sc2runtime/agent"
	"sc2runtime/config"
	"sc2runtime/protocol"
	"sc2runtime/worldstate"
)

type recordingAgent struct {
	agent.BaseAgent
	seen []string
}

func (r *recordingAgent) OnGameStart(h *agent.Handle)                { r.seen = append(r.seen, "start") }
func (r *recordingAgent) OnUnitCreated(h *agent.Handle, tag uint64)  { r.seen = append(r.seen, "created") }
func (r *recordingAgent) OnUnitDestroyed(h *agent.Handle, tag uint64) {
	r.seen = append(r.seen, "destroyed")
}
func (r *recordingAgent) OnStep(h *agent.Handle) { r.seen = append(r.seen, "step") }
func (r *recordingAgent) OnUnitIdle(h *agent.Handle, tag uint64) {
	h.CommandUnits([]uint64{tag}, 42, protocol.NoTarget())
}

func TestDispatchCallsAgentCallbacksInOrder(t *testing.T) {
	Convey("Dispatch feeds a sorted event list through the Agent", t, func() {
		ag := &recordingAgent{}
		p := New(config.ParticipantSpec{Role: config.RolePlayer, Race: "terran"}, ag, 1, false, time.Second)
		p.World = worldstate.New(protocol.RaceTerran)
		p.Data = worldstate.NewGameData(protocol.DataResponse{})
		p.state = StateInGame

		events := worldstate.WithLifecycle(
			[]worldstate.Event{},
			true,  // gameStart
			false, // gameFullStart
			false, // gameEnd
		)

		p.Dispatch(context.Background(), events)

		So(ag.seen, ShouldResemble, []string{"start", "step"})
	})

	Convey("A command queued from OnUnitIdle lands in the outbox", t, func() {
		ag := &recordingAgent{}
		p := New(config.ParticipantSpec{Role: config.RolePlayer, Race: "terran"}, ag, 1, false, time.Second)
		p.World = worldstate.New(protocol.RaceTerran)
		p.Data = worldstate.NewGameData(protocol.DataResponse{})
		p.state = StateInGame

		p.Dispatch(context.Background(), []worldstate.Event{{Kind: worldstate.EventUnitIdle, UnitTag: 7}})

		So(len(p.outbox), ShouldEqual, 1)
		So(p.outbox[0].Unit.UnitTags, ShouldResemble, []uint64{7})
	})

	Convey("Observer participants drop non-debug commands silently", t, func() {
		ag := &recordingAgent{}
		p := New(config.ParticipantSpec{Role: config.RoleObserver, Race: "terran"}, ag, 1, false, time.Second)
		p.World = worldstate.New(protocol.RaceTerran)
		p.Data = worldstate.NewGameData(protocol.DataResponse{})
		p.state = StateInGame

		p.Dispatch(context.Background(), []worldstate.Event{{Kind: worldstate.EventUnitIdle, UnitTag: 7}})

		So(len(p.outbox), ShouldEqual, 0)
	})
}
