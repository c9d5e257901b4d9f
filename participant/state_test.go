package participant

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"sc2runtime/config"
	"sc2runtime/protocol"
	"sc2runtime/transport"
)

var errTestFault = errors.New("boom")

func newTestParticipant(role config.Role) *Participant {
	return New(config.ParticipantSpec{Role: role, Race: "terran", Name: "p1"}, nil, 1, false, time.Second)
}

func TestParticipantLifecycle(t *testing.T) {
	Convey("A newly constructed participant", t, func() {
		p := newTestParticipant(config.RolePlayer)
		So(p.State(), ShouldEqual, StateCreated)

		Convey("cannot join before it is lobbied", func() {
			err := p.transitionTo(StateInGame)
			So(err, ShouldNotBeNil)
			So(p.State(), ShouldEqual, StateCreated)
		})

		Convey("follows the linear Created->Launched->Lobbied->InGame path", func() {
			So(p.transitionTo(StateLaunched), ShouldBeNil)
			So(p.transitionTo(StateLobbied), ShouldBeNil)
			So(p.transitionTo(StateInGame), ShouldBeNil)
			So(p.State(), ShouldEqual, StateInGame)
		})

		Convey("faults from any state and records the cause", func() {
			cause := p.fault(errTestFault)
			So(cause, ShouldEqual, errTestFault)
			So(p.State(), ShouldEqual, StateFaulted)
			So(p.FaultCause(), ShouldEqual, errTestFault)
		})

		Convey("end is only legal from InGame", func() {
			So(p.end(), ShouldNotBeNil)
			p.state = StateInGame
			So(p.end(), ShouldBeNil)
			So(p.State(), ShouldEqual, StateEnded)
		})

		Convey("close is idempotent from Ended or Faulted", func() {
			p.state = StateEnded
			So(p.close(), ShouldBeNil)
			So(p.State(), ShouldEqual, StateClosed)
			So(p.close(), ShouldBeNil)
		})
	})
}

func TestComputerParticipantEntersDirectly(t *testing.T) {
	Convey("A computer participant", t, func() {
		p := newTestParticipant(config.RoleComputer)
		So(p.IsComputer(), ShouldBeTrue)

		Convey("skips Launched/Lobbied and enters InGame directly", func() {
			p.EnterAsComputer()
			So(p.State(), ShouldEqual, StateInGame)
			So(p.Tick(), ShouldEqual, uint32(0))
		})

		Convey("rejects Launch and JoinGame", func() {
			err := p.Launch(nil, "", 0, config.DefaultWindowRect, false, time.Second, transport.DefaultRetryPolicy())
			So(err, ShouldNotBeNil)
			err = p.JoinGame(nil, protocol.JoinGameRequest{})
			So(err, ShouldNotBeNil)
		})
	})
}
