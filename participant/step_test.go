package participant

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"sc2runtime/agent"
	"sc2runtime/config"
	"sc2runtime/protocol"
	"sc2runtime/transport"
	"sc2runtime/worldstate"
)

// decodeEnvelopeForTest/encodeFrameForTest mirror transport's unexported
// codec (4-byte big-endian length prefix + gob-encoded Envelope); the real
// types are already gob.Register'd by importing sc2runtime/transport above.
func decodeEnvelopeForTest(t *testing.T, frame []byte) protocol.Envelope {
	t.Helper()
	var env protocol.Envelope
	if err := gob.NewDecoder(bytes.NewReader(frame[4:])).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func encodeFrameForTest(env protocol.Envelope) ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(env); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	frame := make([]byte, 4+payload.Len())
	binary.BigEndian.PutUint32(frame[:4], uint32(payload.Len()))
	copy(frame[4:], payload.Bytes())
	return frame, nil
}

// scriptedEngine answers one scripted RawObservation per Observation request
// (looping on the last entry once exhausted) and acknowledges Action, Debug
// and ObserverAction requests with their empty responses, standing in for
// the real engine. Any other kind gets no reply: its placeholder body is
// not a gob-registered type, so encoding fails and the connection is dropped.
func scriptedEngine(t *testing.T, obs []protocol.RawObservation) *httptest.Server {
	upgrader := websocket.Upgrader{}
	step := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			env := decodeEnvelopeForTest(t, raw)
			var body any
			switch env.Kind {
			case protocol.KindObservation:
				idx := step
				if idx >= len(obs) {
					idx = len(obs) - 1
				}
				body = obs[idx]
				step++
			case protocol.KindAction:
				body = protocol.ActionResponse{}
			case protocol.KindDebug:
				body = protocol.DebugResponse{}
			case protocol.KindObserverAction:
				body = protocol.ObserverActionResponse{}
			default:
				body = struct{}{}
			}
			resp := protocol.Envelope{RequestID: env.RequestID, Kind: env.Kind, Body: body}
			frame, err := encodeFrameForTest(resp)
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		}
	}))
}

func scriptedURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type trackingAgent struct {
	agent.BaseAgent
	created   []uint64
	gameStart int
	gameEnd   int
}

func (a *trackingAgent) OnGameStart(h *agent.Handle) { a.gameStart++ }
func (a *trackingAgent) OnGameEnd(h *agent.Handle)   { a.gameEnd++ }
func (a *trackingAgent) OnUnitCreated(h *agent.Handle, tag uint64) {
	a.created = append(a.created, tag)
}

func TestParticipantDrivesAFullTick(t *testing.T) {
	Convey("A participant in InGame observes, dispatches, and flushes one tick", t, func() {
		ag := &trackingAgent{}
		srv := scriptedEngine(t, []protocol.RawObservation{
			{GameLoop: 1, Units: []protocol.RawUnit{{Tag: 5, Alliance: protocol.AllianceDomestic}}},
			{GameLoop: 2, GameResults: []protocol.ReplayPlayerInfo{{PlayerID: 1, Result: protocol.ResultWin}}},
		})
		defer srv.Close()

		tr, err := transport.Connect(context.Background(), scriptedURL(srv), transport.DefaultRetryPolicy())
		So(err, ShouldBeNil)
		defer tr.Close()

		p := New(config.ParticipantSpec{Role: config.RolePlayer, Race: "terran", Name: "p1"}, ag, 1, false, time.Second)
		p.Transport = tr
		p.Data = worldstate.NewGameData(protocol.DataResponse{})
		p.state = StateInGame
		p.World = worldstate.New(protocol.RaceTerran)

		outcome, err := p.Step(context.Background(), true)
		So(err, ShouldBeNil)
		So(outcome, ShouldEqual, StepContinue)
		So(ag.gameStart, ShouldEqual, 1)
		So(ag.created, ShouldResemble, []uint64{5})
		So(p.Tick(), ShouldEqual, uint32(1))

		Convey("a subsequent tick reporting a game result ends the match", func() {
			outcome, err := p.Step(context.Background(), false)
			So(err, ShouldBeNil)
			So(outcome, ShouldEqual, StepEnded)
			So(ag.gameEnd, ShouldEqual, 1)
			So(p.State(), ShouldEqual, StateEnded)
		})
	})
}
