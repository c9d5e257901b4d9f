package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"sc2runtime/coordinator"
)

func TestHubBroadcastsToEverySubscriber(t *testing.T) {
	Convey("A hub fed from a Stats channel", t, func() {
		in := make(chan coordinator.Stats, 1)
		h := newHub()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go h.run(ctx, in)

		Convey("a subscriber before any snapshot sees hasLatest=false", func() {
			sub, _, hasLatest := h.subscribe()
			defer h.unsubscribe(sub)
			So(hasLatest, ShouldBeFalse)
		})

		Convey("every subscriber receives a published snapshot", func() {
			subA, _, _ := h.subscribe()
			subB, _, _ := h.subscribe()
			defer h.unsubscribe(subA)
			defer h.unsubscribe(subB)

			in <- coordinator.Stats{Tick: 7, Outcome: "Continue"}

			select {
			case s := <-subA:
				So(s.Tick, ShouldEqual, uint32(7))
			case <-time.After(time.Second):
				t.Fatal("subA never received a snapshot")
			}
			select {
			case s := <-subB:
				So(s.Tick, ShouldEqual, uint32(7))
			case <-time.After(time.Second):
				t.Fatal("subB never received a snapshot")
			}
		})

		Convey("a late subscriber gets the retained latest snapshot", func() {
			in <- coordinator.Stats{Tick: 3, Outcome: "Continue"}
			time.Sleep(20 * time.Millisecond)

			_, latest, hasLatest := h.subscribe()
			So(hasLatest, ShouldBeTrue)
			So(latest.Tick, ShouldEqual, uint32(3))
		})
	})
}

func TestDashboardServesIndexAndWebsocket(t *testing.T) {
	Convey("A Dashboard serving an HTTP mux", t, func() {
		d := New(":0")
		stats := make(chan coordinator.Stats, 1)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go d.hub.run(ctx, stats)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/":
				d.serveIndex(w, r)
			case "/ws":
				d.serveWebsocket(w, r)
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		Convey("GET / renders the match status page", func() {
			resp, err := http.Get(srv.URL + "/")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})

		Convey("a websocket client receives a pushed snapshot", func() {
			wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
			conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			stats <- coordinator.Stats{
				Tick:    42,
				Outcome: "Continue",
				Participants: []coordinator.ParticipantStats{
					{Name: "bot1", Role: "player", State: "InGame", Tick: 42},
				},
			}

			var got coordinator.Stats
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			err = conn.ReadJSON(&got)
			So(err, ShouldBeNil)
			So(got.Tick, ShouldEqual, uint32(42))
			So(got.Participants[0].Name, ShouldEqual, "bot1")
		})
	})
}
