package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"sc2runtime/protocol"
)

var testUpgrader = websocket.Upgrader{}

// echoEngine answers every request with an envelope that mirrors the
// request's RequestID and Kind and carries a fixed PingResponse body,
// standing in for a real game engine.
func echoEngine(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			env, err := decodeFrame(raw)
			if err != nil {
				return
			}
			resp := protocol.Envelope{RequestID: env.RequestID, Kind: env.Kind, Body: protocol.PingResponse{GameVersion: "test"}}
			frame, err := encodeFrame(resp)
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectAndCallRoundTrip(t *testing.T) {
	Convey("Connect dials a live engine and Call round-trips one request", t, func() {
		srv := echoEngine(t)
		defer srv.Close()

		tr, err := Connect(context.Background(), wsURL(srv), DefaultRetryPolicy())
		So(err, ShouldBeNil)
		defer tr.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		resp, err := tr.Call(ctx, protocol.KindPing, protocol.PingRequest{})
		So(err, ShouldBeNil)
		pr, ok := resp.(protocol.PingResponse)
		So(ok, ShouldBeTrue)
		So(pr.GameVersion, ShouldEqual, "test")
	})

	Convey("Close is idempotent", t, func() {
		srv := echoEngine(t)
		defer srv.Close()

		tr, err := Connect(context.Background(), wsURL(srv), DefaultRetryPolicy())
		So(err, ShouldBeNil)
		So(tr.Close(), ShouldBeNil)
		So(tr.Close(), ShouldBeNil)
		So(tr.Closed(), ShouldBeTrue)
	})

	Convey("Calling a closed transport fails fast", t, func() {
		srv := echoEngine(t)
		defer srv.Close()

		tr, err := Connect(context.Background(), wsURL(srv), DefaultRetryPolicy())
		So(err, ShouldBeNil)
		So(tr.Close(), ShouldBeNil)

		_, err = tr.Call(context.Background(), protocol.KindPing, protocol.PingRequest{})
		So(err, ShouldEqual, ErrClosed)
	})
}

func TestConnectFailsAfterDeadline(t *testing.T) {
	Convey("Connect gives up once retry.Deadline elapses against a dead port", t, func() {
		_, err := Connect(context.Background(), "ws://127.0.0.1:1/sc2api", RetryPolicy{
			InitialBackoff: 10 * time.Millisecond,
			MaxBackoff:     20 * time.Millisecond,
			Deadline:       100 * time.Millisecond,
		})
		So(err, ShouldNotBeNil)
	})
}
