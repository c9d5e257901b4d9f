// Package transport implements the point-to-point websocket channel
// carrying one request/response pair at a time plus periodic observation
// polls (spec.md §4.2), and the codec that frames protocol.Envelope values
// as length-delimited binary messages.
package transport

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"sc2runtime/protocol"
)

// frameHeaderSize is the 4-byte big-endian length prefix described in
// spec.md §4.2 ("length-delimited binary structures"). The engine's actual
// wire schema is out of scope (spec.md §1); gob is used to serialize the
// Envelope because no third-party binary/proto codec appears as a primary
// dependency anywhere in the retrieval pack (see DESIGN.md).
const frameHeaderSize = 4

// maxFrameSize guards against a corrupt length prefix turning one bad frame
// into an unbounded allocation.
const maxFrameSize = 64 << 20

func init() {
	gob.Register(protocol.CreateGameRequest{})
	gob.Register(protocol.CreateGameResponse{})
	gob.Register(protocol.JoinGameRequest{})
	gob.Register(protocol.JoinGameResponse{})
	gob.Register(protocol.StartReplayRequest{})
	gob.Register(protocol.StartReplayResponse{})
	gob.Register(protocol.ReplayInfoRequest{})
	gob.Register(protocol.ReplayInfoResponse{})
	gob.Register(protocol.ObservationRequest{})
	gob.Register(protocol.RawObservation{})
	gob.Register(protocol.ActionRequest{})
	gob.Register(protocol.ActionResponse{})
	gob.Register(protocol.ObserverActionRequest{})
	gob.Register(protocol.ObserverActionResponse{})
	gob.Register(protocol.QueryRequest{})
	gob.Register(protocol.QueryResponse{})
	gob.Register(protocol.DebugRequest{})
	gob.Register(protocol.DebugResponse{})
	gob.Register(protocol.LeaveGameRequest{})
	gob.Register(protocol.LeaveGameResponse{})
	gob.Register(protocol.QuitRequest{})
	gob.Register(protocol.QuitResponse{})
	gob.Register(protocol.PingRequest{})
	gob.Register(protocol.PingResponse{})
	gob.Register(protocol.DataRequest{})
	gob.Register(protocol.DataResponse{})
}

// encodeFrame serializes an Envelope into a length-prefixed byte slice
// suitable for a single websocket binary message.
func encodeFrame(env protocol.Envelope) ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(env); err != nil {
		return nil, fmt.Errorf("transport: encode envelope: %w", err)
	}

	frame := make([]byte, frameHeaderSize+payload.Len())
	binary.BigEndian.PutUint32(frame[:frameHeaderSize], uint32(payload.Len()))
	copy(frame[frameHeaderSize:], payload.Bytes())
	return frame, nil
}

// decodeFrame is the inverse of encodeFrame. gorilla/websocket already
// delivers one message per ReadMessage call, so the length prefix here
// mainly documents and enforces the wire contract (spec.md's "length-
// delimited" framing) rather than doing reassembly across reads; it also
// lets decodeFrame be reused if frames are ever read off a raw net.Conn.
func decodeFrame(frame []byte) (protocol.Envelope, error) {
	if len(frame) < frameHeaderSize {
		return protocol.Envelope{}, fmt.Errorf("transport: frame too short: %d bytes", len(frame))
	}
	size := binary.BigEndian.Uint32(frame[:frameHeaderSize])
	if size > maxFrameSize {
		return protocol.Envelope{}, fmt.Errorf("transport: frame exceeds max size: %d bytes", size)
	}
	body := frame[frameHeaderSize:]
	if uint32(len(body)) != size {
		return protocol.Envelope{}, fmt.Errorf("transport: frame length mismatch: header says %d, got %d", size, len(body))
	}

	var env protocol.Envelope
	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(&env); err != nil {
		// Unknown/forward-incompatible payloads decode the envelope's
		// scalar fields fine via gob's field matching; a genuinely
		// undecodable body still surfaces as an error here since gob has
		// no raw "Unknown(bytes)" concept the way a hand-rolled enum would.
		return protocol.Envelope{}, fmt.Errorf("transport: decode envelope: %w", err)
	}
	return env, nil
}
