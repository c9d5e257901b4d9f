package transport

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"sc2runtime/logging"
	"sc2runtime/protocol"
)

var (
	// ErrBusy is reserved for callers that choose not to block on a
	// concurrent Call; the core itself always blocks instead (spec.md §4.2).
	ErrBusy              = errors.New("transport: busy")
	ErrClosed            = errors.New("transport: closed")
	ErrConnectionRefused = errors.New("transport: connection refused")
	ErrResponseMismatch  = errors.New("transport: response did not match request")
)

// RetryPolicy bounds Connect's exponential backoff (spec.md §4.2: "repeatedly
// attempts to open the websocket with exponential backoff up to a deadline").
type RetryPolicy struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Deadline       time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Deadline:       30 * time.Second,
	}
}

// Transport is a single-flight request/response channel over one websocket
// connection (spec.md §4.2). Requests are not pipelined: Call holds a mutex
// for the duration of the round trip, so a concurrent Call blocks rather
// than racing frames on the wire.
type Transport struct {
	conn      *websocket.Conn
	callMu    sync.Mutex
	nextReqID uint64
	closed    atomic.Bool
}

// Connect opens a websocket to url, retrying with exponential backoff until
// either the dial succeeds or retry.Deadline elapses. ConnectionRefused
// remains recoverable within that window (spec.md §4.2, §7).
func Connect(ctx context.Context, url string, retry RetryPolicy) (*Transport, error) {
	log := logging.With("transport")
	deadline := time.Now().Add(retry.Deadline)
	backoff := retry.InitialBackoff

	var lastErr error
	for attempt := 1; ; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
		cancel()
		if err == nil {
			log.Debug().Str("url", url).Int("attempt", attempt).Msg("connected")
			return &Transport{conn: conn}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("transport: connect cancelled: %w", ctx.Err())
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s: %v", ErrConnectionRefused, url, lastErr)
		}

		jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return nil, fmt.Errorf("transport: connect cancelled: %w", ctx.Err())
		}
		backoff *= 2
		if backoff > retry.MaxBackoff {
			backoff = retry.MaxBackoff
		}
	}
}

// Call sends a single request and blocks for its paired response, bounded
// by ctx's deadline (spec.md §5: every protocol call carries a deadline,
// default 10s). A concurrent Call on the same Transport blocks until the
// first completes (single-flight, spec.md §4.2).
func (t *Transport) Call(ctx context.Context, kind protocol.MessageKind, body any) (any, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}

	t.callMu.Lock()
	defer t.callMu.Unlock()

	reqID := atomic.AddUint64(&t.nextReqID, 1)
	req := protocol.Envelope{RequestID: reqID, Kind: kind, Body: body}

	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(deadline)
		_ = t.conn.SetReadDeadline(deadline)
	}

	frame, err := encodeFrame(req)
	if err != nil {
		return nil, err
	}
	if err := t.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return nil, fmt.Errorf("transport: send failure: %w", err)
	}

	_, raw, err := t.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("transport: unexpected close: %w", err)
	}

	resp, err := decodeFrame(raw)
	if err != nil {
		return nil, fmt.Errorf("transport: frame error: %w", err)
	}
	if resp.RequestID != reqID {
		return nil, fmt.Errorf("%w: want %d got %d", ErrResponseMismatch, reqID, resp.RequestID)
	}
	if resp.Err != "" {
		return nil, fmt.Errorf("transport: engine error: %s", resp.Err)
	}
	return resp.Body, nil
}

// Close initiates a graceful close; idempotent (spec.md §4.2, §5 cleanup
// is idempotent and safe to call repeatedly).
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = t.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}

func (t *Transport) Closed() bool { return t.closed.Load() }
