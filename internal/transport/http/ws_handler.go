package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ChristianSeip/SimpleChat-Server/internal/chat"
)

// sendQueueSize bounds the per-connection outbound buffer. A member that
// falls further behind than this starts losing frames instead of stalling
// the fan-out.
const sendQueueSize = 16

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("send queue full")
)

// WSHandler upgrades HTTP connections and bridges each socket to the event
// router through a per-connection session context.
type WSHandler struct {
	router *chat.Router
	log    *zerolog.Logger
}

// NewWSHandler builds the WebSocket endpoint handler.
func NewWSHandler(router *chat.Router, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{router: router, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	connID := uuid.NewString()
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	wc := newWSConn(conn)
	defer wc.Close()
	go wc.writeLoop(ctx)

	h.log.Debug().Str("conn_id", connID).Msg("ws connection open")

	// One session context per connection; the router threads it through
	// every dispatched event. An abrupt close ends the read loop here and
	// the reaper evicts any remaining membership.
	sess := chat.NewSession(wc)
	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				h.log.Debug().Str("conn_id", connID).Msg("ws connection closed")
			} else {
				h.log.Debug().Err(err).Str("conn_id", connID).Msg("ws read ended")
			}
			return
		}
		h.router.Dispatch(ctx, sess, frame)
	}
}

// wsConn adapts a websocket connection to chat.Conn. Writes go through a
// buffered queue drained by a dedicated goroutine, so no broadcast ever
// blocks on this connection's I/O.
type wsConn struct {
	conn   *websocket.Conn
	sendCh chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   conn,
		sendCh: make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// Send enqueues one frame. It fails when the connection is closed or the
// queue is full, and never blocks on the socket.
func (c *wsConn) Send(payload []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.sendCh <- payload:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return errSlowConsumer
	}
}

// IsOpen reports whether the connection can still be written to.
func (c *wsConn) IsOpen() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close tears the connection down. Safe to call from any goroutine, any
// number of times.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close(websocket.StatusNormalClosure, "closing")
	})
	return nil
}

func (c *wsConn) writeLoop(ctx context.Context) {
	for {
		select {
		case payload := <-c.sendCh:
			if err := c.conn.Write(ctx, websocket.MessageText, payload); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			_ = c.Close()
			return
		}
	}
}
