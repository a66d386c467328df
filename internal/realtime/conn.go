package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/offbeatfm/offbeat/internal/metrics"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 16
)

// ErrSendBufferFull is returned by Send when a client cannot keep up with
// fan-out. The hub treats it as a signal to evict the slow client.
var ErrSendBufferFull = errors.New("send buffer full")

// Conn is the connection abstraction the hub fans out over. The transport
// layer supplies implementations; the hub never touches sockets directly.
type Conn interface {
	ID() string
	Send(data []byte) error
	Close()
}

// WSConn adapts a gorilla websocket connection to Conn with a buffered
// writer goroutine, so a stalled client never blocks fan-out to others.
type WSConn struct {
	id       string
	conn     *websocket.Conn
	clock    clockwork.Clock
	sendCh   chan []byte
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWSConn wraps conn and starts its writer goroutine.
func NewWSConn(conn *websocket.Conn, clock clockwork.Clock) *WSConn {
	c := &WSConn{
		id:     uuid.NewString(),
		conn:   conn,
		clock:  clock,
		sendCh: make(chan []byte, messageBufferSize),
		done:   make(chan struct{}),
	}
	c.configurePongHandler()
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *WSConn) ID() string { return c.id }

// Send enqueues data for delivery without blocking. Delivery is best-effort:
// a full buffer returns ErrSendBufferFull, a closed connection drops the
// message silently.
func (c *WSConn) Send(data []byte) error {
	select {
	case <-c.done:
		return nil
	default:
	}

	select {
	case c.sendCh <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close sends a close frame and tears down the connection. Idempotent.
func (c *WSConn) Close() {
	c.stopOnce.Do(func() {
		close(c.done)

		// Wait for the writer goroutine to exit before writing the close
		// frame, preventing concurrent writes to the websocket.
		c.wg.Wait()

		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.updateWriteDeadline()
		_ = c.conn.WriteMessage(websocket.CloseMessage, closeMsg)
		_ = c.conn.Close()
	})
}

func (c *WSConn) run() {
	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.wg.Done()

	for {
		select {
		case msg := <-c.sendCh:
			c.updateWriteDeadline()
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.Chan():
			c.updateWriteDeadline()
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.WebSocketPingFailures.Inc()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *WSConn) configurePongHandler() {
	c.updateReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.updateReadDeadline()
		return nil
	})
}

func (c *WSConn) updateWriteDeadline() {
	_ = c.conn.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
}

func (c *WSConn) updateReadDeadline() {
	_ = c.conn.SetReadDeadline(c.clock.Now().Add(pongDeadline))
}
