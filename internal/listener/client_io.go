package listener

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol"
	"github.com/stagehand/remote/internal/protocol/clientmsg"
)

const (
	// writeWait bounds every write, including pings and close frames.
	writeWait = 10 * time.Second

	// pongWait is how long a remote may stay silent before it is dropped.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = 30 * time.Second

	// maxFrameSize is the largest inbound frame accepted.
	maxFrameSize = 64 * 1024
)

// client is one connected remote. It implements registry.Conn.
type client struct {
	listener *Listener
	conn     *websocket.Conn
	info     protocol.ClientInfo

	// send carries encoded frames to writePump.
	send chan []byte

	// done is closed exactly once to shut the client down.
	done      chan struct{}
	closeOnce sync.Once

	// limiter and limited are only touched by readPump.
	limiter *rate.Limiter
	limited bool
}

// Send queues data without blocking. A full buffer drops the frame.
func (c *client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		c.listener.log.Warn().
			Str(logging.FieldClientID, c.info.ID).
			Msg("client send buffer full, dropping message")
		return false
	}
}

// Open reports whether Close has not been called yet.
func (c *client) Open() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close signals both pumps to exit. Safe to call from any goroutine, any
// number of times. The send channel is never closed, so senders cannot panic.
func (c *client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump sends queued frames to the socket and pings it periodically.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping"))
			return

		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.listener.log.Debug().Err(err).Str(logging.FieldClientID, c.info.ID).Msg("write error")
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// readPump reads frames until the socket closes or fails. Errors and clean
// closes are handled the same way: the client is removed and reported once.
func (c *client) readPump() {
	id := c.info.ID
	defer func() {
		c.Close()
		c.listener.post(func() { c.listener.removeClient(id) })
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				c.listener.log.Debug().Err(err).Str(logging.FieldClientID, id).Msg("read error")
			}
			return
		}

		// Any frame proves the remote is alive.
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleFrame(data)
	}
}

// handleFrame decodes one frame and posts it to the loop. Bad frames never
// close the connection.
func (c *client) handleFrame(data []byte) {
	l := c.listener
	id := c.info.ID

	if !c.limiter.Allow() {
		// Tell the remote once per burst, then drop silently.
		if !c.limited {
			c.limited = true
			msg := apperrors.RateLimited().Message
			l.post(func() { l.sendTo(id, clientmsg.Error{Message: msg}) })
		}
		return
	}
	c.limited = false

	req, err := clientmsg.DecodeRequest(data)
	if err != nil {
		var unknown *protocol.UnknownTypeError
		if errors.As(err, &unknown) {
			msg := apperrors.UnknownType(unknown.Type).Message
			l.log.Debug().Str(logging.FieldClientID, id).Str(logging.FieldMessageType, unknown.Type).Msg("unknown message type")
			l.post(func() { l.sendTo(id, clientmsg.Error{Message: msg}) })
			return
		}
		l.log.Warn().Err(err).Str(logging.FieldClientID, id).Msg("dropping malformed frame")
		return
	}

	l.post(func() { clientmsg.DispatchRequest(req, requestRouter{l: l, clientID: id}) })
}
