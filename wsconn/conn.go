package wsconn

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Handler is invoked for the open/message/close events of a
// connection. payload is valid only for the duration of the call for
// message events; it is nil for open and close.
type Handler func(c *Conn, payload []byte, isText bool)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// defaultMaxMessageSize bounds a single inbound message; start
	// applies it and there is no option to change it.
	defaultMaxMessageSize = 1 << 20
)

// Conn owns one upgraded WebSocket stream: a read loop dispatching to
// the message/close callbacks, and a serialized send queue so
// send_message/close are safe to call from any task without
// interleaving frames on the wire.
type Conn struct {
	raw *websocket.Conn

	onMessage Handler
	onClose   Handler

	queue *sendQueue

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(raw *websocket.Conn, onMessage, onClose Handler) *Conn {
	c := &Conn{
		raw:       raw,
		onMessage: onMessage,
		onClose:   onClose,
		closed:    make(chan struct{}),
	}
	c.queue = newSendQueue(raw)
	return c
}

// start wires the keepalive deadlines and launches the send-queue
// writer goroutine. The read loop is driven separately by ReadLoop,
// which the session runs on the connection's own goroutine.
func (c *Conn) start() {
	c.raw.SetReadLimit(defaultMaxMessageSize)
	c.raw.SetReadDeadline(time.Now().Add(pongWait))
	c.raw.SetPongHandler(func(string) error {
		return c.raw.SetReadDeadline(time.Now().Add(pongWait))
	})
	go c.queue.run()
	go c.pinger()
}

// ReadLoop reads one frame at a time, invoking the message handler for
// each, until a transport error or peer close is seen, at which point
// it invokes the close handler exactly once and returns.
func (c *Conn) ReadLoop() {
	defer c.finish()
	for {
		mt, payload, err := c.raw.ReadMessage()
		if err != nil {
			return
		}
		if c.onMessage != nil {
			c.onMessage(c, payload, mt == websocket.TextMessage)
		}
	}
}

func (c *Conn) pinger() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.queue.control(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// SendMessage enqueues payload for serialized delivery. Safe to call
// from any goroutine; enqueue order is preserved across concurrent
// callers.
func (c *Conn) SendMessage(payload []byte, isText bool) {
	mt := websocket.BinaryMessage
	if isText {
		mt = websocket.TextMessage
	}
	c.queue.send(mt, payload)
}

// Close enqueues a close frame and tears down the connection once the
// queue drains. Safe to call from any goroutine, and safe to call more
// than once.
func (c *Conn) Close() {
	c.queue.send(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.finish()
}

func (c *Conn) finish() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.queue.stop()
		c.raw.Close()
		if c.onClose != nil {
			c.onClose(c, nil, false)
		}
	})
}
