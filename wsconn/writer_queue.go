package wsconn

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type outMsg struct {
	mt   int
	data []byte
}

// sendQueue serializes concurrent SendMessage/Close calls onto a
// single writer goroutine so frames are never interleaved on the
// wire. Enqueue order is preserved; the queue head is removed only
// once its write has completed successfully, matching
// send_message/close's "no reordering of enqueues is observable"
// contract. Close frames are enqueued here like data messages. Pings
// use gorilla/websocket's own WriteControl, which the library
// documents as safe to call concurrently with WriteMessage, so pings
// bypass this queue entirely rather than contending with it.
type sendQueue struct {
	raw *websocket.Conn

	mu     sync.Mutex
	cond   *sync.Cond
	items  []outMsg
	closed bool
}

func newSendQueue(raw *websocket.Conn) *sendQueue {
	q := &sendQueue{raw: raw}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *sendQueue) send(mt int, data []byte) {
	q.mu.Lock()
	if !q.closed {
		q.items = append(q.items, outMsg{mt: mt, data: data})
	}
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *sendQueue) control(mt int, data []byte, deadline time.Time) error {
	return q.raw.WriteControl(mt, data, deadline)
}

func (q *sendQueue) stop() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// run is the dedicated writer goroutine. It blocks for work, writes
// the head item with its deadline applied, and only then removes it
// from the queue.
func (q *sendQueue) run() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.items) == 0 {
			return
		}
		head := q.items[0]
		q.mu.Unlock()

		q.raw.SetWriteDeadline(time.Now().Add(writeWait))
		err := q.raw.WriteMessage(head.mt, head.data)

		q.mu.Lock()
		if err != nil {
			q.closed = true
			return
		}
		q.items = q.items[1:]
	}
}
