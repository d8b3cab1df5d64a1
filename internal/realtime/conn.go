package realtime

import (
	"sync"
	"sync/atomic"
)

// State of a connection.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var connIDCounter atomic.Uint64

// Conn is one client session. Frames are queued on a bounded channel and
// written by the connection's write pump.
type Conn struct {
	id     uint64
	userID string
	send   chan []byte
	done   chan struct{}
	state  atomic.Int32

	closeOnce sync.Once
}

func newConn(userID string, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 256
	}
	return &Conn{
		id:     connIDCounter.Add(1),
		userID: userID,
		send:   make(chan []byte, buffer),
		done:   make(chan struct{}),
	}
}

func (c *Conn) ID() uint64     { return c.id }
func (c *Conn) UserID() string { return c.userID }
func (c *Conn) State() State   { return State(c.state.Load()) }

func (c *Conn) setState(s State) { c.state.Store(int32(s)) }

// enqueue queues a frame without blocking. It reports false when the queue
// is full or the connection is closed.
func (c *Conn) enqueue(frame []byte) bool {
	if c.State() == StateClosed {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close marks the connection closed and signals its pumps. Safe to call
// more than once.
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		close(c.done)
	})
}
