package session

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jawline/New-Worlds/internal/protocol"
	"github.com/jawline/New-Worlds/internal/world"
)

const (
	DefaultMaxQueuedBytes = 4 << 20
	DefaultFlushTimeout   = 5 * time.Second
)

var (
	ErrClosed     = errors.New("connection closed")
	ErrQueueFull  = errors.New("outbound queue full")
	ErrPeerClosed = errors.New("peer closed connection")
)

type State int

const (
	StateConnecting State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// Conn is one peer stream. The exported session fields belong to the server
// goroutine; the outbound queue is safe for concurrent use.
type Conn struct {
	id     uuid.UUID
	remote string
	stream io.ReadWriteCloser
	token  Token

	State        State
	Username     string
	EntityID     world.EntityID
	Zone         int
	AcceptedAt   time.Time
	LastActivity time.Time

	inbound *protocol.Buffer

	mu        sync.Mutex
	queue     [][]byte
	queued    int
	maxQueued int
	closing   bool
	started   bool
	writeErr  error

	flushTimeout time.Duration
	wake         chan struct{}
	done         chan struct{}
	closeOnce    sync.Once
}

type ConnOpt func(*Conn)

func WithMaxQueuedBytes(n int) ConnOpt {
	return func(c *Conn) {
		c.maxQueued = n
	}
}

func WithMaxMessageBytes(n int) ConnOpt {
	return func(c *Conn) {
		c.inbound = protocol.NewBuffer(n)
	}
}

// WithFlushTimeout bounds the final flush after Close when the stream
// supports write deadlines.
func WithFlushTimeout(d time.Duration) ConnOpt {
	return func(c *Conn) {
		c.flushTimeout = d
	}
}

func NewConn(stream io.ReadWriteCloser, remote string, opts ...ConnOpt) *Conn {
	c := &Conn{
		id:           uuid.New(),
		remote:       remote,
		stream:       stream,
		inbound:      protocol.NewBuffer(protocol.DefaultMaxMessageSize),
		maxQueued:    DefaultMaxQueuedBytes,
		flushTimeout: DefaultFlushTimeout,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Conn) ID() uuid.UUID {
	return c.id
}

func (c *Conn) RemoteAddr() string {
	return c.remote
}

// Token returns the slot assigned by the table, or ServerToken before insertion.
func (c *Conn) Token() Token {
	return c.token
}

// Start launches the writer goroutine.
func (c *Conn) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return
	}
	c.started = true
	go c.writeLoop()
}

// Enqueue appends b to the outbound queue. The caller must not modify b afterwards.
func (c *Conn) Enqueue(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return ErrClosed
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	if c.maxQueued > 0 && c.queued+len(b) > c.maxQueued {
		return fmt.Errorf("%d bytes queued: %w", c.queued, ErrQueueFull)
	}
	if len(b) == 0 {
		return nil
	}

	c.queue = append(c.queue, b)
	c.queued += len(b)
	c.signal()

	return nil
}

// FlushOne writes the buffer at the head of the queue and reports whether
// the queue is empty afterwards. A partial write leaves the remainder at the head.
func (c *Conn) FlushOne() (bool, error) {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return true, nil
	}
	head := c.queue[0]
	c.mu.Unlock()

	n, err := c.stream.Write(head)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.queued -= n
	if n >= len(head) {
		c.queue[0] = nil
		c.queue = c.queue[1:]
	} else {
		c.queue[0] = head[n:]
	}

	if err != nil {
		c.writeErr = fmt.Errorf("writing to %s: %w", c.remote, err)
		return len(c.queue) == 0, c.writeErr
	}
	return len(c.queue) == 0, nil
}

// Pending returns the number of queued buffers.
func (c *Conn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Close stops accepting output and asks the writer to flush what is queued
// before closing the stream. It does not block.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		started := c.started
		c.started = true
		c.mu.Unlock()

		if d, ok := c.stream.(writeDeadliner); ok && c.flushTimeout > 0 {
			_ = d.SetWriteDeadline(time.Now().Add(c.flushTimeout))
		}

		if !started {
			go c.writeLoop()
		}

		c.mu.Lock()
		c.signal()
		c.mu.Unlock()
	})
}

// Done is closed once the stream has been closed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the first write error, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeErr
}

// ReadAvailable performs one blocking read from the stream.
func (c *Conn) ReadAvailable(p []byte) (int, error) {
	n, err := c.stream.Read(p)
	if errors.Is(err, io.EOF) {
		return n, ErrPeerClosed
	}
	return n, err
}

// Feed appends received bytes to the inbound buffer and drains complete messages.
func (c *Conn) Feed(b []byte) ([]protocol.Message, error) {
	if err := c.inbound.Append(b); err != nil {
		return nil, err
	}
	return c.inbound.Drain()
}

// signal must be called with mu held.
func (c *Conn) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Conn) writeLoop() {
	defer c.finish()

	for range c.wake {
		for {
			empty, err := c.FlushOne()
			if err != nil {
				return
			}
			if empty {
				break
			}
		}

		c.mu.Lock()
		closing := c.closing
		c.mu.Unlock()
		if closing {
			return
		}
	}
}

func (c *Conn) finish() {
	_ = c.stream.Close()

	c.mu.Lock()
	c.closing = true
	c.queue = nil
	c.queued = 0
	c.mu.Unlock()

	close(c.done)
}
