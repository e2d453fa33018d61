package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jawline/New-Worlds/internal/protocol"
	"github.com/jawline/New-Worlds/internal/session"
	"github.com/jawline/New-Worlds/internal/world"
	"github.com/jawline/New-Worlds/internal/zones"
)

const (
	DefaultHandshakeTimeout = 30 * time.Second

	inboxSize      = 256
	readBufferSize = 2048
)

var ErrStopped = errors.New("server stopped")

// ZoneDirectory resolves the zones users can be placed in.
type ZoneDirectory interface {
	Get(id int) (zones.Zone, bool)
	FindByName(name string) (zones.Zone, bool)
	List() []zones.Zone
	StartZone() zones.Zone
}

// Publisher mirrors broadcast frames onto an external bus.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Server owns the session table and the world. Every mutation of either
// happens on the goroutine running Start; other goroutines talk to it
// through the inbox.
type Server struct {
	table   *session.Table
	world   *world.Store
	zones   ZoneDirectory
	notices *Notices
	metrics *Metrics

	mirror        Publisher
	mirrorSubject string

	inbox   chan any
	stopped chan struct{}

	handshakeTimeout time.Duration
	idleTimeout      time.Duration
	maxConnections   int
	maxMessageBytes  int
	maxQueuedBytes   int
	spawn            world.Vec2
	characterSize    world.Vec2
	now              func() time.Time
}

type accepted struct {
	conn *session.Conn
}

type inbound struct {
	conn *session.Conn
	msgs []protocol.Message
	err  error
}

type hangup struct {
	conn *session.Conn
	err  error
}

type announce struct {
	text string
}

type request struct {
	fn   func()
	done chan struct{}
}

func New(m world.Map, dir ZoneDirectory, opts ...ServerOpt) (*Server, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("validating map: %w", err)
	}

	s := &Server{
		zones:            dir,
		inbox:            make(chan any, inboxSize),
		stopped:          make(chan struct{}),
		handshakeTimeout: DefaultHandshakeTimeout,
		maxConnections:   session.DefaultCapacity,
		maxMessageBytes:  protocol.DefaultMaxMessageSize,
		maxQueuedBytes:   session.DefaultMaxQueuedBytes,
		characterSize:    world.Vec2{X: 1, Y: 1},
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.notices == nil {
		n, err := NewNotices(nil)
		if err != nil {
			return nil, fmt.Errorf("building notices: %w", err)
		}
		s.notices = n
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}

	s.table = session.NewTable(s.maxConnections)
	s.world = world.NewStore(m)

	return s, nil
}

// Start runs the owner loop until ctx is canceled, then closes every connection.
func (s *Server) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "server started", "max_connections", s.maxConnections)

	for {
		select {
		case <-ctx.Done():
			s.shutdown(ctx)
			return nil
		case ev := <-s.inbox:
			s.handle(ctx, ev)
		}
	}
}

func (s *Server) shutdown(ctx context.Context) {
	s.table.ForEach(func(tok session.Token, c *session.Conn) {
		c.State = session.StateClosed
		c.Close()
		s.table.Remove(tok)
	})
	close(s.stopped)

	slog.InfoContext(ctx, "server stopped")
}

// Serve runs one accepted stream until it is torn down. Listeners call it
// from the goroutine that accepted the stream.
func (s *Server) Serve(ctx context.Context, stream io.ReadWriteCloser, remote string) error {
	c := session.NewConn(stream, remote,
		session.WithMaxMessageBytes(s.maxMessageBytes),
		session.WithMaxQueuedBytes(s.maxQueuedBytes),
	)
	c.Start()

	if !s.post(ctx, accepted{conn: c}) {
		c.Close()
		<-c.Done()
		return ErrStopped
	}

	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-s.stopped:
			c.Close()
		case <-c.Done():
		}
	}()

	s.readLoop(ctx, c)

	select {
	case <-c.Done():
	case <-s.stopped:
		c.Close()
		<-c.Done()
	}
	return nil
}

func (s *Server) readLoop(ctx context.Context, c *session.Conn) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := c.ReadAvailable(buf)
		if n > 0 {
			msgs, ferr := c.Feed(buf[:n])
			if errors.Is(ferr, protocol.ErrMessageTooLarge) {
				s.post(ctx, hangup{conn: c, err: ferr})
				return
			}
			if len(msgs) > 0 || ferr != nil {
				if !s.post(ctx, inbound{conn: c, msgs: msgs, err: ferr}) {
					return
				}
			}
		}
		if err != nil {
			s.post(ctx, hangup{conn: c, err: err})
			return
		}
	}
}

// post delivers ev to the owner loop. It reports false once the server has
// stopped or ctx is done.
func (s *Server) post(ctx context.Context, ev any) bool {
	select {
	case <-s.stopped:
		return false
	default:
	}

	select {
	case s.inbox <- ev:
		return true
	case <-s.stopped:
		return false
	case <-ctx.Done():
		return false
	}
}

// call runs fn on the owner goroutine and waits for it to finish.
func (s *Server) call(ctx context.Context, fn func()) error {
	r := request{fn: fn, done: make(chan struct{})}
	if !s.post(ctx, r) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrStopped
	}

	select {
	case <-r.done:
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Announce broadcasts text to every active user.
func (s *Server) Announce(ctx context.Context, text string) error {
	if !s.post(ctx, announce{text: text}) {
		return ErrStopped
	}
	return nil
}

// Tick expires connections that stayed too long in the handshake or idle.
func (s *Server) Tick(ctx context.Context) error {
	err := s.call(ctx, func() { s.expire(ctx) })
	if errors.Is(err, ErrStopped) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Connections returns the number of connections in the session table.
func (s *Server) Connections(ctx context.Context) (int, error) {
	var n int
	err := s.call(ctx, func() { n = s.table.Len() })
	return n, err
}

func (s *Server) handle(ctx context.Context, ev any) {
	switch ev := ev.(type) {
	case accepted:
		s.accept(ctx, ev.conn)
	case inbound:
		s.receive(ctx, ev.conn, ev.msgs, ev.err)
	case hangup:
		if live(ev.conn) {
			slog.InfoContext(ctx, "connection closed", "session", ev.conn.ID(), "error", ev.err)
			s.teardown(ctx, ev.conn, disconnectReason(ev.err))
		}
	case announce:
		s.broadcast(ctx, protocol.Say{Text: ev.text})
	case request:
		ev.fn()
		close(ev.done)
	default:
		slog.ErrorContext(ctx, "unknown server event", "type", fmt.Sprintf("%T", ev))
	}
}

func (s *Server) accept(ctx context.Context, c *session.Conn) {
	now := s.now()
	c.AcceptedAt = now
	c.LastActivity = now
	c.Zone = s.zones.StartZone().ID

	tok, err := s.table.Insert(c)
	if err != nil {
		slog.WarnContext(ctx, "refusing connection", "remote", c.RemoteAddr(), "error", err)
		s.metrics.rejected.Inc()
		c.State = session.StateClosed
		s.sendTo(ctx, c, protocol.Kill{Reason: KillServerFull})
		c.Close()
		return
	}

	c.State = session.StateConnecting
	s.metrics.accepted.Inc()
	s.metrics.connections.Set(float64(s.table.Len()))
	slog.InfoContext(ctx, "connection accepted", "session", c.ID(), "token", tok, "remote", c.RemoteAddr())
}

func (s *Server) receive(ctx context.Context, c *session.Conn, msgs []protocol.Message, err error) {
	if !live(c) {
		return
	}
	c.LastActivity = s.now()

	for _, m := range msgs {
		if !live(c) {
			return
		}
		s.metrics.messages.WithLabelValues(string(m.Tag())).Inc()
		s.dispatch(ctx, c, m)
	}

	if err != nil && live(c) {
		s.metrics.decodeErrors.Inc()
		slog.WarnContext(ctx, "dropping undecodable input", "session", c.ID(), "error", err)
	}
}

func (s *Server) dispatch(ctx context.Context, c *session.Conn, m protocol.Message) {
	switch c.State {
	case session.StateConnecting:
		s.handshake(ctx, c, m)
	case session.StateActive:
		s.command(ctx, c, m)
	}
}

// sendTo queues m on one connection and tears the connection down if that fails.
func (s *Server) sendTo(ctx context.Context, c *session.Conn, m protocol.Message) {
	b, err := protocol.Frame(m)
	if err != nil {
		slog.ErrorContext(ctx, "encoding message", "tag", m.Tag(), "error", err)
		return
	}

	if err := c.Enqueue(b); err != nil && live(c) {
		slog.WarnContext(ctx, "queueing message", "session", c.ID(), "error", err)
		s.teardown(ctx, c, "write")
	}
}

// broadcast queues m on every active connection. Connections that cannot
// take it are torn down after the pass.
func (s *Server) broadcast(ctx context.Context, m protocol.Message) {
	b, err := protocol.Encode(m)
	if err != nil {
		slog.ErrorContext(ctx, "encoding broadcast", "tag", m.Tag(), "error", err)
		return
	}
	frame := append(b[:len(b):len(b)], protocol.Delimiter)

	var failed []*session.Conn
	s.table.ForEach(func(_ session.Token, c *session.Conn) {
		if c.State != session.StateActive {
			return
		}
		if err := c.Enqueue(frame); err != nil {
			slog.WarnContext(ctx, "queueing broadcast", "session", c.ID(), "error", err)
			failed = append(failed, c)
		}
	})
	s.metrics.broadcasts.Inc()

	if s.mirror != nil {
		if err := s.mirror.Publish(s.mirrorSubject, b); err != nil {
			slog.WarnContext(ctx, "mirroring broadcast", "subject", s.mirrorSubject, "error", err)
		}
	}

	for _, c := range failed {
		if live(c) {
			s.teardown(ctx, c, "write")
		}
	}
}

func (s *Server) kill(ctx context.Context, c *session.Conn, reason string) {
	slog.InfoContext(ctx, "killing connection", "session", c.ID(), "reason", reason)
	s.sendTo(ctx, c, protocol.Kill{Reason: reason})
	if live(c) {
		s.teardown(ctx, c, reason)
	}
}

// teardown closes c, frees its token and tells everyone else it is gone.
func (s *Server) teardown(ctx context.Context, c *session.Conn, reason string) {
	wasActive := c.State == session.StateActive

	c.State = session.StateClosing
	c.Close()
	s.table.Remove(c.Token())
	c.State = session.StateClosed

	s.metrics.disconnects.WithLabelValues(reason).Inc()
	s.metrics.connections.Set(float64(s.table.Len()))

	if wasActive {
		s.notify(ctx, NoticeLeft, NoticeData{Name: c.Username})
	}
	if c.EntityID != world.NoEntity {
		id := c.EntityID
		c.EntityID = world.NoEntity
		if s.world.Remove(id) {
			s.metrics.entities.Set(float64(s.world.Len()))
			s.broadcast(ctx, protocol.RemoveEntity{ID: id})
		}
	}
}

func (s *Server) expire(ctx context.Context) {
	now := s.now()

	type expiry struct {
		conn   *session.Conn
		reason string
	}
	var expired []expiry

	s.table.ForEach(func(_ session.Token, c *session.Conn) {
		switch {
		case c.State == session.StateConnecting && s.handshakeTimeout > 0 && now.Sub(c.AcceptedAt) > s.handshakeTimeout:
			expired = append(expired, expiry{conn: c, reason: KillTimedOut})
		case c.State == session.StateActive && s.idleTimeout > 0 && now.Sub(c.LastActivity) > s.idleTimeout:
			expired = append(expired, expiry{conn: c, reason: KillIdle})
		}
	})

	for _, e := range expired {
		if live(e.conn) {
			s.kill(ctx, e.conn, e.reason)
		}
	}
}

// live reports whether c is still in the table and accepting events.
func live(c *session.Conn) bool {
	return c.Token() != session.ServerToken && c.State < session.StateClosing
}

func disconnectReason(err error) string {
	switch {
	case errors.Is(err, session.ErrPeerClosed):
		return "peer closed"
	case errors.Is(err, protocol.ErrMessageTooLarge):
		return "message too large"
	default:
		return "read"
	}
}
