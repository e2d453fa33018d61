package server

import (
	"time"

	"github.com/jawline/New-Worlds/internal/world"
)

type ServerOpt func(*Server)

// WithHandshakeTimeout sets how long a connection may stay unauthenticated.
// Zero disables the check.
func WithHandshakeTimeout(d time.Duration) ServerOpt {
	return func(s *Server) {
		s.handshakeTimeout = d
	}
}

// WithIdleTimeout sets how long an active connection may stay silent.
// Zero disables the check.
func WithIdleTimeout(d time.Duration) ServerOpt {
	return func(s *Server) {
		s.idleTimeout = d
	}
}

func WithMaxConnections(n int) ServerOpt {
	return func(s *Server) {
		s.maxConnections = n
	}
}

func WithMaxMessageBytes(n int) ServerOpt {
	return func(s *Server) {
		s.maxMessageBytes = n
	}
}

func WithMaxQueuedBytes(n int) ServerOpt {
	return func(s *Server) {
		s.maxQueuedBytes = n
	}
}

// WithSpawnPoint sets where new characters are placed.
func WithSpawnPoint(p world.Vec2) ServerOpt {
	return func(s *Server) {
		s.spawn = p
	}
}

func WithNotices(n *Notices) ServerOpt {
	return func(s *Server) {
		s.notices = n
	}
}

func WithMetrics(m *Metrics) ServerOpt {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMirror publishes every broadcast frame to subject.
func WithMirror(p Publisher, subject string) ServerOpt {
	return func(s *Server) {
		s.mirror = p
		s.mirrorSubject = subject
	}
}

// WithClock replaces the time source used for timeouts.
func WithClock(now func() time.Time) ServerOpt {
	return func(s *Server) {
		s.now = now
	}
}
