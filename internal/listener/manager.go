package listener

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// Acceptor takes ownership of an accepted stream and serves it until it closes.
type Acceptor interface {
	Serve(ctx context.Context, stream io.ReadWriteCloser, remote string) error
}

// ConnectionManager hands streams from every listener to one Acceptor.
type ConnectionManager struct {
	acceptor Acceptor
}

func NewConnectionManager(a Acceptor) *ConnectionManager {
	return &ConnectionManager{
		acceptor: a,
	}
}

// AcceptConnection blocks until the stream has been served.
func (m *ConnectionManager) AcceptConnection(ctx context.Context, stream io.ReadWriteCloser, remote string) {
	err := m.acceptor.Serve(ctx, stream, remote)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.WarnContext(ctx, "serving connection", "remote", remote, "error", err)
	}
}
