package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

// TcpListener accepts raw protocol connections.
type TcpListener struct {
	host string
	port uint16
	cm   *ConnectionManager

	ready chan struct{}
	addr  net.Addr
}

func NewTcpListener(host string, port uint16, cm *ConnectionManager) *TcpListener {
	return &TcpListener{
		host:  host,
		port:  port,
		cm:    cm,
		ready: make(chan struct{}),
	}
}

func (l *TcpListener) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", net.JoinHostPort(l.host, fmt.Sprint(l.port)))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", l.port, err)
	}
	l.addr = listener.Addr()
	close(l.ready)

	slog.InfoContext(ctx, "listening for tcp", "addr", l.addr)

	connCtx, cancelConns := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	// Close the listener when the parent context is canceled
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			cancelConns()
			wg.Wait()

			// Check if shutdown was requested
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return fmt.Errorf("accepting tcp connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.cm.AcceptConnection(connCtx, conn, conn.RemoteAddr().String())
		}()
	}
}

// Ready is closed once the listener is bound.
func (l *TcpListener) Ready() <-chan struct{} {
	return l.ready
}

// Addr returns the bound address. It is nil until Ready is closed.
func (l *TcpListener) Addr() net.Addr {
	select {
	case <-l.ready:
		return l.addr
	default:
		return nil
	}
}
