package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const DefaultWebSocketPath = "/ws"

// WebSocketListener carries the protocol byte stream in websocket text frames.
type WebSocketListener struct {
	host     string
	port     uint16
	path     string
	cm       *ConnectionManager
	upgrader websocket.Upgrader

	ready chan struct{}
	addr  net.Addr
}

func NewWebSocketListener(host string, port uint16, path string, cm *ConnectionManager) *WebSocketListener {
	if path == "" {
		path = DefaultWebSocketPath
	}
	return &WebSocketListener{
		host: host,
		port: port,
		path: path,
		cm:   cm,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ready: make(chan struct{}),
	}
}

func (l *WebSocketListener) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", net.JoinHostPort(l.host, fmt.Sprint(l.port)))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", l.port, err)
	}
	l.addr = listener.Addr()
	close(l.ready)

	connCtx, cancelConns := context.WithCancel(context.Background())
	defer cancelConns()

	r := chi.NewRouter()
	r.Get(l.path, func(w http.ResponseWriter, req *http.Request) {
		conn, err := l.upgrader.Upgrade(w, req, nil)
		if err != nil {
			slog.WarnContext(ctx, "upgrading websocket", "remote", req.RemoteAddr, "error", err)
			return
		}

		l.cm.AcceptConnection(connCtx, newWebSocketStream(conn), req.RemoteAddr)
	})

	svr := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svr.Shutdown(shutdownCtx)
		cancelConns()
	}()

	slog.InfoContext(ctx, "listening for websocket", "addr", l.addr, "path", l.path)

	err = svr.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving websocket on port %d: %w", l.port, err)
	}
	return nil
}

func (l *WebSocketListener) Ready() <-chan struct{} {
	return l.ready
}

// Addr returns the bound address. It is nil until Ready is closed.
func (l *WebSocketListener) Addr() net.Addr {
	select {
	case <-l.ready:
		return l.addr
	default:
		return nil
	}
}

// webSocketStream adapts a websocket to a byte stream. Each Write is sent as
// one text frame; reads continue across frame boundaries.
type webSocketStream struct {
	conn   *websocket.Conn
	reader io.Reader
}

func newWebSocketStream(conn *websocket.Conn) *webSocketStream {
	return &webSocketStream{conn: conn}
}

func (s *webSocketStream) Read(p []byte) (int, error) {
	for {
		if s.reader == nil {
			_, r, err := s.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			s.reader = r
		}

		n, err := s.reader.Read(p)
		if errors.Is(err, io.EOF) {
			s.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *webSocketStream) Write(p []byte) (int, error) {
	if err := s.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *webSocketStream) SetWriteDeadline(t time.Time) error {
	return s.conn.SetWriteDeadline(t)
}

func (s *webSocketStream) Close() error {
	return s.conn.Close()
}
