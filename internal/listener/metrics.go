package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsListener serves prometheus metrics at /metrics.
type MetricsListener struct {
	port     uint16
	gatherer prometheus.Gatherer
}

func NewMetricsListener(port uint16, gatherer prometheus.Gatherer) *MetricsListener {
	return &MetricsListener{
		port:     port,
		gatherer: gatherer,
	}
}

func (l *MetricsListener) Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(l.gatherer, promhttp.HandlerOpts{}))
	return r
}

func (l *MetricsListener) Start(ctx context.Context) error {
	svr := &http.Server{
		Addr:              fmt.Sprintf(":%d", l.port),
		Handler:           l.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svr.Shutdown(shutdownCtx)
	}()

	slog.InfoContext(ctx, "serving metrics", "port", l.port)

	err := svr.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving metrics on port %d: %w", l.port, err)
	}
	return nil
}
