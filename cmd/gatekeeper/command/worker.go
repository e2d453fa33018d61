package command

import (
	"fmt"
	"log/slog"

	"github.com/jawline/New-Worlds/internal/driver"
	"github.com/jawline/New-Worlds/internal/listener"
	"github.com/jawline/New-Worlds/internal/messaging"
	"github.com/jawline/New-Worlds/internal/server"
	"github.com/pixil98/go-service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	logger, err := cfg.Logging.BuildLogger()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	slog.SetDefault(logger)

	dir, err := cfg.Zones.BuildDirectory()
	if err != nil {
		return nil, fmt.Errorf("loading zones: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	opts, err := cfg.Server.serverOpts()
	if err != nil {
		return nil, fmt.Errorf("configuring server: %w", err)
	}
	opts = append(opts, server.WithMetrics(server.NewMetrics(reg)))

	workers := service.WorkerList{}

	var bus *messaging.NatsServer
	if cfg.Nats.Enabled {
		bus, err = cfg.Nats.buildNatsServer()
		if err != nil {
			return nil, fmt.Errorf("creating nats server: %w", err)
		}
		opts = append(opts, server.WithMirror(bus, cfg.Nats.mirrorSubject()))
		workers["nats"] = bus
	}

	srv, err := server.New(cfg.Server.buildMap(), dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	workers["server"] = srv

	if bus != nil {
		workers["bridge"] = messaging.NewBridge(bus, srv, cfg.Nats.announceSubject())
	}

	// Create Listeners
	cm := listener.NewConnectionManager(srv)
	listeners := service.WorkerList{}
	for i, l := range cfg.listeners() {
		w, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d-%s", i, l.Protocol)] = w
	}
	workers["listeners"] = &listeners

	if ml := cfg.Metrics.buildListener(reg); ml != nil {
		workers["metrics"] = ml
	}

	// Setup the driver
	workers["driver"] = driver.NewDriver([]driver.Ticker{srv}, driver.WithTickLength(cfg.tickInterval()))

	return workers, nil
}
