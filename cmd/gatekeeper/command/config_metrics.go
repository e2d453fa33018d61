package command

import (
	"github.com/jawline/New-Worlds/internal/listener"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsConfig enables the /metrics endpoint when Port is set.
type MetricsConfig struct {
	Port uint16 `json:"port"`
}

func (c *MetricsConfig) validate() error {
	return nil
}

func (c *MetricsConfig) buildListener(g prometheus.Gatherer) *listener.MetricsListener {
	if c.Port == 0 {
		return nil
	}
	return listener.NewMetricsListener(c.Port, g)
}
