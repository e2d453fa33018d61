package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

const DefaultTickInterval = time.Second

type Config struct {
	TickInterval string           `json:"tick_interval"`
	Listeners    []ListenerConfig `json:"listeners"`
	Server       ServerConfig     `json:"server"`
	Zones        ZonesConfig      `json:"zones"`
	Nats         NatsConfig       `json:"nats"`
	Metrics      MetricsConfig    `json:"metrics"`
	Logging      LoggingConfig    `json:"logging"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	if c.TickInterval != "" {
		d, err := time.ParseDuration(c.TickInterval)
		if err != nil {
			el.Add(fmt.Errorf("parsing tick_interval: %w", err))
		} else if d <= 0 {
			el.Add(fmt.Errorf("tick_interval must be positive"))
		}
	}

	for i, l := range c.Listeners {
		err := l.validate()
		if err != nil {
			el.Add(fmt.Errorf("listener %d: %w", i, err))
		}
	}

	el.Add(wrap("server", c.Server.validate()))
	el.Add(wrap("zones", c.Zones.validate()))
	el.Add(wrap("nats", c.Nats.validate()))
	el.Add(wrap("metrics", c.Metrics.validate()))
	el.Add(wrap("logging", c.Logging.validate()))

	return el.Err()
}

func (c *Config) tickInterval() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil || d <= 0 {
		return DefaultTickInterval
	}
	return d
}

// listeners returns the configured listeners, or a single tcp listener.
func (c *Config) listeners() []ListenerConfig {
	if len(c.Listeners) == 0 {
		return []ListenerConfig{{Protocol: ListenerTypeTCP, Port: DefaultPort}}
	}
	return c.Listeners
}

func wrap(section string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", section, err)
}

// parseOptionalDuration parses s, treating an empty string as zero.
func parseOptionalDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return d, nil
}
