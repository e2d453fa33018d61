package command

import (
	"fmt"

	"github.com/jawline/New-Worlds/internal/server"
	"github.com/jawline/New-Worlds/internal/world"
	"github.com/pixil98/go-errors"
)

const (
	DefaultMapWidth  = 16
	DefaultMapHeight = 16
)

type ServerConfig struct {
	MaxConnections   int               `json:"max_connections"`
	HandshakeTimeout string            `json:"handshake_timeout"`
	IdleTimeout      string            `json:"idle_timeout"`
	MaxMessageBytes  int               `json:"max_message_bytes"`
	MaxQueuedBytes   int               `json:"max_queued_bytes"`
	Spawn            world.Vec2        `json:"spawn"`
	Map              MapConfig         `json:"map"`
	Notices          map[string]string `json:"notices"`
}

type MapConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (c *ServerConfig) validate() error {
	el := errors.NewErrorList()

	if c.MaxConnections < 0 {
		el.Add(fmt.Errorf("max_connections must not be negative"))
	}
	if c.MaxMessageBytes < 0 {
		el.Add(fmt.Errorf("max_message_bytes must not be negative"))
	}
	if c.MaxQueuedBytes < 0 {
		el.Add(fmt.Errorf("max_queued_bytes must not be negative"))
	}
	if c.Map.Width < 0 || c.Map.Height < 0 {
		el.Add(fmt.Errorf("map dimensions must not be negative"))
	}

	_, err := parseOptionalDuration("handshake_timeout", c.HandshakeTimeout)
	el.Add(err)
	_, err = parseOptionalDuration("idle_timeout", c.IdleTimeout)
	el.Add(err)

	m := c.buildMap()
	if !m.Contains(c.Spawn) {
		el.Add(fmt.Errorf("spawn point is outside the map"))
	}

	_, err = server.NewNotices(c.Notices)
	el.Add(err)

	return el.Err()
}

func (c *ServerConfig) buildMap() world.Map {
	w, h := c.Map.Width, c.Map.Height
	if w == 0 {
		w = DefaultMapWidth
	}
	if h == 0 {
		h = DefaultMapHeight
	}
	return world.NewMap(w, h)
}

func (c *ServerConfig) serverOpts() ([]server.ServerOpt, error) {
	opts := []server.ServerOpt{
		server.WithSpawnPoint(c.Spawn),
	}

	if c.HandshakeTimeout != "" {
		d, err := parseOptionalDuration("handshake_timeout", c.HandshakeTimeout)
		if err != nil {
			return nil, err
		}
		opts = append(opts, server.WithHandshakeTimeout(d))
	}
	idle, err := parseOptionalDuration("idle_timeout", c.IdleTimeout)
	if err != nil {
		return nil, err
	}
	opts = append(opts, server.WithIdleTimeout(idle))

	if c.MaxConnections > 0 {
		opts = append(opts, server.WithMaxConnections(c.MaxConnections))
	}
	if c.MaxMessageBytes > 0 {
		opts = append(opts, server.WithMaxMessageBytes(c.MaxMessageBytes))
	}
	if c.MaxQueuedBytes > 0 {
		opts = append(opts, server.WithMaxQueuedBytes(c.MaxQueuedBytes))
	}

	notices, err := server.NewNotices(c.Notices)
	if err != nil {
		return nil, fmt.Errorf("building notices: %w", err)
	}
	opts = append(opts, server.WithNotices(notices))

	return opts, nil
}
