package command

import (
	"fmt"
	"time"

	"github.com/jawline/New-Worlds/internal/messaging"
	"github.com/pixil98/go-errors"
)

const (
	DefaultMirrorSubject   = "gatekeeper.broadcast"
	DefaultAnnounceSubject = "gatekeeper.announce"
)

type NatsConfig struct {
	Enabled         bool   `json:"enabled"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	StartTimeout    string `json:"start_timeout"`
	MirrorSubject   string `json:"mirror_subject"`
	AnnounceSubject string `json:"announce_subject"`
}

func (n *NatsConfig) validate() error {
	el := errors.NewErrorList()

	if n.StartTimeout != "" {
		_, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing start_timeout: %w", err))
		}
	}
	if n.Port < -1 || n.Port > 65535 {
		el.Add(fmt.Errorf("port must be between -1 and 65535"))
	}

	return el.Err()
}

func (n *NatsConfig) mirrorSubject() string {
	if n.MirrorSubject == "" {
		return DefaultMirrorSubject
	}
	return n.MirrorSubject
}

func (n *NatsConfig) announceSubject() string {
	if n.AnnounceSubject == "" {
		return DefaultAnnounceSubject
	}
	return n.AnnounceSubject
}

func (n *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt
	if n.StartTimeout != "" {
		d, err := time.ParseDuration(n.StartTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing start_timeout: %w", err)
		}
		opts = append(opts, messaging.WithStartTimeout(d))
	}
	if n.Host != "" {
		opts = append(opts, messaging.WithHost(n.Host))
	}
	if n.Port != 0 {
		opts = append(opts, messaging.WithPort(n.Port))
	}

	s, err := messaging.NewNatsServer(opts...)
	if err != nil {
		return nil, err
	}

	return s, nil
}
