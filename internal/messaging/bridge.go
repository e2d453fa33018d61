package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Announcer broadcasts a line of text to every connected user.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// Bridge relays text published on a subject to an Announcer.
type Bridge struct {
	bus       *NatsServer
	announcer Announcer
	subject   string
}

func NewBridge(bus *NatsServer, announcer Announcer, subject string) *Bridge {
	return &Bridge{
		bus:       bus,
		announcer: announcer,
		subject:   subject,
	}
}

func (b *Bridge) Start(ctx context.Context) error {
	select {
	case <-b.bus.Ready():
	case <-ctx.Done():
		return nil
	}

	unsubscribe, err := b.bus.Subscribe(b.subject, func(data []byte) {
		text := strings.TrimSpace(string(data))
		if text == "" {
			return
		}
		if err := b.announcer.Announce(ctx, text); err != nil {
			slog.WarnContext(ctx, "relaying announcement", "subject", b.subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer unsubscribe()

	slog.InfoContext(ctx, "relaying announcements", "subject", b.subject)

	<-ctx.Done()
	return nil
}
