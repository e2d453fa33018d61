package server

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/jawline/New-Worlds/internal/display"
	"github.com/jawline/New-Worlds/internal/protocol"
	"github.com/jawline/New-Worlds/internal/session"
	"github.com/jawline/New-Worlds/internal/world"
	"github.com/jawline/New-Worlds/internal/zones"
)

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,31}$`)

// ValidName reports whether name can be used as a user name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

func (s *Server) handshake(ctx context.Context, c *session.Conn, m protocol.Message) {
	login, ok := m.(protocol.Login)
	if !ok || !ValidName(login.Username) {
		s.kill(ctx, c, KillBadLogin)
		return
	}

	c.Username = login.Username
	zone := s.currentZone(c)

	// The snapshot goes out before the connection joins broadcasts.
	s.sendTo(ctx, c, protocol.World(s.world.Snapshot()))
	if !live(c) {
		return
	}
	c.State = session.StateActive

	slog.InfoContext(ctx, "user logged in", "session", c.ID(), "user", c.Username)

	s.reply(ctx, c, NoticeWelcome, NoticeData{Name: c.Username, Zone: zone.Name, Description: zone.Description})
	s.notify(ctx, NoticeJoined, NoticeData{Name: c.Username})
	if !live(c) {
		return
	}

	e := s.world.Spawn(world.EntityCharacter, s.spawn, s.characterSize)
	c.EntityID = e.ID
	s.metrics.entities.Set(float64(s.world.Len()))
	s.broadcast(ctx, protocol.Entity(e))
}

func (s *Server) command(ctx context.Context, c *session.Conn, m protocol.Message) {
	switch m := m.(type) {
	case protocol.Say:
		s.notify(ctx, NoticeChat, NoticeData{Name: c.Username, Text: m.Text})

	case protocol.Map:
		s.replaceMap(ctx, c, world.Map(m))

	case protocol.Move:
		s.move(ctx, c, world.Vec2{X: m.X, Y: m.Y})

	case protocol.Rename:
		if !ValidName(m.Name) {
			s.reply(ctx, c, NoticeInvalidName, NoticeData{Name: c.Username})
			return
		}
		old := c.Username
		c.Username = m.Name
		s.notify(ctx, NoticeRenamed, NoticeData{Name: old, NewName: m.Name})

	case protocol.Look:
		zone := s.currentZone(c)
		s.reply(ctx, c, NoticeLocation, NoticeData{Name: c.Username, Zone: zone.Name, Description: zone.Description})

	case protocol.Zones:
		s.listZones(ctx, c)

	case protocol.Teleport:
		s.teleport(ctx, c, m.Zone)

	case protocol.Help:
		s.reply(ctx, c, NoticeHelp, NoticeData{Name: c.Username})

	case protocol.Logout:
		s.reply(ctx, c, NoticeGoodbye, NoticeData{Name: c.Username})
		if live(c) {
			slog.InfoContext(ctx, "user logged out", "session", c.ID(), "user", c.Username)
			s.teardown(ctx, c, "logout")
		}

	default:
		slog.DebugContext(ctx, "ignoring message", "session", c.ID(), "tag", m.Tag())
	}
}

func (s *Server) replaceMap(ctx context.Context, c *session.Conn, m world.Map) {
	if err := m.Validate(); err != nil {
		slog.WarnContext(ctx, "ignoring invalid map", "session", c.ID(), "error", err)
		return
	}

	s.world.ReplaceMap(m)
	s.broadcast(ctx, protocol.Map(s.world.Map()))
}

func (s *Server) move(ctx context.Context, c *session.Conn, to world.Vec2) {
	e, ok := s.world.Entity(c.EntityID)
	if !ok {
		return
	}
	if !s.world.Map().Contains(to) {
		slog.DebugContext(ctx, "ignoring move out of bounds", "session", c.ID(), "x", to.X, "y", to.Y)
		return
	}

	e.Position = to
	if err := s.world.UpdateOrInsert(e); err != nil {
		slog.ErrorContext(ctx, "updating entity", "session", c.ID(), "error", err)
		return
	}
	s.broadcast(ctx, protocol.Entity(e))
}

func (s *Server) listZones(ctx context.Context, c *session.Conn) {
	var lines []string
	for _, z := range s.zones.List() {
		line, err := s.notices.Render(NoticeZone, NoticeData{Name: c.Username, ID: z.ID, Zone: z.Name, Description: z.Description})
		if err != nil {
			slog.ErrorContext(ctx, "rendering notice", "notice", NoticeZone, "error", err)
			return
		}
		lines = append(lines, line)
	}
	s.sendTo(ctx, c, protocol.Say{Text: strings.Join(lines, "\n")})
}

// teleport moves the user to a zone named by id or by name.
func (s *Server) teleport(ctx context.Context, c *session.Conn, target string) {
	target = strings.TrimSpace(target)

	if id, err := strconv.Atoi(target); err == nil {
		z, ok := s.zones.Get(id)
		if !ok {
			s.reply(ctx, c, NoticeBadZoneID, NoticeData{Name: c.Username, Zone: strconv.Itoa(id)})
			return
		}
		s.enterZone(ctx, c, z)
		return
	}

	z, ok := s.zones.FindByName(target)
	if !ok {
		s.reply(ctx, c, NoticeFumbled, NoticeData{Name: c.Username, Zone: target})
		return
	}
	s.enterZone(ctx, c, z)
}

func (s *Server) enterZone(ctx context.Context, c *session.Conn, z zones.Zone) {
	c.Zone = z.ID
	s.notify(ctx, NoticeTeleported, NoticeData{Name: c.Username, Zone: z.Name, Description: z.Description})
}

func (s *Server) currentZone(c *session.Conn) zones.Zone {
	if z, ok := s.zones.Get(c.Zone); ok {
		return z
	}
	return s.zones.StartZone()
}

// reply renders a notice and sends it to c alone.
func (s *Server) reply(ctx context.Context, c *session.Conn, n Notice, d NoticeData) {
	text, err := s.notices.Render(n, d)
	if err != nil {
		slog.ErrorContext(ctx, "rendering notice", "notice", n, "error", err)
		return
	}
	s.sendTo(ctx, c, protocol.Say{Text: display.Wrap(text)})
}

// notify renders a notice and broadcasts it.
func (s *Server) notify(ctx context.Context, n Notice, d NoticeData) {
	text, err := s.notices.Render(n, d)
	if err != nil {
		slog.ErrorContext(ctx, "rendering notice", "notice", n, "error", err)
		return
	}
	s.broadcast(ctx, protocol.Say{Text: text})
}
