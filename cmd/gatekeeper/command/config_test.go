package command

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jawline/New-Worlds/internal/world"
	"github.com/pixil98/go-testutil"
)

func TestConfig_Validate(t *testing.T) {
	tests := map[string]struct {
		cfg    Config
		expErr string
	}{
		"empty config is valid": {},
		"bad tick interval": {
			cfg:    Config{TickInterval: "soon"},
			expErr: "parsing tick_interval",
		},
		"negative tick interval": {
			cfg:    Config{TickInterval: "-1s"},
			expErr: "tick_interval must be positive",
		},
		"listener without port": {
			cfg:    Config{Listeners: []ListenerConfig{{Protocol: ListenerTypeTCP}}},
			expErr: "listener 0: port must be set",
		},
		"host key on tcp listener": {
			cfg:    Config{Listeners: []ListenerConfig{{Protocol: ListenerTypeTCP, Port: 1, HostKeyPath: "key"}}},
			expErr: "host_key_path is only valid for ssh listeners",
		},
		"path on telnet listener": {
			cfg:    Config{Listeners: []ListenerConfig{{Protocol: ListenerTypeTelnet, Port: 1, Path: "/ws"}}},
			expErr: "path is only valid for websocket listeners",
		},
		"negative max connections": {
			cfg:    Config{Server: ServerConfig{MaxConnections: -1}},
			expErr: "server: max_connections must not be negative",
		},
		"bad idle timeout": {
			cfg:    Config{Server: ServerConfig{IdleTimeout: "forever"}},
			expErr: "parsing idle_timeout",
		},
		"spawn outside map": {
			cfg: Config{Server: ServerConfig{
				Map:   MapConfig{Width: 2, Height: 2},
				Spawn: world.Vec2{X: 5, Y: 5},
			}},
			expErr: "spawn point is outside the map",
		},
		"unknown notice override": {
			cfg:    Config{Server: ServerConfig{Notices: map[string]string{"nope": "x"}}},
			expErr: `unknown notice "nope"`,
		},
		"missing zones path": {
			cfg:    Config{Zones: ZonesConfig{Path: "/does/not/exist"}},
			expErr: "zones: invalid path",
		},
		"bad nats port": {
			cfg:    Config{Nats: NatsConfig{Port: 70000}},
			expErr: "nats: port must be between",
		},
		"bad nats timeout": {
			cfg:    Config{Nats: NatsConfig{StartTimeout: "later"}},
			expErr: "parsing start_timeout",
		},
		"bad log level": {
			cfg:    Config{Logging: LoggingConfig{Level: "loud"}},
			expErr: "logging: parsing level",
		},
		"bad log format": {
			cfg:    Config{Logging: LoggingConfig{Format: "xml"}},
			expErr: "unknown log format: xml",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}

	testutil.AssertEqual(t, "tick interval", cfg.tickInterval(), DefaultTickInterval)

	ls := cfg.listeners()
	testutil.AssertEqual(t, "listener count", len(ls), 1)
	testutil.AssertEqual(t, "listener protocol", ls[0].Protocol, ListenerTypeTCP)
	testutil.AssertEqual(t, "listener port", ls[0].Port, uint16(DefaultPort))

	testutil.AssertEqual(t, "mirror subject", cfg.Nats.mirrorSubject(), DefaultMirrorSubject)
	testutil.AssertEqual(t, "announce subject", cfg.Nats.announceSubject(), DefaultAnnounceSubject)

	m := cfg.Server.buildMap()
	testutil.AssertEqual(t, "map width", m.Width, DefaultMapWidth)

	cfg.TickInterval = "250ms"
	testutil.AssertEqual(t, "tick interval", cfg.tickInterval(), 250*time.Millisecond)
}

func TestConfig_UnmarshalJSON(t *testing.T) {
	raw := `{
		"tick_interval": "500ms",
		"listeners": [
			{"protocol": "tcp", "port": 4000},
			{"protocol": "websocket", "port": 4001, "path": "/play"}
		],
		"server": {"max_connections": 16, "spawn": {"x": 1, "y": 2}},
		"nats": {"enabled": true, "port": -1}
	}`

	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "listener count", len(cfg.Listeners), 2)
	testutil.AssertEqual(t, "second protocol", cfg.Listeners[1].Protocol, ListenerTypeWebSocket)
	testutil.AssertEqual(t, "path", cfg.Listeners[1].Path, "/play")
	testutil.AssertEqual(t, "max connections", cfg.Server.MaxConnections, 16)
	testutil.AssertEqual(t, "spawn", cfg.Server.Spawn, world.Vec2{X: 1, Y: 2})
	testutil.AssertEqual(t, "nats enabled", cfg.Nats.Enabled, true)
}

func TestListenerType_UnmarshalText(t *testing.T) {
	tests := map[string]struct {
		input  string
		exp    ListenerType
		expErr string
	}{
		"tcp":       {input: "tcp", exp: ListenerTypeTCP},
		"telnet":    {input: "telnet", exp: ListenerTypeTelnet},
		"ssh":       {input: "ssh", exp: ListenerTypeSSH},
		"websocket": {input: "websocket", exp: ListenerTypeWebSocket},
		"unknown":   {input: "gopher", expErr: "unknown listener type: gopher"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var lt ListenerType
			err := lt.UnmarshalText([]byte(tt.input))
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "type", lt, tt.exp)
			testutil.AssertEqual(t, "string", lt.String(), tt.input)
		})
	}
}

func TestListenerConfig_BuildListener(t *testing.T) {
	for _, lt := range []ListenerType{ListenerTypeTCP, ListenerTypeTelnet, ListenerTypeSSH, ListenerTypeWebSocket} {
		t.Run(lt.String(), func(t *testing.T) {
			cl := ListenerConfig{Protocol: lt, Port: 1}
			w, err := cl.BuildListener(nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if w == nil {
				t.Fatal("expected listener")
			}
		})
	}

	cl := ListenerConfig{Protocol: ListenerType(99), Port: 1}
	_, err := cl.BuildListener(nil)
	testutil.AssertErrorContains(t, err, "unknown listener type")
}

func TestLoggingConfig_BuildLogger(t *testing.T) {
	tests := map[string]struct {
		cfg      LoggingConfig
		contains string
	}{
		"text": {
			cfg:      LoggingConfig{Level: "debug"},
			contains: "msg=hello",
		},
		"json": {
			cfg:      LoggingConfig{Level: "debug", Format: "json"},
			contains: `"msg":"hello"`,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := tt.cfg.buildLogger(&buf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			l.Debug("hello")
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.contains)
			}
		})
	}

	var buf bytes.Buffer
	l, err := (&LoggingConfig{Level: "warn"}).buildLogger(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Info("quiet")
	testutil.AssertEqual(t, "filtered output", buf.String(), "")
}

func TestZonesConfig_BuildDirectory(t *testing.T) {
	dir, err := (&ZonesConfig{}).BuildDirectory()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "start zone", dir.StartZone().Name, "The Infinite")

	zonePath := t.TempDir()
	writeZone(t, zonePath, "cellar.json", `{"id": 4, "name": "Cellar", "description": "a damp room", "start": true}`)

	dir, err = (&ZonesConfig{Path: zonePath}).BuildDirectory()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "loaded start zone", dir.StartZone().Name, "Cellar")
}

func writeZone(t *testing.T, dir, name, body string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644)
	if err != nil {
		t.Fatalf("writing zone: %v", err)
	}
}
