package server

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pixil98/go-errors"
)

// Notice names a line of server text sent to users.
type Notice string

const (
	NoticeWelcome     Notice = "welcome"
	NoticeJoined      Notice = "joined"
	NoticeLeft        Notice = "left"
	NoticeChat        Notice = "chat"
	NoticeRenamed     Notice = "renamed"
	NoticeInvalidName Notice = "invalid_name"
	NoticeLocation    Notice = "location"
	NoticeZone        Notice = "zone"
	NoticeTeleported  Notice = "teleported"
	NoticeBadZoneID   Notice = "bad_zone_id"
	NoticeFumbled     Notice = "fumbled"
	NoticeGoodbye     Notice = "goodbye"
	NoticeHelp        Notice = "help"
)

// Kill reasons are fixed so clients can match on them.
const (
	KillBadLogin   = "Bad login"
	KillServerFull = "Server full"
	KillTimedOut   = "Login timed out"
	KillIdle       = "Idle too long"
)

var defaultNotices = map[Notice]string{
	NoticeWelcome:     "You find yourself in {{ .Zone }}, {{ .Description }}",
	NoticeJoined:      "{{ .Name }} has joined the server",
	NoticeLeft:        "{{ .Name }} dissolved away",
	NoticeChat:        "{{ .Name }}: {{ .Text }}",
	NoticeRenamed:     "User {{ .Name }} set name to {{ .NewName }}",
	NoticeInvalidName: "Invalid name, please try another.",
	NoticeLocation:    "You are in {{ .Zone }}, {{ .Description }}",
	NoticeZone:        "{{ .ID }}. {{ .Zone }}",
	NoticeTeleported:  "User {{ .Name }} has teleported to zone {{ .Zone }}",
	NoticeBadZoneID:   "{{ .Zone }} is not a valid zone ID",
	NoticeFumbled:     "{{ .Name }} has fumbled a teleport location",
	NoticeGoodbye:     "Goodbye sweet prince\nDon't come back...",
	NoticeHelp: strings.Join([]string{
		"Messages:",
		"  say {text}          talk to everyone",
		"  rename {name}       change your name",
		"  look                describe where you are",
		"  zones               list every zone",
		"  teleport {zone}     travel to a zone by id or name",
		"  move {x, y}         place your character",
		"  map {map}           replace the world map",
		"  logout              leave the server",
	}, "\n"),
}

// NoticeData is the value every notice template is executed against.
type NoticeData struct {
	Name        string
	NewName     string
	Text        string
	ID          int
	Zone        string
	Description string
}

// Notices renders server text from templates. Templates have the sprig
// function set available.
type Notices struct {
	templates map[Notice]*template.Template
}

// NewNotices compiles the default templates with overrides applied. Every
// template is executed once so broken overrides fail here.
func NewNotices(overrides map[string]string) (*Notices, error) {
	el := errors.NewErrorList()

	texts := make(map[Notice]string, len(defaultNotices))
	for k, v := range defaultNotices {
		texts[k] = v
	}
	for k, v := range overrides {
		if _, ok := defaultNotices[Notice(k)]; !ok {
			el.Add(fmt.Errorf("unknown notice %q", k))
			continue
		}
		texts[Notice(k)] = v
	}

	n := &Notices{templates: make(map[Notice]*template.Template, len(texts))}
	for _, k := range sortedNotices(texts) {
		t, err := template.New(string(k)).Funcs(sprig.TxtFuncMap()).Parse(texts[k])
		if err != nil {
			el.Add(fmt.Errorf("parsing notice %q: %w", k, err))
			continue
		}
		if err := t.Execute(&bytes.Buffer{}, NoticeData{}); err != nil {
			el.Add(fmt.Errorf("executing notice %q: %w", k, err))
			continue
		}
		n.templates[k] = t
	}

	if err := el.Err(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Notices) Render(k Notice, d NoticeData) (string, error) {
	t, ok := n.templates[k]
	if !ok {
		return "", fmt.Errorf("unknown notice %q", k)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("executing notice %q: %w", k, err)
	}
	return buf.String(), nil
}

func sortedNotices(m map[Notice]string) []Notice {
	keys := make([]Notice, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
