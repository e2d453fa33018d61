package protocol

import "github.com/jawline/New-Worlds/internal/world"

// Tag names a message type on the wire.
type Tag string

const (
	TagLogin        Tag = "login"
	TagSay          Tag = "say"
	TagKill         Tag = "kill"
	TagMap          Tag = "map"
	TagWorld        Tag = "world"
	TagEntity       Tag = "entity"
	TagRemoveEntity Tag = "remove_entity"
	TagMove         Tag = "move"
	TagRename       Tag = "rename"
	TagLook         Tag = "look"
	TagZones        Tag = "zones"
	TagTeleport     Tag = "teleport"
	TagHelp         Tag = "help"
	TagLogout       Tag = "logout"
)

// Message is one protocol command or event.
type Message interface {
	Tag() Tag
}

// Login is the handshake. The password is accepted but not checked.
type Login struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Say is a line of chat or a server notice.
type Say struct {
	Text string `json:"text"`
}

// Kill precedes a forced disconnect.
type Kill struct {
	Reason string `json:"reason"`
}

// Map is a full map replacement.
type Map world.Map

// World is a full snapshot, sent once after login.
type World world.World

// Entity announces a created or updated entity.
type Entity world.Entity

type RemoveEntity struct {
	ID world.EntityID `json:"id"`
}

// Move asks to place the sender's character at an absolute position.
type Move struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Rename struct {
	Name string `json:"name"`
}

type Look struct{}

type Zones struct{}

// Teleport names the destination zone by id or by name.
type Teleport struct {
	Zone string `json:"zone"`
}

type Help struct{}

type Logout struct{}

func (Login) Tag() Tag        { return TagLogin }
func (Say) Tag() Tag          { return TagSay }
func (Kill) Tag() Tag         { return TagKill }
func (Map) Tag() Tag          { return TagMap }
func (World) Tag() Tag        { return TagWorld }
func (Entity) Tag() Tag       { return TagEntity }
func (RemoveEntity) Tag() Tag { return TagRemoveEntity }
func (Move) Tag() Tag         { return TagMove }
func (Rename) Tag() Tag       { return TagRename }
func (Look) Tag() Tag         { return TagLook }
func (Zones) Tag() Tag        { return TagZones }
func (Teleport) Tag() Tag     { return TagTeleport }
func (Help) Tag() Tag         { return TagHelp }
func (Logout) Tag() Tag       { return TagLogout }
