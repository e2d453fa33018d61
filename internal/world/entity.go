package world

import "fmt"

// EntityID identifies an entity within a world. Zero is never assigned.
type EntityID uint64

// NoEntity marks the absence of an entity.
const NoEntity EntityID = 0

type EntityType int

const (
	EntityScene EntityType = iota
	EntityCharacter
)

func (t EntityType) String() string {
	switch t {
	case EntityScene:
		return "scene"
	case EntityCharacter:
		return "character"
	default:
		return fmt.Sprintf("EntityType(%d)", int(t))
	}
}

func (t EntityType) MarshalText() ([]byte, error) {
	switch t {
	case EntityScene, EntityCharacter:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("unknown entity type: %d", int(t))
	}
}

func (t *EntityType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "scene":
		*t = EntityScene
	case "character":
		*t = EntityCharacter
	default:
		return fmt.Errorf("unknown entity type: %s", text)
	}
	return nil
}

// Vec2 is a 2D vector in world pixels.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Entity is anything placed in the world. Identity is the ID alone.
type Entity struct {
	ID       EntityID   `json:"id"`
	Type     EntityType `json:"type"`
	Position Vec2       `json:"position"`
	Size     Vec2       `json:"size"`
}

// IDGenerator hands out monotonically increasing entity ids starting at 1.
type IDGenerator struct {
	last EntityID
}

// NewIDGenerator returns a generator whose first id is after last.
func NewIDGenerator(last EntityID) *IDGenerator {
	return &IDGenerator{last: last}
}

func (g *IDGenerator) Next() EntityID {
	g.last++
	return g.last
}

// Observe moves the generator past id so it is never handed out.
func (g *IDGenerator) Observe(id EntityID) {
	if id > g.last {
		g.last = id
	}
}
