package world

import "errors"

// ErrReservedID is returned when an entity carries NoEntity as its id.
var ErrReservedID = errors.New("entity id 0 is reserved")

// World is a serializable snapshot of the shared game state.
type World struct {
	Map      Map      `json:"map"`
	Entities []Entity `json:"entities"`
}

// Store owns the mutable world. It holds no locks; a single goroutine must own it.
type Store struct {
	world World
	ids   *IDGenerator
}

type StoreOpt func(*Store)

// WithIDGenerator replaces the store's id source.
func WithIDGenerator(g *IDGenerator) StoreOpt {
	return func(s *Store) {
		s.ids = g
	}
}

func NewStore(m Map, opts ...StoreOpt) *Store {
	s := &Store{
		world: World{Map: m},
		ids:   NewIDGenerator(NoEntity),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Spawn creates an entity with a fresh id and adds it to the world.
func (s *Store) Spawn(t EntityType, pos, size Vec2) Entity {
	id := s.ids.Next()
	for s.index(id) >= 0 {
		id = s.ids.Next()
	}

	e := Entity{
		ID:       id,
		Type:     t,
		Position: pos,
		Size:     size,
	}
	s.world.Entities = append(s.world.Entities, e)
	return e
}

// UpdateOrInsert replaces the entity with a matching id, or appends it.
// Later spawns never reuse an inserted id.
func (s *Store) UpdateOrInsert(e Entity) error {
	if e.ID == NoEntity {
		return ErrReservedID
	}

	if i := s.index(e.ID); i >= 0 {
		s.world.Entities[i] = e
		return nil
	}
	s.ids.Observe(e.ID)
	s.world.Entities = append(s.world.Entities, e)
	return nil
}

func (s *Store) index(id EntityID) int {
	for i := range s.world.Entities {
		if s.world.Entities[i].ID == id {
			return i
		}
	}
	return -1
}

// Remove deletes the entity with the given id and reports whether it existed.
func (s *Store) Remove(id EntityID) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.world.Entities = append(s.world.Entities[:i], s.world.Entities[i+1:]...)
	return true
}

func (s *Store) Entity(id EntityID) (Entity, bool) {
	i := s.index(id)
	if i < 0 {
		return Entity{}, false
	}
	return s.world.Entities[i], true
}

func (s *Store) Len() int {
	return len(s.world.Entities)
}

func (s *Store) ReplaceMap(m Map) {
	s.world.Map = m.Clone()
}

func (s *Store) Map() Map {
	return s.world.Map
}

// Snapshot returns a deep copy that is safe to hand to other goroutines.
func (s *Store) Snapshot() World {
	return World{
		Map:      s.world.Map.Clone(),
		Entities: append([]Entity(nil), s.world.Entities...),
	}
}
