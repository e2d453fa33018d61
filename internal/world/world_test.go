package world

import (
	"encoding/json"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestStore_UpdateOrInsert(t *testing.T) {
	tests := map[string]struct {
		initial []Entity
		update  Entity
		exp     []Entity
	}{
		"insert into empty": {
			update: Entity{ID: 1, Type: EntityCharacter},
			exp:    []Entity{{ID: 1, Type: EntityCharacter}},
		},
		"append new id": {
			initial: []Entity{{ID: 1}},
			update:  Entity{ID: 2, Position: Vec2{X: 3, Y: 4}},
			exp:     []Entity{{ID: 1}, {ID: 2, Position: Vec2{X: 3, Y: 4}}},
		},
		"replace existing id in place": {
			initial: []Entity{{ID: 1}, {ID: 2}, {ID: 3}},
			update:  Entity{ID: 2, Position: Vec2{X: 9, Y: 9}},
			exp:     []Entity{{ID: 1}, {ID: 2, Position: Vec2{X: 9, Y: 9}}, {ID: 3}},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := NewStore(NewMap(2, 2))
			for _, e := range tt.initial {
				s.UpdateOrInsert(e)
			}

			s.UpdateOrInsert(tt.update)

			snap := s.Snapshot()
			testutil.AssertEqual(t, "entity count", len(snap.Entities), len(tt.exp))
			for i := range tt.exp {
				testutil.AssertEqual(t, "entity", snap.Entities[i], tt.exp[i])
			}
		})
	}
}

func TestStore_Remove(t *testing.T) {
	s := NewStore(NewMap(2, 2))
	a := s.Spawn(EntityCharacter, Vec2{}, Vec2{X: 1, Y: 1})
	b := s.Spawn(EntityScene, Vec2{}, Vec2{X: 1, Y: 1})

	testutil.AssertEqual(t, "removed existing", s.Remove(a.ID), true)
	testutil.AssertEqual(t, "removed missing", s.Remove(a.ID), false)
	testutil.AssertEqual(t, "removed never assigned", s.Remove(NoEntity), false)
	testutil.AssertEqual(t, "remaining", s.Len(), 1)

	_, ok := s.Entity(b.ID)
	testutil.AssertEqual(t, "other entity kept", ok, true)
}

func TestStore_UniqueIds(t *testing.T) {
	s := NewStore(NewMap(4, 4))

	var ids []EntityID
	for i := 0; i < 10; i++ {
		ids = append(ids, s.Spawn(EntityCharacter, Vec2{}, Vec2{}).ID)
	}
	for i, id := range ids {
		if i%3 == 0 {
			s.Remove(id)
		}
		s.UpdateOrInsert(Entity{ID: id, Type: EntityScene})
		s.UpdateOrInsert(Entity{ID: id, Type: EntityCharacter})
	}

	seen := map[EntityID]bool{}
	for _, e := range s.Snapshot().Entities {
		if e.ID == NoEntity {
			t.Fatalf("entity with reserved id 0")
		}
		if seen[e.ID] {
			t.Fatalf("duplicate entity id %d", e.ID)
		}
		seen[e.ID] = true
	}
	testutil.AssertEqual(t, "entity count", len(seen), 10)
}

func TestStore_SpawnAfterInsert(t *testing.T) {
	tests := map[string]struct {
		inserted []EntityID
		expID    EntityID
	}{
		"insert next id": {
			inserted: []EntityID{1},
			expID:    2,
		},
		"insert far ahead": {
			inserted: []EntityID{7},
			expID:    8,
		},
		"insert out of order": {
			inserted: []EntityID{5, 2},
			expID:    6,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := NewStore(NewMap(2, 2))
			for _, id := range tt.inserted {
				if err := s.UpdateOrInsert(Entity{ID: id, Type: EntityScene}); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}

			e := s.Spawn(EntityCharacter, Vec2{}, Vec2{})
			testutil.AssertEqual(t, "spawned id", e.ID, tt.expID)

			counts := map[EntityID]int{}
			for _, e := range s.Snapshot().Entities {
				counts[e.ID]++
			}
			for id, n := range counts {
				if n != 1 {
					t.Errorf("id %d stored %d times", id, n)
				}
			}
		})
	}
}

func TestStore_SpawnSkipsStoredIDs(t *testing.T) {
	g := NewIDGenerator(NoEntity)
	s := NewStore(NewMap(2, 2), WithIDGenerator(g))
	if err := s.UpdateOrInsert(Entity{ID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.UpdateOrInsert(Entity{ID: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A generator shared elsewhere can fall behind the store.
	g.last = 0

	e := s.Spawn(EntityCharacter, Vec2{}, Vec2{})
	testutil.AssertEqual(t, "spawned id", e.ID, EntityID(3))
}

func TestStore_UpdateOrInsertReservedID(t *testing.T) {
	s := NewStore(NewMap(2, 2))

	err := s.UpdateOrInsert(Entity{ID: NoEntity, Type: EntityCharacter})
	testutil.AssertErrorContains(t, err, "reserved")
	testutil.AssertEqual(t, "entity count", s.Len(), 0)
}

func TestIDGenerator_Observe(t *testing.T) {
	g := NewIDGenerator(3)

	g.Observe(2)
	testutil.AssertEqual(t, "lower id ignored", g.Next(), EntityID(4))

	g.Observe(10)
	testutil.AssertEqual(t, "higher id skipped", g.Next(), EntityID(11))
}

func TestStore_SpawnUsesInjectedGenerator(t *testing.T) {
	s := NewStore(NewMap(1, 1), WithIDGenerator(NewIDGenerator(41)))

	e := s.Spawn(EntityCharacter, Vec2{X: 1, Y: 2}, Vec2{X: 3, Y: 4})

	testutil.AssertEqual(t, "id", e.ID, EntityID(42))
	testutil.AssertEqual(t, "position", e.Position, Vec2{X: 1, Y: 2})
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	s := NewStore(NewMap(2, 1))
	s.Spawn(EntityCharacter, Vec2{}, Vec2{})

	snap := s.Snapshot()
	snap.Map.Layers[0][0] = Tile{X: 7, Y: 7}
	snap.Entities[0].Position = Vec2{X: 5, Y: 5}

	tile, _ := s.Map().Tile(0, 0, 0)
	testutil.AssertEqual(t, "map tile", tile, Tile{})
	e, _ := s.Entity(1)
	testutil.AssertEqual(t, "entity position", e.Position, Vec2{})
}

func TestStore_ReplaceMap(t *testing.T) {
	s := NewStore(NewMap(1, 1))
	m := NewMap(3, 2)

	s.ReplaceMap(m)
	m.Layers[0][0] = Tile{X: 1, Y: 1}

	testutil.AssertEqual(t, "width", s.Map().Width, 3)
	tile, _ := s.Map().Tile(0, 0, 0)
	testutil.AssertEqual(t, "tile unaffected by caller", tile, Tile{})
}

func TestEntityType_JSON(t *testing.T) {
	b, err := json.Marshal(Entity{ID: 3, Type: EntityCharacter})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "json", string(b),
		`{"id":3,"type":"character","position":{"x":0,"y":0},"size":{"x":0,"y":0}}`)

	var e Entity
	err = json.Unmarshal([]byte(`{"id":1,"type":"dragon"}`), &e)
	testutil.AssertErrorContains(t, err, "unknown entity type")
}
