package zones

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jawline/New-Worlds/internal/storage"
	"golang.org/x/text/cases"
)

// Directory is an immutable set of zones indexed by id and by folded name.
type Directory struct {
	zones  []Zone
	byID   map[int]int
	byName map[string]int
	start  int
}

// NewDirectory indexes zones. Exactly one zone may be marked as the start
// zone; when none is, the lowest id is used.
func NewDirectory(zones []Zone) (*Directory, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("at least one zone is required")
	}

	sorted := append([]Zone(nil), zones...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	d := &Directory{
		zones:  sorted,
		byID:   make(map[int]int, len(sorted)),
		byName: make(map[string]int, len(sorted)),
		start:  -1,
	}

	for i, z := range sorted {
		if err := z.Validate(); err != nil {
			return nil, fmt.Errorf("zone %q: %w", z.Name, err)
		}
		if _, ok := d.byID[z.ID]; ok {
			return nil, fmt.Errorf("duplicate zone id %d", z.ID)
		}
		key := foldName(z.Name)
		if _, ok := d.byName[key]; ok {
			return nil, fmt.Errorf("duplicate zone name %q", z.Name)
		}
		if z.Start {
			if d.start >= 0 {
				return nil, fmt.Errorf("zones %d and %d are both marked as start", sorted[d.start].ID, z.ID)
			}
			d.start = i
		}

		d.byID[z.ID] = i
		d.byName[key] = i
	}

	if d.start < 0 {
		d.start = 0
	}

	return d, nil
}

// LoadDirectory builds a Directory from every zone in a store.
func LoadDirectory(st storage.Storer[*Zone]) (*Directory, error) {
	var zones []Zone
	for _, z := range st.GetAll() {
		zones = append(zones, *z)
	}
	return NewDirectory(zones)
}

// DefaultDirectory returns the built-in zone set.
func DefaultDirectory() *Directory {
	d, err := NewDirectory([]Zone{
		{ID: 0, Name: "The Infinite", Description: "an endless expanse stretching in every direction", Start: true},
		{ID: 1, Name: "The Spire", Description: "a tower of black glass piercing the clouds"},
		{ID: 2, Name: "Lower Spire", Description: "the crowded foot of the Spire"},
		{ID: 3, Name: "Lower Spire - Trade Quarters", Description: "stalls and merchants as far as the eye can see"},
		{ID: 4, Name: "Lower Spire - Arena", Description: "a sand pit ringed with roaring crowds"},
		{ID: 5, Name: "Challenge Zone", Description: "a proving ground for the brave"},
		{ID: 6, Name: "Bubbling Sewers", Description: "warm, damp and best left unexplored"},
		{ID: 7, Name: "Salty Dungeon", Description: "a flooded cellar that smells of the sea"},
		{ID: 8, Name: "Demon Alter", Description: "a cracked altar humming with something old"},
	})
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Directory) Get(id int) (Zone, bool) {
	i, ok := d.byID[id]
	if !ok {
		return Zone{}, false
	}
	return d.zones[i], true
}

// FindByName looks a zone up ignoring case.
func (d *Directory) FindByName(name string) (Zone, bool) {
	i, ok := d.byName[foldName(name)]
	if !ok {
		return Zone{}, false
	}
	return d.zones[i], true
}

// List returns all zones ordered by id.
func (d *Directory) List() []Zone {
	return append([]Zone(nil), d.zones...)
}

func (d *Directory) StartZone() Zone {
	return d.zones[d.start]
}

func foldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
