package world

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

const (
	DefaultTileWidth  = 64.0
	DefaultTileHeight = 16.0
)

// Tile is a coordinate into the tileset.
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Layer is a row-major grid of tiles.
type Layer []Tile

// Map is the tiled ground of the world. Every layer holds exactly
// Width*Height tiles.
type Map struct {
	Layers     []Layer `json:"layers"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	TileWidth  float64 `json:"tile_width"`
	TileHeight float64 `json:"tile_height"`
}

// NewMap creates a single layer map of zero tiles with the default tile geometry.
func NewMap(width, height int) Map {
	return Map{
		Layers:     []Layer{make(Layer, width*height)},
		Width:      width,
		Height:     height,
		TileWidth:  DefaultTileWidth,
		TileHeight: DefaultTileHeight,
	}
}

// Index returns the offset of (x, y) within a layer.
func (m Map) Index(x, y int) int {
	return y*m.Width + x
}

// Tile returns the tile at (x, y) on the given layer.
func (m Map) Tile(layer, x, y int) (Tile, bool) {
	if layer < 0 || layer >= len(m.Layers) {
		return Tile{}, false
	}
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return Tile{}, false
	}
	return m.Layers[layer][m.Index(x, y)], true
}

// Extent returns the size of the map in pixels.
func (m Map) Extent() Vec2 {
	return Vec2{X: float64(m.Width) * m.TileWidth, Y: float64(m.Height) * m.TileHeight}
}

// Contains reports whether p lies within the map's pixel extent.
func (m Map) Contains(p Vec2) bool {
	ext := m.Extent()
	return p.X >= 0 && p.Y >= 0 && p.X <= ext.X && p.Y <= ext.Y
}

// Validate checks the layer size invariant and tile geometry.
func (m Map) Validate() error {
	el := errors.NewErrorList()

	if m.Width <= 0 {
		el.Add(fmt.Errorf("width must be positive"))
	}
	if m.Height <= 0 {
		el.Add(fmt.Errorf("height must be positive"))
	}
	if m.TileWidth <= 0 || m.TileHeight <= 0 {
		el.Add(fmt.Errorf("tile geometry must be positive"))
	}
	if len(m.Layers) == 0 {
		el.Add(fmt.Errorf("at least one layer is required"))
	}

	want := m.Width * m.Height
	for i, l := range m.Layers {
		if len(l) != want {
			el.Add(fmt.Errorf("layer %d has %d tiles, expected %d", i, len(l), want))
		}
	}

	return el.Err()
}

// Clone returns a deep copy of the map.
func (m Map) Clone() Map {
	c := m
	if m.Layers != nil {
		c.Layers = make([]Layer, len(m.Layers))
		for i, l := range m.Layers {
			c.Layers[i] = append(Layer(nil), l...)
		}
	}
	return c
}
