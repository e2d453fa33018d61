package command

import (
	"fmt"
	"os"

	"github.com/jawline/New-Worlds/internal/storage"
	"github.com/jawline/New-Worlds/internal/zones"
)

type ZonesConfig struct {
	Path string `json:"path"`
}

func (c *ZonesConfig) validate() error {
	if c.Path == "" {
		return nil
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("invalid path %q: %w", c.Path, err)
	}
	return nil
}

// BuildDirectory loads zone assets from Path, or returns the built-in zones
// when no path is configured.
func (c *ZonesConfig) BuildDirectory() (*zones.Directory, error) {
	if c.Path == "" {
		return zones.DefaultDirectory(), nil
	}

	st, err := storage.NewFileStore[*zones.Zone](c.Path)
	if err != nil {
		return nil, fmt.Errorf("creating zone store: %w", err)
	}

	return zones.LoadDirectory(st)
}
