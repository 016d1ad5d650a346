package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvRegionSize  = "TILEMAP_REGION_SIZE"
	EnvMissingTile = "TILEMAP_MISSING_TILE"
	EnvPhysics     = "TILEMAP_PHYSICS"
)

// Load reads map settings from a YAML file on top of DefaultMap, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (MapConfig, error) {
	c := DefaultMap()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&c); err != nil {
		return c, err
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func applyEnv(c *MapConfig) error {
	if v, ok := os.LookupEnv(EnvRegionSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRegionSize, err)
		}
		c.RegionSize = n
	}
	if v, ok := os.LookupEnv(EnvMissingTile); ok {
		c.MissingTile = v
	}
	if v, ok := os.LookupEnv(EnvPhysics); ok {
		c.Physics = v
	}
	return nil
}

// Validate checks that every setting is usable.
func (c MapConfig) Validate() error {
	var errs []error
	if c.RegionSize <= 0 {
		errs = append(errs, fmt.Errorf("region_size must be positive, got %d", c.RegionSize))
	}
	if c.SpaceCell <= 0 {
		errs = append(errs, fmt.Errorf("space_cell must be positive, got %d", c.SpaceCell))
	}
	if c.ZonesLayer == "" {
		errs = append(errs, errors.New("zones_layer is empty"))
	}
	switch c.MissingTile {
	case MissingTileError, MissingTilePlaceholder:
	default:
		errs = append(errs, fmt.Errorf("missing_tile %q is not %q or %q", c.MissingTile, MissingTileError, MissingTilePlaceholder))
	}
	switch c.Physics {
	case PhysicsResolv, PhysicsChipmunk:
	default:
		errs = append(errs, fmt.Errorf("physics %q is not %q or %q", c.Physics, PhysicsResolv, PhysicsChipmunk))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid map config: %w", errors.Join(errs...))
	}
	return nil
}
