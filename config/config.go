package config

import (
	"image/color"

	"github.com/yohamta/donburi/ecs"
)

// Default is the only render layer the viewer uses.
const Default ecs.LayerID = iota

// Missing tile policies.
const (
	MissingTileError       = "error"
	MissingTilePlaceholder = "placeholder"
)

// Physics backends.
const (
	PhysicsResolv   = "resolv"
	PhysicsChipmunk = "chipmunk"
)

// MapConfig controls how a map document is turned into a scene.
type MapConfig struct {
	// Edge length of a baked region texture in pixels
	RegionSize int `yaml:"region_size"`

	// Object layer names
	ZonesLayer     string `yaml:"zones_layer"`
	CreaturesLayer string `yaml:"creatures_layer"`
	SpawnZone      string `yaml:"spawn_zone"`

	MissingTile string `yaml:"missing_tile"` // "error" or "placeholder"
	Physics     string `yaml:"physics"`      // "resolv" or "chipmunk"
	SpaceCell   int    `yaml:"space_cell"`   // resolv cell size
}

// Placeholders reports whether unresolvable tiles are drawn as placeholders
// instead of failing the load.
func (c MapConfig) Placeholders() bool {
	return c.MissingTile == MissingTilePlaceholder
}

// ViewerConfig contains the map viewer window settings
type ViewerConfig struct {
	ScreenWidth  int
	ScreenHeight int
	Title        string
	AppName      string // gdata save namespace
}

// CameraConfig contains camera panning settings
type CameraConfig struct {
	PanSpeed     float64 // pixels per tick
	FastPanScale float64 // multiplier while shift is held
}

// DebugConfig contains collision overlay settings
type DebugConfig struct {
	Enabled    bool
	BodyColor  color.RGBA
	ZoneColor  color.RGBA
	SpawnColor color.RGBA
	GridColor  color.RGBA
}

var Map MapConfig
var Viewer ViewerConfig
var Camera CameraConfig
var Debug DebugConfig

var (
	White        = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Grey         = color.RGBA{R: 100, G: 100, B: 100, A: 255}
	Cyan         = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Green        = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow       = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	BlackOverlay = color.RGBA{R: 0, G: 0, B: 0, A: 180}
)

// DefaultMap returns the built-in map settings.
func DefaultMap() MapConfig {
	return MapConfig{
		RegionSize:     1024,
		ZonesLayer:     "world-zones",
		CreaturesLayer: "world-creatures",
		SpawnZone:      "player-spawn",
		MissingTile:    MissingTileError,
		Physics:        PhysicsResolv,
		SpaceCell:      16,
	}
}

func init() {
	Map = DefaultMap()

	Viewer = ViewerConfig{
		ScreenWidth:  640,
		ScreenHeight: 360,
		Title:        "Tilemap Viewer",
		AppName:      "tilemap_viewer",
	}

	Camera = CameraConfig{
		PanSpeed:     4.0,
		FastPanScale: 4.0,
	}

	// Debug Config (defaults, can be overridden by CLI flags)
	Debug = DebugConfig{
		Enabled:    false,
		BodyColor:  Grey,
		ZoneColor:  Cyan,
		SpawnColor: Green,
		GridColor:  Yellow,
	}
}
