package systems

import (
	"fmt"
	"image/color"

	"github.com/automoto/tilemap/components"
	"github.com/automoto/tilemap/config"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/yohamta/donburi/ecs"
)

// GetOrCreateSettings returns the singleton settings component.
func GetOrCreateSettings(e *ecs.ECS) *components.SettingsData {
	entry, ok := components.Settings.First(e.World)
	if !ok {
		entry = e.World.Entry(e.World.Create(components.Settings))
		components.Settings.SetValue(entry, components.SettingsData{Debug: config.Debug.Enabled})
	}
	return components.Settings.Get(entry)
}

// UpdateDebug toggles the collision overlay.
func UpdateDebug(e *ecs.ECS) {
	settings := GetOrCreateSettings(e)
	if GetAction(getOrCreateInput(e), config.ActionToggleDebug).JustPressed {
		settings.Debug = !settings.Debug
	}
}

func DrawDebug(ecs *ecs.ECS, screen *ebiten.Image) {
	settings := GetOrCreateSettings(ecs)
	if !settings.Debug {
		return
	}

	// Get camera for world-space rendering.
	cameraEntry, ok := components.Camera.First(ecs.World)
	if !ok {
		return // No camera yet
	}
	camera := components.Camera.Get(cameraEntry)
	levelEntry, ok := components.Level.First(ecs.World)
	if !ok {
		return
	}
	level := components.Level.Get(levelEntry)

	width, height := screen.Bounds().Dx(), screen.Bounds().Dy()
	camX := float64(width)/2 - camera.Position.X
	camY := float64(height)/2 - camera.Position.Y

	// Viewport in world coordinates
	viewX := camera.Position.X - float64(width)/2
	viewY := camera.Position.Y - float64(height)/2
	viewW := float64(width)
	viewH := float64(height)

	visible := func(x, y, w, h float64) bool {
		return !(x+w < viewX || x > viewX+viewW || y+h < viewY || y > viewY+viewH)
	}

	for _, b := range level.Bodies {
		if visible(b.X, b.Y, b.W, b.H) {
			strokeRect(screen, b.X+camX, b.Y+camY, b.W, b.H, config.Debug.BodyColor)
		}
	}
	for _, z := range level.Zones {
		if visible(z.X, z.Y, z.Width, z.Height) {
			strokeRect(screen, z.X+camX, z.Y+camY, max(z.Width, 1), max(z.Height, 1), config.Debug.ZoneColor)
		}
	}
	for _, c := range level.Creatures {
		vector.FillRect(screen, float32(c.Position.X+camX)-2, float32(c.Position.Y+camY)-2, 4, 4, config.Debug.GridColor, false)
	}
	if level.HasSpawn {
		vector.FillRect(screen, float32(level.Spawn.X+camX)-3, float32(level.Spawn.Y+camY)-3, 6, 6, config.Debug.SpawnColor, false)
	}

	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s  bodies:%d zones:%d creatures:%d  cam:(%.0f,%.0f)",
		level.Name, len(level.Bodies), len(level.Zones), len(level.Creatures),
		camera.Position.X, camera.Position.Y), 4, height-16)
}

func strokeRect(screen *ebiten.Image, x, y, w, h float64, c color.RGBA) {
	vector.FillRect(screen, float32(x), float32(y), float32(w), 1, c, false)     // Top
	vector.FillRect(screen, float32(x), float32(y+h-1), float32(w), 1, c, false) // Bottom
	vector.FillRect(screen, float32(x), float32(y), 1, float32(h), c, false)     // Left
	vector.FillRect(screen, float32(x+w-1), float32(y), 1, float32(h), c, false) // Right
}

// DrawLoadError reports a failed load on screen.
func DrawLoadError(ecs *ecs.ECS, screen *ebiten.Image) {
	levelEntry, ok := components.Level.First(ecs.World)
	if !ok {
		return
	}
	level := components.Level.Get(levelEntry)
	if level.LoadErr == nil {
		return
	}
	screen.Fill(config.BlackOverlay)
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Could not load %s:\n%v", level.Name, level.LoadErr), 8, 8)
}
