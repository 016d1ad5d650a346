package systems

import (
	"image"
	"math"

	"github.com/automoto/tilemap/components"
	"github.com/automoto/tilemap/config"
	"github.com/yohamta/donburi/ecs"
	dmath "github.com/yohamta/donburi/features/math"
)

// UpdateCamera pans the camera with the pan actions and keeps the view
// inside the map.
func UpdateCamera(e *ecs.ECS) {
	cameraEntry, ok := components.Camera.First(e.World)
	if !ok {
		return
	}
	camera := components.Camera.Get(cameraEntry)
	input := getOrCreateInput(e)

	levelEntry, ok := components.Level.First(e.World)
	if !ok {
		return
	}
	level := components.Level.Get(levelEntry)

	if GetAction(input, config.ActionRecenter).JustPressed && level.HasSpawn {
		camera.Position = level.Spawn
	}

	speed := config.Camera.PanSpeed
	if GetAction(input, config.ActionPanFast).Pressed {
		speed *= config.Camera.FastPanScale
	}
	var dx, dy float64
	if GetAction(input, config.ActionPanLeft).Pressed {
		dx -= speed
	}
	if GetAction(input, config.ActionPanRight).Pressed {
		dx += speed
	}
	if GetAction(input, config.ActionPanUp).Pressed {
		dy -= speed
	}
	if GetAction(input, config.ActionPanDown).Pressed {
		dy += speed
	}

	camera.Position.X += dx
	camera.Position.Y += dy
	camera.Position = clampCamera(camera.Position, level.Bounds,
		float64(config.Viewer.ScreenWidth), float64(config.Viewer.ScreenHeight))
}

// clampCamera keeps the screen inside bounds. A map smaller than the screen
// along an axis is centred on that axis.
func clampCamera(pos dmath.Vec2, bounds image.Rectangle, screenW, screenH float64) dmath.Vec2 {
	if bounds.Empty() {
		return pos
	}
	return dmath.Vec2{
		X: clampAxis(pos.X, float64(bounds.Min.X), float64(bounds.Max.X), screenW),
		Y: clampAxis(pos.Y, float64(bounds.Min.Y), float64(bounds.Max.Y), screenH),
	}
}

func clampAxis(v, lo, hi, screen float64) float64 {
	if hi-lo <= screen {
		return (lo + hi) / 2
	}
	return math.Max(lo+screen/2, math.Min(hi-screen/2, v))
}
