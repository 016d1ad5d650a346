package systems

import (
	"github.com/automoto/tilemap/components"
	"github.com/automoto/tilemap/tags"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// DrawLevel draws every baked region that intersects the view.
func DrawLevel(ecs *ecs.ECS, screen *ebiten.Image) {
	cameraEntry, ok := components.Camera.First(ecs.World)
	if !ok {
		return // No camera yet
	}
	camera := components.Camera.Get(cameraEntry)
	width, height := screen.Bounds().Dx(), screen.Bounds().Dy()

	// Safety check for zero zoom
	zoom := camera.Zoom
	if zoom == 0 {
		zoom = 1.0
	}

	// Viewport in world coordinates
	viewX := camera.Position.X - float64(width)/2/zoom
	viewY := camera.Position.Y - float64(height)/2/zoom
	viewW := float64(width) / zoom
	viewH := float64(height) / zoom

	tags.CacheTile.Each(ecs.World, func(entry *donburi.Entry) {
		sprite := components.Sprite.Get(entry)
		img := textureOf(sprite)
		if img == nil {
			return
		}
		w, h := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
		if sprite.X+w < viewX || sprite.X > viewX+viewW || sprite.Y+h < viewY || sprite.Y > viewY+viewH {
			return
		}

		opts := &ebiten.DrawImageOptions{}
		// Apply camera transform with zoom:
		// 1. Translate to camera-relative position
		// 2. Scale by zoom
		// 3. Center on screen
		opts.GeoM.Translate(sprite.X-camera.Position.X, sprite.Y-camera.Position.Y)
		opts.GeoM.Scale(zoom, zoom)
		opts.GeoM.Translate(float64(width)/2, float64(height)/2)
		screen.DrawImage(img, opts)
	})
}

// textureOf returns the sprite's texture as an *ebiten.Image, uploading CPU
// textures on first use.
func textureOf(sprite *components.SpriteData) *ebiten.Image {
	switch tex := sprite.Texture.(type) {
	case nil:
		return nil
	case *ebiten.Image:
		return tex
	default:
		img := ebiten.NewImageFromImage(tex)
		sprite.Texture = img
		return img
	}
}
