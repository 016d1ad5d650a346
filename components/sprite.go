package components

import (
	"image"

	"github.com/yohamta/donburi"
)

// SpriteData is a baked region texture placed in world space. Texture is
// converted to an *ebiten.Image the first time it is drawn.
type SpriteData struct {
	Texture image.Image
	X, Y    float64
}

var Sprite = donburi.NewComponentType[SpriteData]()
