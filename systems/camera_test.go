package systems

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	dmath "github.com/yohamta/donburi/features/math"
)

func TestClampCamera(t *testing.T) {
	bounds := image.Rect(0, 0, 1000, 500)

	cases := []struct {
		name string
		pos  dmath.Vec2
		want dmath.Vec2
	}{
		{"inside", dmath.Vec2{X: 400, Y: 250}, dmath.Vec2{X: 400, Y: 250}},
		{"top_left", dmath.Vec2{X: 0, Y: 0}, dmath.Vec2{X: 320, Y: 180}},
		{"bottom_right", dmath.Vec2{X: 5000, Y: 5000}, dmath.Vec2{X: 680, Y: 320}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, clampCamera(c.pos, bounds, 640, 360))
		})
	}
}

func TestClampCameraSmallMap(t *testing.T) {
	got := clampCamera(dmath.Vec2{X: 0, Y: 999}, image.Rect(0, 0, 200, 100), 640, 360)
	assert.Equal(t, dmath.Vec2{X: 100, Y: 50}, got)

	// no bounds yet
	pos := dmath.Vec2{X: 3, Y: 4}
	assert.Equal(t, pos, clampCamera(pos, image.Rectangle{}, 640, 360))
}
