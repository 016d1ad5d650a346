// Package collision derives static collision geometry from tile layers and
// hands it to a physics world.
package collision

import (
	"errors"

	"github.com/automoto/tilemap/atlas"
	"github.com/automoto/tilemap/compositor"
	"github.com/automoto/tilemap/shared/leveldata"
	"github.com/yohamta/donburi/features/math"
)

// StaticRectBody is an axis-aligned static rectangle anchored at its top-left
// corner in world pixels.
type StaticRectBody struct {
	X, Y float64
	W, H float64
}

// Center returns the middle of the rectangle for centre-anchored engines.
func (b StaticRectBody) Center() math.Vec2 {
	return math.Vec2{X: b.X + b.W/2, Y: b.Y + b.H/2}
}

// Build walks the tile layers the same way the compositor does and emits one
// body per non-empty cell whose tile collides. With opts.Placeholders set an
// unresolvable gid counts as non-colliding instead of failing.
func Build(a *atlas.Atlas, layers []leveldata.Layer, grid compositor.Grid, opts compositor.Options) ([]StaticRectBody, error) {
	var bodies []StaticRectBody
	for _, layer := range layers {
		if layer.Kind != leveldata.KindTile {
			continue
		}
		for i, v := range layer.Data {
			if v == 0 {
				continue
			}
			gid, _ := leveldata.StripFlags(v)

			desc, err := a.Lookup(gid)
			if err != nil {
				var lookupErr *atlas.LookupError
				if opts.Placeholders && errors.As(err, &lookupErr) {
					continue
				}
				return nil, err
			}
			if !desc.Collides {
				continue
			}

			x, y := grid.Cell(i)
			bodies = append(bodies, StaticRectBody{
				X: float64(x),
				Y: float64(y),
				W: float64(grid.TileWidth),
				H: float64(grid.TileHeight),
			})
		}
	}
	return bodies, nil
}
