// Package regioncache bakes composited tile geometry into a small number of
// fixed-size textures so the game loop submits one draw per visible region
// instead of one per tile.
package regioncache

import (
	"context"
	"fmt"
	"image"

	"github.com/automoto/tilemap/compositor"
)

// DefaultRegionSize is the edge length of a baked region in pixels.
const DefaultRegionSize = 1024

// MaxRegions bounds how many textures a single Bake may produce.
const MaxRegions = 1 << 16

// Renderer is the scene collaborator that renders draw commands offscreen.
type Renderer interface {
	// Render draws every command into a new texture covering area. The
	// texture's top-left pixel corresponds to area.Min in world space.
	Render(cmds []compositor.DrawCommand, area image.Rectangle) (image.Image, error)
	// Release frees a texture returned by Render.
	Release(tex image.Image)
}

// CacheTile is one baked region positioned in world space.
type CacheTile struct {
	Texture image.Image
	X, Y    int
}

// Bounds is the world-space rectangle the tile covers.
func (t CacheTile) Bounds() image.Rectangle {
	b := t.Texture.Bounds()
	return image.Rect(t.X, t.Y, t.X+b.Dx(), t.Y+b.Dy())
}

// GridSize returns how many regions of size px cover bounds.
func GridSize(bounds image.Rectangle, size int) (cols, rows int) {
	if size <= 0 || bounds.Empty() {
		return 0, 0
	}
	return ceilDiv(bounds.Dx(), size), ceilDiv(bounds.Dy(), size)
}

func ceilDiv(a, b int) int {
	return (a-1)/b + 1
}

// Bake renders bounds into ceil(W/size)*ceil(H/size) textures of size x size,
// ordered row by row. It is all-or-nothing: on error or cancellation every
// texture produced so far is released and nil is returned.
func Bake(ctx context.Context, r Renderer, cmds []compositor.DrawCommand, bounds image.Rectangle, size int) ([]CacheTile, error) {
	if size <= 0 {
		return nil, fmt.Errorf("regioncache: invalid region size %d", size)
	}
	cols, rows := GridSize(bounds, size)
	if rows > 0 && cols > MaxRegions/rows {
		return nil, fmt.Errorf("regioncache: %dx%d regions of %dpx exceed the limit of %d", cols, rows, size, MaxRegions)
	}
	buckets := partition(cmds, bounds, size, cols, rows)

	tiles := make([]CacheTile, 0, cols*rows)
	for gy := 0; gy < rows; gy++ {
		for gx := 0; gx < cols; gx++ {
			if err := ctx.Err(); err != nil {
				Release(r, tiles)
				return nil, err
			}

			origin := bounds.Min.Add(image.Pt(gx*size, gy*size))
			area := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(size, size))}
			tex, err := r.Render(buckets[gy*cols+gx], area)
			if err != nil {
				Release(r, tiles)
				return nil, fmt.Errorf("regioncache: region (%d,%d): %w", gx, gy, err)
			}
			tiles = append(tiles, CacheTile{Texture: tex, X: origin.X, Y: origin.Y})
		}
	}
	return tiles, nil
}

// partition buckets commands by every region they overlap, keeping command
// order inside each bucket.
func partition(cmds []compositor.DrawCommand, bounds image.Rectangle, size, cols, rows int) [][]compositor.DrawCommand {
	buckets := make([][]compositor.DrawCommand, cols*rows)
	for _, cmd := range cmds {
		b := cmd.Bounds().Intersect(bounds)
		if b.Empty() {
			continue
		}
		gx0 := (b.Min.X - bounds.Min.X) / size
		gy0 := (b.Min.Y - bounds.Min.Y) / size
		gx1 := (b.Max.X - 1 - bounds.Min.X) / size
		gy1 := (b.Max.Y - 1 - bounds.Min.Y) / size
		for gy := gy0; gy <= gy1; gy++ {
			for gx := gx0; gx <= gx1; gx++ {
				i := gy*cols + gx
				buckets[i] = append(buckets[i], cmd)
			}
		}
	}
	return buckets
}

// Release frees every texture in tiles.
func Release(r Renderer, tiles []CacheTile) {
	for _, t := range tiles {
		if t.Texture != nil {
			r.Release(t.Texture)
		}
	}
}
