package regioncache

import (
	"fmt"
	"image"
	"image/color"

	"github.com/automoto/tilemap/compositor"
	"golang.org/x/image/draw"
)

// MissingTileColor fills placeholder cells.
var MissingTileColor = color.RGBA{R: 0xff, G: 0x00, B: 0xff, A: 0xff}

// ImageRenderer renders on the CPU into *image.RGBA textures. It needs no
// graphics context, so headless tools and tests use it.
type ImageRenderer struct {
	sources map[string]image.Image
}

// NewImageRenderer returns a renderer drawing from the given tileset images,
// keyed like DrawCommand.Image.
func NewImageRenderer(sources map[string]image.Image) *ImageRenderer {
	return &ImageRenderer{sources: sources}
}

func (r *ImageRenderer) Render(cmds []compositor.DrawCommand, area image.Rectangle) (image.Image, error) {
	dst := image.NewRGBA(image.Rect(0, 0, area.Dx(), area.Dy()))
	for _, cmd := range cmds {
		if err := r.draw(dst, cmd, area.Min); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (r *ImageRenderer) draw(dst *image.RGBA, cmd compositor.DrawCommand, origin image.Point) error {
	rect := cmd.Bounds().Sub(origin)
	mask := alphaMask(cmd.Alpha)

	if cmd.Placeholder {
		draw.DrawMask(dst, rect, image.NewUniform(MissingTileColor), image.Point{}, mask, image.Point{}, draw.Over)
		return nil
	}

	src, ok := r.sources[cmd.Image]
	if !ok {
		return fmt.Errorf("no source image %q", cmd.Image)
	}

	sp := cmd.Region.Min
	if cmd.Flip.Any() {
		src = flipTile(src, cmd.Region, cmd.Flip)
		sp = image.Point{}
	}
	draw.DrawMask(dst, rect, src, sp, mask, image.Point{}, draw.Over)
	return nil
}

// Release is a no-op; CPU textures are garbage collected.
func (r *ImageRenderer) Release(image.Image) {}

func alphaMask(alpha float64) image.Image {
	if alpha >= 1 {
		return nil
	}
	if alpha < 0 {
		alpha = 0
	}
	return image.NewUniform(color.Alpha{A: uint8(alpha*0xff + 0.5)})
}

// flipTile copies region out of src applying Tiled's flip order: diagonal
// first, then horizontal, then vertical.
func flipTile(src image.Image, region image.Rectangle, f compositor.Flip) *image.RGBA {
	w, h := region.Dx(), region.Dy()
	if f.Diagonal {
		w, h = h, w
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u, v := x, y
			if f.Horizontal {
				u = w - 1 - u
			}
			if f.Vertical {
				v = h - 1 - v
			}
			if f.Diagonal {
				u, v = v, u
			}
			out.Set(x, y, src.At(region.Min.X+u, region.Min.Y+v))
		}
	}
	return out
}
