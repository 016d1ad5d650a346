package regioncache

import (
	"fmt"
	"image"

	"github.com/automoto/tilemap/compositor"
	"github.com/hajimehoshi/ebiten/v2"
)

// EbitenRenderer bakes regions on the GPU into *ebiten.Image textures.
type EbitenRenderer struct {
	sources map[string]*ebiten.Image
	owned   []*ebiten.Image
	missing *ebiten.Image
}

// NewEbitenRenderer uploads the tileset images once. Images that already are
// *ebiten.Image are used as is.
func NewEbitenRenderer(sources map[string]image.Image) *EbitenRenderer {
	r := &EbitenRenderer{sources: make(map[string]*ebiten.Image, len(sources))}
	for key, img := range sources {
		if eimg, ok := img.(*ebiten.Image); ok {
			r.sources[key] = eimg
			continue
		}
		eimg := ebiten.NewImageFromImage(img)
		r.sources[key] = eimg
		r.owned = append(r.owned, eimg)
	}
	r.missing = ebiten.NewImage(1, 1)
	r.missing.Fill(MissingTileColor)
	return r
}

func (r *EbitenRenderer) Render(cmds []compositor.DrawCommand, area image.Rectangle) (image.Image, error) {
	dst := ebiten.NewImage(area.Dx(), area.Dy())
	for _, cmd := range cmds {
		op := &ebiten.DrawImageOptions{}

		if cmd.Placeholder {
			op.GeoM.Scale(float64(cmd.Size.X), float64(cmd.Size.Y))
			op.GeoM.Translate(float64(cmd.X-area.Min.X), float64(cmd.Y-area.Min.Y))
			op.ColorScale.ScaleAlpha(float32(cmd.Alpha))
			dst.DrawImage(r.missing, op)
			continue
		}

		src, ok := r.sources[cmd.Image]
		if !ok {
			dst.Deallocate()
			return nil, fmt.Errorf("no source image %q", cmd.Image)
		}
		tile := src.SubImage(cmd.Region).(*ebiten.Image)

		op.GeoM = flipGeoM(cmd.Region.Size(), cmd.Flip)
		op.GeoM.Translate(float64(cmd.X-area.Min.X), float64(cmd.Y-area.Min.Y))
		op.ColorScale.ScaleAlpha(float32(cmd.Alpha))
		dst.DrawImage(tile, op)
	}
	return dst, nil
}

// Release frees the GPU memory behind a baked texture.
func (r *EbitenRenderer) Release(tex image.Image) {
	if img, ok := tex.(*ebiten.Image); ok {
		img.Deallocate()
	}
}

// Dispose frees the tileset images uploaded by NewEbitenRenderer once baking
// is finished.
func (r *EbitenRenderer) Dispose() {
	for _, img := range r.owned {
		img.Deallocate()
	}
	r.owned = nil
	r.missing.Deallocate()
}

// flipGeoM maps a tile of size onto itself with Tiled's flip order applied.
func flipGeoM(size image.Point, f compositor.Flip) ebiten.GeoM {
	var g ebiten.GeoM
	w, h := float64(size.X), float64(size.Y)
	if f.Diagonal {
		g.SetElement(0, 0, 0)
		g.SetElement(0, 1, 1)
		g.SetElement(1, 0, 1)
		g.SetElement(1, 1, 0)
		w, h = h, w
	}
	if f.Horizontal {
		g.Scale(-1, 1)
		g.Translate(w, 0)
	}
	if f.Vertical {
		g.Scale(1, -1)
		g.Translate(0, h)
	}
	return g
}
