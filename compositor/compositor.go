// Package compositor expands tile layers into ordered draw commands.
package compositor

import (
	"errors"
	"image"

	"github.com/automoto/tilemap/atlas"
	"github.com/automoto/tilemap/shared/leveldata"
)

// Flip holds the Tiled flip flags of a cell.
type Flip struct {
	Horizontal bool
	Vertical   bool
	Diagonal   bool
}

// Any reports whether any flip is set.
func (f Flip) Any() bool {
	return f.Horizontal || f.Vertical || f.Diagonal
}

func flipFromFlags(flags uint32) Flip {
	return Flip{
		Horizontal: flags&leveldata.FlagFlipHorizontal != 0,
		Vertical:   flags&leveldata.FlagFlipVertical != 0,
		Diagonal:   flags&leveldata.FlagFlipDiagonal != 0,
	}
}

// DrawCommand places one tileset region in world space.
type DrawCommand struct {
	Image  string
	Region image.Rectangle
	X, Y   int
	Alpha  float64
	Flip   Flip

	// Placeholder marks a cell whose gid could not be resolved. Renderers
	// draw a solid "missing tile" square of Size instead.
	Placeholder bool
	Size        image.Point
}

// Bounds is the world-space rectangle the command covers.
func (c DrawCommand) Bounds() image.Rectangle {
	size := c.Size
	if !c.Placeholder {
		size = c.Region.Size()
		if c.Flip.Diagonal {
			size.X, size.Y = size.Y, size.X
		}
	}
	return image.Rectangle{Min: image.Pt(c.X, c.Y), Max: image.Pt(c.X+size.X, c.Y+size.Y)}
}

// Options controls how unresolvable cells are handled.
type Options struct {
	// Placeholders emits placeholder commands for unknown gids instead of
	// failing with *atlas.LookupError.
	Placeholders bool
}

// Grid describes the cell layout shared by every tile layer.
type Grid struct {
	Width      int // tiles per row
	TileWidth  int
	TileHeight int
}

// Cell returns the world position of cell index i.
func (g Grid) Cell(i int) (x, y int) {
	col := i % g.Width
	row := i / g.Width
	return col * g.TileWidth, row * g.TileHeight
}

// Composite walks the tile layers in order and emits one command per
// non-empty cell. Object layers are skipped and do not affect ordering.
func Composite(a *atlas.Atlas, layers []leveldata.Layer, grid Grid, opts Options) ([]DrawCommand, error) {
	var cmds []DrawCommand
	for _, layer := range layers {
		if layer.Kind != leveldata.KindTile {
			continue
		}
		for i, v := range layer.Data {
			if v == 0 {
				continue
			}
			gid, flags := leveldata.StripFlags(v)
			x, y := grid.Cell(i)

			desc, err := a.Lookup(gid)
			if err != nil {
				var lookupErr *atlas.LookupError
				if !opts.Placeholders || !errors.As(err, &lookupErr) {
					return nil, err
				}
				cmds = append(cmds, DrawCommand{
					X: x, Y: y,
					Alpha:       layer.Opacity,
					Placeholder: true,
					Size:        image.Pt(grid.TileWidth, grid.TileHeight),
				})
				continue
			}

			cmds = append(cmds, DrawCommand{
				Image:  desc.Image,
				Region: desc.Region,
				X:      x,
				Y:      y,
				Alpha:  layer.Opacity,
				Flip:   flipFromFlags(flags),
			})
		}
	}
	return cmds, nil
}
