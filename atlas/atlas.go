// Package atlas resolves global tile ids to tileset image regions and
// collision flags.
package atlas

import (
	"fmt"
	"image"
	"sort"

	"github.com/automoto/tilemap/shared/leveldata"
)

// TileDescriptor is the resolved form of one gid.
type TileDescriptor struct {
	Image    string // tileset image key
	Region   image.Rectangle
	Collides bool
}

type span struct {
	first, last uint32
	tiles       []TileDescriptor // indexed by local id
}

// Atlas maps every gid owned by a tileset to its descriptor. It is read-only
// after Build.
type Atlas struct {
	spans []span // sorted by first gid
	count int
}

// Build resolves every tile of every tileset. Tilesets with overlapping gid
// ranges or with image dimensions that are not a whole number of tiles are
// rejected.
func Build(tilesets []leveldata.Tileset) (*Atlas, error) {
	a := &Atlas{}
	for i := range tilesets {
		ts := &tilesets[i]
		tiles, err := buildTileset(ts)
		if err != nil {
			return nil, err
		}
		if len(tiles) == 0 {
			continue
		}
		a.spans = append(a.spans, span{
			first: ts.FirstGID,
			last:  ts.FirstGID + uint32(len(tiles)) - 1,
			tiles: tiles,
		})
		a.count += len(tiles)
	}

	sort.Slice(a.spans, func(i, j int) bool { return a.spans[i].first < a.spans[j].first })
	for i := 1; i < len(a.spans); i++ {
		prev, cur := a.spans[i-1], a.spans[i]
		if cur.first <= prev.last {
			return nil, &Error{
				Reason: fmt.Sprintf("gid range [%d,%d] overlaps [%d,%d]", cur.first, cur.last, prev.first, prev.last),
			}
		}
	}
	return a, nil
}

func buildTileset(ts *leveldata.Tileset) ([]TileDescriptor, error) {
	fail := func(format string, args ...any) error {
		return &Error{Tileset: ts.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if ts.FirstGID == 0 {
		return nil, fail("firstgid must be at least 1")
	}
	if ts.TileWidth <= 0 || ts.TileHeight <= 0 {
		return nil, fail("invalid tile size %dx%d", ts.TileWidth, ts.TileHeight)
	}
	if ts.Margin < 0 || ts.Spacing < 0 {
		return nil, fail("negative margin or spacing")
	}

	columns, err := tilesAlong(ts.ImageWidth, ts.TileWidth, ts.Margin, ts.Spacing)
	if err != nil {
		return nil, fail("image width: %v", err)
	}
	rows, err := tilesAlong(ts.ImageHeight, ts.TileHeight, ts.Margin, ts.Spacing)
	if err != nil {
		return nil, fail("image height: %v", err)
	}
	if ts.Columns != 0 && ts.Columns != columns {
		return nil, fail("declared %d columns but the image holds %d", ts.Columns, columns)
	}

	count := columns * rows
	if ts.TileCount > 0 {
		if ts.TileCount > count {
			return nil, fail("tilecount %d exceeds the %d tiles in the image", ts.TileCount, count)
		}
		count = ts.TileCount
	}

	tiles := make([]TileDescriptor, count)
	for row := 0; row < rows; row++ {
		for col := 0; col < columns; col++ {
			localID := row*columns + col
			if localID >= count {
				return tiles, nil
			}
			x := ts.Margin + col*(ts.TileWidth+ts.Spacing)
			y := ts.Margin + row*(ts.TileHeight+ts.Spacing)
			tiles[localID] = TileDescriptor{
				Image:    ts.Image,
				Region:   image.Rect(x, y, x+ts.TileWidth, y+ts.TileHeight),
				Collides: ts.Collides(uint32(localID)),
			}
		}
	}
	return tiles, nil
}

// tilesAlong returns how many tiles fit along one image axis, or an error if
// the axis is not an exact multiple of the tile pitch.
func tilesAlong(size, tile, margin, spacing int) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("invalid size %d", size)
	}
	usable := size - 2*margin + spacing
	pitch := tile + spacing
	if usable <= 0 || usable%pitch != 0 {
		return 0, fmt.Errorf("%d is not a whole number of %d px tiles", size, tile)
	}
	return usable / pitch, nil
}

// Lookup returns the descriptor of a bare gid (flip flags already stripped).
func (a *Atlas) Lookup(gid uint32) (TileDescriptor, error) {
	if gid != 0 {
		i := sort.Search(len(a.spans), func(i int) bool { return a.spans[i].last >= gid })
		if i < len(a.spans) && a.spans[i].first <= gid {
			s := a.spans[i]
			return s.tiles[gid-s.first], nil
		}
	}
	return TileDescriptor{}, &LookupError{GID: gid}
}

// Len is the number of resolvable gids.
func (a *Atlas) Len() int {
	return a.count
}
