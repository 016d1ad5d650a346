// Package leveldata provides the typed level document shared by the viewer and
// the headless tools. It has no dependencies on ebitengine, donburi or resolv,
// pure data only.
package leveldata

// Tiled stores flip state in the top bits of a gid.
const (
	FlagFlipHorizontal uint32 = 0x80000000
	FlagFlipVertical   uint32 = 0x40000000
	FlagFlipDiagonal   uint32 = 0x20000000
	FlagRotatedHex     uint32 = 0x10000000

	flagMask = FlagFlipHorizontal | FlagFlipVertical | FlagFlipDiagonal | FlagRotatedHex
)

// MaxCells bounds Width*Height of a document.
const MaxCells = 1 << 24

// maxPixels bounds the pixel size of a map along either axis.
const maxPixels = 1 << 20

// StripFlags returns the bare gid and the flip bits that were set on it.
func StripFlags(v uint32) (gid uint32, flags uint32) {
	return v &^ flagMask, v & flagMask
}

// LayerKind discriminates tile layers from object layers.
type LayerKind int

const (
	KindTile LayerKind = iota
	KindObject
)

func (k LayerKind) String() string {
	switch k {
	case KindTile:
		return "tilelayer"
	case KindObject:
		return "objectgroup"
	default:
		return "unknown"
	}
}

// Document is an immutable, fully decoded level.
type Document struct {
	Width      int // tiles
	Height     int // tiles
	TileWidth  int // px
	TileHeight int // px
	Layers     []Layer
	Tilesets   []Tileset
}

// PixelWidth is the map width in pixels.
func (d *Document) PixelWidth() int { return d.Width * d.TileWidth }

// PixelHeight is the map height in pixels.
func (d *Document) PixelHeight() int { return d.Height * d.TileHeight }

// TileLayers returns the tile layers in document order.
func (d *Document) TileLayers() []Layer {
	var out []Layer
	for _, l := range d.Layers {
		if l.Kind == KindTile {
			out = append(out, l)
		}
	}
	return out
}

// Layer is either a tile layer (Data) or an object layer (Objects).
type Layer struct {
	Kind    LayerKind
	Name    string
	Visible bool
	Opacity float64
	OffsetX float64
	OffsetY float64

	Data    []uint32 // KindTile, Width*Height raw gids (flip bits kept)
	Objects []Object // KindObject
}

// Tileset owns the gid range [FirstGID, FirstGID+TileCount).
type Tileset struct {
	FirstGID    uint32
	Name        string
	Image       string // asset path of the source image
	ImageWidth  int
	ImageHeight int
	TileWidth   int
	TileHeight  int
	Margin      int
	Spacing     int
	Columns     int
	TileCount   int

	// TileProperties is keyed by local tile id.
	TileProperties map[uint32]Properties
}

// LastGID is the last gid owned by the tileset, or FirstGID-1 when empty.
func (t *Tileset) LastGID() uint32 {
	return t.FirstGID + uint32(t.TileCount) - 1
}

// Collides reports the "collide" property of a local tile id.
func (t *Tileset) Collides(localID uint32) bool {
	return t.TileProperties[localID].Bool("collide")
}

// Object is a positioned entry of an object layer.
type Object struct {
	ID         int
	Name       string
	Type       string
	X, Y       float64
	Width      float64
	Height     float64
	Rotation   float64
	Visible    bool
	Properties Properties
}

// Properties holds free-form custom properties.
type Properties map[string]any

// Bool returns the named property when it is a boolean true.
func (p Properties) Bool(name string) bool {
	v, ok := p[name].(bool)
	return ok && v
}

// String returns the named property as a string, or "".
func (p Properties) String(name string) string {
	v, _ := p[name].(string)
	return v
}

// Float returns the named property as a float64, or 0.
func (p Properties) Float(name string) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
