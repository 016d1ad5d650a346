package leveldata

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/lafriks/go-tiled"
)

// Load decodes the map at name, picking the decoder from the extension:
// .tmx goes through go-tiled, .json/.tmj through the JSON decoder.
func Load(fsys fs.FS, name string) (*Document, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".tmx":
		return LoadTMX(fsys, name)
	case ".json", ".tmj":
		return LoadJSON(fsys, name)
	default:
		return nil, fmt.Errorf("load %s: unknown map format", name)
	}
}

// Discover lists every map file in dir within fsys, sorted by name.
func Discover(fsys fs.FS, dir string) ([]string, error) {
	var names []string
	for _, ext := range []string{"*.tmx", "*.json", "*.tmj"} {
		pattern := path.Join(dir, ext)
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		names = append(names, matches...)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no map files found in %s", dir)
	}
	sort.Strings(names)
	return names, nil
}

// LoadTMX parses a TMX file into a Document. It takes an fs.FS so callers can
// pass embed.FS or os.DirFS.
func LoadTMX(fsys fs.FS, tmxPath string) (*Document, error) {
	levelMap, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}
	doc := &Document{
		Width:      levelMap.Width,
		Height:     levelMap.Height,
		TileWidth:  levelMap.TileWidth,
		TileHeight: levelMap.TileHeight,
	}

	mapDir := path.Dir(tmxPath)
	for _, ts := range levelMap.Tilesets {
		tileset, err := tmxTileset(ts, mapDir)
		if err != nil {
			return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
		}
		doc.Tilesets = append(doc.Tilesets, tileset)
	}

	appendTMXLayers(doc, levelMap.Layers, levelMap.ObjectGroups, levelMap.Groups)

	// Infinite maps store chunks, which leaves tile layers with the wrong
	// cell count; Validate rejects them.
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// appendTMXLayers flattens layers into doc. go-tiled keeps tile layers and
// object groups in separate lists, so tile layers come first at each level,
// followed by object groups and then nested groups.
func appendTMXLayers(doc *Document, layers []*tiled.Layer, objectGroups []*tiled.ObjectGroup, groups []*tiled.Group) {
	for _, layer := range layers {
		doc.Layers = append(doc.Layers, tmxTileLayer(layer))
	}
	for _, og := range objectGroups {
		doc.Layers = append(doc.Layers, tmxObjectLayer(og))
	}
	for _, g := range groups {
		appendTMXLayers(doc, g.Layers, g.ObjectGroups, g.Groups)
	}
}

func tmxTileLayer(layer *tiled.Layer) Layer {
	data := make([]uint32, len(layer.Tiles))
	for i, tile := range layer.Tiles {
		if tile == nil || tile.IsNil() || tile.Tileset == nil {
			continue
		}
		gid := tile.Tileset.FirstGID + tile.ID
		if tile.HorizontalFlip {
			gid |= FlagFlipHorizontal
		}
		if tile.VerticalFlip {
			gid |= FlagFlipVertical
		}
		if tile.DiagonalFlip {
			gid |= FlagFlipDiagonal
		}
		data[i] = gid
	}
	return Layer{
		Kind:    KindTile,
		Name:    layer.Name,
		Visible: layer.Visible,
		Opacity: float64(layer.Opacity),
		OffsetX: float64(layer.OffsetX),
		OffsetY: float64(layer.OffsetY),
		Data:    data,
	}
}

func tmxObjectLayer(og *tiled.ObjectGroup) Layer {
	layer := Layer{
		Kind:    KindObject,
		Name:    og.Name,
		Visible: og.Visible,
		Opacity: float64(og.Opacity),
		OffsetX: float64(og.OffsetX),
		OffsetY: float64(og.OffsetY),
	}
	for _, o := range og.Objects {
		objType := o.Class
		if objType == "" {
			objType = o.Type //nolint:staticcheck // TMX uses type= attribute
		}
		layer.Objects = append(layer.Objects, Object{
			ID:         int(o.ID),
			Name:       o.Name,
			Type:       objType,
			X:          o.X,
			Y:          o.Y,
			Width:      o.Width,
			Height:     o.Height,
			Rotation:   o.Rotation,
			Visible:    o.Visible,
			Properties: tmxProperties(o.Properties),
		})
	}
	return layer
}

func tmxTileset(ts *tiled.Tileset, mapDir string) (Tileset, error) {
	if ts.Image == nil {
		return Tileset{}, &DocumentError{Field: "tileset." + ts.Name, Reason: "image collection tilesets are not supported"}
	}

	// Image sources are relative to the file that declared them.
	baseDir := mapDir
	if ts.Source != "" {
		baseDir = path.Dir(path.Join(mapDir, ts.Source))
	}

	tileset := Tileset{
		FirstGID:       ts.FirstGID,
		Name:           ts.Name,
		Image:          path.Join(baseDir, ts.Image.Source),
		ImageWidth:     ts.Image.Width,
		ImageHeight:    ts.Image.Height,
		TileWidth:      ts.TileWidth,
		TileHeight:     ts.TileHeight,
		Margin:         ts.Margin,
		Spacing:        ts.Spacing,
		Columns:        ts.Columns,
		TileCount:      ts.TileCount,
		TileProperties: make(map[uint32]Properties),
	}
	for _, tile := range ts.Tiles {
		if props := tmxProperties(tile.Properties); len(props) > 0 {
			tileset.TileProperties[tile.ID] = props
		}
	}
	return tileset, nil
}

// tmxProperties converts go-tiled properties into typed values. Elements
// expose them either by value or by pointer depending on the element type.
func tmxProperties(v any) Properties {
	var list tiled.Properties
	switch p := v.(type) {
	case tiled.Properties:
		list = p
	case *tiled.Properties:
		if p != nil {
			list = *p
		}
	}
	if len(list) == 0 {
		return nil
	}

	props := make(Properties, len(list))
	for _, prop := range list {
		if prop == nil {
			continue
		}
		props[prop.Name] = typedValue(prop.Type, prop.Value)
	}
	return props
}

func typedValue(typ, value string) any {
	switch typ {
	case "bool":
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	case "int", "float", "object":
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return value
}
