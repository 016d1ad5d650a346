package leveldata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strconv"
)

type jsonMap struct {
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	TileWidth  int           `json:"tilewidth"`
	TileHeight int           `json:"tileheight"`
	Infinite   bool          `json:"infinite"`
	Layers     []jsonLayer   `json:"layers"`
	Tilesets   []jsonTileset `json:"tilesets"`
}

type jsonLayer struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Visible     *bool           `json:"visible"`
	Opacity     *float64        `json:"opacity"`
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	OffsetX     float64         `json:"offsetx"`
	OffsetY     float64         `json:"offsety"`
	Data        json.RawMessage `json:"data"`
	Encoding    string          `json:"encoding"`
	Compression string          `json:"compression"`
	Objects     []jsonObject    `json:"objects"`
	Layers      []jsonLayer     `json:"layers"` // group children
}

type jsonObject struct {
	ID         int             `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Class      string          `json:"class"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	Width      float64         `json:"width"`
	Height     float64         `json:"height"`
	Rotation   float64         `json:"rotation"`
	Visible    *bool           `json:"visible"`
	Properties json.RawMessage `json:"properties"`
}

type jsonTileset struct {
	FirstGID       uint32                     `json:"firstgid"`
	Source         string                     `json:"source"`
	Name           string                     `json:"name"`
	Image          string                     `json:"image"`
	ImageWidth     int                        `json:"imagewidth"`
	ImageHeight    int                        `json:"imageheight"`
	TileWidth      int                        `json:"tilewidth"`
	TileHeight     int                        `json:"tileheight"`
	Margin         int                        `json:"margin"`
	Spacing        int                        `json:"spacing"`
	Columns        int                        `json:"columns"`
	TileCount      int                        `json:"tilecount"`
	TileProperties map[string]json.RawMessage `json:"tileproperties"`
	Tiles          []jsonTile                 `json:"tiles"`
}

type jsonTile struct {
	ID         uint32          `json:"id"`
	Properties json.RawMessage `json:"properties"`
}

type jsonProperty struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// LoadJSON reads and decodes a Tiled JSON map from fsys. Tileset image paths
// are resolved relative to the map's directory.
func LoadJSON(fsys fs.FS, name string) (*Document, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", name, err)
	}
	doc, err := Decode(b, path.Dir(name))
	if err != nil {
		return nil, fmt.Errorf("decode map %s: %w", name, err)
	}
	return doc, nil
}

// Decode parses a Tiled JSON map. baseDir is joined onto every tileset image
// path; pass "" to keep them as written.
func Decode(b []byte, baseDir string) (*Document, error) {
	var raw jsonMap
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if raw.Infinite {
		return nil, &DocumentError{Field: "infinite", Reason: "infinite maps are not supported"}
	}

	doc := &Document{
		Width:      raw.Width,
		Height:     raw.Height,
		TileWidth:  raw.TileWidth,
		TileHeight: raw.TileHeight,
	}

	for i, rt := range raw.Tilesets {
		ts, err := decodeTileset(rt, baseDir)
		if err != nil {
			return nil, fmt.Errorf("tileset %d: %w", i, err)
		}
		doc.Tilesets = append(doc.Tilesets, ts)
	}

	if err := appendLayers(doc, raw.Layers); err != nil {
		return nil, err
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func appendLayers(doc *Document, layers []jsonLayer) error {
	for _, rl := range layers {
		base := Layer{
			Name:    rl.Name,
			Visible: rl.Visible == nil || *rl.Visible,
			Opacity: 1,
			OffsetX: rl.X + rl.OffsetX,
			OffsetY: rl.Y + rl.OffsetY,
		}
		if rl.Opacity != nil {
			base.Opacity = *rl.Opacity
		}

		switch rl.Type {
		case "tilelayer":
			data, err := decodeLayerData(rl.Data, rl.Encoding, rl.Compression)
			if err != nil {
				return fmt.Errorf("layer %q: %w", rl.Name, err)
			}
			base.Kind = KindTile
			base.Data = data
			doc.Layers = append(doc.Layers, base)
		case "objectgroup":
			base.Kind = KindObject
			for _, ro := range rl.Objects {
				obj, err := decodeObject(ro)
				if err != nil {
					return fmt.Errorf("layer %q: %w", rl.Name, err)
				}
				base.Objects = append(base.Objects, obj)
			}
			doc.Layers = append(doc.Layers, base)
		case "group":
			if err := appendLayers(doc, rl.Layers); err != nil {
				return err
			}
		}
		// image layers are not part of the tile pipeline
	}
	return nil
}

func decodeObject(ro jsonObject) (Object, error) {
	props, err := decodeProperties(ro.Properties)
	if err != nil {
		return Object{}, fmt.Errorf("object %d: %w", ro.ID, err)
	}
	typ := ro.Type
	if typ == "" {
		typ = ro.Class
	}
	return Object{
		ID:         ro.ID,
		Name:       ro.Name,
		Type:       typ,
		X:          ro.X,
		Y:          ro.Y,
		Width:      ro.Width,
		Height:     ro.Height,
		Rotation:   ro.Rotation,
		Visible:    ro.Visible == nil || *ro.Visible,
		Properties: props,
	}, nil
}

func decodeTileset(rt jsonTileset, baseDir string) (Tileset, error) {
	if rt.Source != "" {
		return Tileset{}, &DocumentError{Field: "tilesets.source", Reason: "external tilesets are not supported in JSON maps: " + rt.Source}
	}

	ts := Tileset{
		FirstGID:       rt.FirstGID,
		Name:           rt.Name,
		Image:          rt.Image,
		ImageWidth:     rt.ImageWidth,
		ImageHeight:    rt.ImageHeight,
		TileWidth:      rt.TileWidth,
		TileHeight:     rt.TileHeight,
		Margin:         rt.Margin,
		Spacing:        rt.Spacing,
		Columns:        rt.Columns,
		TileCount:      rt.TileCount,
		TileProperties: make(map[uint32]Properties),
	}
	if baseDir != "" && rt.Image != "" {
		ts.Image = path.Join(baseDir, rt.Image)
	}

	for key, msg := range rt.TileProperties {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return Tileset{}, &DocumentError{Field: "tileproperties", Reason: "non-numeric tile id " + strconv.Quote(key)}
		}
		props, err := decodeProperties(msg)
		if err != nil {
			return Tileset{}, err
		}
		ts.TileProperties[uint32(id)] = props
	}
	for _, tile := range rt.Tiles {
		props, err := decodeProperties(tile.Properties)
		if err != nil {
			return Tileset{}, err
		}
		if props == nil {
			continue
		}
		merged := ts.TileProperties[tile.ID]
		if merged == nil {
			merged = make(Properties, len(props))
		}
		for k, v := range props {
			merged[k] = v
		}
		ts.TileProperties[tile.ID] = merged
	}
	return ts, nil
}

// decodeProperties accepts both the legacy object form and the newer
// [{name,type,value}] array form.
func decodeProperties(msg json.RawMessage) (Properties, error) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || bytes.Equal(msg, []byte("null")) {
		return nil, nil
	}

	switch msg[0] {
	case '{':
		var p Properties
		if err := json.Unmarshal(msg, &p); err != nil {
			return nil, fmt.Errorf("properties: %w", err)
		}
		return p, nil
	case '[':
		var list []jsonProperty
		if err := json.Unmarshal(msg, &list); err != nil {
			return nil, fmt.Errorf("properties: %w", err)
		}
		p := make(Properties, len(list))
		for _, prop := range list {
			p[prop.Name] = prop.Value
		}
		return p, nil
	default:
		return nil, &DocumentError{Field: "properties", Reason: "expected object or array"}
	}
}

// Validate checks the structural invariants the pipeline relies on.
func (d *Document) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return &DocumentError{Field: "width/height", Reason: fmt.Sprintf("invalid map size %dx%d", d.Width, d.Height)}
	}
	if d.TileWidth <= 0 || d.TileHeight <= 0 {
		return &DocumentError{Field: "tilewidth/tileheight", Reason: fmt.Sprintf("invalid tile size %dx%d", d.TileWidth, d.TileHeight)}
	}
	if d.Width > MaxCells/d.Height {
		return &DocumentError{Field: "width/height", Reason: fmt.Sprintf("map of %dx%d tiles exceeds %d cells", d.Width, d.Height, MaxCells)}
	}
	if d.Width > maxPixels/d.TileWidth || d.Height > maxPixels/d.TileHeight {
		return &DocumentError{Field: "tilewidth/tileheight", Reason: fmt.Sprintf("map of %dx%d tiles of %dx%d px is too large", d.Width, d.Height, d.TileWidth, d.TileHeight)}
	}
	cells := d.Width * d.Height
	for _, l := range d.Layers {
		if l.Kind == KindTile && len(l.Data) != cells {
			return &DocumentError{
				Field:  "layers." + l.Name + ".data",
				Reason: fmt.Sprintf("got %d cells, want %d", len(l.Data), cells),
			}
		}
	}
	return nil
}
