package collision

import (
	"testing"

	"github.com/automoto/tilemap/atlas"
	"github.com/automoto/tilemap/compositor"
	"github.com/automoto/tilemap/shared/leveldata"
	"github.com/automoto/tilemap/tags"
	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi/features/math"
)

var grid = compositor.Grid{Width: 3, TileWidth: 16, TileHeight: 16}

// tiles 1 and 3 collide, 2 and 4 do not.
func testAtlas(t *testing.T) *atlas.Atlas {
	t.Helper()
	a, err := atlas.Build([]leveldata.Tileset{{
		FirstGID: 1, Name: "tiles", Image: "tiles.png",
		ImageWidth: 32, ImageHeight: 32, TileWidth: 16, TileHeight: 16,
		Columns: 2, TileCount: 4,
		TileProperties: map[uint32]leveldata.Properties{
			0: {"collide": true},
			2: {"collide": true},
			1: {"collide": false},
		},
	}})
	require.NoError(t, err)
	return a
}

func tileLayer(data ...uint32) leveldata.Layer {
	return leveldata.Layer{Kind: leveldata.KindTile, Visible: true, Opacity: 1, Data: data}
}

func TestBuildCounts(t *testing.T) {
	cases := []struct {
		name   string
		layers []leveldata.Layer
		want   int
	}{
		{"empty", []leveldata.Layer{tileLayer(0, 0, 0, 0, 0, 0)}, 0},
		{"non_colliding", []leveldata.Layer{tileLayer(2, 4, 2, 4, 2, 4)}, 0},
		{"mixed", []leveldata.Layer{tileLayer(1, 2, 3, 0, 1, 4)}, 3},
		{"flipped", []leveldata.Layer{tileLayer(1|leveldata.FlagFlipHorizontal, 0, 0, 0, 0, 0)}, 1},
		{"two_layers", []leveldata.Layer{tileLayer(1, 0, 0, 0, 0, 0), tileLayer(1, 3, 0, 0, 0, 0)}, 3},
		{"object_layer", []leveldata.Layer{{Kind: leveldata.KindObject, Objects: []leveldata.Object{{Name: "x"}}}}, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			bodies, err := Build(testAtlas(t), c.layers, grid, compositor.Options{})
			require.NoError(t, err)
			assert.Len(t, bodies, c.want)
		})
	}
}

func TestBuildPositions(t *testing.T) {
	bodies, err := Build(testAtlas(t), []leveldata.Layer{tileLayer(0, 0, 0, 0, 3, 0)}, grid, compositor.Options{})
	require.NoError(t, err)
	require.Len(t, bodies, 1)

	assert.Equal(t, StaticRectBody{X: 16, Y: 16, W: 16, H: 16}, bodies[0])
	assert.Equal(t, math.Vec2{X: 24, Y: 24}, bodies[0].Center())
}

func TestBuildUnknownGID(t *testing.T) {
	layers := []leveldata.Layer{tileLayer(1, 42, 0, 0, 0, 0)}

	_, err := Build(testAtlas(t), layers, grid, compositor.Options{})
	var lookupErr *atlas.LookupError
	require.ErrorAs(t, err, &lookupErr)

	bodies, err := Build(testAtlas(t), layers, grid, compositor.Options{Placeholders: true})
	require.NoError(t, err)
	assert.Len(t, bodies, 1)
}

func TestResolvWorld(t *testing.T) {
	w, err := NewResolvWorld(64, 64, 16)
	require.NoError(t, err)

	bodies := []StaticRectBody{{X: 0, Y: 16, W: 16, H: 16}, {X: 32, Y: 16, W: 16, H: 16}}
	require.NoError(t, w.AddStaticBodies(bodies))

	objs := w.Objects()
	require.Len(t, objs, 2)
	for i, obj := range objs {
		assert.Equal(t, bodies[i].X, obj.X)
		assert.Equal(t, bodies[i].Y, obj.Y)
		assert.True(t, obj.HasTags(tags.ResolvSolid))
	}
	assert.Len(t, w.Space.Objects(), 2)
}

func TestResolvWorldRejects(t *testing.T) {
	_, err := NewResolvWorld(64, 64, 0)
	assert.Error(t, err)

	w, err := NewResolvWorld(64, 64, 16)
	require.NoError(t, err)
	assert.Error(t, w.AddStaticBodies([]StaticRectBody{{X: 0, Y: 0, W: 16, H: 16}, {W: 0, H: 16}}))
	assert.Empty(t, w.Objects())
}

func TestChipmunkWorldCentres(t *testing.T) {
	w := NewChipmunkWorld()
	require.NoError(t, w.AddStaticBodies([]StaticRectBody{{X: 32, Y: 16, W: 16, H: 16}}))

	require.Len(t, w.Bodies(), 1)
	assert.Equal(t, cp.Vector{X: 40, Y: 24}, w.Bodies()[0].Position())
}
