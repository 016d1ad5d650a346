package assets

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSample(t *testing.T) {
	l := Embedded()

	names, err := l.ListMaps(MapsDir)
	require.NoError(t, err)
	require.Contains(t, names, "maps/sample.json")

	doc, err := l.LoadDocument(context.Background(), "maps/sample.json")
	require.NoError(t, err)
	assert.Equal(t, 40, doc.Width)
	assert.Equal(t, 23, doc.Height)
	require.Len(t, doc.Tilesets, 1)
	assert.Equal(t, "maps/tiles.png", doc.Tilesets[0].Image)

	imgs, err := l.LoadImages(context.Background(), []string{doc.Tilesets[0].Image})
	require.NoError(t, err)
	require.Contains(t, imgs, "maps/tiles.png")
	assert.Equal(t, 64, imgs["maps/tiles.png"].Bounds().Dx())
	assert.Equal(t, 32, imgs["maps/tiles.png"].Bounds().Dy())

	spawn, err := doc.FindZone("world-zones", "player-spawn", true)
	require.NoError(t, err)
	assert.Equal(t, 48.0, spawn.X)

	creatures, err := doc.ObjectLayer("world-creatures")
	require.NoError(t, err)
	assert.Len(t, creatures, 2)
}

func TestLoadImagesErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.png": {Data: []byte("not a png")},
	}
	l := NewLoader(fsys)

	cases := []struct {
		name  string
		names []string
	}{
		{"missing", []string{"nope.png"}},
		{"undecodable", []string{"bad.png"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			imgs, err := l.LoadImages(context.Background(), c.names)
			assert.Error(t, err)
			assert.Nil(t, imgs)
		})
	}
}

func TestLoadImagesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Embedded().LoadImages(ctx, []string{"maps/tiles.png"})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Embedded().LoadDocument(ctx, "maps/sample.json")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadImagesDeduplicates(t *testing.T) {
	l := Embedded()
	l.SetConcurrency(0)

	imgs, err := l.LoadImages(context.Background(), []string{"maps/tiles.png", "maps/tiles.png"})
	require.NoError(t, err)
	assert.Len(t, imgs, 1)
}

func TestLoadDocumentUnknownFormat(t *testing.T) {
	l := NewLoader(fstest.MapFS{"maps/level.txt": {Data: []byte("{}")}})
	_, err := l.LoadDocument(context.Background(), "maps/level.txt")
	assert.ErrorContains(t, err, "unknown map format")
}
