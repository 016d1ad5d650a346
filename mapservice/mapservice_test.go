package mapservice

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log"
	"testing"

	"github.com/automoto/tilemap/atlas"
	"github.com/automoto/tilemap/collision"
	"github.com/automoto/tilemap/config"
	"github.com/automoto/tilemap/regioncache"
	"github.com/automoto/tilemap/shared/leveldata"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yohamta/donburi/features/math"
)

const mapName = "maps/test.json"

// testDocument is a 4x2 map of 16px tiles. Tile 5 (local 4) collides.
func testDocument() *leveldata.Document {
	return &leveldata.Document{
		Width: 4, Height: 2, TileWidth: 16, TileHeight: 16,
		Layers: []leveldata.Layer{
			{Kind: leveldata.KindTile, Name: "ground", Visible: true, Opacity: 1, Data: []uint32{
				1, 2, 3, 4,
				5, 5, 0, 5,
			}},
			{Kind: leveldata.KindObject, Name: "world-zones", Visible: true, Opacity: 1, Objects: []leveldata.Object{
				{ID: 1, Name: "player-spawn", X: 16, Y: 8},
				{ID: 2, Name: "door", X: 48, Y: 0},
				{ID: 3, Name: "door", X: 48, Y: 16},
			}},
			{Kind: leveldata.KindObject, Name: "world-creatures", Visible: true, Opacity: 1, Objects: []leveldata.Object{
				{ID: 4, Name: "wolf-1", Type: "grey_wolf", X: 32, Y: 0, Properties: leveldata.Properties{"hp": 3.0}},
				{ID: 5, Name: "bee-1", Type: "bee", X: 40, Y: 4},
			}},
		},
		Tilesets: []leveldata.Tileset{{
			FirstGID: 1, Name: "tiles", Image: "maps/tiles.png",
			ImageWidth: 64, ImageHeight: 32, TileWidth: 16, TileHeight: 16,
			Columns: 4, TileCount: 8,
			TileProperties: map[uint32]leveldata.Properties{4: {"collide": true}},
		}},
	}
}

func tilesetImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	return img
}

type fakeLoader struct {
	doc       *leveldata.Document
	docErr    error
	imgErr    error
	images    map[string]image.Image
	onDoc     func()
	onImages  func()
	requested []string
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		doc:    testDocument(),
		images: map[string]image.Image{"maps/tiles.png": tilesetImage()},
	}
}

func (l *fakeLoader) LoadDocument(ctx context.Context, name string) (*leveldata.Document, error) {
	if l.onDoc != nil {
		l.onDoc()
	}
	if l.docErr != nil {
		return nil, l.docErr
	}
	return l.doc, nil
}

func (l *fakeLoader) LoadImages(ctx context.Context, names []string) (map[string]image.Image, error) {
	l.requested = names
	if l.onImages != nil {
		l.onImages()
	}
	if l.imgErr != nil {
		return nil, l.imgErr
	}
	return l.images, nil
}

type fakeScene struct {
	attached  []regioncache.CacheTile
	detached  []regioncache.CacheTile
	err       error
	onAttach  func()
	attachCnt int
}

func (s *fakeScene) AttachCacheTiles(tiles []regioncache.CacheTile) error {
	s.attachCnt++
	if s.err != nil {
		return s.err
	}
	s.attached = tiles
	if s.onAttach != nil {
		s.onAttach()
	}
	return nil
}

func (s *fakeScene) DetachCacheTiles(tiles []regioncache.CacheTile) {
	s.detached = tiles
}

type fakePhysics struct {
	bodies []collision.StaticRectBody
	calls  int
	err    error
}

func (p *fakePhysics) AddStaticBodies(bodies []collision.StaticRectBody) error {
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.bodies = bodies
	return nil
}

type releaseCounter struct {
	*regioncache.ImageRenderer
	released int
	disposed int
}

func (r *releaseCounter) Release(image.Image) { r.released++ }

func (r *releaseCounter) Dispose() { r.disposed++ }

// cancelAfter is a context that reports cancellation from its nth Err call on.
type cancelAfter struct {
	context.Context
	n     int
	calls int
}

func (c *cancelAfter) Err() error {
	c.calls++
	if c.calls >= c.n {
		return context.Canceled
	}
	return nil
}

type fixture struct {
	loader   *fakeLoader
	scene    *fakeScene
	physics  *fakePhysics
	renderer *releaseCounter
	cfg      config.MapConfig
	reg      *prometheus.Registry
}

func newFixture() *fixture {
	cfg := config.DefaultMap()
	cfg.RegionSize = 32
	return &fixture{
		loader:  newFakeLoader(),
		scene:   &fakeScene{},
		physics: &fakePhysics{},
		cfg:     cfg,
		reg:     prometheus.NewRegistry(),
	}
}

func (f *fixture) service(t *testing.T) *Service {
	t.Helper()
	s, err := New(Options{
		MapName: mapName,
		Config:  f.cfg,
		Loader:  f.loader,
		NewRenderer: func(images map[string]image.Image) (regioncache.Renderer, error) {
			f.renderer = &releaseCounter{ImageRenderer: regioncache.NewImageRenderer(images)}
			return f.renderer, nil
		},
		Scene:      f.scene,
		Physics:    f.physics,
		Logger:     log.New(io.Discard, "", 0),
		Registerer: f.reg,
	})
	require.NoError(t, err)
	return s
}

func TestLoad(t *testing.T) {
	f := newFixture()
	s := f.service(t)
	assert.Equal(t, StageIdle, s.Stage())

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, StageLoaded, s.Stage())

	assert.Equal(t, []string{"maps/tiles.png"}, f.loader.requested)
	assert.Equal(t, image.Rect(0, 0, 64, 32), s.Bounds())
	assert.Same(t, f.loader.doc, s.Document())

	// 64x32 px at 32 px regions
	require.Len(t, s.CacheTiles(), 2)
	assert.Equal(t, s.CacheTiles(), f.scene.attached)
	assert.Equal(t, image.Rect(32, 0, 64, 32), s.CacheTiles()[1].Bounds())
	assert.Nil(t, f.scene.detached)

	assert.Equal(t, []collision.StaticRectBody{
		{X: 0, Y: 16, W: 16, H: 16},
		{X: 16, Y: 16, W: 16, H: 16},
		{X: 48, Y: 16, W: 16, H: 16},
	}, f.physics.bodies)
	assert.Equal(t, f.physics.bodies, s.Bodies())
	assert.Zero(t, f.renderer.released)
	assert.Equal(t, 1, f.renderer.disposed)
}

func TestLoadIsSingleShot(t *testing.T) {
	f := newFixture()
	s := f.service(t)
	require.NoError(t, s.Load(context.Background()))
	assert.ErrorIs(t, s.Load(context.Background()), ErrAlreadyLoaded)

	f = newFixture()
	f.loader.docErr = errors.New("boom")
	s = f.service(t)
	require.Error(t, s.Load(context.Background()))
	assert.ErrorIs(t, s.Load(context.Background()), ErrAlreadyLoaded)
}

func TestLoadRejectsReentry(t *testing.T) {
	f := newFixture()
	s := f.service(t)

	var nested error
	f.loader.onDoc = func() { nested = s.Load(context.Background()) }

	require.NoError(t, s.Load(context.Background()))
	assert.ErrorIs(t, nested, ErrAlreadyLoading)
}

func TestLoadFailures(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(f *fixture)
		stage   Stage
		target  func() any
		detach  bool
		release int
	}{
		{
			name:   "document",
			setup:  func(f *fixture) { f.loader.docErr = errors.New("404") },
			stage:  StageDocument,
			target: func() any { return new(*LoadError) },
		},
		{
			name:   "invalid_document",
			setup:  func(f *fixture) { f.loader.doc.Layers[0].Data = []uint32{1} },
			stage:  StageDocument,
			target: func() any { return new(*leveldata.DocumentError) },
		},
		{
			name: "oversized_document",
			setup: func(f *fixture) {
				f.loader.doc = &leveldata.Document{Width: 100000000, Height: 100000000, TileWidth: 16, TileHeight: 16}
			},
			stage:  StageDocument,
			target: func() any { return new(*leveldata.DocumentError) },
		},
		{
			name:   "images",
			setup:  func(f *fixture) { f.loader.imgErr = errors.New("timeout") },
			stage:  StageImages,
			target: func() any { return new(*LoadError) },
		},
		{
			name:   "image_missing_from_batch",
			setup:  func(f *fixture) { f.loader.images = map[string]image.Image{} },
			stage:  StageImages,
			target: func() any { return new(*LoadError) },
		},
		{
			name:   "atlas",
			setup:  func(f *fixture) { f.loader.doc.Tilesets[0].Columns = 3 },
			stage:  StageAtlas,
			target: func() any { return new(*atlas.Error) },
		},
		{
			name:   "unknown_gid",
			setup:  func(f *fixture) { f.loader.doc.Layers[0].Data[2] = 42 },
			stage:  StageComposite,
			target: func() any { return new(*atlas.LookupError) },
		},
		{
			name:    "attach",
			setup:   func(f *fixture) { f.scene.err = errors.New("scene closed") },
			stage:   StageBake,
			release: 2,
		},
		{
			name:    "physics",
			setup:   func(f *fixture) { f.physics.err = errors.New("space full") },
			stage:   StageBodies,
			detach:  true,
			release: 2,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture()
			c.setup(f)
			s := f.service(t)

			err := s.Load(context.Background())
			var stageErr *StageError
			require.ErrorAs(t, err, &stageErr)
			assert.Equal(t, c.stage, stageErr.Stage)
			if c.target != nil {
				assert.ErrorAs(t, err, c.target())
			}
			assert.Equal(t, StageFailed, s.Stage())

			if c.detach {
				assert.Equal(t, f.scene.attached, f.scene.detached)
			} else {
				assert.Nil(t, f.scene.detached)
			}
			if f.renderer != nil {
				assert.Equal(t, c.release, f.renderer.released)
				assert.Equal(t, 1, f.renderer.disposed)
			}

			assert.Nil(t, s.Document())
			assert.Nil(t, s.CacheTiles())
			assert.Nil(t, s.Bodies())
			assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.failures.WithLabelValues(c.stage.String())))
		})
	}
}

func TestLoadPlaceholderPolicy(t *testing.T) {
	f := newFixture()
	f.cfg.MissingTile = config.MissingTilePlaceholder
	f.loader.doc.Layers[0].Data[7] = 42 // was a colliding tile
	s := f.service(t)

	require.NoError(t, s.Load(context.Background()))
	assert.Len(t, s.Bodies(), 2)

	// the placeholder cell is magenta in the second region
	tex := s.CacheTiles()[1].Texture
	assert.Equal(t, regioncache.MissingTileColor, tex.At(20, 20))
}

func TestLoadCancellation(t *testing.T) {
	t.Run("before_start", func(t *testing.T) {
		f := newFixture()
		s := f.service(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := s.Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageDocument, stageErr.Stage)
	})

	t.Run("during_images", func(t *testing.T) {
		f := newFixture()
		s := f.service(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f.loader.onImages = cancel

		err := s.Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageAtlas, stageErr.Stage)
		assert.Zero(t, f.scene.attachCnt)
	})

	t.Run("before_bake", func(t *testing.T) {
		f := newFixture()
		s := f.service(t)
		// Err is checked once before each stage; the fifth check guards bake.
		ctx := &cancelAfter{Context: context.Background(), n: 5}

		err := s.Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		var stageErr *StageError
		require.ErrorAs(t, err, &stageErr)
		assert.Equal(t, StageBake, stageErr.Stage)
		assert.Zero(t, f.scene.attachCnt)
		require.NotNil(t, f.renderer)
		assert.Equal(t, 1, f.renderer.disposed)
		assert.Zero(t, f.renderer.released)
	})

	t.Run("after_attach", func(t *testing.T) {
		f := newFixture()
		s := f.service(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		f.scene.onAttach = cancel

		err := s.Load(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		require.Len(t, f.scene.attached, 2)
		assert.Equal(t, f.scene.attached, f.scene.detached)
		assert.Equal(t, 2, f.renderer.released)
		assert.Zero(t, f.physics.calls)
	})
}

func TestClose(t *testing.T) {
	f := newFixture()
	s := f.service(t)

	s.Close() // idle: nothing to release
	assert.Equal(t, StageIdle, s.Stage())

	require.NoError(t, s.Load(context.Background()))
	tiles := s.CacheTiles()
	require.Len(t, tiles, 2)

	s.Close()
	assert.Equal(t, StageClosed, s.Stage())
	assert.Equal(t, tiles, f.scene.detached)
	assert.Equal(t, 2, f.renderer.released)
	assert.Nil(t, s.CacheTiles())

	_, err := s.FindSpawnZone()
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, s.Load(context.Background()), ErrAlreadyLoaded)

	s.Close()
	assert.Equal(t, 2, f.renderer.released)
}

func TestQueries(t *testing.T) {
	f := newFixture()
	s := f.service(t)

	_, err := s.FindZone("player-spawn", true)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = s.LoadCreatures()
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = s.FindSpawnZone()
	assert.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, s.Load(context.Background()))

	cases := []struct {
		name     string
		zone     string
		required bool
		wantID   int
		matches  int // -1 means no error
	}{
		{"single_required", "player-spawn", true, 1, -1},
		{"single_optional", "player-spawn", false, 1, -1},
		{"absent_optional", "cellar", false, 0, -1},
		{"absent_required", "cellar", true, 0, 0},
		{"duplicate_required", "door", true, 0, 2},
		{"duplicate_optional", "door", false, 0, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			zone, err := s.FindZone(c.zone, c.required)
			if c.matches >= 0 {
				var zoneErr *leveldata.ZoneLookupError
				require.ErrorAs(t, err, &zoneErr)
				assert.Equal(t, c.matches, zoneErr.Matches)
				assert.Nil(t, zone)
				return
			}
			require.NoError(t, err)
			if c.wantID == 0 {
				assert.Nil(t, zone)
				return
			}
			require.NotNil(t, zone)
			assert.Equal(t, c.wantID, zone.ID)
		})
	}

	spawn, err := s.FindSpawnZone()
	require.NoError(t, err)
	assert.Equal(t, math.Vec2{X: 16, Y: 8}, spawn)

	creatures, err := s.LoadCreatures()
	require.NoError(t, err)
	require.Len(t, creatures, 2)
	assert.Equal(t, Creature{
		ID: 4, Name: "wolf-1", Kind: "grey_wolf",
		Position:   math.Vec2{X: 32, Y: 0},
		Properties: leveldata.Properties{"hp": 3.0},
	}, creatures[0])
}

func TestQueriesMissingLayers(t *testing.T) {
	f := newFixture()
	f.loader.doc.Layers = f.loader.doc.Layers[:1]
	s := f.service(t)
	require.NoError(t, s.Load(context.Background()))

	creatures, err := s.LoadCreatures()
	require.NoError(t, err)
	assert.Empty(t, creatures)

	_, err = s.FindZone("player-spawn", false)
	var notFound *leveldata.LayerNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "world-zones", notFound.Name)
}

func TestMetrics(t *testing.T) {
	f := newFixture()
	a := f.service(t)
	b := f.service(t)
	assert.Same(t, a.metrics.stageSeconds, b.metrics.stageSeconds)

	require.NoError(t, a.Load(context.Background()))
	assert.Equal(t, len(pipeline), testutil.CollectAndCount(a.metrics.stageSeconds))
}

func TestNewValidates(t *testing.T) {
	f := newFixture()
	_, err := New(Options{MapName: mapName, Loader: f.loader, Scene: f.scene})
	assert.Error(t, err)

	_, err = New(Options{Loader: f.loader, Scene: f.scene, Physics: f.physics})
	assert.Error(t, err)

	bad := config.DefaultMap()
	bad.RegionSize = -1
	_, err = New(Options{MapName: mapName, Config: bad, Loader: f.loader, Scene: f.scene, Physics: f.physics})
	assert.Error(t, err)

	s, err := New(Options{MapName: mapName, Loader: f.loader, Scene: f.scene, Physics: f.physics, Logger: log.New(io.Discard, "", 0)})
	require.NoError(t, err)
	assert.Equal(t, config.Map, s.cfg)
	assert.Nil(t, s.metrics)
	require.NoError(t, s.Load(context.Background()))
}
