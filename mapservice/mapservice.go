// Package mapservice runs the map load pipeline: document, tileset images,
// atlas, composite, bake and collision bodies, in that order.
package mapservice

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/automoto/tilemap/atlas"
	"github.com/automoto/tilemap/collision"
	"github.com/automoto/tilemap/compositor"
	"github.com/automoto/tilemap/config"
	"github.com/automoto/tilemap/regioncache"
	"github.com/automoto/tilemap/shared/leveldata"
	"github.com/prometheus/client_golang/prometheus"
)

// AssetLoader fetches the map document and its tileset images.
type AssetLoader interface {
	LoadDocument(ctx context.Context, name string) (*leveldata.Document, error)
	// LoadImages fetches every name as one batch.
	LoadImages(ctx context.Context, names []string) (map[string]image.Image, error)
}

// Scene receives the baked cache tiles.
type Scene interface {
	AttachCacheTiles(tiles []regioncache.CacheTile) error
	DetachCacheTiles(tiles []regioncache.CacheTile)
}

// PhysicsWorld receives the static collision bodies.
type PhysicsWorld interface {
	AddStaticBodies(bodies []collision.StaticRectBody) error
}

// RendererFactory builds the bake renderer once the tileset images are
// available, keyed by the tileset image path.
type RendererFactory func(images map[string]image.Image) (regioncache.Renderer, error)

// Options configures a Service. Loader, Scene and Physics are required.
type Options struct {
	MapName string
	Config  config.MapConfig // zero value means config.Map

	Loader      AssetLoader
	NewRenderer RendererFactory // nil means regioncache.NewImageRenderer
	Scene       Scene
	Physics     PhysicsWorld

	Logger     *log.Logger          // nil means log.Default()
	Registerer prometheus.Registerer // nil disables metrics
}

// Service loads one map. Each instance supports a single Load call.
type Service struct {
	name    string
	cfg     config.MapConfig
	loader  AssetLoader
	factory RendererFactory
	scene   Scene
	physics PhysicsWorld
	log     *log.Logger
	metrics *metrics

	mu    sync.Mutex
	stage Stage

	doc      *leveldata.Document
	atlas    *atlas.Atlas
	cmds     []compositor.DrawCommand
	renderer regioncache.Renderer
	disposed bool
	tiles    []regioncache.CacheTile
	attached bool
	bodies   []collision.StaticRectBody
}

// New validates opts and returns an idle service for opts.MapName.
func New(opts Options) (*Service, error) {
	if opts.MapName == "" {
		return nil, errors.New("mapservice: map name is required")
	}
	if opts.Loader == nil || opts.Scene == nil || opts.Physics == nil {
		return nil, errors.New("mapservice: loader, scene and physics world are required")
	}

	cfg := opts.Config
	if cfg == (config.MapConfig{}) {
		cfg = config.Map
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mapservice: %w", err)
	}

	factory := opts.NewRenderer
	if factory == nil {
		factory = func(images map[string]image.Image) (regioncache.Renderer, error) {
			return regioncache.NewImageRenderer(images), nil
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Service{
		name:    opts.MapName,
		cfg:     cfg,
		loader:  opts.Loader,
		factory: factory,
		scene:   opts.Scene,
		physics: opts.Physics,
		log:     logger,
		metrics: newMetrics(opts.Registerer),
	}, nil
}

// Load runs every stage in order. The first failure aborts the load, rolls
// back what was attached to the scene and returns a *StageError. The context
// is checked between stages and between bake regions.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	switch s.stage {
	case StageIdle:
	case StageLoaded, StageFailed, StageClosed:
		s.mu.Unlock()
		return ErrAlreadyLoaded
	default:
		s.mu.Unlock()
		return ErrAlreadyLoading
	}
	s.stage = StageDocument
	s.mu.Unlock()

	start := time.Now()
	for _, stage := range pipeline {
		s.setStage(stage)
		if err := ctx.Err(); err != nil {
			return s.abort(stage, err)
		}

		t := time.Now()
		if err := s.run(ctx, stage); err != nil {
			return s.abort(stage, err)
		}
		s.metrics.observe(stage, time.Since(t))
	}

	s.setStage(StageLoaded)
	s.log.Printf("Loaded map %s: %dx%d tiles, %d draw commands, %d cache tiles, %d bodies in %s",
		s.name, s.doc.Width, s.doc.Height, len(s.cmds), len(s.tiles), len(s.bodies),
		time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Service) run(ctx context.Context, stage Stage) error {
	switch stage {
	case StageDocument:
		return s.loadDocument(ctx)
	case StageImages:
		return s.loadImages(ctx)
	case StageAtlas:
		return s.buildAtlas()
	case StageComposite:
		return s.composite()
	case StageBake:
		return s.bake(ctx)
	case StageBodies:
		return s.buildBodies()
	}
	return fmt.Errorf("unknown stage %d", stage)
}

func (s *Service) loadDocument(ctx context.Context) error {
	doc, err := s.loader.LoadDocument(ctx, s.name)
	if err != nil {
		return &LoadError{Name: s.name, Err: err}
	}
	if doc == nil {
		return &LoadError{Name: s.name, Err: errors.New("loader returned no document")}
	}
	if err := doc.Validate(); err != nil {
		return &LoadError{Name: s.name, Err: err}
	}
	s.doc = doc
	s.log.Printf("Parsed map %s: %d layers, %d tilesets", s.name, len(doc.Layers), len(doc.Tilesets))
	return nil
}

func (s *Service) loadImages(ctx context.Context) error {
	names := make([]string, 0, len(s.doc.Tilesets))
	for _, ts := range s.doc.Tilesets {
		names = append(names, ts.Image)
	}

	images, err := s.loader.LoadImages(ctx, names)
	if err != nil {
		return &LoadError{Name: s.name, Err: err}
	}
	for _, name := range names {
		if images[name] == nil {
			return &LoadError{Name: name, Err: errors.New("image missing from batch")}
		}
	}

	r, err := s.factory(images)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	s.renderer = r
	return nil
}

func (s *Service) buildAtlas() error {
	a, err := atlas.Build(s.doc.Tilesets)
	if err != nil {
		return err
	}
	s.atlas = a
	s.log.Printf("Built atlas for %s: %d tiles", s.name, a.Len())
	return nil
}

func (s *Service) composite() error {
	cmds, err := compositor.Composite(s.atlas, s.doc.Layers, s.grid(), s.options())
	if err != nil {
		return err
	}
	s.cmds = cmds
	return nil
}

func (s *Service) bake(ctx context.Context) error {
	defer s.disposeRenderer()

	tiles, err := regioncache.Bake(ctx, s.renderer, s.cmds, s.boundsRect(), s.cfg.RegionSize)
	if err != nil {
		return err
	}
	if err := s.scene.AttachCacheTiles(tiles); err != nil {
		regioncache.Release(s.renderer, tiles)
		return fmt.Errorf("attach cache tiles: %w", err)
	}
	s.tiles = tiles
	s.attached = true

	cols, rows := regioncache.GridSize(s.boundsRect(), s.cfg.RegionSize)
	s.log.Printf("Baked %s into %dx%d regions of %dpx", s.name, cols, rows, s.cfg.RegionSize)
	return nil
}

func (s *Service) buildBodies() error {
	bodies, err := collision.Build(s.atlas, s.doc.Layers, s.grid(), s.options())
	if err != nil {
		return err
	}
	if err := s.physics.AddStaticBodies(bodies); err != nil {
		return fmt.Errorf("add static bodies: %w", err)
	}
	s.bodies = bodies
	return nil
}

// Close ends the session of a loaded map: the cache tiles are detached from
// the scene and their textures released. Queries answer ErrNotLoaded
// afterwards. Close does nothing unless the map is loaded.
func (s *Service) Close() {
	s.mu.Lock()
	if s.stage != StageLoaded {
		s.mu.Unlock()
		return
	}
	s.stage = StageClosed
	s.mu.Unlock()

	if s.attached {
		s.scene.DetachCacheTiles(s.tiles)
		s.attached = false
	}
	regioncache.Release(s.renderer, s.tiles)
	s.tiles = nil
	s.log.Printf("Closed map %s", s.name)
}

// disposeRenderer frees renderer-owned source textures once baking is over.
// Later calls do nothing.
func (s *Service) disposeRenderer() {
	if s.renderer == nil || s.disposed {
		return
	}
	s.disposed = true
	if d, ok := s.renderer.(interface{ Dispose() }); ok {
		d.Dispose()
	}
}

func (s *Service) abort(stage Stage, err error) error {
	if s.attached {
		s.scene.DetachCacheTiles(s.tiles)
		s.attached = false
	}
	if s.tiles != nil {
		regioncache.Release(s.renderer, s.tiles)
		s.tiles = nil
	}
	s.disposeRenderer()

	s.setStage(StageFailed)
	s.metrics.fail(stage)
	s.log.Printf("Warning: map %s failed at %s stage: %v", s.name, stage, err)
	return &StageError{Stage: stage, Err: err}
}

func (s *Service) setStage(stage Stage) {
	s.mu.Lock()
	s.stage = stage
	s.mu.Unlock()
}

func (s *Service) grid() compositor.Grid {
	return compositor.Grid{Width: s.doc.Width, TileWidth: s.doc.TileWidth, TileHeight: s.doc.TileHeight}
}

func (s *Service) options() compositor.Options {
	return compositor.Options{Placeholders: s.cfg.Placeholders()}
}

func (s *Service) boundsRect() image.Rectangle {
	return image.Rect(0, 0, s.doc.PixelWidth(), s.doc.PixelHeight())
}

// Stage returns the current pipeline stage.
func (s *Service) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func (s *Service) isLoaded() bool {
	return s.Stage() == StageLoaded
}

// Document returns the parsed map, or nil before a successful load.
func (s *Service) Document() *leveldata.Document {
	if !s.isLoaded() {
		return nil
	}
	return s.doc
}

// Bounds is the map's pixel rectangle, or empty before a successful load.
func (s *Service) Bounds() image.Rectangle {
	if !s.isLoaded() {
		return image.Rectangle{}
	}
	return s.boundsRect()
}

// CacheTiles returns the baked regions attached to the scene.
func (s *Service) CacheTiles() []regioncache.CacheTile {
	if !s.isLoaded() {
		return nil
	}
	return s.tiles
}

// Bodies returns the static bodies handed to the physics world.
func (s *Service) Bodies() []collision.StaticRectBody {
	if !s.isLoaded() {
		return nil
	}
	return s.bodies
}
