package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/automoto/tilemap/assets"
	"github.com/automoto/tilemap/collision"
	"github.com/automoto/tilemap/config"
	"github.com/automoto/tilemap/mapservice"
	"github.com/automoto/tilemap/regioncache"
	"github.com/automoto/tilemap/shared/leveldata"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/quasilyte/gdata"
	"github.com/urfave/cli/v3"
)

// run bundles what every subcommand needs to load one map headlessly.
type run struct {
	cfg          config.MapConfig
	loader       *assets.Loader
	registry     *prometheus.Registry
	printMetrics bool
}

func newRun(cmd *cli.Command) (*run, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	loader := assets.Embedded()
	if dir := cmd.String("dir"); dir != "" {
		loader = assets.NewLoader(os.DirFS(dir))
	}
	loader.SetConcurrency(int(cmd.Int("jobs")))
	return &run{
		cfg:          cfg,
		loader:       loader,
		registry:     prometheus.NewRegistry(),
		printMetrics: cmd.Bool("metrics"),
	}, nil
}

// load runs the full pipeline for name with a CPU renderer, an in-memory
// scene and the physics backend chosen by config.
func (r *run) load(ctx context.Context, name string) (*mapservice.Service, *memoryScene, error) {
	doc, err := r.loader.LoadDocument(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	var physics mapservice.PhysicsWorld
	switch r.cfg.Physics {
	case config.PhysicsChipmunk:
		physics = collision.NewChipmunkWorld()
	default:
		physics, err = collision.NewResolvWorld(doc.PixelWidth(), doc.PixelHeight(), r.cfg.SpaceCell)
		if err != nil {
			return nil, nil, err
		}
	}

	scene := &memoryScene{}
	svc, err := mapservice.New(mapservice.Options{
		MapName:    name,
		Config:     r.cfg,
		Loader:     preloaded{AssetLoader: r.loader, doc: doc},
		Scene:      scene,
		Physics:    physics,
		Registerer: r.registry,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := svc.Load(ctx); err != nil {
		return nil, nil, err
	}
	return svc, scene, nil
}

// finish prints the stage metrics when asked to.
func (r *run) finish() error {
	if !r.printMetrics {
		return nil
	}
	families, err := r.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			switch {
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Printf("%s{%s} count=%d sum=%.6fs\n", mf.GetName(), strings.Join(labels, ","), h.GetSampleCount(), h.GetSampleSum())
			case m.GetCounter() != nil:
				fmt.Printf("%s{%s} %.0f\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
			}
		}
	}
	return nil
}

// preloaded hands the service a document that was already parsed to size the
// physics world.
type preloaded struct {
	mapservice.AssetLoader
	doc *leveldata.Document
}

func (p preloaded) LoadDocument(ctx context.Context, name string) (*leveldata.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.doc, nil
}

// memoryScene keeps attached cache tiles in memory.
type memoryScene struct {
	tiles []regioncache.CacheTile
}

func (s *memoryScene) AttachCacheTiles(tiles []regioncache.CacheTile) error {
	s.tiles = append(s.tiles, tiles...)
	return nil
}

func (s *memoryScene) DetachCacheTiles([]regioncache.CacheTile) {
	s.tiles = nil
}

func mapArg(cmd *cli.Command) (string, error) {
	name := cmd.Args().First()
	if name == "" {
		return "", errors.New("missing <map> argument")
	}
	return name, nil
}

func listMaps(ctx context.Context, cmd *cli.Command) error {
	r, err := newRun(cmd)
	if err != nil {
		return err
	}
	dir := cmd.Args().First()
	if dir == "" {
		dir = assets.MapsDir
		if cmd.String("dir") != "" {
			dir = "."
		}
	}
	maps, err := r.loader.ListMaps(dir)
	if err != nil {
		return err
	}
	for _, name := range maps {
		fmt.Println(name)
	}
	return nil
}

func inspectMap(ctx context.Context, cmd *cli.Command) error {
	name, err := mapArg(cmd)
	if err != nil {
		return err
	}
	r, err := newRun(cmd)
	if err != nil {
		return err
	}
	svc, scene, err := r.load(ctx, name)
	if err != nil {
		return err
	}

	doc := svc.Document()
	fmt.Printf("map:        %s\n", name)
	fmt.Printf("size:       %dx%d tiles of %dx%d (%dx%d px)\n",
		doc.Width, doc.Height, doc.TileWidth, doc.TileHeight, doc.PixelWidth(), doc.PixelHeight())
	fmt.Printf("layers:     %d (%d tile)\n", len(doc.Layers), len(doc.TileLayers()))
	for _, ts := range doc.Tilesets {
		fmt.Printf("tileset:    %s gids %d-%d from %s\n", ts.Name, ts.FirstGID, ts.LastGID(), ts.Image)
	}
	cols, rows := regioncache.GridSize(svc.Bounds(), r.cfg.RegionSize)
	fmt.Printf("regions:    %d (%dx%d of %dpx)\n", len(scene.tiles), cols, rows, r.cfg.RegionSize)
	fmt.Printf("bodies:     %d (%s)\n", len(svc.Bodies()), r.cfg.Physics)

	if spawn, err := svc.FindSpawnZone(); err == nil {
		fmt.Printf("spawn:      %.0f,%.0f\n", spawn.X, spawn.Y)
	} else {
		fmt.Printf("spawn:      %v\n", err)
	}
	creatures, err := svc.LoadCreatures()
	if err != nil {
		return err
	}
	fmt.Printf("creatures:  %d\n", len(creatures))
	return r.finish()
}

func listZones(ctx context.Context, cmd *cli.Command) error {
	name, err := mapArg(cmd)
	if err != nil {
		return err
	}
	r, err := newRun(cmd)
	if err != nil {
		return err
	}
	svc, _, err := r.load(ctx, name)
	if err != nil {
		return err
	}

	if zone := cmd.String("name"); zone != "" {
		obj, err := svc.FindZone(zone, cmd.Bool("required"))
		if err != nil {
			return err
		}
		if obj == nil {
			fmt.Printf("%s: not found\n", zone)
			return r.finish()
		}
		printObject(*obj)
		return r.finish()
	}

	zones, err := svc.Document().ObjectLayer(r.cfg.ZonesLayer)
	if err != nil {
		return err
	}
	for _, z := range zones {
		printObject(z)
	}
	creatures, err := svc.LoadCreatures()
	if err != nil {
		return err
	}
	for _, c := range creatures {
		fmt.Printf("creature %-16s %-10s at %.0f,%.0f\n", c.Name, c.Kind, c.Position.X, c.Position.Y)
	}
	return r.finish()
}

func printObject(o leveldata.Object) {
	fmt.Printf("zone     %-16s at %.0f,%.0f size %.0fx%.0f\n", o.Name, o.X, o.Y, o.Width, o.Height)
}

func bakeMap(ctx context.Context, cmd *cli.Command) error {
	name, err := mapArg(cmd)
	if err != nil {
		return err
	}
	r, err := newRun(cmd)
	if err != nil {
		return err
	}
	if size := int(cmd.Int("region-size")); size != 0 {
		r.cfg.RegionSize = size
		if err := r.cfg.Validate(); err != nil {
			return err
		}
	}
	_, scene, err := r.load(ctx, name)
	if err != nil {
		return err
	}

	var store *gdata.Manager
	if cmd.Bool("store") {
		store, err = gdata.Open(gdata.Config{AppName: config.Viewer.AppName})
		if err != nil {
			return fmt.Errorf("open save data: %w", err)
		}
	}

	out := cmd.String("out")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	for _, tile := range scene.tiles {
		data, err := encodePNG(tile.Texture)
		if err != nil {
			return err
		}
		file := regionFile(base, tile)
		if err := os.WriteFile(filepath.Join(out, file), data, 0o644); err != nil {
			return err
		}
		if store != nil {
			if err := store.SaveItem(file, data); err != nil {
				return fmt.Errorf("store %s: %w", file, err)
			}
		}
	}
	fmt.Printf("wrote %d regions to %s\n", len(scene.tiles), out)
	return r.finish()
}

func regionFile(base string, tile regioncache.CacheTile) string {
	return fmt.Sprintf("%s_%d_%d.png", base, tile.X, tile.Y)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
