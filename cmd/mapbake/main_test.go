package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/automoto/tilemap/assets"
	"github.com/automoto/tilemap/config"
	"github.com/automoto/tilemap/regioncache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "maps/sample.json"

func testRun(cfg config.MapConfig) *run {
	return &run{cfg: cfg, loader: assets.Embedded(), registry: prometheus.NewRegistry()}
}

func TestLoadSample(t *testing.T) {
	for _, physics := range []string{config.PhysicsResolv, config.PhysicsChipmunk} {
		t.Run(physics, func(t *testing.T) {
			cfg := config.DefaultMap()
			cfg.Physics = physics
			cfg.RegionSize = 256

			svc, scene, err := testRun(cfg).load(context.Background(), sample)
			require.NoError(t, err)

			cols, rows := regioncache.GridSize(svc.Bounds(), 256)
			assert.Equal(t, 3, cols)
			assert.Equal(t, 2, rows)
			assert.Len(t, scene.tiles, 6)
			assert.NotEmpty(t, svc.Bodies())

			spawn, err := svc.FindSpawnZone()
			require.NoError(t, err)
			assert.Equal(t, 48.0, spawn.X)
		})
	}
}

func TestLoadUnknownMap(t *testing.T) {
	_, _, err := testRun(config.DefaultMap()).load(context.Background(), "maps/nope.json")
	assert.Error(t, err)
}

func TestBakeCommand(t *testing.T) {
	out := t.TempDir()
	err := newCommand().Run(context.Background(), []string{
		"mapbake", "--env-file", filepath.Join(out, "missing.env"),
		"--jobs", "1", "bake", "--out", out, "--region-size", "256", sample,
	})
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(out, "sample_*.png"))
	require.NoError(t, err)
	assert.Len(t, files, 6)

	_, err = os.Stat(filepath.Join(out, "sample_512_256.png"))
	assert.NoError(t, err)
}

func TestCommandErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"inspect_without_map", []string{"mapbake", "inspect"}},
		{"zones_required_missing", []string{"mapbake", "zones", "--name", "nowhere", "--required", sample}},
		{"bake_bad_region_size", []string{"mapbake", "bake", "--region-size=-1", sample}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Error(t, newCommand().Run(context.Background(), c.args))
		})
	}
}

func TestPreloadedHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := preloaded{}.LoadDocument(ctx, sample)
	assert.ErrorIs(t, err, context.Canceled)
}
