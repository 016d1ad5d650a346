package scenes

import (
	"errors"
	"image"
	"math"

	"github.com/automoto/tilemap/collision"
	"github.com/automoto/tilemap/components"
	cfg "github.com/automoto/tilemap/config"
	"github.com/automoto/tilemap/regioncache"
	"github.com/automoto/tilemap/systems/factory"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// World adapts an ECS world to the map service: cache tiles become sprite
// entities and static bodies become walls in a resolv space, or boxes in a
// chipmunk space when that backend is configured.
type World struct {
	ecs      *ecs.ECS
	physics  string
	cellSize int
	chipmunk *collision.ChipmunkWorld

	tiles map[image.Image]donburi.Entity
}

func NewWorld(e *ecs.ECS, mapCfg cfg.MapConfig) *World {
	w := &World{
		ecs:      e,
		physics:  mapCfg.Physics,
		cellSize: mapCfg.SpaceCell,
		tiles:    make(map[image.Image]donburi.Entity),
	}
	if w.physics == cfg.PhysicsChipmunk {
		w.chipmunk = collision.NewChipmunkWorld()
	}
	return w
}

func (w *World) AttachCacheTiles(tiles []regioncache.CacheTile) error {
	for _, tile := range tiles {
		if tile.Texture == nil {
			return errors.New("cache tile without texture")
		}
	}
	for _, tile := range tiles {
		entry := factory.CreateCacheTile(w.ecs, tile)
		w.tiles[tile.Texture] = entry.Entity()
	}
	return nil
}

func (w *World) DetachCacheTiles(tiles []regioncache.CacheTile) {
	for _, tile := range tiles {
		entity, ok := w.tiles[tile.Texture]
		if !ok {
			continue
		}
		delete(w.tiles, tile.Texture)
		if !w.ecs.World.Valid(entity) {
			continue
		}

		// DrawLevel may have swapped in an uploaded copy the scene owns.
		sprite := components.Sprite.Get(w.ecs.World.Entry(entity))
		if uploaded, ok := sprite.Texture.(*ebiten.Image); ok && sprite.Texture != tile.Texture {
			uploaded.Deallocate()
		}
		w.ecs.World.Remove(entity)
	}
}

func (w *World) AddStaticBodies(bodies []collision.StaticRectBody) error {
	if w.chipmunk != nil {
		return w.chipmunk.AddStaticBodies(bodies)
	}

	if _, ok := components.Space.First(w.ecs.World); !ok {
		width, height := extent(bodies)
		factory.CreateSpace(w.ecs, width, height, w.cellSize, w.cellSize)
	}
	for _, b := range bodies {
		factory.CreateWall(w.ecs, b)
	}
	return nil
}

// extent is the smallest size from the origin covering every body.
func extent(bodies []collision.StaticRectBody) (width, height int) {
	var maxX, maxY float64
	for _, b := range bodies {
		maxX = math.Max(maxX, b.X+b.W)
		maxY = math.Max(maxY, b.Y+b.H)
	}
	return int(math.Ceil(maxX)), int(math.Ceil(maxY))
}
