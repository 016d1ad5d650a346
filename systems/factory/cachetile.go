package factory

import (
	"github.com/automoto/tilemap/archetypes"
	"github.com/automoto/tilemap/components"
	"github.com/automoto/tilemap/regioncache"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

func CreateCacheTile(ecs *ecs.ECS, tile regioncache.CacheTile) *donburi.Entry {
	entry := archetypes.CacheTile.Spawn(ecs)
	components.Sprite.SetValue(entry, components.SpriteData{
		Texture: tile.Texture,
		X:       float64(tile.X),
		Y:       float64(tile.Y),
	})
	return entry
}
