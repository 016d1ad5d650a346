package factory

import (
	"github.com/automoto/tilemap/archetypes"
	"github.com/automoto/tilemap/components"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

func CreateLevel(ecs *ecs.ECS, name string) *donburi.Entry {
	level := archetypes.Level.Spawn(ecs)
	components.Level.Set(level, &components.LevelData{Name: name})
	return level
}
