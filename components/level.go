package components

import (
	"image"

	"github.com/automoto/tilemap/collision"
	"github.com/automoto/tilemap/mapservice"
	"github.com/automoto/tilemap/shared/leveldata"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/math"
)

// LevelData mirrors what the map service produced, for systems that only
// read the ECS world.
type LevelData struct {
	Name      string
	Bounds    image.Rectangle
	Spawn     math.Vec2
	HasSpawn  bool
	Zones     []leveldata.Object
	Creatures []mapservice.Creature
	Bodies    []collision.StaticRectBody
	LoadErr   error
}

var Level = donburi.NewComponentType[LevelData]()
