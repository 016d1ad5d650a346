package factory

import (
	"github.com/automoto/tilemap/archetypes"
	"github.com/automoto/tilemap/collision"
	"github.com/automoto/tilemap/components"
	"github.com/automoto/tilemap/tags"
	"github.com/solarlune/resolv"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
)

// CreateWall spawns a static collision body. Bodies are top-left anchored,
// the same as resolv objects.
func CreateWall(ecs *ecs.ECS, body collision.StaticRectBody) *donburi.Entry {
	wall := archetypes.Wall.Spawn(ecs)

	obj := resolv.NewObject(body.X, body.Y, body.W, body.H, tags.ResolvSolid)
	obj.SetShape(resolv.NewRectangle(0, 0, body.W, body.H))
	obj.Data = wall // Link for O(1) lookup

	components.Object.SetValue(wall, components.ObjectData{Object: obj})

	// Add to space if it exists
	if spaceEntry, ok := components.Space.First(ecs.World); ok {
		components.Space.Get(spaceEntry).Add(obj)
	}

	return wall
}
