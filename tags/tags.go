package tags

import "github.com/yohamta/donburi"

var (
	CacheTile = donburi.NewTag().SetName("CacheTile")
	Wall      = donburi.NewTag().SetName("Wall")
)

// Resolv tags for physics collision
const (
	ResolvSolid = "solid"
)
