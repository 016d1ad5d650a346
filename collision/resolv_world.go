package collision

import (
	"fmt"
	"log"

	"github.com/automoto/tilemap/tags"
	"github.com/solarlune/resolv"
)

// ResolvWorld registers bodies as top-left anchored resolv objects, which
// matches StaticRectBody directly.
type ResolvWorld struct {
	Space   *resolv.Space
	objects []*resolv.Object

	width, height int
}

// NewResolvWorld creates a space covering width x height pixels split into
// cells of cellSize.
func NewResolvWorld(width, height, cellSize int) (*ResolvWorld, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("resolv world: invalid cell size %d", cellSize)
	}
	return &ResolvWorld{
		Space:  resolv.NewSpace(width, height, cellSize, cellSize),
		width:  width,
		height: height,
	}, nil
}

func (w *ResolvWorld) AddStaticBodies(bodies []StaticRectBody) error {
	for _, b := range bodies {
		if b.W <= 0 || b.H <= 0 {
			return fmt.Errorf("resolv world: degenerate body %+v", b)
		}
	}
	for _, b := range bodies {
		obj := resolv.NewObject(b.X, b.Y, b.W, b.H, tags.ResolvSolid)
		obj.SetShape(resolv.NewRectangle(0, 0, b.W, b.H))
		w.Space.Add(obj)
		w.objects = append(w.objects, obj)
	}

	log.Printf("Loaded collision: %d solid tiles, %dx%d map",
		len(bodies), w.width, w.height)
	return nil
}

// Objects returns the resolv objects created for static bodies.
func (w *ResolvWorld) Objects() []*resolv.Object {
	return w.objects
}
