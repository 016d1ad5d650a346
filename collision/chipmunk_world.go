package collision

import (
	"fmt"
	"log"

	"github.com/jakecoffman/cp"
)

const collisionTypeSolid cp.CollisionType = 1

// ChipmunkWorld registers bodies in a chipmunk space. Chipmunk positions a
// body by its centre, so each rectangle gets its own static body placed at
// StaticRectBody.Center with a box shape around it.
type ChipmunkWorld struct {
	Space  *cp.Space
	bodies []*cp.Body
}

func NewChipmunkWorld() *ChipmunkWorld {
	space := cp.NewSpace()
	space.Iterations = 20
	return &ChipmunkWorld{Space: space}
}

func (w *ChipmunkWorld) AddStaticBodies(bodies []StaticRectBody) error {
	for _, b := range bodies {
		if b.W <= 0 || b.H <= 0 {
			return fmt.Errorf("chipmunk world: degenerate body %+v", b)
		}
	}
	for _, b := range bodies {
		c := b.Center()
		body := cp.NewStaticBody()
		body.SetPosition(cp.Vector{X: c.X, Y: c.Y})

		shape := cp.NewBox(body, b.W, b.H, 0)
		shape.SetFriction(0.8)
		shape.SetCollisionType(collisionTypeSolid)

		w.Space.AddBody(body)
		w.Space.AddShape(shape)
		w.bodies = append(w.bodies, body)
	}

	log.Printf("Loaded collision: %d static boxes", len(bodies))
	return nil
}

// Bodies returns the static bodies created so far.
func (w *ChipmunkWorld) Bodies() []*cp.Body {
	return w.bodies
}
