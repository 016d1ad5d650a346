package mapservice

import (
	"errors"

	"github.com/automoto/tilemap/shared/leveldata"
	"github.com/yohamta/donburi/features/math"
)

// Creature describes a creature placement from the creatures layer.
type Creature struct {
	ID         int
	Name       string
	Kind       string
	Position   math.Vec2
	Properties leveldata.Properties
}

// FindZone looks up a named object on the zones layer. With required set
// exactly one match must exist. Otherwise a missing zone returns nil, nil.
func (s *Service) FindZone(name string, required bool) (*leveldata.Object, error) {
	if !s.isLoaded() {
		return nil, ErrNotLoaded
	}
	return s.doc.FindZone(s.cfg.ZonesLayer, name, required)
}

// FindSpawnZone returns the position of the player spawn zone.
func (s *Service) FindSpawnZone() (math.Vec2, error) {
	zone, err := s.FindZone(s.cfg.SpawnZone, true)
	if err != nil {
		return math.Vec2{}, err
	}
	return math.Vec2{X: zone.X, Y: zone.Y}, nil
}

// LoadCreatures returns the creature placements. A map without a creatures
// layer has none.
func (s *Service) LoadCreatures() ([]Creature, error) {
	if !s.isLoaded() {
		return nil, ErrNotLoaded
	}

	objects, err := s.doc.ObjectLayer(s.cfg.CreaturesLayer)
	if err != nil {
		var notFound *leveldata.LayerNotFoundError
		if errors.As(err, &notFound) && notFound.Count == 0 {
			return []Creature{}, nil
		}
		return nil, err
	}

	creatures := make([]Creature, 0, len(objects))
	for _, o := range objects {
		creatures = append(creatures, Creature{
			ID:         o.ID,
			Name:       o.Name,
			Kind:       o.Type,
			Position:   math.Vec2{X: o.X, Y: o.Y},
			Properties: o.Properties,
		})
	}
	return creatures, nil
}
