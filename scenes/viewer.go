package scenes

import (
	"context"
	"image"
	"image/color"
	"log"
	"sync"

	"github.com/automoto/tilemap/components"
	cfg "github.com/automoto/tilemap/config"
	"github.com/automoto/tilemap/mapservice"
	"github.com/automoto/tilemap/regioncache"
	"github.com/automoto/tilemap/systems"
	"github.com/automoto/tilemap/systems/factory"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
	"github.com/yohamta/donburi/features/math"
)

type SceneChanger interface {
	ChangeScene(scene interface{})
}

// MapScene loads one map through the map service and lets the user pan
// around it.
type MapScene struct {
	ecs          *ecs.ECS
	sceneChanger SceneChanger
	loader       mapservice.AssetLoader
	maps         []string
	index        int
	saved        *systems.SavedView
	registerer   prometheus.Registerer
	svc          *mapservice.Service
	once         sync.Once
}

// NewMapScene shows maps[index]. saved restores the camera when it belongs to
// the same map.
func NewMapScene(sc SceneChanger, loader mapservice.AssetLoader, maps []string, index int, saved *systems.SavedView, reg prometheus.Registerer) *MapScene {
	return &MapScene{
		sceneChanger: sc,
		loader:       loader,
		maps:         maps,
		index:        index,
		saved:        saved,
		registerer:   reg,
	}
}

func (ms *MapScene) Update() {
	ms.once.Do(ms.configure)
	ms.ecs.Update()

	input, ok := components.Input.First(ms.ecs.World)
	if ok && systems.GetAction(components.Input.Get(input), cfg.ActionNextMap).JustPressed && len(ms.maps) > 1 {
		_ = systems.SaveView(ms.View())
		ms.Close()
		next := (ms.index + 1) % len(ms.maps)
		ms.sceneChanger.ChangeScene(NewMapScene(ms.sceneChanger, ms.loader, ms.maps, next, nil, ms.registerer))
	}
}

func (ms *MapScene) Draw(screen *ebiten.Image) {
	// Always clear screen to prevent white flashes from OS window background
	screen.Fill(color.Black)

	if ms.ecs == nil {
		return
	}
	ms.ecs.Draw(screen)
}

// View returns the state to persist, or nil before the scene is configured.
func (ms *MapScene) View() *systems.SavedView {
	if ms.ecs == nil {
		return nil
	}
	return systems.CurrentView(ms.ecs)
}

// Close releases the baked regions of the shown map.
func (ms *MapScene) Close() {
	if ms.svc != nil {
		ms.svc.Close()
	}
}

func (ms *MapScene) configure() {
	ecs := ecs.NewECS(donburi.NewWorld())

	ecs.AddSystem(systems.UpdateInput)
	ecs.AddSystem(systems.UpdateDebug)
	ecs.AddSystem(systems.UpdateCamera)

	ecs.AddRenderer(cfg.Default, systems.DrawLevel)
	ecs.AddRenderer(cfg.Default, systems.DrawDebug)
	ecs.AddRenderer(cfg.Default, systems.DrawLoadError)

	ms.ecs = ecs

	name := ms.maps[ms.index]
	levelEntry := factory.CreateLevel(ecs, name)
	level := components.Level.Get(levelEntry)

	world := NewWorld(ecs, cfg.Map)
	svc, err := mapservice.New(mapservice.Options{
		MapName: name,
		Config:  cfg.Map,
		Loader:  ms.loader,
		NewRenderer: func(images map[string]image.Image) (regioncache.Renderer, error) {
			return regioncache.NewEbitenRenderer(images), nil
		},
		Scene:      world,
		Physics:    world,
		Registerer: ms.registerer,
	})
	if err == nil {
		ms.svc = svc
		err = svc.Load(context.Background())
	}
	if err != nil {
		log.Printf("Warning: Could not load map %s: %v", name, err)
		level.LoadErr = err
		factory.CreateCamera(ecs, math.Vec2{})
		return
	}

	fillLevel(level, svc)

	// Snap camera to the spawn to prevent panning from (0,0)
	start := math.Vec2{X: float64(level.Bounds.Dx()) / 2, Y: float64(level.Bounds.Dy()) / 2}
	if level.HasSpawn {
		start = level.Spawn
	}
	factory.CreateCamera(ecs, start)

	systems.ApplySavedView(ecs, ms.saved)
}

// fillLevel copies the service's query results into the level component.
func fillLevel(level *components.LevelData, svc *mapservice.Service) {
	level.Bounds = svc.Bounds()
	level.Bodies = svc.Bodies()

	if spawn, err := svc.FindSpawnZone(); err == nil {
		level.Spawn = spawn
		level.HasSpawn = true
	} else {
		log.Printf("Warning: %v", err)
	}

	if zones, err := svc.Document().ObjectLayer(cfg.Map.ZonesLayer); err == nil {
		level.Zones = zones
	}

	creatures, err := svc.LoadCreatures()
	if err != nil {
		log.Printf("Warning: Could not load creatures: %v", err)
	}
	level.Creatures = creatures
}
