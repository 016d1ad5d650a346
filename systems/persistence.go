package systems

import (
	"encoding/json"
	"log"

	"github.com/automoto/tilemap/components"
	cfg "github.com/automoto/tilemap/config"
	"github.com/quasilyte/gdata"
	"github.com/yohamta/donburi/ecs"
)

// SavedView represents the viewer state stored on disk
type SavedView struct {
	MapName string  `json:"mapName"`
	CameraX float64 `json:"cameraX"`
	CameraY float64 `json:"cameraY"`
	Debug   bool    `json:"debug"`
}

const viewItem = "view"

var gdataManager *gdata.Manager
var gdataInitialized bool

// InitPersistence initializes the gdata manager for viewer state storage
func InitPersistence() error {
	m, err := gdata.Open(gdata.Config{
		AppName: cfg.Viewer.AppName,
	})
	if err != nil {
		log.Printf("Warning: Could not initialize persistence: %v", err)
		return err
	}
	gdataManager = m
	gdataInitialized = true
	return nil
}

// LoadView loads the last viewer state from disk
func LoadView() (*SavedView, error) {
	if !gdataInitialized || gdataManager == nil {
		return nil, nil
	}

	data, err := gdataManager.LoadItem(viewItem)
	if err != nil {
		log.Printf("Warning: Could not load view: %v", err)
		return nil, nil
	}
	if len(data) == 0 {
		// Nothing saved yet, use defaults
		return nil, nil
	}

	var view SavedView
	if err := json.Unmarshal(data, &view); err != nil {
		log.Printf("Warning: Could not parse saved view: %v", err)
		return nil, err
	}

	return &view, nil
}

// SaveView saves the viewer state to disk
func SaveView(v *SavedView) error {
	if !gdataInitialized || gdataManager == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Warning: Could not serialize view: %v", err)
		return err
	}

	if err := gdataManager.SaveItem(viewItem, data); err != nil {
		log.Printf("Warning: Could not save view: %v", err)
		return err
	}
	return nil
}

// CurrentView captures the map, camera and overlay state of the world.
func CurrentView(e *ecs.ECS) *SavedView {
	view := &SavedView{Debug: GetOrCreateSettings(e).Debug}
	if entry, ok := components.Level.First(e.World); ok {
		view.MapName = components.Level.Get(entry).Name
	}
	if entry, ok := components.Camera.First(e.World); ok {
		camera := components.Camera.Get(entry)
		view.CameraX = camera.Position.X
		view.CameraY = camera.Position.Y
	}
	return view
}

// ApplySavedView restores the camera and overlay when the saved view belongs
// to the loaded map.
func ApplySavedView(e *ecs.ECS, saved *SavedView) {
	if saved == nil {
		return
	}
	GetOrCreateSettings(e).Debug = saved.Debug

	levelEntry, ok := components.Level.First(e.World)
	if !ok || components.Level.Get(levelEntry).Name != saved.MapName {
		return
	}
	if entry, ok := components.Camera.First(e.World); ok {
		camera := components.Camera.Get(entry)
		camera.Position.X = saved.CameraX
		camera.Position.Y = saved.CameraY
	}
}
