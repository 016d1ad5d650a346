package main

import (
	"flag"
	"image"
	"log"
	"os"

	"github.com/automoto/tilemap/assets"
	"github.com/automoto/tilemap/config"
	"github.com/automoto/tilemap/scenes"
	"github.com/automoto/tilemap/systems"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

type Scene interface {
	Update()
	Draw(screen *ebiten.Image)
}

type Game struct {
	bounds image.Rectangle
	scene  Scene
}

// ChangeScene switches to a new scene
func (g *Game) ChangeScene(scene interface{}) {
	g.scene = scene.(Scene)
}

func NewGame(loader *assets.Loader, maps []string, index int, saved *systems.SavedView) *Game {
	g := &Game{
		bounds: image.Rectangle{},
	}
	g.scene = scenes.NewMapScene(g, loader, maps, index, saved, prometheus.NewRegistry())
	return g
}

func (g *Game) Update() error {
	g.scene.Update()
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.scene.Draw(screen)
}

func (g *Game) Layout(width, height int) (int, int) {
	g.bounds = image.Rect(0, 0, config.Viewer.ScreenWidth, config.Viewer.ScreenHeight)
	return config.Viewer.ScreenWidth, config.Viewer.ScreenHeight
}

// saveView persists the camera of the scene that was showing on exit.
func (g *Game) saveView() {
	if ms, ok := g.scene.(*scenes.MapScene); ok {
		if view := ms.View(); view != nil {
			_ = systems.SaveView(view)
		}
	}
}

func main() {
	mapFlag := flag.String("map", "", "map to open, relative to the asset directory")
	dirFlag := flag.String("dir", "", "asset directory (embedded maps when empty)")
	configFlag := flag.String("config", "", "YAML map settings")
	debugFlag := flag.Bool("debug", false, "start with the debug overlay")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	mapCfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load map config: %v", err)
	}
	config.Map = mapCfg
	config.Debug.Enabled = *debugFlag

	loader := assets.Embedded()
	mapsDir := assets.MapsDir
	if *dirFlag != "" {
		loader = assets.NewLoader(os.DirFS(*dirFlag))
		mapsDir = "."
	}

	maps, err := loader.ListMaps(mapsDir)
	if err != nil {
		log.Fatalf("Failed to list maps: %v", err)
	}
	if len(maps) == 0 {
		log.Fatalf("No maps found in %s", mapsDir)
	}

	// Initialize persistence and load the last view
	if err := systems.InitPersistence(); err != nil {
		log.Printf("Warning: Could not initialize persistence: %v", err)
	}
	saved, _ := systems.LoadView()

	want := *mapFlag
	if want == "" && saved != nil {
		want = saved.MapName
	}
	index := 0
	for i, name := range maps {
		if name == want {
			index = i
			break
		}
	}
	if *mapFlag != "" && maps[index] != *mapFlag {
		log.Fatalf("Map %s not found", *mapFlag)
	}
	if *debugFlag && saved != nil {
		saved.Debug = true
	}

	ebiten.SetWindowSize(config.Viewer.ScreenWidth*2, config.Viewer.ScreenHeight*2)
	ebiten.SetWindowTitle(config.Viewer.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	game := NewGame(loader, maps, index, saved)
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
	game.saveView()
}
