// Command mapbake inspects map documents and exports their baked regions
// without opening a window.
package main

import (
	"context"
	"log"
	"os"

	"github.com/automoto/tilemap/assets"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "mapbake",
		Usage: "inspect, query and bake tile maps",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "asset directory maps are read from (embedded maps when empty)",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML map settings",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "dotenv file with TILEMAP_* overrides",
			},
			&cli.IntFlag{
				Name:  "jobs",
				Value: assets.DefaultConcurrency,
				Usage: "tileset images decoded in parallel",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "print load stage metrics after the command",
			},
		},
		Before: loadEnv,
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "list the maps in a directory",
				ArgsUsage: "[dir]",
				Action:    listMaps,
			},
			{
				Name:      "inspect",
				Usage:     "load a map and print what the pipeline produced",
				ArgsUsage: "<map>",
				Action:    inspectMap,
			},
			{
				Name:      "zones",
				Usage:     "list zones, or look one up by name",
				ArgsUsage: "<map>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "zone to look up"},
					&cli.BoolFlag{Name: "required", Usage: "fail unless exactly one zone matches"},
				},
				Action: listZones,
			},
			{
				Name:      "bake",
				Usage:     "write every baked region as a PNG",
				ArgsUsage: "<map>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Value: "regions", Usage: "output directory"},
					&cli.IntFlag{Name: "region-size", Usage: "override region_size"},
					&cli.BoolFlag{Name: "store", Usage: "also keep the regions in the viewer's save data"},
				},
				Action: bakeMap,
			},
		},
	}
}

// loadEnv loads the dotenv file if it exists.
func loadEnv(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := godotenv.Load(cmd.String("env-file")); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}
	return ctx, nil
}
