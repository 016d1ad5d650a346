// Package assets fetches map documents and tileset images from a file system.
package assets

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"sort"
	"sync"

	"github.com/automoto/tilemap/shared/leveldata"
	"golang.org/x/sync/errgroup"
)

var (
	//go:embed all:maps
	mapFS embed.FS
)

// MapsDir is the directory holding the embedded maps.
const MapsDir = "maps"

// DefaultConcurrency bounds parallel image decodes in LoadImages.
const DefaultConcurrency = 4

// Loader reads documents and decodes images from an fs.FS. Decoded images
// are cached by path so tilesets shared between maps decode once.
type Loader struct {
	fsys        fs.FS
	concurrency int

	mu    sync.Mutex
	cache map[string]image.Image
}

func NewLoader(fsys fs.FS) *Loader {
	return &Loader{
		fsys:        fsys,
		concurrency: DefaultConcurrency,
		cache:       make(map[string]image.Image),
	}
}

// Embedded returns a loader over the maps compiled into the binary.
func Embedded() *Loader {
	return NewLoader(mapFS)
}

// SetConcurrency changes how many images decode at once. n < 1 means one.
func (l *Loader) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	l.concurrency = n
}

// ListMaps returns every map document under dir, sorted.
func (l *Loader) ListMaps(dir string) ([]string, error) {
	return leveldata.Discover(l.fsys, dir)
}

func (l *Loader) LoadDocument(ctx context.Context, name string) (*leveldata.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return leveldata.Load(l.fsys, name)
}

// LoadImages decodes every named image as one batch. The first failure
// cancels the remaining decodes and no partial result is returned.
func (l *Loader) LoadImages(ctx context.Context, names []string) (map[string]image.Image, error) {
	names = unique(names)

	var mu sync.Mutex
	out := make(map[string]image.Image, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := l.loadImage(name)
			if err != nil {
				return err
			}
			mu.Lock()
			out[name] = img
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Loader) loadImage(name string) (image.Image, error) {
	l.mu.Lock()
	img, ok := l.cache[name]
	l.mu.Unlock()
	if ok {
		return img, nil
	}

	b, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", name, err)
	}
	img, _, err = image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = img
	l.mu.Unlock()
	return img, nil
}

func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
