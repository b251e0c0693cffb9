// Package assets holds user-supplied media keyed by filename for a single
// request.
package assets

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"reelforge/internal/services"
)

// Kind distinguishes still images from clips that play their own length.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Size limits per kind.
const (
	MaxImageBytes = 10 << 20
	MaxVideoBytes = 50 << 20
)

var videoExtensions = []string{".mp4", ".avi", ".mov", ".wmv", ".flv", ".webm", ".mkv"}

// KindOf classifies filename by extension. Anything that is not a known
// video container is treated as an image.
func KindOf(filename string) Kind {
	ext := strings.ToLower(filepath.Ext(filename))
	if slices.Contains(videoExtensions, ext) {
		return KindVideo
	}
	return KindImage
}

// Asset is one uploaded file.
type Asset struct {
	Filename string
	Kind     Kind
	Data     []byte
}

// Extension returns the lowercased extension, defaulting by kind when the
// filename has none.
func (a *Asset) Extension() string {
	if ext := strings.ToLower(filepath.Ext(a.Filename)); ext != "" {
		return ext
	}
	if a.Kind == KindVideo {
		return ".mp4"
	}
	return ".png"
}

// Library is the set of assets available to one request.
type Library struct {
	items map[string]*Asset
	order []string
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{items: make(map[string]*Asset)}
}

// Add stores data under filename, replacing any previous asset of the same
// name. Oversized or empty files are rejected with services.ErrValidation.
func (l *Library) Add(filename string, data []byte) (*Asset, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "assets", "add", "filename required", nil)
	}
	if len(data) == 0 {
		return nil, services.Wrap(services.ErrValidation, "assets", "add", fmt.Sprintf("%s is empty", name), nil)
	}
	kind := KindOf(name)
	limit := MaxImageBytes
	if kind == KindVideo {
		limit = MaxVideoBytes
	}
	if len(data) > limit {
		return nil, services.Wrap(services.ErrValidation, "assets", "add",
			fmt.Sprintf("%s is %.1f MiB, over the %d MiB %s limit", name, float64(len(data))/(1<<20), limit>>20, kind), nil)
	}
	asset := &Asset{Filename: name, Kind: kind, Data: data}
	if _, exists := l.items[name]; !exists {
		l.order = append(l.order, name)
	}
	l.items[name] = asset
	return asset, nil
}

// Lookup finds an asset by exact filename.
func (l *Library) Lookup(filename string) (*Asset, bool) {
	if l == nil {
		return nil, false
	}
	asset, ok := l.items[strings.TrimSpace(filename)]
	return asset, ok
}

// Len reports the number of assets.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// All returns assets in insertion order.
func (l *Library) All() []*Asset {
	if l == nil {
		return nil
	}
	out := make([]*Asset, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.items[name])
	}
	return out
}
