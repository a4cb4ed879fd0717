package model

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Loader reads a model file of one or more formats.
type Loader interface {
	Load(ctx context.Context, path string) (Model, error)
	SupportedFormats() []string
}

// Registry maps file extensions (without the dot) to loaders.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry returns a registry with the STEP and document loaders.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]Loader)}
	for _, l := range []Loader{&STEPLoader{}, &DocumentLoader{}} {
		for _, f := range l.SupportedFormats() {
			r.loaders[f] = l
		}
	}
	return r
}

func (r *Registry) Get(format string) (Loader, error) {
	l, ok := r.loaders[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("no loader for format: %s", format)
	}
	return l, nil
}

func (r *Registry) Register(format string, l Loader) {
	r.loaders[strings.ToLower(format)] = l
}

// Load picks a loader from the file extension of path.
func (r *Registry) Load(ctx context.Context, path string) (Model, error) {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	l, err := r.Get(format)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, path)
}
