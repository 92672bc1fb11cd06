// The registry package caches decoded shapes by name and by content. Shapes
// are keyed by the BLAKE2b digest of their encoded bytes, so two files with
// identical content share one decoded shape regardless of name.
package registry

import (
	"bytes"
	"io"
	"sync"

	"golang.org/x/crypto/blake2b"

	ts "github.com/andrewstrauch/The-Scarab-Gauntlet-sub002"
	"github.com/andrewstrauch/The-Scarab-Gauntlet-sub002/dts"
)

// Registry is a concurrency-safe shape cache. The zero value is not usable;
// use New.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*ts.Shape
	byHash  map[[blake2b.Size256]byte]*ts.Shape
	decoder dts.Decoder
}

// New returns an empty registry decoding with d.
func New(d dts.Decoder) *Registry {
	return &Registry{
		byName:  make(map[string]*ts.Shape),
		byHash:  make(map[[blake2b.Size256]byte]*ts.Shape),
		decoder: d,
	}
}

// Load decodes a shape from r and registers it under name. If a shape with
// the same content digest is already cached, the cached shape is reused and
// bound to name without decoding again. The shape's Digest field is set to
// the content digest.
func (g *Registry) Load(name string, r io.Reader) (*ts.Shape, error) {
	if r == nil {
		return nil, dts.ErrNilReader
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(data)

	g.mu.RLock()
	shape, ok := g.byHash[sum]
	g.mu.RUnlock()
	if !ok {
		if shape, err = g.decoder.Decode(bytes.NewReader(data)); err != nil {
			return nil, err
		}
		shape.Digest = sum[:]
	}

	g.mu.Lock()
	// Another loader may have won the race; keep its shape.
	if cached, ok := g.byHash[sum]; ok {
		shape = cached
	} else {
		g.byHash[sum] = shape
	}
	g.byName[name] = shape
	g.mu.Unlock()
	return shape, nil
}

// Get returns the shape registered under name, or nil.
func (g *Registry) Get(name string) *ts.Shape {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.byName[name]
}

// Forget drops the binding for name. The shape stays cached by content until
// every name bound to it is forgotten.
func (g *Registry) Forget(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	shape, ok := g.byName[name]
	if !ok {
		return
	}
	delete(g.byName, name)
	for _, s := range g.byName {
		if s == shape {
			return
		}
	}
	var sum [blake2b.Size256]byte
	copy(sum[:], shape.Digest)
	delete(g.byHash, sum)
}

// Len returns the number of registered names.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byName)
}
