package placement

import (
	"context"
	"fmt"
	"sync"

	"github.com/wricardo/clara/pkg/logger"
)

// Handle identifies an instance owned by a renderer
type Handle uint64

// Renderer places and removes visual instances. The core keeps no rendering
// state of its own.
type Renderer interface {
	PlaceInstance(assetKey string, position, rotation, scale Vec3) (Handle, error)
	RemoveInstance(h Handle) error
}

// Mount places every object of the scene. On failure it removes what it
// already placed so no partial world remains.
func Mount(ctx context.Context, r Renderer, scene *Scene) (map[ObjectID]Handle, error) {
	handles := make(map[ObjectID]Handle, len(scene.Objects))
	for _, o := range scene.Objects {
		if err := ctx.Err(); err != nil {
			Unmount(r, handles)
			return nil, err
		}
		h, err := r.PlaceInstance(o.AssetKey, o.Transform.Position, o.Transform.Rotation, o.Transform.Scaling)
		if err != nil {
			Unmount(r, handles)
			return nil, fmt.Errorf("failed to place %s %q: %w", o.Kind, o.AssetKey, err)
		}
		handles[o.ID] = h
	}
	return handles, nil
}

// Unmount removes every handle. Failures are logged and skipped.
func Unmount(r Renderer, handles map[ObjectID]Handle) {
	for id, h := range handles {
		if err := r.RemoveInstance(h); err != nil {
			logger.Log.WithError(err).WithField("object", id).Warn("Failed to remove instance")
		}
		delete(handles, id)
	}
}

// Instance is one live instance of a MemoryRenderer
type Instance struct {
	AssetKey string
	Position Vec3
	Rotation Vec3
	Scale    Vec3
}

// MemoryRenderer keeps instances in a map. Headless hosts and tests use it.
type MemoryRenderer struct {
	mu        sync.Mutex
	next      Handle
	instances map[Handle]Instance
}

// NewMemoryRenderer creates an empty renderer
func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{instances: make(map[Handle]Instance)}
}

// PlaceInstance records an instance
func (m *MemoryRenderer) PlaceInstance(assetKey string, position, rotation, scale Vec3) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.instances[m.next] = Instance{AssetKey: assetKey, Position: position, Rotation: rotation, Scale: scale}
	return m.next, nil
}

// RemoveInstance forgets an instance
func (m *MemoryRenderer) RemoveInstance(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[h]; !ok {
		return fmt.Errorf("unknown handle %d", h)
	}
	delete(m.instances, h)
	return nil
}

// Len returns the number of live instances
func (m *MemoryRenderer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}

// Get returns a live instance
func (m *MemoryRenderer) Get(h Handle) (Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[h]
	return inst, ok
}
