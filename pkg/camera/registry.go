package camera

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the named cameras available as dependencies.
type Registry struct {
	cameras map[string]Camera
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		cameras: make(map[string]Camera),
	}
}

// Register adds or replaces the camera stored under name.
func (r *Registry) Register(name string, cam Camera) error {
	if name == "" {
		return fmt.Errorf("camera: name is required")
	}
	if cam == nil {
		return fmt.Errorf("camera %q: nil camera", name)
	}

	r.mu.Lock()
	r.cameras[name] = cam
	r.mu.Unlock()
	return nil
}

// Get returns the camera registered under name. The error for an unknown
// name lists the registered ones.
func (r *Registry) Get(name string) (Camera, error) {
	r.mu.RLock()
	cam, ok := r.cameras[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrCameraNotFound, name, r.Names())
	}
	return cam, nil
}

// Names returns the registered camera names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.cameras))
	for name := range r.cameras {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}
