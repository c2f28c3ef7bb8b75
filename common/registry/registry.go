// Package registry maps task module names to executable components. Component
// packages register themselves from init, so a worker binary selects its
// catalog with blank imports.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/process"
)

// ErrComponentNotFound reports a task module with no registered component.
var ErrComponentNotFound = fmt.Errorf("registry: component not found")

// ExecuteFunc runs a component against its process context and params.
type ExecuteFunc func(ctx context.Context, pcs *process.Process, params map[string]any) (*models.TaskResult, error)

// Component describes one executable module.
type Component struct {
	// Name is the module path tasks reference, e.g. "core.catalog.load.ImportFile".
	Name        string
	Description string
	// Inputs maps input names to the record type they accept.
	Inputs map[string]string
	// Outputs lists the record types emitted downstream.
	Outputs []string
	// Params documents accepted params and their defaults.
	Params  map[string]string
	Execute ExecuteFunc
}

// Registry is a concurrency-safe component catalog.
type Registry struct {
	mu         sync.RWMutex
	components map[string]*Component
}

func New() *Registry {
	return &Registry{components: make(map[string]*Component)}
}

// Default is the process-wide catalog component packages register into.
var Default = New()

func (r *Registry) Register(c *Component) error {
	if c.Name == "" {
		return fmt.Errorf("registry: component without name")
	}
	if c.Execute == nil {
		return fmt.Errorf("registry: component %s without execute", c.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.components[c.Name]; dup {
		return fmt.Errorf("registry: component %s already registered", c.Name)
	}
	r.components[c.Name] = c
	return nil
}

// MustRegister registers or panics. Meant for init-time registration.
func (r *Registry) MustRegister(c *Component) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Lookup resolves a task module name.
func (r *Registry) Lookup(module string) (*Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, module)
	}
	return c, nil
}

// List returns the registered module names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
