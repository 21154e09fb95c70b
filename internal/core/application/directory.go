package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/services"
)

// Directory finds the manager of a system when a continuation resumes.
type Directory struct {
	mu       sync.RWMutex
	managers map[string]*ClusterManager
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{managers: make(map[string]*ClusterManager)}
}

// Add registers m under its system id.
func (d *Directory) Add(m *ClusterManager) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.managers[m.System().ID] = m
}

// Lookup returns the manager of systemID.
func (d *Directory) Lookup(_ context.Context, systemID string) (*ClusterManager, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.managers[systemID]
	if !ok {
		return nil, errors.NewDomainError(errors.ErrMissingConfiguration, fmt.Errorf("no managed system %q", systemID))
	}
	return m, nil
}

// RegisterHandlers binds the continuation selectors of this package. Every
// process that resolves policy decisions must call it.
func RegisterHandlers(registry *services.HandlerRegistry, dir *Directory) {
	registry.Register(SelectorRawScanJobCreate, func(ctx context.Context, systemID string, args []string) error {
		if len(args) != 4 {
			return fmt.Errorf("%s expects 4 arguments, got %d", SelectorRawScanJobCreate, len(args))
		}
		m, err := dir.Lookup(ctx, systemID)
		if err != nil {
			return err
		}
		return m.RawScanJobCreate(ctx, args[0], args[1], args[2], args[3])
	})
}
