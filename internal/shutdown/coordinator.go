// Package shutdown releases the resources a command acquired, in a bounded time.
package shutdown

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/sufield/clusterauth/internal/core/ports"
)

// DefaultGracePeriod bounds how long Shutdown waits for clients to close.
const DefaultGracePeriod = 10 * time.Second

// Client is a connection that can be closed.
type Client interface {
	Close() error
}

// Config configures a Coordinator.
type Config struct {
	GracePeriod time.Duration
	Logger      ports.Logger
}

// Coordinator closes registered clients concurrently, then runs cleanup functions
// in registration order. Shutdown runs at most once.
type Coordinator struct {
	config       Config
	clients      []Client
	cleanupFuncs []func(context.Context) error
	mu           sync.Mutex
	shutdownOnce sync.Once
	done         bool
	err          error
}

// NewCoordinator creates a coordinator.
func NewCoordinator(config Config) *Coordinator {
	if config.GracePeriod <= 0 {
		config.GracePeriod = DefaultGracePeriod
	}
	return &Coordinator{config: config}
}

// RegisterClient registers a client. Registrations after Shutdown are ignored.
func (c *Coordinator) RegisterClient(client Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client != nil && !c.done {
		c.clients = append(c.clients, client)
	}
}

// RegisterCleanupFunc registers fn to run after every client is closed.
func (c *Coordinator) RegisterCleanupFunc(fn func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fn != nil && !c.done {
		c.cleanupFuncs = append(c.cleanupFuncs, fn)
	}
}

// Shutdown releases everything registered and returns the joined errors.
// Later calls return the result of the first.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()
		c.done = true
		clients := c.clients
		cleanups := c.cleanupFuncs
		c.mu.Unlock()

		graceCtx, cancel := context.WithTimeout(ctx, c.config.GracePeriod)
		defer cancel()

		var (
			errsMu sync.Mutex
			errs   []error
		)
		addError := func(err error) {
			errsMu.Lock()
			defer errsMu.Unlock()
			errs = append(errs, err)
		}

		if !c.closeClients(graceCtx, clients, addError) {
			addError(fmt.Errorf("closing clients exceeded grace period of %v", c.config.GracePeriod))
		}
		for _, fn := range cleanups {
			if err := fn(graceCtx); err != nil {
				addError(fmt.Errorf("cleanup: %w", err))
			}
		}

		errsMu.Lock()
		c.err = stderrors.Join(errs...)
		errsMu.Unlock()
		if c.err != nil && c.config.Logger != nil {
			c.config.Logger.Warn(ctx, "shutdown finished with errors", ports.Attr("error", c.err.Error()))
		}
	})
	return c.err
}

func (c *Coordinator) closeClients(ctx context.Context, clients []Client, addError func(error)) bool {
	var wg sync.WaitGroup
	for _, client := range clients {
		wg.Add(1)
		go func(cl Client) {
			defer wg.Done()
			if err := cl.Close(); err != nil {
				addError(fmt.Errorf("client close: %w", err))
			}
		}(client)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
