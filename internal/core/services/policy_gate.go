package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/ports"
)

// Handler resumes a continuation. It receives the id of the system that
// dispatched it and the original arguments.
type Handler func(ctx context.Context, systemID string, args []string) error

// HandlerRegistry maps continuation selectors to handlers. Every process that may
// resolve decisions registers the same selectors.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]Handler)}
}

// Register binds selector to h, replacing any previous binding.
func (r *HandlerRegistry) Register(selector string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[selector] = h
}

// Lookup returns the handler bound to selector.
func (r *HandlerRegistry) Lookup(selector string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[selector]
	return h, ok
}

// Continuation names a registered handler and its arguments.
type Continuation struct {
	Selector string
	Args     []string
}

// GuardResult tells how Guard handled the continuation.
type GuardResult int

const (
	// GuardExecuted means the continuation ran synchronously.
	GuardExecuted GuardResult = iota + 1
	// GuardDeferred means the continuation waits for a policy decision.
	GuardDeferred
)

// String returns the result name.
func (r GuardResult) String() string {
	switch r {
	case GuardExecuted:
		return "executed"
	case GuardDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// PolicyGate runs privileged actions only once the policy engine allows them.
type PolicyGate struct {
	engine   ports.PolicyEngine
	store    ports.ContinuationStore
	registry *HandlerRegistry
	metrics  MetricsReporter
	logger   ports.Logger
	now      func() time.Time
	newID    func() string
}

// GateOption configures a PolicyGate.
type GateOption func(*PolicyGate)

// WithGateMetrics sets the metrics reporter.
func WithGateMetrics(m MetricsReporter) GateOption {
	return func(g *PolicyGate) {
		g.metrics = m
	}
}

// WithGateLogger sets the logger.
func WithGateLogger(l ports.Logger) GateOption {
	return func(g *PolicyGate) {
		g.logger = l
	}
}

// WithGateClock overrides the clock used to stamp records.
func WithGateClock(now func() time.Time) GateOption {
	return func(g *PolicyGate) {
		g.now = now
	}
}

// NewPolicyGate creates a gate.
func NewPolicyGate(engine ports.PolicyEngine, store ports.ContinuationStore, registry *HandlerRegistry, opts ...GateOption) *PolicyGate {
	g := &PolicyGate{
		engine:   engine,
		store:    store,
		registry: registry,
		metrics:  noopMetrics{},
		logger:   noopLogger{},
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Guard runs c immediately when event is empty. Otherwise it stores c as a record,
// dispatches a policy request and returns without waiting for the decision.
func (g *PolicyGate) Guard(ctx context.Context, systemID string, target domain.EntityRef, event string, c Continuation) (GuardResult, error) {
	handler, ok := g.registry.Lookup(c.Selector)
	if !ok {
		return 0, errors.NewDomainError(errors.ErrUnknownSelector, fmt.Errorf("selector %q", c.Selector))
	}

	if event == "" {
		g.metrics.RecordContinuation("executed")
		if err := handler(ctx, systemID, c.Args); err != nil {
			return GuardExecuted, err
		}
		return GuardExecuted, nil
	}

	rec := domain.ContinuationRecord{
		ID:        g.newID(),
		SystemID:  systemID,
		Selector:  c.Selector,
		Args:      append([]string(nil), c.Args...),
		Target:    target,
		Event:     event,
		CreatedAt: g.now().UTC(),
	}
	if err := g.store.Save(ctx, rec); err != nil {
		return 0, fmt.Errorf("failed to store continuation: %w", err)
	}

	req := domain.PolicyRequest{CallbackID: rec.ID, Target: target, Event: event}
	if err := g.engine.Dispatch(ctx, req); err != nil {
		if _, takeErr := g.store.Take(ctx, rec.ID); takeErr != nil {
			g.logger.Warn(ctx, "failed to discard undispatched continuation",
				ports.Attr("callback_id", rec.ID), ports.Attr("error", takeErr.Error()))
		}
		return 0, fmt.Errorf("failed to dispatch policy event %s: %w", event, err)
	}

	g.metrics.RecordContinuation("deferred")
	g.logger.Info(ctx, "policy evaluation requested",
		ports.Attr("event", event),
		ports.Attr("callback_id", rec.ID),
		ports.Attr("target_class", target.Class),
		ports.Attr("target_id", target.ID))
	return GuardDeferred, nil
}

// Resolve applies a policy decision. The record is taken from the store first, so
// a continuation runs at most once; a prevented decision only logs.
func (g *PolicyGate) Resolve(ctx context.Context, d domain.Decision) error {
	rec, err := g.store.Take(ctx, d.CallbackID)
	if err != nil {
		return fmt.Errorf("resolve callback %s: %w", d.CallbackID, err)
	}

	logger := g.logger.WithAttrs(ports.Attr("callback_id", rec.ID), ports.Attr("event", rec.Event))
	if d.Prevented {
		g.metrics.RecordPolicyDecision("prevented")
		logger.Info(ctx, "action prevented by policy", ports.Attr("message", d.Message))
		return nil
	}

	handler, ok := g.registry.Lookup(rec.Selector)
	if !ok {
		g.metrics.RecordPolicyDecision("orphaned")
		return errors.NewDomainError(errors.ErrUnknownSelector, fmt.Errorf("selector %q", rec.Selector))
	}

	g.metrics.RecordPolicyDecision("allowed")
	if err := handler(ctx, rec.SystemID, rec.Args); err != nil {
		logger.Error(ctx, "continuation failed", ports.Attr("error", err.Error()))
		return fmt.Errorf("continuation %s failed: %w", rec.Selector, err)
	}
	return nil
}
