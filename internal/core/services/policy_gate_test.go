package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/clusterauth/internal/core/domain"
	domainerrors "github.com/sufield/clusterauth/internal/core/errors"
)

type invocation struct {
	systemID string
	args     []string
}

func recordingHandler(calls *[]invocation) Handler {
	return func(_ context.Context, systemID string, args []string) error {
		*calls = append(*calls, invocation{systemID: systemID, args: args})
		return nil
	}
}

var target = domain.EntityRef{Class: "ContainerImage", ID: "17", Name: "nginx:latest"}

func TestGuard_NoEventRunsSynchronously(t *testing.T) {
	var calls []invocation
	registry := NewHandlerRegistry()
	registry.Register("scan", recordingHandler(&calls))
	engine := &recordingEngine{}
	gate := NewPolicyGate(engine, newMemoryStore(), registry)

	result, err := gate.Guard(context.Background(), "42", target, "", Continuation{Selector: "scan", Args: []string{"a", "b"}})
	require.NoError(t, err)

	assert.Equal(t, GuardExecuted, result)
	require.Len(t, calls, 1, "continuation must run before Guard returns")
	assert.Equal(t, []string{"a", "b"}, calls[0].args)
	assert.Empty(t, engine.requests)
}

func TestGuard_AllowedDecisionRunsOnce(t *testing.T) {
	var calls []invocation
	registry := NewHandlerRegistry()
	registry.Register("scan", recordingHandler(&calls))
	engine := &recordingEngine{}
	store := newMemoryStore()
	metrics := newCountingMetrics()
	gate := NewPolicyGate(engine, store, registry, WithGateMetrics(metrics))

	result, err := gate.Guard(context.Background(), "42", target, "request_containerimage_scan",
		Continuation{Selector: "scan", Args: []string{"ContainerImage", "17", "admin", "nginx:latest"}})
	require.NoError(t, err)
	assert.Equal(t, GuardDeferred, result)
	assert.Empty(t, calls, "continuation must wait for the decision")

	require.Len(t, engine.requests, 1)
	req := engine.requests[0]
	assert.Equal(t, "request_containerimage_scan", req.Event)
	assert.Equal(t, target, req.Target)

	// The decision may arrive much later, possibly in another process.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, gate.Resolve(context.Background(), domain.Decision{CallbackID: req.CallbackID}))

	require.Len(t, calls, 1)
	assert.Equal(t, "42", calls[0].systemID)
	assert.Equal(t, []string{"ContainerImage", "17", "admin", "nginx:latest"}, calls[0].args)
	assert.Equal(t, 1, metrics.decisions["allowed"])

	err = gate.Resolve(context.Background(), domain.Decision{CallbackID: req.CallbackID})
	assert.True(t, errors.Is(err, domainerrors.ErrContinuationNotFound))
	assert.Len(t, calls, 1, "continuation fires at most once")
}

func TestGuard_PreventedDecisionNeverRuns(t *testing.T) {
	var calls []invocation
	registry := NewHandlerRegistry()
	registry.Register("scan", recordingHandler(&calls))
	engine := &recordingEngine{}
	metrics := newCountingMetrics()
	gate := NewPolicyGate(engine, newMemoryStore(), registry, WithGateMetrics(metrics))

	_, err := gate.Guard(context.Background(), "42", target, "request_containerimage_scan", Continuation{Selector: "scan"})
	require.NoError(t, err)

	err = gate.Resolve(context.Background(), domain.Decision{
		CallbackID: engine.requests[0].CallbackID,
		Prevented:  true,
		Message:    "image scanning is not allowed for this project",
	})
	require.NoError(t, err)
	assert.Empty(t, calls)
	assert.Equal(t, 1, metrics.decisions["prevented"])
}

func TestGuard_ResolvedByAnotherGate(t *testing.T) {
	store := newMemoryStore()
	engine := &recordingEngine{}

	first := NewHandlerRegistry()
	first.Register("scan", func(context.Context, string, []string) error {
		t.Fatal("dispatching process must not run the continuation")
		return nil
	})
	_, err := NewPolicyGate(engine, store, first).
		Guard(context.Background(), "42", target, "request_containerimage_scan", Continuation{Selector: "scan", Args: []string{"x"}})
	require.NoError(t, err)

	// Round-trip the record through JSON as a durable store would.
	rec := store.records[engine.requests[0].CallbackID]
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var restored domain.ContinuationRecord
	require.NoError(t, json.Unmarshal(data, &restored))
	other := newMemoryStore()
	require.NoError(t, other.Save(context.Background(), restored))

	var calls []invocation
	second := NewHandlerRegistry()
	second.Register("scan", recordingHandler(&calls))
	require.NoError(t, NewPolicyGate(engine, other, second).
		Resolve(context.Background(), domain.Decision{CallbackID: restored.ID}))

	require.Len(t, calls, 1)
	assert.Equal(t, []string{"x"}, calls[0].args)
}

func TestGuard_UnknownSelector(t *testing.T) {
	gate := NewPolicyGate(&recordingEngine{}, newMemoryStore(), NewHandlerRegistry())
	_, err := gate.Guard(context.Background(), "42", target, "", Continuation{Selector: "missing"})
	assert.True(t, errors.Is(err, domainerrors.ErrUnknownSelector))
}

func TestGuard_DispatchFailureDiscardsRecord(t *testing.T) {
	registry := NewHandlerRegistry()
	registry.Register("scan", func(context.Context, string, []string) error { return nil })
	store := newMemoryStore()
	gate := NewPolicyGate(&recordingEngine{err: errors.New("engine down")}, store, registry)

	_, err := gate.Guard(context.Background(), "42", target, "request_containerimage_scan", Continuation{Selector: "scan"})
	require.Error(t, err)
	assert.Empty(t, store.records)
}
