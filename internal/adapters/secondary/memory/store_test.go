package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/errors"
)

func TestContinuationStore_TakeIsAtMostOnce(t *testing.T) {
	ctx := context.Background()
	store := NewContinuationStore()
	require.NoError(t, store.Save(ctx, domain.ContinuationRecord{ID: "cb-1", Selector: "raw_scan_job_create"}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	taken := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Take(ctx, "cb-1"); err == nil {
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, taken)
	assert.Equal(t, 0, store.Len())

	_, err := store.Take(ctx, "cb-1")
	assert.ErrorIs(t, err, errors.ErrContinuationNotFound)
}

func TestContinuationStore_RejectsEmptyID(t *testing.T) {
	err := NewContinuationStore().Save(context.Background(), domain.ContinuationRecord{})
	var verr *errors.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestQueueEngine_FIFO(t *testing.T) {
	ctx := context.Background()
	engine := NewQueueEngine()
	require.NoError(t, engine.Dispatch(ctx, domain.PolicyRequest{CallbackID: "a"}))
	require.NoError(t, engine.Dispatch(ctx, domain.PolicyRequest{CallbackID: "b"}))

	req, ok, err := engine.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", req.CallbackID)

	req, ok, _ = engine.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "b", req.CallbackID)

	_, ok, _ = engine.Next(ctx)
	assert.False(t, ok)
}

func TestJobQueue_Jobs(t *testing.T) {
	q := NewJobQueue()
	require.NoError(t, q.Submit(context.Background(), domain.ScanJob{ID: "1"}))

	jobs := q.Jobs()
	jobs[0].ID = "mutated"
	assert.Equal(t, "1", q.Jobs()[0].ID)
}

func TestCredentialStore_AuthenticationToken(t *testing.T) {
	m, err := domain.NewManagedSystem("42", "ocp",
		[]domain.Endpoint{{Role: domain.RoleDefault, Hostname: "a"}},
		[]domain.Authentication{{AuthType: domain.AuthBearer, AuthKey: "tok"}})
	require.NoError(t, err)
	store := NewCredentialStore(m)

	tok, err := store.AuthenticationToken(context.Background(), "42", domain.AuthBearer)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	tok, err = store.AuthenticationToken(context.Background(), "7", domain.AuthBearer)
	require.NoError(t, err)
	assert.Empty(t, tok)
}
