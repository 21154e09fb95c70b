package redisstore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/sufield/clusterauth/internal/core/domain"
	"github.com/sufield/clusterauth/internal/core/errors"
	"github.com/sufield/clusterauth/internal/core/ports"
)

var (
	_ ports.ContinuationStore = (*ContinuationStore)(nil)
	_ ports.PolicyEngine      = (*QueueEngine)(nil)
	_ ports.JobQueue          = (*JobQueue)(nil)
)

// ContinuationStore stores each record under its own key. Take uses GETDEL so
// concurrent resolvers cannot both obtain a record.
type ContinuationStore struct {
	rdb  *redis.Client
	opts Options
}

func (s *ContinuationStore) recordKey(id string) string {
	return s.opts.key("continuation", id)
}

// Save writes rec. Records expire after the configured TTL; zero keeps them forever.
func (s *ContinuationStore) Save(ctx context.Context, rec domain.ContinuationRecord) error {
	if rec.ID == "" {
		return &errors.ValidationError{Field: "id", Value: rec.ID, Message: "continuation id cannot be empty"}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode continuation %s: %w", rec.ID, err)
	}
	if err := s.rdb.Set(ctx, s.recordKey(rec.ID), data, s.opts.ContinuationTTL).Err(); err != nil {
		return fmt.Errorf("failed to save continuation %s: %w", rec.ID, err)
	}
	return nil
}

// Take atomically removes and returns the record stored under id.
func (s *ContinuationStore) Take(ctx context.Context, id string) (domain.ContinuationRecord, error) {
	data, err := s.rdb.GetDel(ctx, s.recordKey(id)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return domain.ContinuationRecord{}, errors.NewDomainError(errors.ErrContinuationNotFound, fmt.Errorf("callback %s", id))
	}
	if err != nil {
		return domain.ContinuationRecord{}, fmt.Errorf("failed to take continuation %s: %w", id, err)
	}

	var rec domain.ContinuationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.ContinuationRecord{}, fmt.Errorf("failed to decode continuation %s: %w", id, err)
	}
	return rec, nil
}

// QueueEngine pushes policy requests onto a Redis list consumed by the policy
// evaluator, which answers through PolicyGate.Resolve.
type QueueEngine struct {
	rdb *redis.Client
	key string
}

// Dispatch appends req to the event queue.
func (e *QueueEngine) Dispatch(ctx context.Context, req domain.PolicyRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode policy request: %w", err)
	}
	if err := e.rdb.RPush(ctx, e.key, data).Err(); err != nil {
		return fmt.Errorf("failed to queue policy request %s: %w", req.CallbackID, err)
	}
	return nil
}

// Next pops the oldest pending request. ok is false when the queue is empty.
func (e *QueueEngine) Next(ctx context.Context) (req domain.PolicyRequest, ok bool, err error) {
	data, err := e.rdb.LPop(ctx, e.key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return domain.PolicyRequest{}, false, nil
	}
	if err != nil {
		return domain.PolicyRequest{}, false, fmt.Errorf("failed to read policy queue: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.PolicyRequest{}, false, fmt.Errorf("failed to decode policy request: %w", err)
	}
	return req, true, nil
}

// JobQueue pushes scan jobs onto a Redis list read by the scanning workers.
type JobQueue struct {
	rdb *redis.Client
	key string
}

// Submit appends job to the queue.
func (q *JobQueue) Submit(ctx context.Context, job domain.ScanJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode scan job: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to submit scan job %s: %w", job.ID, err)
	}
	return nil
}
