// Package redisstore keeps continuation records, policy events and scan jobs in
// Redis so that a decision can be resolved by any worker.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Options configures the Redis connection and key layout.
type Options struct {
	Addr            string
	Password        string
	DB              int
	KeyPrefix       string
	EventQueue      string
	JobQueue        string
	ContinuationTTL time.Duration
	DialTimeout     time.Duration
}

func (o Options) withDefaults() Options {
	if o.KeyPrefix == "" {
		o.KeyPrefix = "clusterauth"
	}
	if o.EventQueue == "" {
		o.EventQueue = "policy:events"
	}
	if o.JobQueue == "" {
		o.JobQueue = "jobs:scan"
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = 5 * time.Second
	}
	return o
}

func (o Options) key(parts ...string) string {
	k := o.KeyPrefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// Client bundles the Redis backed adapters over one connection pool.
type Client struct {
	rdb  *redis.Client
	opts Options
}

// Connect opens a client and pings the server.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	opts = opts.withDefaults()
	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &Client{rdb: rdb, opts: opts}, nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Continuations returns the continuation store.
func (c *Client) Continuations() *ContinuationStore {
	return &ContinuationStore{rdb: c.rdb, opts: c.opts}
}

// Events returns the policy engine that queues requests for an external evaluator.
func (c *Client) Events() *QueueEngine {
	return &QueueEngine{rdb: c.rdb, key: c.opts.key(c.opts.EventQueue)}
}

// Jobs returns the scan job queue.
func (c *Client) Jobs() *JobQueue {
	return &JobQueue{rdb: c.rdb, key: c.opts.key(c.opts.JobQueue)}
}
