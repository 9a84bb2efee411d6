// Package kv owns the connection to the remote key-value store.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultMaxRetries caps how many times a command is retried on network errors
// before the failure is surfaced to callers.
const DefaultMaxRetries = 3

// MaxRetriesCap is the largest retry count ClientOptions passes through.
const MaxRetriesCap = 5

// Options configures the Redis client.
type Options struct {
	Addr         string
	Password     string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingTimeout  time.Duration
}

// ClientOptions translates Options to go-redis options with bounded retries.
func ClientOptions(opts Options) *redis.Options {
	retries := opts.MaxRetries
	switch {
	case retries == 0:
		retries = DefaultMaxRetries
	case retries < 0:
		// go-redis treats -1 as "no retries".
		retries = -1
	case retries > MaxRetriesCap:
		retries = MaxRetriesCap
	}
	return &redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   retries,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
}

// New creates a Redis client and verifies the connection. The caller owns the
// returned client and must Close it on shutdown.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(ClientOptions(opts))

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("platform/kv: ping: %w", err)
	}

	return client, nil
}

// IsMissing reports whether err is the "key does not exist" reply.
func IsMissing(err error) bool {
	return errors.Is(err, redis.Nil)
}
