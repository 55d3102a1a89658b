// Package redis provides Redis-backed experience storage and analytics publishing.
package redis

import (
	"log/slog"
	"time"

	"github.com/aretw0/lantern/internal/logging"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "lantern:"

type options struct {
	prefix       string
	ttl          time.Duration
	maxRetries   uint64
	initialDelay time.Duration
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		prefix:       DefaultPrefix,
		maxRetries:   3,
		initialDelay: 100 * time.Millisecond,
		logger:       logging.NewNop(),
	}
}

// Option configures a Store or a Publisher.
type Option func(*options)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithTTL sets the expiration of cached experiences. Zero means no expiration.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithRetry sets how many times a failed publish is retried and the first backoff delay.
func WithRetry(maxRetries uint64, initialDelay time.Duration) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		o.initialDelay = initialDelay
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
