// Package ratelimit throttles abuse-prone operations with a fixed window
// counter. The limiter fails open: when the counter backend is down,
// traffic passes and the failure is logged.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "meldish_rate_limit_rejections_total",
	Help: "Total number of requests rejected by the rate limiter",
}, []string{"scope"})

// CounterStore increments fixed-window counters.
type CounterStore interface {
	// Incr bumps the counter for key, setting the window TTL when the key is
	// created, and returns the new count.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Result is one admission decision.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a fixed-window rate limiter over a CounterStore.
type Limiter struct {
	store  CounterStore
	logger *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New constructs a Limiter.
func New(store CounterStore, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Allow admits or rejects one request under scope:key with the given
// fixed-window budget.
func (l *Limiter) Allow(ctx context.Context, scope, key string, limit int, window time.Duration) Result {
	count, err := l.store.Incr(ctx, scope+":"+key, window)
	if err != nil {
		l.logger.WarnContext(ctx, "rate limit backend unavailable, allowing request",
			"scope", scope, "error", err)
		return Result{Allowed: true, Remaining: limit}
	}

	if count > int64(limit) {
		rejectionsTotal.WithLabelValues(scope).Inc()
		return Result{Allowed: false, Remaining: 0, RetryAfter: window}
	}

	return Result{Allowed: true, Remaining: limit - int(count)}
}
