// Package emailcheck screens registration emails against disposable-address
// domains. Verdicts come from an embedded blocklist, then a shared cache,
// then a remote lookup API. The remote path fails open: an unreachable or
// slow API never blocks a registration.
package emailcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"meldish/internal/platform/config"
	"meldish/pkg/email"
)

// Cache stores per-domain verdicts across instances.
type Cache interface {
	// Get returns the cached verdict; ok is false on a cache miss.
	Get(ctx context.Context, domain string) (disposable bool, ok bool, err error)
	Set(ctx context.Context, domain string, disposable bool, ttl time.Duration) error
}

// Filter is the disposable-email screen.
type Filter struct {
	cache      Cache
	httpClient *http.Client
	baseURL    string
	cacheTTL   time.Duration
	logger     *slog.Logger
	group      singleflight.Group
}

// Option configures a Filter.
type Option func(*Filter)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filter) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithHTTPClient overrides the lookup client, keeping its timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Filter) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// New constructs a Filter. A nil cache disables caching.
func New(cfg config.EmailCheckConfig, cache Cache, opts ...Option) *Filter {
	f := &Filter{
		cache:      cache,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.APIBaseURL,
		cacheTTL:   cfg.CacheTTL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// IsDisposable reports whether the email's domain is a known disposable
// provider. Lookup failures are logged and treated as not disposable.
func (f *Filter) IsDisposable(ctx context.Context, address string) bool {
	domain := email.Domain(address)
	if domain == "" {
		return false
	}
	if inStaticList(domain) {
		return true
	}

	if f.cache != nil {
		disposable, ok, err := f.cache.Get(ctx, domain)
		if err != nil {
			f.logger.WarnContext(ctx, "disposable cache read failed", "domain", domain, "error", err)
		} else if ok {
			return disposable
		}
	}

	// Collapse concurrent lookups for one domain into a single API call.
	verdict, err, _ := f.group.Do(domain, func() (any, error) {
		return f.lookup(ctx, domain)
	})
	if err != nil {
		f.logger.WarnContext(ctx, "disposable lookup failed, allowing domain", "domain", domain, "error", err)
		return false
	}

	disposable := verdict.(bool)
	if f.cache != nil {
		if err := f.cache.Set(ctx, domain, disposable, f.cacheTTL); err != nil {
			f.logger.WarnContext(ctx, "disposable cache write failed", "domain", domain, "error", err)
		}
	}
	return disposable
}

func (f *Filter) lookup(ctx context.Context, domain string) (bool, error) {
	url := fmt.Sprintf("%s/%s", f.baseURL, domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("disposable lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("disposable lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Disposable bool `json:"disposable"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode lookup response: %w", err)
	}
	return body.Disposable, nil
}
