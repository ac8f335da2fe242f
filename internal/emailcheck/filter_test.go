package emailcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meldish/internal/platform/config"
)

func newFilter(t *testing.T, apiURL string) (*Filter, *MemoryCache) {
	t.Helper()
	cache := NewMemoryCache()
	f := New(config.EmailCheckConfig{
		APIBaseURL: apiURL,
		Timeout:    2 * time.Second,
		CacheTTL:   30 * 24 * time.Hour,
	}, cache)
	return f, cache
}

func TestStaticListBlocksWithoutLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("lookup API must not be called for statically blocked domains")
	}))
	defer srv.Close()

	f, _ := newFilter(t, srv.URL)
	assert.True(t, f.IsDisposable(context.Background(), "someone@mailinator.com"))
	assert.True(t, f.IsDisposable(context.Background(), "someone@YOPMAIL.com"))
}

func TestLookupVerdictIsCached(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"disposable": true}`))
	}))
	defer srv.Close()

	f, cache := newFilter(t, srv.URL)

	assert.True(t, f.IsDisposable(context.Background(), "someone@burner.example"))
	assert.Equal(t, 1, calls)

	disposable, ok, err := cache.Get(context.Background(), "burner.example")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, disposable)

	// Second check answers from cache.
	assert.True(t, f.IsDisposable(context.Background(), "other@burner.example"))
	assert.Equal(t, 1, calls)
}

func TestLookupFailureFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, cache := newFilter(t, srv.URL)
	assert.False(t, f.IsDisposable(context.Background(), "someone@flaky.example"))

	// Failures are never cached; the next lookup retries.
	_, ok, err := cache.Get(context.Background(), "flaky.example")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnreachableAPIFailsOpen(t *testing.T) {
	f, _ := newFilter(t, "http://127.0.0.1:1")
	assert.False(t, f.IsDisposable(context.Background(), "someone@unknown.example"))
}

func TestCleanDomainAllowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"disposable": false}`))
	}))
	defer srv.Close()

	f, _ := newFilter(t, srv.URL)
	assert.False(t, f.IsDisposable(context.Background(), "someone@example.com"))
}
