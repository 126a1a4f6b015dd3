package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"storefront/config"
	"storefront/core"
	"storefront/stores/memory"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	published atomic.Int32
}

func (f *fakeFeed) Publish(event string, store *core.Store) {
	f.published.Add(1)
}

func (f *fakeFeed) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("feed"))
	})
}

func TestRouterServesStoresAndFeed(t *testing.T) {
	feed := &fakeFeed{}
	h := NewRouter(memory.NewStoreRepository(), feed)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Acme","description":"Hardware"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.EqualValues(t, 1, feed.published.Load())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/socket.io/?EIO=4&transport=polling", nil))
	assert.Equal(t, "feed", w.Body.String())
}

func TestRequestIDIsPropagated(t *testing.T) {
	h := NewRouter(memory.NewStoreRepository(), &fakeFeed{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(middleware.RequestIDHeader))
}

type closeTracker struct {
	core.StoreRepository
	closed atomic.Bool
}

func (c *closeTracker) Close(ctx context.Context) error {
	c.closed.Store(true)
	return c.StoreRepository.Close(ctx)
}

func testServerConfig(addr string) config.ServerConfig {
	return config.ServerConfig{
		Addr:              addr,
		LogLevel:          "info",
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       time.Second,
		WriteTimeout:      time.Second,
		IdleTimeout:       time.Second,
		ShutdownTimeout:   time.Second,
	}
}

func TestRunStartupFailure(t *testing.T) {
	boom := errors.New("no database")
	err := Run(context.Background(), testServerConfig("127.0.0.1:0"), func(ctx context.Context) (core.StoreRepository, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunReleasesRepositoryOnShutdown(t *testing.T) {
	repo := &closeTracker{StoreRepository: memory.NewStoreRepository()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, testServerConfig("127.0.0.1:0"), func(ctx context.Context) (core.StoreRepository, error) {
			return repo, nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, repo.closed.Load())
}

func TestRunReleasesRepositoryWhenListenFails(t *testing.T) {
	repo := &closeTracker{StoreRepository: memory.NewStoreRepository()}
	err := Run(context.Background(), testServerConfig("256.0.0.1:99999"), func(ctx context.Context) (core.StoreRepository, error) {
		return repo, nil
	})
	assert.Error(t, err)
	assert.True(t, repo.closed.Load())
}

type slowFeed struct {
	fakeFeed
	hold time.Duration
}

func (f *slowFeed) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(f.hold)
		w.Write([]byte("2"))
	})
}

func TestFeedOutlivesServerTimeouts(t *testing.T) {
	srv := httptest.NewUnstartedServer(NewRouter(memory.NewStoreRepository(), &slowFeed{hold: 300 * time.Millisecond}))
	srv.Config.ReadTimeout = 100 * time.Millisecond
	srv.Config.WriteTimeout = 100 * time.Millisecond
	srv.Start()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/socket.io/?EIO=4&transport=polling")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2", string(body))
}
