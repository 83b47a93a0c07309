package geoip

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipinfoServer(t *testing.T, calls *int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupNormalizesAndCaches(t *testing.T) {
	var calls int32
	srv := ipinfoServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/8.8.8.8/json", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"ip":"8.8.8.8","city":"Mountain View","country":"us","loc":"37.4,-122.1"}`))
	})
	reg := prometheus.NewRegistry()
	c, err := New(Options{Provider: &IPInfo{BaseURL: srv.URL, Token: "tok"}, Registerer: reg})
	require.NoError(t, err)

	loc, err := c.Lookup(context.Background(), " 8.8.8.8 ")
	require.NoError(t, err)
	assert.Equal(t, "US", loc.CountryCode)
	assert.Equal(t, "United States", loc.Country)
	assert.Equal(t, ProviderIPInfo, loc.Provider)

	_, err = c.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lookups.WithLabelValues(ProviderIPInfo, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.lookups.WithLabelValues(ProviderIPInfo, "cache_hit")))
}

func TestLookupCacheExpiryAndDisable(t *testing.T) {
	var calls int32
	srv := ipinfoServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","countryCode":"DE","query":"1.2.3.4"}`))
	})
	c, err := New(Options{Provider: &IPAPI{BaseURL: srv.URL}, CacheTTL: time.Minute})
	require.NoError(t, err)
	now := time.Now()
	c.now = func() time.Time { return now }
	_, err = c.Lookup(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = c.Lookup(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	atomic.StoreInt32(&calls, 0)
	uncached, err := New(Options{Provider: &IPAPI{BaseURL: srv.URL}, CacheSize: -1})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = uncached.Lookup(context.Background(), "1.2.3.4")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestLookupCollapsesConcurrentRequests(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv := ipinfoServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		_, _ = w.Write([]byte(`{"ip":"9.9.9.9","country":"CH"}`))
	})
	c, err := New(Options{Provider: &IPInfo{BaseURL: srv.URL}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Lookup(context.Background(), "9.9.9.9")
			errs <- err
		}()
	}
	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLookupSharedFetchIgnoresFirstCallerDeadline(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	srv := ipinfoServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		_, _ = w.Write([]byte(`{"ip":"9.9.9.9","country":"CH"}`))
	})
	c, err := New(Options{Provider: &IPInfo{BaseURL: srv.URL}})
	require.NoError(t, err)

	hasty := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := c.Lookup(ctx, "9.9.9.9")
		hasty <- err
	}()
	<-started

	type result struct {
		loc Location
		err error
	}
	patient := make(chan result, 1)
	go func() {
		loc, err := c.Lookup(context.Background(), "9.9.9.9")
		patient <- result{loc, err}
	}()

	err = <-hasty
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	close(release)

	got := <-patient
	require.NoError(t, got.err)
	assert.Equal(t, "CH", got.loc.CountryCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLookupPrivateAndInvalid(t *testing.T) {
	c, err := New(Options{Provider: &IPInfo{BaseURL: "http://127.0.0.1:1"}})
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), "not-an-ip")
	assert.True(t, errors.Is(err, ErrInvalidIP))
	for _, ip := range []string{"10.1.2.3", "127.0.0.1", "::1", "169.254.1.1", "0.0.0.0", "100.64.0.1", "::ffff:192.168.1.1"} {
		_, err = c.Lookup(context.Background(), ip)
		assert.True(t, errors.Is(err, ErrPrivateAddress), ip)
	}

	withFallback, err := New(Options{Fallback: &Location{CountryCode: "GB", Country: "United Kingdom", Provider: "fallback"}})
	require.NoError(t, err)
	loc, err := withFallback.Lookup(context.Background(), "192.168.0.10")
	require.NoError(t, err)
	assert.Equal(t, "192.168.0.10", loc.IP)
	assert.Equal(t, "GB", loc.CountryCode)
}

func TestLookupProviderErrors(t *testing.T) {
	var calls int32
	srv := ipinfoServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/1.1.1.1/json/" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	})
	c, err := New(Options{Provider: &IPAPICo{BaseURL: srv.URL}})
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), "1.1.1.1")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusTooManyRequests, pe.Status)
	assert.Equal(t, "RateLimited", pe.Reason)

	_, err = c.Lookup(context.Background(), "1.0.0.1")
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadGateway, pe.Status)
	assert.Equal(t, "Bad Gateway", pe.Reason)

	// failures are not cached and not retried
	_, _ = c.Lookup(context.Background(), "1.1.1.1")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestLookupTimeout(t *testing.T) {
	var calls int32
	srv := ipinfoServer(t, &calls, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})
	c, err := New(Options{Provider: &IPInfo{BaseURL: srv.URL}, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)
	_, err = c.Lookup(context.Background(), "8.8.8.8")
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestIsPublic(t *testing.T) {
	assert.True(t, IsPublic(netip.MustParseAddr("8.8.8.8")))
	assert.True(t, IsPublic(netip.MustParseAddr("2001:4860:4860::8888")))
	assert.False(t, IsPublic(netip.MustParseAddr("fd00::1")))
	assert.False(t, IsPublic(netip.MustParseAddr("203.0.113.9")))
	assert.False(t, IsPublic(netip.Addr{}))
}
