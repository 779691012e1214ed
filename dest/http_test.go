// FILE: dest/http_test.go
package dest

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaylog/relay"
)

func httpTestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newTestHTTPFacade(t *testing.T, url string) *httpFacade {
	t.Helper()
	f, err := newHTTPFacade(destConfig(relay.DestinationConfig{
		Kind: "http",
		Name: "events",
		URL:  url,
	}))
	require.NoError(t, err)
	return f.(*httpFacade)
}

func TestHTTPFacadeRequiresURLAndName(t *testing.T) {
	_, err := newHTTPFacade(destConfig(relay.DestinationConfig{Kind: "http", Name: "events"}))
	require.Error(t, err)
	assert.Equal(t, relay.ReasonInvalidConfiguration, relay.AsFacadeError(err).Reason)

	_, err = newHTTPFacade(destConfig(relay.DestinationConfig{Kind: "http", URL: "http://collector:3100"}))
	require.Error(t, err)
	assert.Equal(t, relay.ReasonInvalidConfiguration, relay.AsFacadeError(err).Reason)
}

func TestHTTPEnsureExistingStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/streams/events", r.URL.Path)
		w.Header().Set(sequenceHeader, "41")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newTestHTTPFacade(t, srv.URL)
	require.NoError(t, f.EnsureDestination(httpTestContext(t)))
	assert.Equal(t, "41", f.loadSequence())
}

func TestHTTPEnsureCreatesMissingStream(t *testing.T) {
	var creates int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPost:
			creates++
			w.Header().Set(sequenceHeader, "0")
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer srv.Close()

	f := newTestHTTPFacade(t, srv.URL)
	require.NoError(t, f.EnsureDestination(httpTestContext(t)))
	assert.Equal(t, 1, creates)
}

func TestHTTPEnsureCreateRaceReportsAlreadyExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPost:
			w.WriteHeader(http.StatusConflict)
		}
	}))
	defer srv.Close()

	f := newTestHTTPFacade(t, srv.URL)
	err := f.EnsureDestination(httpTestContext(t))
	require.Error(t, err)
	assert.Equal(t, relay.ReasonAlreadyExists, relay.AsFacadeError(err).Reason)
}

func TestHTTPSendBatch(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
		seq   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set(sequenceHeader, "5")
			w.WriteHeader(http.StatusOK)
			return
		}

		assert.Equal(t, "application/x-ndjson", r.Header.Get("Content-Type"))
		mu.Lock()
		seq = r.Header.Get(sequenceHeader)
		scanner := bufio.NewScanner(r.Body)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		mu.Unlock()

		w.Header().Set(sequenceHeader, "7")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newTestHTTPFacade(t, srv.URL)
	ctx := httpTestContext(t)
	require.NoError(t, f.EnsureDestination(ctx))

	batch := []relay.Record{
		relay.NewRecord("first line", 0),
		relay.NewRecord("second line", 0),
	}
	require.NoError(t, f.SendBatch(ctx, batch))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "5", seq, "append carries the cursor from the probe")
	assert.Equal(t, "7", f.loadSequence(), "success advances the cursor from the response")

	require.Len(t, lines, 2)
	var decoded ndjsonLine
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "first line", decoded.Line)
	assert.False(t, decoded.Timestamp.IsZero())
}

func TestHTTPSendConflictIsConcurrentWriter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	f := newTestHTTPFacade(t, srv.URL)
	err := f.SendBatch(httpTestContext(t), []relay.Record{relay.NewRecord("x", 0)})
	require.Error(t, err)
	assert.Equal(t, relay.ReasonConcurrentWriter, relay.AsFacadeError(err).Reason)
}

func TestHTTPRefreshSequence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(sequenceHeader, "12")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newTestHTTPFacade(t, srv.URL)
	require.NoError(t, f.RefreshSequence(httpTestContext(t)))
	assert.Equal(t, "12", f.loadSequence())
}

func TestHTTPTransportFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	f := newTestHTTPFacade(t, srv.URL)
	err := f.EnsureDestination(httpTestContext(t))
	require.Error(t, err)

	fe := relay.AsFacadeError(err)
	assert.Equal(t, relay.ReasonUnexpected, fe.Reason)
	assert.True(t, fe.Retryable)
}

func TestClassifyHTTPStatus(t *testing.T) {
	cases := []struct {
		status    int
		reason    relay.Reason
		retryable bool
	}{
		{http.StatusTooManyRequests, relay.ReasonThrottling, true},
		{http.StatusRequestTimeout, relay.ReasonThrottling, true},
		{http.StatusServiceUnavailable, relay.ReasonThrottling, true},
		{http.StatusBadGateway, relay.ReasonThrottling, true},
		{http.StatusGatewayTimeout, relay.ReasonThrottling, true},
		{http.StatusNotFound, relay.ReasonMissingDestination, false},
		{http.StatusGone, relay.ReasonMissingDestination, false},
		{http.StatusUnauthorized, relay.ReasonInvalidConfiguration, false},
		{http.StatusForbidden, relay.ReasonInvalidConfiguration, false},
		{http.StatusNotImplemented, relay.ReasonUnexpected, false},
		{http.StatusInternalServerError, relay.ReasonUnexpected, true},
		{http.StatusBadRequest, relay.ReasonUnexpected, false},
	}

	for _, tc := range cases {
		fe := relay.AsFacadeError(classifyHTTPStatus("http.send", tc.status))
		assert.Equalf(t, tc.reason, fe.Reason, "status %d", tc.status)
		assert.Equalf(t, tc.retryable, fe.Retryable, "status %d", tc.status)
	}
}

func TestHTTPNameSubstitutionResolvedOnce(t *testing.T) {
	var mu sync.Mutex
	paths := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.URL.Path]++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f, err := newHTTPFacade(destConfig(relay.DestinationConfig{
		Kind: "http",
		Name: "app-{pid}",
		URL:  srv.URL,
	}))
	require.NoError(t, err)

	ctx := httpTestContext(t)
	require.NoError(t, f.EnsureDestination(ctx))
	require.NoError(t, f.SendBatch(ctx, []relay.Record{relay.NewRecord("x", 0)}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1, "all calls target the one resolved stream")
	for path := range paths {
		assert.True(t, strings.HasPrefix(path, "/streams/app-"))
		assert.NotContains(t, path, "{")
	}
}

// TestHTTPShipperEndToEnd runs the whole pipeline against a live endpoint:
// config-driven construction, background delivery, shutdown flush.
func TestHTTPShipperEndToEnd(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mu.Lock()
			scanner := bufio.NewScanner(r.Body)
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := relay.DefaultConfig()
	cfg.BatchDelayMs = 20
	cfg.ShutdownTimeoutMs = 2000
	cfg.Destination = relay.DestinationConfig{
		Kind:      "http",
		Name:      "events",
		URL:       srv.URL,
		TimeoutMs: 2000,
	}

	s, err := NewShipper(cfg)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.True(t, s.Enqueue("event", 0))
	}
	require.NoError(t, s.Shutdown())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, lines, 10)
	assert.Equal(t, uint64(10), s.Stats().Delivered)
}
