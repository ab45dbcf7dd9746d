package mapbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilefetch/pkg/config"
	errs "tilefetch/pkg/errors"
	"tilefetch/pkg/logger"
	"tilefetch/pkg/retry"
)

const testToken = "pk.test.secret"

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	policy := retry.NewPolicy(config.RetryConfig{
		MaxRetries:    5,
		BackoffFactor: time.Millisecond,
		MaxBackoff:    2 * time.Millisecond,
		StatusCodes:   []int{429, 500, 502, 503, 504},
	})
	httpClient := retry.NewHTTPClient(policy, retry.ClientOptions{
		Timeout: time.Second,
		Logger:  logger.NewNopLogger(),
	})

	opts := OptionsFromConfig(config.DefaultConfig().Mapbox)
	opts.BaseURL = baseURL
	opts.AccessToken = testToken
	return NewClient(opts, httpClient, logger.NewNopLogger())
}

func TestTileURL(t *testing.T) {
	c := NewClient(Options{
		BaseURL:     "https://api.mapbox.com/",
		Style:       "mapbox/satellite-v9",
		Zoom:        18,
		Width:       224,
		Height:      224,
		AccessToken: "pk.abc",
	}, nil, logger.NewNopLogger())

	assert.Equal(t,
		"https://api.mapbox.com/styles/v1/mapbox/satellite-v9/static/-122.25,47.5112,18/224x224?access_token=pk.abc",
		c.TileURL(-122.25, 47.5112))

	c.opts.HighDPI = true
	assert.Contains(t, c.TileURL(0.00001, 1), "/static/0.00001,1,18/224x224@2x?")
}

func TestRedactToken(t *testing.T) {
	assert.Equal(t, "x?access_token=REDACTED", RedactToken("x?access_token=pk.1", "pk.1"))
	assert.Equal(t, "a b", RedactToken("a b", ""))
	assert.Equal(t, "t=REDACTED", RedactToken("t=a%2Fb", "a/b"))
}

func TestFetchTileSuccess(t *testing.T) {
	var gotPath, gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG-bytes"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	body, err := c.FetchTile(context.Background(), -122.3, 47.6)
	require.NoError(t, err)

	assert.Equal(t, []byte("\x89PNG-bytes"), body)
	assert.Equal(t, "/styles/v1/mapbox/satellite-v9/static/-122.3,47.6,18/224x224", gotPath)
	assert.Equal(t, testToken, gotToken)
}

func TestFetchTileNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchTile(context.Background(), 1, 2)
	require.Error(t, err)

	assert.Equal(t, errs.KindHTTPStatus, errs.KindOf(err))
	assert.Equal(t, 404, errs.StatusCode(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchTileRetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("tile"))
	}))
	defer server.Close()

	body, err := newTestClient(t, server.URL).FetchTile(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "tile", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchTileExhaustedRetriesReportLastStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).FetchTile(context.Background(), 1, 2)
	require.Error(t, err)

	assert.Equal(t, 503, errs.StatusCode(err))
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
}

func TestFetchTileTransportErrorHidesToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := server.URL
	server.Close()

	_, err := newTestClient(t, baseURL).FetchTile(context.Background(), 1, 2)
	require.Error(t, err)

	assert.Equal(t, errs.KindTransport, errs.KindOf(err))
	assert.NotContains(t, err.Error(), testToken)
	assert.Contains(t, err.Error(), "REDACTED")
}

func TestFetchTileCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tile"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, server.URL).FetchTile(ctx, 1, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
