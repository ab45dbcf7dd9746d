package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tilefetch/pkg/config"
	"tilefetch/pkg/logger"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Mapbox.BaseURL = serverURL
	cfg.Mapbox.AccessToken = "pk.secret.token"
	cfg.Input.RowsPath = writeFile(t, filepath.Join(dir, "rows.csv"),
		"id,lat,long\n100,40.1,-74.1\n101,40.2,-74.2\n102,40.3,-74.3\n")
	cfg.Input.TargetsPath = writeFile(t, filepath.Join(dir, "targets.csv"),
		"id\n0\n1\n2\n7\n")
	cfg.Output.Directory = filepath.Join(dir, "images")
	cfg.Output.FailuresFile = filepath.Join(dir, "failed.csv")
	cfg.Download.SleepTime = time.Millisecond
	cfg.Download.ErrorCooldown = time.Millisecond
	cfg.Download.Timeout = time.Second
	cfg.Retry.BackoffFactor = time.Millisecond
	cfg.Retry.MaxBackoff = 2 * time.Millisecond
	return cfg
}

func tileServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if strings.Contains(r.URL.Path, "-74.2,40.2") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png:" + r.URL.Path))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewRequiresToken(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Mapbox.AccessToken = ""

	_, err := New(context.Background(), cfg, WithLogger(logger.NewNopLogger()))
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestNewFailsOnMissingInputs(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Input.RowsPath = filepath.Join(t.TempDir(), "missing.xlsx")

	_, err := New(context.Background(), cfg, WithLogger(logger.NewNopLogger()))
	assert.ErrorContains(t, err, "failed to load rows")

	cfg = testConfig(t, "http://127.0.0.1:1")
	writeFile(t, cfg.Input.TargetsPath, "id\n1\nabc\n")
	_, err = New(context.Background(), cfg, WithLogger(logger.NewNopLogger()))
	assert.ErrorContains(t, err, "failed to load targets")
}

func TestRunEndToEnd(t *testing.T) {
	var calls int32
	server := tileServer(t, &calls)
	cfg := testConfig(t, server.URL)
	tl := logger.NewTestLogger()

	f, err := New(context.Background(), cfg, WithLogger(tl))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []int{0, 1, 2, 7}, f.Targets())

	summary, err := f.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Saved)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, []int{1, 7}, summary.FailedIDs)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	data, err := os.ReadFile(filepath.Join(cfg.Output.Directory, "0.png"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "-74.1,40.1,18/224x224")
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "2.png"))
	assert.NoFileExists(t, filepath.Join(cfg.Output.Directory, "1.png"))

	failed, err := os.ReadFile(cfg.Output.FailuresFile)
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n7\n", string(failed))

	assert.NotContains(t, tl.String(), "pk.secret.token")
}

func TestRunResumesWithoutRefetching(t *testing.T) {
	var calls int32
	server := tileServer(t, &calls)
	cfg := testConfig(t, server.URL)

	first, err := New(context.Background(), cfg, WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)
	_, err = first.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, first.Close())

	before := atomic.LoadInt32(&calls)

	second, err := New(context.Background(), cfg, WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)
	defer second.Close()
	summary, err := second.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Saved)
	// only the 404 id goes back to the network
	assert.Equal(t, before+1, atomic.LoadInt32(&calls))
}

func TestRunToBucket(t *testing.T) {
	var calls int32
	server := tileServer(t, &calls)
	cfg := testConfig(t, server.URL)
	cfg.Output.BucketURL = "mem://"
	cfg.Output.Prefix = "run1"
	cfg.Output.FailuresFile = ""

	f, err := New(context.Background(), cfg, WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)
	defer f.Close()

	summary, err := f.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Saved)
	assert.NoDirExists(t, cfg.Output.Directory)
}
