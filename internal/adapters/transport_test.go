package adapters

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/stretchr/testify/require"

	"buildforge/internal/types"
	"buildforge/tests/testutil"
)

func fastTransport() *TransportAdapter {
	transport := NewTransportAdapter()
	transport.InitialInterval = time.Millisecond
	return transport
}

func TestFetchHTTPReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pool/hello-1.0.tar.gz", r.URL.Path)
		_, _ = w.Write([]byte("payload"))
	}))
	defer server.Close()

	data, err := fastTransport().Fetch(t.Context(),
		types.ServerConfig{Name: "upstream", URL: server.URL}, "pool/hello-1.0.tar.gz")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
}

func TestFetchHTTPNotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := fastTransport().Fetch(t.Context(),
		types.ServerConfig{Name: "upstream", URL: server.URL}, "missing.tar.gz")
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
	require.Equal(t, int32(1), hits.Load())
}

func TestFetchHTTPRetriesServerErrorsUntilExhausted(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	transport := fastTransport()
	transport.MaxRetries = 2
	_, err := transport.Fetch(t.Context(),
		types.ServerConfig{Name: "upstream", URL: server.URL}, "flaky.tar.gz")
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInternal, errbuilder.CodeOf(err))
	require.Equal(t, int32(3), hits.Load())
}

func TestFetchHTTPRecoversAfterTransientError(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("eventually"))
	}))
	defer server.Close()

	data, err := fastTransport().Fetch(t.Context(),
		types.ServerConfig{Name: "upstream", URL: server.URL}, "flaky.tar.gz")
	require.NoError(t, err)
	require.Equal(t, []byte("eventually"), data)
}

func TestFetchFileServesLocalContent(t *testing.T) {
	base := t.TempDir()
	testutil.WriteFile(t, filepath.Join(base, "pool", "file.txt"), []byte("local"))

	data, err := fastTransport().Fetch(t.Context(),
		types.ServerConfig{Name: "local", URL: "file://" + base}, "pool/file.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("local"), data)
}

func TestFetchFileRejectsEscapingLocation(t *testing.T) {
	_, err := fastTransport().Fetch(t.Context(),
		types.ServerConfig{Name: "local", URL: t.TempDir()}, "../outside")
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
}

func TestFetchFileMissingIsNotFound(t *testing.T) {
	_, err := fastTransport().Fetch(t.Context(),
		types.ServerConfig{Name: "local", URL: t.TempDir()}, "absent.txt")
	require.Error(t, err)
	require.Equal(t, errbuilder.CodeNotFound, errbuilder.CodeOf(err))
}
