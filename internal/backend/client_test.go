package backend_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xymaxim/vdl/internal/backend"
	"github.com/xymaxim/vdl/internal/errs"
)

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		cfg  backend.Config
	}{
		{
			name: "missing scheme",
			cfg:  backend.Config{BaseURL: "example.test"},
		},
		{
			name: "unsupported method",
			cfg:  backend.Config{BaseURL: "http://example.test", DownloadMethod: "PUT"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := backend.NewClient(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()
	c, err := backend.NewClient(backend.Config{BaseURL: "http://example.test/app/", DownloadMethod: "post"})
	require.NoError(t, err)

	cfg := c.Config()
	assert.Equal(t, backend.DefaultFormatsPath, cfg.FormatsPath)
	assert.Equal(t, backend.DefaultDownloadPath, cfg.DownloadPath)
	assert.Equal(t, http.MethodPost, cfg.DownloadMethod)
	assert.Equal(t, backend.DefaultTimeout, cfg.Timeout)
}

func TestDownloadLink(t *testing.T) {
	t.Parallel()
	c, err := backend.NewClient(backend.Config{BaseURL: "http://example.test", DownloadPath: "api/download"})
	require.NoError(t, err)
	assert.Equal(
		t,
		"http://example.test/api/download?format_id=137&url=https%3A%2F%2Fvideo.test%2Fwatch%3Fv%3D1",
		c.DownloadLink("https://video.test/watch?v=1", "137"),
	)
}

func TestClient_NoRetriesByDefault(t *testing.T) {
	t.Parallel()
	var requestCount atomic.Int32
	ts := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestCount.Add(1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"ok": false, "error": "backend is busy"}`))
		}),
	)
	defer ts.Close()

	c, err := backend.NewClient(backend.Config{BaseURL: ts.URL})
	require.NoError(t, err)

	_, err = c.FetchFormats(context.Background(), "https://video.test/1")
	require.ErrorIs(t, err, errs.ErrFetch)
	assert.Equal(t, "backend is busy", errs.UserMessage(err))
	assert.Equal(t, int32(1), requestCount.Load())
}

func TestClient_RetriesWhenConfigured(t *testing.T) {
	t.Parallel()
	var requestCount atomic.Int32
	ts := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requestCount.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"ok": true, "formats": [{"format_id": "18", "height": 360}]}`))
		}),
	)
	defer ts.Close()

	c, err := backend.NewClient(backend.Config{BaseURL: ts.URL, RetryMax: 2})
	require.NoError(t, err)

	resp, err := c.FetchFormats(context.Background(), "https://video.test/1")
	require.NoError(t, err)
	assert.Len(t, resp.Formats, 1)
	assert.Equal(t, int32(2), requestCount.Load())
}
