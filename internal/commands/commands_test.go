package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xymaxim/vdl/internal/backend"
	"github.com/xymaxim/vdl/internal/errs"
	"github.com/xymaxim/vdl/internal/formats"
	"github.com/xymaxim/vdl/internal/info"
	"github.com/xymaxim/vdl/internal/session"
	"github.com/xymaxim/vdl/internal/testutil"
	"github.com/xymaxim/vdl/internal/verify"
)

func TestFormatDuration(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		d        time.Duration
		expected string
	}{
		{"seconds only", 42 * time.Second, "42s"},
		{"whole minutes", 3 * time.Minute, "3m"},
		{"whole hours", 2 * time.Hour, "2h"},
		{"mixed", time.Hour + 2*time.Minute + 3*time.Second + 400*time.Millisecond, "1h2m3s"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, formatDuration(tc.d))
		})
	}
}

func TestFormatVideoLine(t *testing.T) {
	t.Parallel()
	assert.Empty(t, formatVideoLine(nil))
	assert.Equal(t,
		"'Clip', by Someone, 1m30s, from Youtube",
		formatVideoLine(&info.VideoInformation{
			Title:        "Clip",
			Uploader:     "Someone",
			Duration:     formats.Number(90),
			ExtractorKey: "Youtube",
		}),
	)
}

func TestOutputName(t *testing.T) {
	t.Parallel()
	video := &info.VideoInformation{Title: "My Clip!"}

	assert.Equal(t, "clip.mp4",
		outputName(&backend.DownloadResult{Filename: "clip.mp4"}, video, "137"))
	assert.Equal(t, "My-Clip_137",
		outputName(&backend.DownloadResult{Filename: backend.FallbackFilename}, video, "137"))
	assert.Equal(t, backend.FallbackFilename,
		outputName(&backend.DownloadResult{Filename: backend.FallbackFilename}, nil, "137"))
}

func newBackendServer(t *testing.T, download http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/formats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(testutil.ClipResponse())
	})
	if download != nil {
		mux.HandleFunc("/download", download)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func commonFlags(baseURL string) CommonFlags {
	return CommonFlags{
		Backend:        baseURL,
		FormatsPath:    "/api/formats",
		DownloadPath:   "/download",
		DownloadMethod: "GET",
		SizeUnit:       "bytes",
		Timeout:        10 * time.Second,
		LogLevel:       "error",
	}
}

func TestFormats_Run(t *testing.T) {
	t.Parallel()
	server := newBackendServer(t, nil)

	var out bytes.Buffer
	cmd := &Formats{
		CommonFlags: commonFlags(server.URL),
		URL:         testutil.TestVideoURL,
		Filter:      "audio-only",
		Links:       true,
		out:         &out,
	}
	require.NoError(t, cmd.Run(context.Background()))

	assert.Contains(t, out.String(), "ID")
	assert.Contains(t, out.String(), "140")
	assert.NotContains(t, out.String(), "137")
	assert.Contains(t, out.String(), server.URL+"/download?format_id=140&url=")
}

func TestFormats_BadFilter(t *testing.T) {
	t.Parallel()
	cmd := &Formats{
		CommonFlags: commonFlags("http://backend.test"),
		URL:         testutil.TestVideoURL,
		Filter:      "pictures",
	}
	assert.Error(t, cmd.Run(context.Background()))
}

func TestDownload_Run(t *testing.T) {
	t.Parallel()
	server := newBackendServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testutil.TestVideoURL, r.URL.Query().Get("url"))
		assert.Equal(t, "137", r.URL.Query().Get("format_id"))
		w.Header().Set("Content-Disposition", `attachment; filename="clip.mp4"`)
		w.Write([]byte("video bytes"))
	})
	dir := t.TempDir()

	cmd := &Download{
		CommonFlags: commonFlags(server.URL),
		URL:         testutil.TestVideoURL,
		FormatID:    "137",
		Output:      dir,
		Quiet:       true,
	}
	require.NoError(t, cmd.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))

	leftovers, err := filepath.Glob(filepath.Join(dir, ".vdl-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDownload_WithToken(t *testing.T) {
	t.Parallel()
	server := newBackendServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-1", r.URL.Query().Get("verification_token"))
		w.Header().Set("Content-Disposition", `attachment; filename="clip.mp4"`)
		w.Write([]byte("verified bytes"))
	})
	dir := t.TempDir()

	cmd := &Download{
		CommonFlags: commonFlags(server.URL),
		URL:         testutil.TestVideoURL,
		FormatID:    "137",
		Token:       " token-1 ",
		Output:      dir,
		Quiet:       true,
	}
	require.NoError(t, cmd.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "verified bytes", string(data))
}

func TestDownload_BestOfCategory(t *testing.T) {
	t.Parallel()
	server := newBackendServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "140", r.URL.Query().Get("format_id"))
		w.Header().Set("Content-Type", "application/x-vdl-test")
		w.Write([]byte("audio bytes"))
	})
	dir := t.TempDir()

	cmd := &Download{
		CommonFlags: commonFlags(server.URL),
		URL:         testutil.TestVideoURL,
		FormatID:    "best:audio-only",
		Output:      dir,
		Quiet:       true,
	}
	require.NoError(t, cmd.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "Clip_140"))
	require.NoError(t, err)
	assert.Equal(t, "audio bytes", string(data))
}

func TestDownload_FollowsLink(t *testing.T) {
	t.Parallel()
	server := newBackendServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("file") != "" {
			w.Write([]byte("linked bytes"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true, "download_url": "/download?file=1", "filename": "linked.webm"}`))
	})
	dir := t.TempDir()

	cmd := &Download{
		CommonFlags: commonFlags(server.URL),
		URL:         testutil.TestVideoURL,
		FormatID:    "140",
		Output:      dir,
		Filename:    "audio.m4a",
		Quiet:       true,
	}
	require.NoError(t, cmd.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(dir, "audio.m4a"))
	require.NoError(t, err)
	assert.Equal(t, "linked bytes", string(data))
}

func TestDownload_UnknownFormat(t *testing.T) {
	t.Parallel()
	server := newBackendServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("download endpoint must not be called")
	})

	cmd := &Download{
		CommonFlags: commonFlags(server.URL),
		URL:         testutil.TestVideoURL,
		FormatID:    "999",
		Output:      t.TempDir(),
		Quiet:       true,
	}
	err := cmd.Run(context.Background())
	require.ErrorIs(t, err, errs.ErrUnknownFormat)
	assert.Equal(t, errs.MessageUnknownFormat, err.Error())
}

type tokenFunc func() (string, error)

func (f tokenFunc) Token(context.Context, verify.Attempt) (string, error) { return f() }

func TestSelectWithVerification(t *testing.T) {
	t.Parallel()
	restricted := &errs.BackendError{
		Kind:    errs.ErrVerificationRequired,
		Message: "Sign in to confirm you're not a bot",
	}

	newSession := func(t *testing.T, b *testutil.FakeBackend) *session.Session {
		t.Helper()
		s := session.New(b, session.Options{})
		require.NoError(t, s.Submit(context.Background(), testutil.TestVideoURL))
		return s
	}

	t.Run("no helper", func(t *testing.T) {
		t.Parallel()
		b := &testutil.FakeBackend{FormatsResponse: testutil.ClipResponse(), DownloadErr: restricted}
		_, err := selectWithVerification(context.Background(), newSession(t, b), "137", nil, nil)
		assert.ErrorIs(t, err, errs.ErrVerificationRequired)
		assert.Len(t, b.DownloadCalls(), 1)
	})

	t.Run("helper token is sent once", func(t *testing.T) {
		t.Parallel()
		b := &testutil.FakeBackend{FormatsResponse: testutil.ClipResponse(), DownloadErr: restricted}
		calls := 0
		helper := tokenFunc(func() (string, error) {
			calls++
			return "token-1", nil
		})

		_, err := selectWithVerification(context.Background(), newSession(t, b), "137", nil, helper)
		assert.ErrorIs(t, err, errs.ErrVerificationRequired)
		assert.Equal(t, 1, calls)

		downloads := b.DownloadCalls()
		require.Len(t, downloads, 2)
		assert.Empty(t, downloads[0].VerificationToken)
		assert.Equal(t, "token-1", downloads[1].VerificationToken)
	})

	t.Run("helper failure", func(t *testing.T) {
		t.Parallel()
		b := &testutil.FakeBackend{FormatsResponse: testutil.ClipResponse(), DownloadErr: restricted}
		helper := tokenFunc(func() (string, error) { return "", verify.ErrNoToken })

		_, err := selectWithVerification(context.Background(), newSession(t, b), "137", nil, helper)
		assert.ErrorIs(t, err, verify.ErrNoToken)
		assert.ErrorIs(t, err, errs.ErrVerificationRequired)
		assert.Len(t, b.DownloadCalls(), 1)
	})

	t.Run("static token is used for the first attempt only", func(t *testing.T) {
		t.Parallel()
		b := &testutil.FakeBackend{FormatsResponse: testutil.ClipResponse(), DownloadErr: restricted}
		helper := tokenFunc(func() (string, error) { return "token-2", nil })

		_, err := selectWithVerification(
			context.Background(),
			newSession(t, b),
			"137",
			verify.NewStaticToken("token-1"),
			helper,
		)
		assert.ErrorIs(t, err, errs.ErrVerificationRequired)

		downloads := b.DownloadCalls()
		require.Len(t, downloads, 2)
		assert.Equal(t, "token-1", downloads[0].VerificationToken)
		assert.Equal(t, "token-2", downloads[1].VerificationToken)
	})

	t.Run("failing initial source", func(t *testing.T) {
		t.Parallel()
		b := &testutil.FakeBackend{FormatsResponse: testutil.ClipResponse()}
		initial := tokenFunc(func() (string, error) { return "", errors.New("helper crashed") })

		_, err := selectWithVerification(context.Background(), newSession(t, b), "137", initial, nil)
		assert.ErrorContains(t, err, "helper crashed")
		assert.Empty(t, b.DownloadCalls())
	})
}

func TestServe_Config(t *testing.T) {
	t.Parallel()
	cmd := &Serve{
		CommonFlags:       commonFlags("http://backend.test"),
		Port:              9000,
		RateLimit:         3,
		RateWindow:        time.Minute,
		MaxTabs:           50,
		Verification:      true,
		SiteKey:           "site-key",
		VerificationField: "captcha",
	}
	cmd.SizeUnit = "mb"

	cfg := cmd.config()
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, formats.SizeMegabytes, cfg.SizeUnit)
	assert.Equal(t, 3, cfg.RateLimit)
	assert.Equal(t, 50, cfg.MaxTabs)
	assert.True(t, cfg.Verification.Enabled)
	assert.Equal(t, "captcha", cfg.Verification.FieldName)
}
