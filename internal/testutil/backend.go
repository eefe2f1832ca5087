package testutil

import (
	"context"
	"sync"

	"github.com/xymaxim/vdl/internal/backend"
	"github.com/xymaxim/vdl/internal/formats"
	"github.com/xymaxim/vdl/internal/info"
)

const TestVideoURL = "https://video.test/watch?v=abcdefgh123"

// ClipResponse returns a formats response with one video-only and one
// audio-only format.
func ClipResponse() *info.FormatsResponse {
	ok := true
	return &info.FormatsResponse{
		OK:    &ok,
		Title: "Clip",
		Formats: []formats.Format{
			{
				FormatID:     "140",
				Ext:          "m4a",
				VideoCodec:   "none",
				AudioCodec:   "mp4a",
				AudioBitrate: 128,
			},
			{
				FormatID:     "137",
				Ext:          "mp4",
				VideoCodec:   "avc1",
				AudioCodec:   "none",
				Height:       1080,
				TotalBitrate: 4000,
			},
		},
	}
}

// FakeBackend records calls and replies with canned results.
type FakeBackend struct {
	FormatsResponse *info.FormatsResponse
	FormatsErr      error
	DownloadResult  *backend.DownloadResult
	DownloadErr     error

	// Gate, if set, blocks every call until it yields or is closed.
	Gate chan struct{}
	// Started, if set, receives a value when a call begins.
	Started chan struct{}

	mu            sync.Mutex
	formatsCalls  []string
	downloadCalls []backend.DownloadRequest
}

func (b *FakeBackend) FetchFormats(ctx context.Context, sourceURL string) (*info.FormatsResponse, error) {
	b.mu.Lock()
	b.formatsCalls = append(b.formatsCalls, sourceURL)
	b.mu.Unlock()

	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	return b.FormatsResponse, b.FormatsErr
}

func (b *FakeBackend) Download(
	ctx context.Context,
	req backend.DownloadRequest,
) (*backend.DownloadResult, error) {
	b.mu.Lock()
	b.downloadCalls = append(b.downloadCalls, req)
	b.mu.Unlock()

	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	if b.DownloadErr != nil {
		return nil, b.DownloadErr
	}
	if b.DownloadResult == nil {
		return &backend.DownloadResult{
			Kind:     backend.ResultLink,
			Location: "https://files.test/clip.mp4",
			Filename: "clip.mp4",
		}, nil
	}
	return b.DownloadResult, nil
}

func (b *FakeBackend) wait(ctx context.Context) error {
	if b.Started != nil {
		b.Started <- struct{}{}
	}
	if b.Gate == nil {
		return nil
	}
	select {
	case <-b.Gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FormatsCalls returns the source URLs passed to FetchFormats.
func (b *FakeBackend) FormatsCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.formatsCalls...)
}

// DownloadCalls returns the requests passed to Download.
func (b *FakeBackend) DownloadCalls() []backend.DownloadRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backend.DownloadRequest(nil), b.downloadCalls...)
}
