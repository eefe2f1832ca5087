package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"github.com/xymaxim/vdl/internal/errs"
	"github.com/xymaxim/vdl/internal/pathutil"
)

// FallbackFilename is used when the backend suggests no usable file name.
const FallbackFilename = "download"

// DownloadRequest selects one format of a source video.
type DownloadRequest struct {
	URL               string `json:"url"`
	FormatID          string `json:"format_id"`
	VerificationToken string `json:"verification_token,omitempty"`
}

// ResultKind tells how a ready download is delivered.
type ResultKind int

const (
	// ResultLink means the file is retrievable from Location.
	ResultLink ResultKind = iota
	// ResultFile means the file bytes are in Body.
	ResultFile
)

// DownloadResult is a ready download. For ResultFile the caller must close
// the result.
type DownloadResult struct {
	Kind          ResultKind
	Location      string
	Filename      string
	ContentType   string
	ContentLength int64
	Body          io.ReadCloser
}

// Close releases the response body, if any.
func (r *DownloadResult) Close() error {
	if r == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

type pointerBody struct {
	OK          *bool  `json:"ok"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url"`
	FileURL     string `json:"file_url"`
	Filename    string `json:"filename"`
	errorBody
}

func (p pointerBody) location() string {
	switch {
	case p.DownloadURL != "":
		return p.DownloadURL
	case p.FileURL != "":
		return p.FileURL
	default:
		return p.URL
	}
}

// DownloadLink returns a link to the download endpoint for one format, usable
// with GET backends. The verification token is never put into links.
func (c *Client) DownloadLink(sourceURL, formatID string) string {
	u := *c.downloadURL
	q := u.Query()
	q.Set("url", sourceURL)
	q.Set("format_id", formatID)
	u.RawQuery = q.Encode()
	return u.String()
}

// Download asks the backend to prepare the selected format. Failures are
// returned as *errs.BackendError of kind errs.ErrDownload, or of kind
// errs.ErrVerificationRequired when the backend reports gated content.
// The request is never retried: it may carry a single-use token.
func (c *Client) Download(ctx context.Context, dr DownloadRequest) (*DownloadResult, error) {
	req, err := c.newDownloadRequest(withoutRetries(withoutRedirects(ctx)), dr)
	if err != nil {
		return nil, err
	}

	slog.Debug(
		"requesting download",
		"endpoint", c.downloadURL.String(),
		"method", req.Method,
		"format", dr.FormatID,
		"verified", dr.VerificationToken != "",
	)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &errs.BackendError{Kind: errs.ErrDownload, Err: err}
	}

	return c.handleDownloadResponse(resp)
}

func (c *Client) newDownloadRequest(ctx context.Context, dr DownloadRequest) (*http.Request, error) {
	if c.config.DownloadMethod == http.MethodPost {
		payload, err := json.Marshal(dr)
		if err != nil {
			return nil, fmt.Errorf("encoding download request: %w", err)
		}
		return c.newRequest(ctx, http.MethodPost, c.downloadURL, payload)
	}

	u := *c.downloadURL
	q := u.Query()
	q.Set("url", dr.URL)
	q.Set("format_id", dr.FormatID)
	if dr.VerificationToken != "" {
		q.Set("verification_token", dr.VerificationToken)
	}
	u.RawQuery = q.Encode()
	return c.newRequest(ctx, http.MethodGet, &u, nil)
}

func (c *Client) handleDownloadResponse(resp *http.Response) (*DownloadResult, error) {
	switch {
	case resp.StatusCode >= 300 && resp.StatusCode <= 399:
		defer resp.Body.Close()
		loc, err := resp.Location()
		if err != nil {
			return nil, &errs.BackendError{
				Kind:       errs.ErrDownload,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("reading redirect location: %w", err),
			}
		}
		return &DownloadResult{
			Kind:     ResultLink,
			Location: loc.String(),
			Filename: filenameFromURL(loc),
		}, nil

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		defer resp.Body.Close()
		body, _ := readBody(resp, maxErrorBodySize)
		msg, restricted := parseErrorBody(resp, body)
		kind := errs.ErrDownload
		if restricted {
			kind = errs.ErrVerificationRequired
		}
		slog.Debug("download request failed", "status", resp.StatusCode, "message", msg)
		return nil, &errs.BackendError{Kind: kind, StatusCode: resp.StatusCode, Message: msg}

	case isJSON(resp):
		defer resp.Body.Close()
		return c.handlePointer(resp)

	default:
		return fileResult(resp), nil
	}
}

func (c *Client) handlePointer(resp *http.Response) (*DownloadResult, error) {
	body, err := readBody(resp, maxJSONBodySize)
	if err != nil {
		return nil, &errs.BackendError{Kind: errs.ErrDownload, StatusCode: resp.StatusCode, Err: err}
	}

	var p pointerBody
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &errs.BackendError{
			Kind:       errs.ErrDownload,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decoding download response: %w", err),
		}
	}

	msg := p.message()
	if p.restricted() {
		return nil, &errs.BackendError{
			Kind:       errs.ErrVerificationRequired,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}
	if (p.OK != nil && !*p.OK) || p.location() == "" {
		kind := errs.ErrDownload
		if looksRestricted(msg) {
			kind = errs.ErrVerificationRequired
		}
		return nil, &errs.BackendError{Kind: kind, StatusCode: resp.StatusCode, Message: msg}
	}

	loc, err := resolve(c.downloadURL, p.location())
	if err != nil {
		return nil, &errs.BackendError{
			Kind:       errs.ErrDownload,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("parsing file location: %w", err),
		}
	}

	filename := filenameFromURL(loc)
	if p.Filename != "" {
		filename = pathutil.SafeFilename(p.Filename, FallbackFilename)
	}

	return &DownloadResult{
		Kind:     ResultLink,
		Location: loc.String(),
		Filename: filename,
	}, nil
}

// Open retrieves a file the backend made available at location.
func (c *Client) Open(ctx context.Context, location string) (*DownloadResult, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parsing file location: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &errs.BackendError{Kind: errs.ErrDownload, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := readBody(resp, maxErrorBodySize)
		msg, _ := parseErrorBody(resp, body)
		return nil, &errs.BackendError{Kind: errs.ErrDownload, StatusCode: resp.StatusCode, Message: msg}
	}

	result := fileResult(resp)
	if result.Filename == FallbackFilename {
		result.Filename = filenameFromURL(u)
	}
	return result, nil
}

func fileResult(resp *http.Response) *DownloadResult {
	filename := pathutil.SafeFilename(
		dispositionFilename(resp.Header.Get("Content-Disposition")),
		FallbackFilename,
	)
	return &DownloadResult{
		Kind:          ResultFile,
		Filename:      filename,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}
}

func filenameFromURL(u *url.URL) string {
	return pathutil.SafeFilename(path.Base(u.Path), FallbackFilename)
}
