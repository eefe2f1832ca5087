package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xymaxim/vdl/internal/errs"
	"github.com/xymaxim/vdl/internal/info"
)

type formatsRequest struct {
	URL string `json:"url"`
}

// FetchFormats asks the backend for the formats of sourceURL. Failures are
// returned as *errs.BackendError of kind errs.ErrFetch.
func (c *Client) FetchFormats(ctx context.Context, sourceURL string) (*info.FormatsResponse, error) {
	payload, err := json.Marshal(formatsRequest{URL: sourceURL})
	if err != nil {
		return nil, fmt.Errorf("encoding formats request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, c.formatsURL, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, br")

	slog.Debug("requesting formats", "endpoint", c.formatsURL.String(), "url", sourceURL)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &errs.BackendError{Kind: errs.ErrFetch, Err: err}
	}
	defer resp.Body.Close()

	body, err := readBody(resp, maxJSONBodySize)
	if err != nil {
		return nil, &errs.BackendError{Kind: errs.ErrFetch, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := parseErrorBody(resp, body)
		slog.Debug("formats request failed", "status", resp.StatusCode, "message", msg)
		return nil, &errs.BackendError{
			Kind:       errs.ErrFetch,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	var out info.FormatsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &errs.BackendError{
			Kind:       errs.ErrFetch,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decoding formats response: %w", err),
		}
	}
	if out.Failed() {
		return nil, &errs.BackendError{
			Kind:       errs.ErrFetch,
			StatusCode: resp.StatusCode,
			Message:    out.Error,
		}
	}

	return &out, nil
}
