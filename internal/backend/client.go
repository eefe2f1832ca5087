package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultFormatsPath  = "/api/formats"
	DefaultDownloadPath = "/download"
	DefaultTimeout      = 2 * time.Minute
	DefaultUserAgent    = "vdl"
)

// Config describes how to reach the backend.
type Config struct {
	BaseURL        string
	FormatsPath    string
	DownloadPath   string
	DownloadMethod string
	// Timeout bounds the wait for response headers and, for the formats
	// lookup, the whole exchange. File bodies may stream for longer.
	Timeout time.Duration
	// RetryMax bounds transport-level retries. Zero disables them, which
	// leaves every retry to the user.
	RetryMax  int
	UserAgent string
}

// Client talks to the formats and download endpoints of the backend.
type Client struct {
	config      Config
	formatsURL  *url.URL
	downloadURL *url.URL
	HTTPClient  *http.Client
}

// NewClient validates cfg and creates a client with a retryable transport.
func NewClient(cfg Config) (*Client, error) {
	if cfg.FormatsPath == "" {
		cfg.FormatsPath = DefaultFormatsPath
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = DefaultDownloadPath
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.DownloadMethod))
	switch method {
	case "":
		method = http.MethodGet
	case http.MethodGet, http.MethodPost:
	default:
		return nil, fmt.Errorf("unsupported download method: %q", cfg.DownloadMethod)
	}
	cfg.DownloadMethod = method

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing backend URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend URL must be http(s): %q", cfg.BaseURL)
	}

	formatsURL, err := resolve(base, cfg.FormatsPath)
	if err != nil {
		return nil, fmt.Errorf("resolving formats endpoint: %w", err)
	}
	downloadURL, err := resolve(base, cfg.DownloadPath)
	if err != nil {
		return nil, fmt.Errorf("resolving download endpoint: %w", err)
	}

	return &Client{
		config:      cfg,
		formatsURL:  formatsURL,
		downloadURL: downloadURL,
		HTTPClient:  NewHTTPClient(cfg),
	}, nil
}

func resolve(base *url.URL, endpoint string) (*url.URL, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(ref), nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

type stopRedirectsKey struct{}

// withoutRedirects marks ctx so that redirect responses are returned to the
// caller instead of being followed.
func withoutRedirects(ctx context.Context) context.Context {
	return context.WithValue(ctx, stopRedirectsKey{}, true)
}

type noRetryKey struct{}

// withoutRetries marks ctx so that the request is sent at most once.
func withoutRetries(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

// NewHTTPClient builds the standard client used for backend requests.
func NewHTTPClient(cfg Config) *http.Client {
	client := retryablehttp.NewClient()
	if transport, ok := client.HTTPClient.Transport.(*http.Transport); ok {
		transport.ResponseHeaderTimeout = cfg.Timeout
	}
	client.HTTPClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.CheckRetry = makeRetryPolicy()
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = slog.Default()

	std := client.StandardClient()
	std.CheckRedirect = checkRedirect
	return std
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if stop, _ := req.Context().Value(stopRedirectsKey{}).(bool); stop {
		return http.ErrUseLastResponse
	}
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	return nil
}

func makeRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if noRetry, _ := ctx.Value(noRetryKey{}).(bool); noRetry {
			return false, nil
		}
		if resp == nil {
			slog.Warn("got transport error", "err", err)
			return true, nil
		}

		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			slog.Warn("got recoverable HTTP error", "code", resp.StatusCode)
			return true, nil
		default:
			return false, nil
		}
	}
}

func (c *Client) newRequest(
	ctx context.Context,
	method string,
	u *url.URL,
	body []byte,
) (*http.Request, error) {
	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	return req, nil
}
