// Package app is the web front end: it keeps one session per browser tab
// and renders the fetch-then-download flow server side.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xymaxim/vdl/internal/formats"
	"github.com/xymaxim/vdl/internal/render"
	"github.com/xymaxim/vdl/internal/session"
)

const (
	DefaultRateLimit  = 12
	DefaultRateWindow = 5 * time.Minute
	DefaultSessionTTL = 2 * time.Hour
	DefaultMaxTabs    = 10000
	DefaultTokenField = "cf-turnstile-response"
	readHeaderTimeout = 20 * time.Second
)

type App struct {
	Server  *http.Server
	Config  *Config
	Backend session.Backend

	sessions *SessionStore
	limiter  *ClientLimiter
}

type Config struct {
	Port     int
	SizeUnit formats.SizeUnit
	// RateLimit is the number of backend requests a client may make per
	// RateWindow. Zero disables limiting.
	RateLimit    int
	RateWindow   time.Duration
	SessionTTL   time.Duration
	MaxTabs      int
	Verification render.Verification
}

// ParseLogLevel maps a level name such as "debug" or "warn" to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("parsing log level %q: %w", s, err)
	}
	return level, nil
}

// SetupLogging makes a text handler writing to stderr the default logger.
func SetupLogging(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// NewApp sets up the default logger and returns an uninitialized app.
func NewApp(level slog.Level) *App {
	SetupLogging(level)
	return &App{Config: &Config{}}
}

// Initialize wires the app to b and builds its HTTP server.
func (a *App) Initialize(b session.Backend, cfg *Config) error {
	if b == nil {
		return fmt.Errorf("initializing app: no backend")
	}
	if cfg.RateWindow == 0 {
		cfg.RateWindow = DefaultRateWindow
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.MaxTabs == 0 {
		cfg.MaxTabs = DefaultMaxTabs
	}
	if cfg.SizeUnit == "" {
		cfg.SizeUnit = formats.SizeBytes
	}
	if cfg.Verification.Enabled && cfg.Verification.FieldName == "" {
		cfg.Verification.FieldName = DefaultTokenField
	}

	a.Config = cfg
	a.Backend = b
	a.sessions = NewSessionStore(session.Options{
		VerificationRequired: cfg.Verification.Enabled,
	}, cfg.SessionTTL, cfg.MaxTabs)
	a.limiter = NewClientLimiter(cfg.RateLimit, cfg.RateWindow)

	a.Server = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           a.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return nil
}

// Routes returns the front end handler.
func (a *App) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", WithError(a.IndexHandler))
	mux.HandleFunc("POST /formats", a.limit(WithError(a.FormatsHandler)))
	mux.HandleFunc("GET /select", a.limit(WithError(a.SelectHandler)))
	mux.HandleFunc("POST /select", a.limit(WithError(a.SelectHandler)))
	mux.HandleFunc("POST /clear", WithError(a.ClearHandler))
	return mux
}
