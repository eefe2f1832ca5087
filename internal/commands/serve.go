package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/xymaxim/vdl/internal/app"
	"github.com/xymaxim/vdl/internal/render"
	"github.com/xymaxim/vdl/internal/urlutil"
)

type Serve struct {
	CommonFlags
	Port       int           `help:"Port to start the front end on" short:"p" env:"VDL_PORT" default:"8080"`
	RateLimit  int           `help:"Backend requests a client may make per rate window (0 disables)" env:"VDL_RATE_LIMIT" default:"12"`
	RateWindow time.Duration `help:"Rate limit window" env:"VDL_RATE_WINDOW" default:"5m"`
	MaxTabs    int           `help:"Most browser tabs to keep sessions for; the least recently used are dropped" env:"VDL_MAX_TABS" default:"10000"`

	Verification      bool   `help:"Require human verification before every download" env:"VDL_VERIFICATION"`
	SiteKey           string `help:"Site key of the verification widget" env:"VDL_VERIFICATION_SITE_KEY"`
	ScriptURL         string `help:"Script URL of the verification widget" env:"VDL_VERIFICATION_SCRIPT_URL"`
	VerificationField string `help:"Form field the widget puts its token in" env:"VDL_VERIFICATION_FIELD" default:"cf-turnstile-response"`
}

func (c *Serve) config() *app.Config {
	return &app.Config{
		Port:       c.Port,
		SizeUnit:   c.sizeUnit(),
		RateLimit:  c.RateLimit,
		RateWindow: c.RateWindow,
		MaxTabs:    c.MaxTabs,
		Verification: render.Verification{
			Enabled:   c.Verification,
			SiteKey:   c.SiteKey,
			ScriptURL: c.ScriptURL,
			FieldName: c.VerificationField,
		},
	}
}

func (c *Serve) Run(ctx context.Context) error {
	level, err := app.ParseLogLevel(c.LogLevel)
	if err != nil {
		return err
	}
	a := app.NewApp(level)

	if c.Verification && c.SiteKey == "" {
		return errors.New("verification requires a site key")
	}
	client, err := c.newClient()
	if err != nil {
		return err
	}
	if err := a.Initialize(client, c.config()); err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutting down server", "err", err)
		}
	}()

	fmt.Printf(
		"(<<) Front end started and listening on %s...\n",
		urlutil.FormatServerAddress(a.Server.Addr),
	)
	if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
