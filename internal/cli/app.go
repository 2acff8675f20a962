package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/sagargautam500/storefront/internal/cartsync"
	"github.com/sagargautam500/storefront/internal/guestcart"
	"github.com/sagargautam500/storefront/pkg/cartclient"
	"github.com/sagargautam500/storefront/pkg/config"
	"github.com/sagargautam500/storefront/pkg/logger"
	"github.com/sagargautam500/storefront/pkg/metrics"
)

// app is one CLI invocation's wiring: the engine over the guest store and
// the API client, with the session persisted to the token file.
type app struct {
	cfg    config.ClientConfig
	logg   *logger.Logger
	client *cartclient.Client
	guest  *guestcart.Store
	engine *cartsync.Engine
	// registry holds this invocation's engine metrics.
	registry *prometheus.Registry
	out      io.Writer
	failed   bool
}

func newApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	opts.apply(cfg)

	level := logger.ParseLevel(cfg.LogLevel)
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	logg := logger.New(logger.Options{
		ServiceName: "storefront-cli",
		Level:       level,
		Format:      "console",
		Output:      opts.errWriter(),
	})

	a := &app{cfg: *cfg, logg: logg, registry: prometheus.NewRegistry(), out: opts.outWriter()}

	a.client, err = cartclient.New(cartclient.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.Timeout,
		OnSession: func(s *cartclient.Session) {
			if err := saveSession(cfg.TokenFile, s); err != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "cli.session_persist_failed")
			}
		},
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.GuestStore), 0o700); err != nil {
		return nil, fmt.Errorf("creating guest cart dir: %w", err)
	}
	a.guest, err = guestcart.Open(cfg.GuestStore)
	if err != nil {
		return nil, err
	}

	notifier := cartsync.NotifierFunc(func(_ context.Context, n cartsync.Notification) {
		mark := "✓"
		if n.Level == cartsync.LevelError {
			mark = "✗"
			a.failed = true
		}
		fmt.Fprintf(opts.errWriter(), "%s %s\n", mark, n.Message)
	})
	a.engine, err = cartsync.NewEngine(ctx, cartsync.Params{
		Remote:   a.client,
		Guest:    a.guest,
		Notifier: notifier,
		Logger:   logg,
		Metrics:  metrics.NewCartEngineMetrics(a.registry),
	})
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// resume restores a persisted session and hands its identity to the engine.
func (a *app) resume(ctx context.Context) error {
	s, err := loadSession(a.cfg.TokenFile)
	if err != nil {
		return err
	}
	if s == nil {
		return nil
	}
	a.client.SetSession(s)
	if current := a.client.Session(); current != nil {
		a.reportMerge(a.engine.Login(ctx, current.UserID))
	}
	return nil
}

func (a *app) reportMerge(res cartsync.MergeResult) {
	for _, line := range res.Dropped {
		fmt.Fprintf(a.out, "not synced: %s x%d\n", line.ProductID, line.Quantity)
	}
	for _, line := range res.Kept {
		fmt.Fprintf(a.out, "kept in guest cart: %s x%d\n", line.ProductID, line.Quantity)
	}
}

// logMetrics writes the engine metrics recorded during this invocation at
// debug level.
func (a *app) logMetrics(ctx context.Context) {
	families, err := a.registry.Gather()
	if err != nil {
		a.logg.Warn(a.logg.WithField(ctx, "error", err.Error()), "cli.metrics_gather_failed")
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fields := map[string]any{"metric": mf.GetName()}
			for _, lp := range m.GetLabel() {
				fields[lp.GetName()] = lp.GetValue()
			}
			if c := m.GetCounter(); c != nil {
				fields["value"] = c.GetValue()
			}
			if h := m.GetHistogram(); h != nil {
				fields["count"] = h.GetSampleCount()
				fields["sum_seconds"] = h.GetSampleSum()
			}
			a.logg.Debug(a.logg.WithFields(ctx, fields), "cli.metric")
		}
	}
}

func (a *app) close() {
	if a.guest != nil {
		if err := a.guest.Close(); err != nil {
			a.logg.Warn(a.logg.WithField(context.Background(), "error", err.Error()), "cli.guest_close_failed")
		}
	}
}
