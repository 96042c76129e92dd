package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/herofit/storefront/internal/api"
	"github.com/herofit/storefront/internal/cart"
	"github.com/herofit/storefront/internal/chat"
	"github.com/herofit/storefront/internal/checkout"
	"github.com/herofit/storefront/internal/config"
	"github.com/herofit/storefront/internal/logging"
	"github.com/herofit/storefront/internal/prefs"
	"github.com/herofit/storefront/internal/session"
	"github.com/herofit/storefront/internal/ui"
)

// Options configure the storefront application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/storefront/prefs.toml
	PollEvery  int    // seconds; zero uses the configured interval
	Sandbox    bool
	// ReturnURL is a payment provider return URL to reconcile on startup.
	ReturnURL string
}

// Services is everything the UI and poller share.
type Services struct {
	Client   *api.Client
	Sessions *session.Store
	Cart     *cart.Store
	Checkout *checkout.Flow
	Chat     *chat.Service
	Routines *chat.RoutineLoader
	Prefs    *prefs.Store
}

// Run boots the storefront TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}
	if opts.Sandbox {
		cfg.Sandbox = true
	}

	log, closer, err := logging.New(logging.Options{Path: cfg.LogPath()})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	svc, err := Build(cfg, prefs.Open(opts.PrefsPath), log)
	if err != nil {
		return err
	}

	var ret *checkout.Return
	if opts.ReturnURL != "" {
		parsed, err := svc.Checkout.ParseReturn(opts.ReturnURL)
		if err != nil {
			return fmt.Errorf("parse return url: %w", err)
		}
		ret = &parsed
	}

	// Initial refresh so the first frame shows the real session and cart.
	if err := svc.Sessions.Refresh(ctx); err != nil {
		log.WithError(err).Debug("initial session refresh failed")
	}
	if err := svc.Cart.Refresh(ctx, cart.Silent()); err != nil {
		log.WithError(err).Debug("initial cart refresh failed")
	}

	StartPoller(ctx, svc.Cart, cfg.PollInterval, log)

	log.WithFields(logrus.Fields{"api": cfg.APIURL, "sandbox": cfg.Sandbox}).Info("storefront started")
	return ui.Run(ctx, ui.Options{
		Context:  ctx,
		Catalog:  svc.Client,
		Sessions: svc.Sessions,
		Cart:     svc.Cart,
		Checkout: svc.Checkout,
		Chat:     svc.Chat,
		Routines: svc.Routines,
		Prefs:    svc.Prefs,
		Logger:   log,
		LogPath:  cfg.LogPath(),
		Return:   ret,
	})
}

// Build wires the API client and every store on top of it.
func Build(cfg config.Config, p *prefs.Store, log logrus.FieldLogger) (*Services, error) {
	client, err := api.NewClient(cfg.APIURL, api.WithTimeout(cfg.RequestTimeout), api.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}
	carts := cart.NewStore(client, log)
	return &Services{
		Client:   client,
		Sessions: session.NewStore(client, log),
		Cart:     carts,
		Checkout: checkout.NewFlow(client, checkout.Options{
			Cart:    carts,
			Pending: p,
			Logger:  log,
			Sandbox: cfg.Sandbox,
		}),
		Chat:     chat.NewService(client, log),
		Routines: chat.NewRoutineLoader(client, log),
		Prefs:    p,
	}, nil
}
