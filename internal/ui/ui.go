package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/herofit/storefront/internal/cart"
	"github.com/herofit/storefront/internal/chat"
	"github.com/herofit/storefront/internal/checkout"
	"github.com/herofit/storefront/internal/prefs"
	"github.com/herofit/storefront/internal/session"
)

// Options configure the UI runtime.
type Options struct {
	Context  context.Context
	Catalog  Catalog
	Sessions *session.Store
	Cart     *cart.Store
	Checkout *checkout.Flow
	Chat     *chat.Service
	Routines *chat.RoutineLoader
	Prefs    *prefs.Store
	Logger   logrus.FieldLogger
	LogPath  string
	// RefreshEvery is how often store snapshots are re-read; capped at 1s.
	RefreshEvery time.Duration
	// Return, when set, opens the provider return page first.
	Return *checkout.Return
}

// Run starts the storefront TUI and blocks until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Sessions == nil || opts.Cart == nil {
		return fmt.Errorf("ui requires session and cart stores")
	}
	if opts.Context == nil {
		opts.Context = ctx
	}

	p := tea.NewProgram(newModel(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
