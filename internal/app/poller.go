package app

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/herofit/storefront/internal/cart"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
	backoffFactor       = 8
)

// CartRefresher is satisfied by *cart.Store.
type CartRefresher interface {
	Refresh(ctx context.Context, opts ...cart.OpOption) error
}

// StartPoller launches a background goroutine that silently refreshes the
// cart at a fixed cadence, backing off while refreshes fail. It returns
// immediately; the goroutine stops with ctx.
func StartPoller(ctx context.Context, carts CartRefresher, interval time.Duration, log logrus.FieldLogger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	go runPoller(ctx, carts, interval, log.WithField("component", "poller"))
}

func runPoller(ctx context.Context, carts CartRefresher, interval time.Duration, log logrus.FieldLogger) {
	failures := 0
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := carts.Refresh(ctx, cart.Silent()); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			log.WithError(err).WithField("failures", failures).Warn("cart poll failed")
		} else {
			failures = 0
		}
		timer.Reset(calculateBackoff(failures, interval))
	}
}

// calculateBackoff returns the delay before the next poll: the base interval
// doubled per consecutive failure, capped at maxBackoff or backoffFactor
// intervals, whichever is longer. It never returns less than interval.
func calculateBackoff(failures int, interval time.Duration) time.Duration {
	if failures <= 0 {
		return interval
	}
	limit := max(maxBackoff, interval*backoffFactor)
	d := interval
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return d
}
