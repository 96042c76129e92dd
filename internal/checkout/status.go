package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/herofit/storefront/internal/api"
)

// PaymentStatus is a provider status reduced to the states the storefront
// acts on.
type PaymentStatus string

const (
	StatusApproved  PaymentStatus = "approved"
	StatusRejected  PaymentStatus = "rejected"
	StatusCancelled PaymentStatus = "cancelled"
	StatusPending   PaymentStatus = "pending"
	StatusUnknown   PaymentStatus = "unknown"
)

// NormalizeStatus maps provider and return-page status strings.
func NormalizeStatus(raw string) PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved", "success", "succeeded", "paid", "pagado":
		return StatusApproved
	case "rejected", "failure", "failed", "rechazado":
		return StatusRejected
	case "cancelled", "canceled", "cancelado":
		return StatusCancelled
	case "pending", "in_process", "in_mediation", "authorized", "pendiente":
		return StatusPending
	default:
		return StatusUnknown
	}
}

// Terminal reports whether no further transition is expected.
func (s PaymentStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// StatusFetcher is the provider status endpoint. *api.Client implements it.
type StatusFetcher interface {
	PaymentStatus(ctx context.Context, paymentID string) (api.PaymentStatusResponse, error)
}

const (
	defaultStatusInterval = 3 * time.Second
	maxBackoff            = 30 * time.Second
	backoffFactor         = 8
)

// StatusUpdate is delivered to the poller callback after every attempt.
type StatusUpdate struct {
	Status   PaymentStatus
	Detail   string
	Err      error
	Failures int
	Next     time.Duration
}

// StatusPoller polls a payment until it reaches a terminal status.
type StatusPoller struct {
	fetcher  StatusFetcher
	interval time.Duration
	log      logrus.FieldLogger
	onUpdate func(StatusUpdate)
}

// NewStatusPoller builds a poller. A zero interval uses the default cadence;
// onUpdate may be nil.
func NewStatusPoller(fetcher StatusFetcher, interval time.Duration, log logrus.FieldLogger, onUpdate func(StatusUpdate)) *StatusPoller {
	if interval <= 0 {
		interval = defaultStatusInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StatusPoller{fetcher: fetcher, interval: interval, log: log.WithField("component", "payment-status"), onUpdate: onUpdate}
}

// Run polls paymentID until a terminal status or until ctx ends, returning
// the last known status.
func (p *StatusPoller) Run(ctx context.Context, paymentID string) (PaymentStatus, error) {
	last := StatusUnknown
	failures := 0
	for {
		resp, err := p.fetcher.PaymentStatus(ctx, paymentID)
		update := StatusUpdate{Status: last}
		if err != nil {
			failures++
			update.Err = err
			p.log.WithError(err).WithFields(logrus.Fields{"payment_id": paymentID, "failures": failures}).Warn("payment status poll failed")
		} else {
			failures = 0
			last = NormalizeStatus(resp.Status)
			update.Status = last
			update.Detail = resp.StatusDetail
		}
		update.Failures = failures
		update.Next = calculateBackoff(failures, p.interval)
		if last.Terminal() {
			update.Next = 0
		}
		if p.onUpdate != nil {
			p.onUpdate(update)
		}
		if last.Terminal() {
			p.log.WithFields(logrus.Fields{"payment_id": paymentID, "status": last}).Info("payment settled")
			return last, nil
		}

		timer := time.NewTimer(update.Next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, fmt.Errorf("poll payment %s: %w", paymentID, ctx.Err())
		case <-timer.C:
		}
	}
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff or backoffFactor intervals, whichever is longer.
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
