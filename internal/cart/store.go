package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/herofit/storefront/internal/api"
)

// Status is the visible state of the cart container.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusLoading  Status = "loading"
	StatusUpdating Status = "updating"
	StatusReady    Status = "ready"
)

// Backend is the slice of the API the cart store needs. *api.Client
// implements it.
type Backend interface {
	CartState(ctx context.Context) (json.RawMessage, error)
	AddToCart(ctx context.Context, id string) (json.RawMessage, error)
	SubtractFromCart(ctx context.Context, id string) (json.RawMessage, error)
	RemoveFromCart(ctx context.Context, id string) (json.RawMessage, error)
	ClearCart(ctx context.Context) (json.RawMessage, error)
}

var _ Backend = (*api.Client)(nil)

// Snapshot is a copy of the cart at one point in time.
type Snapshot struct {
	State
	Status      Status
	LastError   error
	LastUpdated time.Time
	// Version increases every time a server response (or failure) is applied.
	Version uint64
}

// OpOption tunes a single refresh or mutation.
type OpOption func(*opConfig)

type opConfig struct {
	silent bool
}

// Silent runs the operation without touching the visible status, for
// background refreshes.
func Silent() OpOption {
	return func(c *opConfig) { c.silent = true }
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSerializedMutations makes the store run one operation at a time, in
// call order. Without it overlapping operations apply in completion order.
func WithSerializedMutations() StoreOption {
	return func(s *Store) { s.serial = true }
}

// Store owns the cart snapshot. Every operation replaces the whole snapshot
// with the server's answer; nothing is computed locally except Count.
type Store struct {
	backend Backend
	log     logrus.FieldLogger
	serial  bool
	opMu    sync.Mutex

	mu       sync.RWMutex
	state    State
	loading  int
	updating int
	settled  bool
	lastErr  error
	updated  time.Time
	version  uint64
}

// NewStore builds an empty Store. A nil logger uses the logrus standard logger.
func NewStore(backend Backend, log logrus.FieldLogger, opts ...StoreOption) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Store{backend: backend, log: log.WithField("component", "cart"), state: Empty()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		State:       s.state.clone(),
		Status:      s.statusLocked(),
		LastError:   s.lastErr,
		LastUpdated: s.updated,
		Version:     s.version,
	}
}

// Refresh reloads the cart from the server.
func (s *Store) Refresh(ctx context.Context, opts ...OpOption) error {
	return s.run(ctx, "refresh", &s.loading, s.backend.CartState, opts)
}

// AddItem adds one unit of the product.
func (s *Store) AddItem(ctx context.Context, id string, opts ...OpOption) error {
	return s.run(ctx, "add", &s.updating, func(ctx context.Context) (json.RawMessage, error) {
		return s.backend.AddToCart(ctx, id)
	}, opts)
}

// DecrementItem removes one unit of the product.
func (s *Store) DecrementItem(ctx context.Context, id string, opts ...OpOption) error {
	return s.run(ctx, "decrement", &s.updating, func(ctx context.Context) (json.RawMessage, error) {
		return s.backend.SubtractFromCart(ctx, id)
	}, opts)
}

// RemoveItem drops the product line entirely.
func (s *Store) RemoveItem(ctx context.Context, id string, opts ...OpOption) error {
	return s.run(ctx, "remove", &s.updating, func(ctx context.Context) (json.RawMessage, error) {
		return s.backend.RemoveFromCart(ctx, id)
	}, opts)
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context, opts ...OpOption) error {
	return s.run(ctx, "clear", &s.updating, s.backend.ClearCart, opts)
}

func (s *Store) run(ctx context.Context, op string, counter *int, call func(context.Context) (json.RawMessage, error), opts []OpOption) error {
	var cfg opConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if s.serial {
		s.opMu.Lock()
		defer s.opMu.Unlock()
	}

	if !cfg.silent {
		s.mu.Lock()
		*counter++
		s.mu.Unlock()
	}

	raw, err := call(ctx)
	next := Empty()
	if err == nil {
		next, err = Normalize(raw)
	}

	s.mu.Lock()
	if !cfg.silent && *counter > 0 {
		*counter--
	}
	if err != nil {
		s.state = Empty()
	} else {
		s.state = next
	}
	s.lastErr = err
	s.settled = true
	s.updated = time.Now()
	s.version++
	s.mu.Unlock()

	log := s.log.WithFields(logrus.Fields{"op": op, "silent": cfg.silent})
	if err != nil {
		log.WithError(err).Warn("cart operation failed; cart reset")
		return fmt.Errorf("cart %s: %w", op, err)
	}
	log.WithFields(logrus.Fields{"count": next.Count, "total": next.Total}).Debug("cart updated")
	return nil
}

func (s *Store) statusLocked() Status {
	switch {
	case s.updating > 0:
		return StatusUpdating
	case s.loading > 0:
		return StatusLoading
	case s.settled:
		return StatusReady
	default:
		return StatusIdle
	}
}
