package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/herofit/storefront/internal/api"
)

// Status is the visible state of the session container.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusLoading        Status = "loading"
	StatusAuthenticating Status = "authenticating"
	StatusReady          Status = "ready"
)

// Authenticator is the slice of the API the session store needs.
// *api.Client implements it.
type Authenticator interface {
	Me(ctx context.Context) (json.RawMessage, error)
	Login(ctx context.Context, req api.LoginRequest) (json.RawMessage, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, req api.RegisterRequest) (json.RawMessage, error)
	UpdateProfile(ctx context.Context, fields map[string]any) (json.RawMessage, error)
	MFAEnable(ctx context.Context, code string) ([]string, error)
	MFADisable(ctx context.Context, req api.MFADisableRequest) error
}

var _ Authenticator = (*api.Client)(nil)

// LoginOptions carries the second factor for multi-factor logins.
type LoginOptions struct {
	TOTP       string
	BackupCode string
}

// Snapshot is a copy of the store state at one point in time.
type Snapshot struct {
	Session
	Status      Status
	LastError   error
	LastUpdated time.Time
}

// IsAuthenticated mirrors the session flag.
func (s Snapshot) IsAuthenticated() bool { return s.Authenticated }

// Store owns the current session. It is mutated only through its methods;
// each operation applies its result atomically when it completes, so the
// visible session reflects the most recently completed operation.
type Store struct {
	auth Authenticator
	log  logrus.FieldLogger

	mu             sync.RWMutex
	session        Session
	loading        int
	authenticating int
	settled        bool
	lastErr        error
	updated        time.Time
}

// NewStore builds a Store. A nil logger uses the logrus standard logger.
func NewStore(auth Authenticator, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{auth: auth, log: log.WithField("component", "session")}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Session:     s.session.clone(),
		Status:      s.statusLocked(),
		LastError:   s.lastErr,
		LastUpdated: s.updated,
	}
}

// Refresh fetches the current identity. On failure the session resets to
// anonymous and the error is returned.
func (s *Store) Refresh(ctx context.Context) error {
	s.begin(&s.loading)
	raw, err := s.auth.Me(ctx)
	if err != nil {
		s.finish(&s.loading, Anonymous(), err)
		return fmt.Errorf("refresh session: %w", err)
	}
	s.finish(&s.loading, Normalize(raw), nil)
	return nil
}

// Login submits credentials and stores the resulting identity. When the server
// requires a second factor the returned error satisfies IsMFARequired.
func (s *Store) Login(ctx context.Context, username, password string, opts LoginOptions) (Session, error) {
	s.begin(&s.authenticating)
	raw, err := s.auth.Login(ctx, api.LoginRequest{
		Username:   username,
		Password:   password,
		TOTP:       opts.TOTP,
		BackupCode: opts.BackupCode,
	})
	if err != nil {
		s.finish(&s.authenticating, Anonymous(), err)
		if IsMFARequired(err) {
			s.log.WithField("username", username).Info("second factor required")
		}
		return Anonymous(), err
	}

	next := Normalize(raw)
	if !next.Authenticated {
		// Some deployments answer login with a bare acknowledgement.
		me, meErr := s.auth.Me(ctx)
		if meErr != nil {
			s.finish(&s.authenticating, Anonymous(), meErr)
			return Anonymous(), fmt.Errorf("load session after login: %w", meErr)
		}
		next = Normalize(me)
	}
	s.finish(&s.authenticating, next, nil)
	s.log.WithFields(logrus.Fields{"username": next.User.Username(), "admin": next.IsAdmin}).Info("logged in")
	return next.clone(), nil
}

// Logout ends the server session. The local session is reset to anonymous
// whatever happens on the network; the server error, if any, is returned for
// logging only.
func (s *Store) Logout(ctx context.Context) error {
	s.begin(&s.loading)
	err := s.auth.Logout(ctx)
	s.finish(&s.loading, Anonymous(), nil)
	if err != nil {
		s.log.WithError(err).Warn("server logout failed; local session cleared")
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info("logged out")
	return nil
}

// SetUser applies a local identity patch without a round-trip. A nil result
// collapses the session to anonymous. The next successful Refresh replaces
// whatever was patched here.
func (s *Store) SetUser(update func(User) User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := update(s.session.User.Clone())
	if next == nil {
		s.session = Anonymous()
		s.updated = time.Now()
		return
	}
	isAdmin := s.session.IsAdmin
	if v, ok := adminOverride(next); ok {
		isAdmin = v
	}
	s.session = Session{Authenticated: true, User: next, IsAdmin: isAdmin}
	s.updated = time.Now()
}

// Register creates an account and then reloads the session, which is
// authenticated when the server signs the new user in directly.
func (s *Store) Register(ctx context.Context, req api.RegisterRequest) error {
	if _, err := s.auth.Register(ctx, req); err != nil {
		s.setError(err)
		return err
	}
	return s.Refresh(ctx)
}

// UpdateProfile saves profile fields and reloads the session.
func (s *Store) UpdateProfile(ctx context.Context, fields map[string]any) error {
	if _, err := s.auth.UpdateProfile(ctx, fields); err != nil {
		s.setError(err)
		return err
	}
	return s.Refresh(ctx)
}

// EnableMFA confirms TOTP enrollment, reloads the session and returns the
// backup codes.
func (s *Store) EnableMFA(ctx context.Context, code string) ([]string, error) {
	codes, err := s.auth.MFAEnable(ctx, code)
	if err != nil {
		s.setError(err)
		return nil, err
	}
	return codes, s.Refresh(ctx)
}

// DisableMFA removes the second factor and reloads the session.
func (s *Store) DisableMFA(ctx context.Context, req api.MFADisableRequest) error {
	if err := s.auth.MFADisable(ctx, req); err != nil {
		s.setError(err)
		return err
	}
	return s.Refresh(ctx)
}

// IsMFARequired reports whether err is a login failure asking for a second
// factor, as opposed to invalid credentials.
func IsMFARequired(err error) bool {
	var herr *api.HTTPError
	return errors.As(err, &herr) && herr.MFARequired()
}

func (s *Store) begin(counter *int) {
	s.mu.Lock()
	*counter++
	s.mu.Unlock()
}

func (s *Store) finish(counter *int, next Session, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *counter > 0 {
		*counter--
	}
	s.session = next
	s.lastErr = err
	s.settled = true
	s.updated = time.Now()
}

func (s *Store) setError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.updated = time.Now()
	s.mu.Unlock()
}

func (s *Store) statusLocked() Status {
	switch {
	case s.authenticating > 0:
		return StatusAuthenticating
	case s.loading > 0:
		return StatusLoading
	case s.settled:
		return StatusReady
	default:
		return StatusIdle
	}
}
