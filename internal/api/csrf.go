package api

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// TokenFetcher retrieves a fresh CSRF token from the server.
type TokenFetcher func(ctx context.Context) (string, error)

// TokenSource caches the CSRF token for the current epoch. Concurrent callers
// share one in-flight fetch; Invalidate starts a new epoch so a fetch that was
// running before it can never repopulate the cache.
type TokenSource struct {
	fetch TokenFetcher
	group singleflight.Group

	mu    sync.Mutex
	token string
	epoch uint64
}

// NewTokenSource builds a TokenSource around fetch.
func NewTokenSource(fetch TokenFetcher) *TokenSource {
	return &TokenSource{fetch: fetch}
}

// Token returns the cached token, fetching it once per epoch.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.token != "" {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	epoch := s.epoch
	s.mu.Unlock()

	// The shared fetch must outlive any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(strconv.FormatUint(epoch, 10), func() (any, error) {
		token, err := s.fetch(shared)
		if err != nil {
			return "", err
		}
		if token == "" {
			return "", &CSRFError{Err: ErrCSRFMissing}
		}
		s.mu.Lock()
		if s.epoch == epoch {
			s.token = token
		}
		s.mu.Unlock()
		return token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached token so the next mutating call fetches a new one.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.epoch++
	s.mu.Unlock()
}

// Cached returns the current token without fetching.
func (s *TokenSource) Cached() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

type csrfResponse struct {
	CSRFToken string `json:"csrf_token"`
}

func (c *Client) fetchCSRFToken(ctx context.Context) (string, error) {
	var payload csrfResponse
	if err := c.get(ctx, "/auth/csrf-token", nil, &payload); err != nil {
		return "", &CSRFError{Err: err}
	}
	if payload.CSRFToken == "" {
		return "", &CSRFError{Err: ErrCSRFMissing}
	}
	c.log.Debug("csrf token acquired")
	return payload.CSRFToken, nil
}
