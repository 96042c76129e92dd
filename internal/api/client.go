package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"
)

const (
	defaultBaseURL   = "127.0.0.1:5000"
	defaultUserAgent = "storefront/0.3"
	requestTimeout   = 15 * time.Second
	maxBodyBytes     = 16 << 20

	headerCSRF      = "X-CSRF-Token"
	headerRequestID = "X-Request-ID"
)

// Client talks to the shop REST API. It keeps the session cookies in its own
// jar and attaches the CSRF token to every mutating request.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	csrf      *TokenSource
	log       logrus.FieldLogger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient bases the Client on a copy of hc. The copy gets a cookie jar
// when hc has none, and its transport is wrapped with otelhttp; hc itself is
// left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		cp := *hc
		if _, ok := cp.Transport.(*otelhttp.Transport); !ok {
			base := cp.Transport
			if base == nil {
				base = http.DefaultTransport
			}
			cp.Transport = otelhttp.NewTransport(base)
		}
		c.http = &cp
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithTokenSource shares an existing CSRF token source instead of building a
// new one bound to this client.
func WithTokenSource(ts *TokenSource) Option {
	return func(c *Client) {
		if ts != nil {
			c.csrf = ts
		}
	}
}

// NewClient builds a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent: defaultUserAgent,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	if c.csrf == nil {
		c.csrf = NewTokenSource(c.fetchCSRFToken)
	}
	return c, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// CSRF exposes the token source used for mutating calls.
func (c *Client) CSRF() *TokenSource {
	return c.csrf
}

type request struct {
	method      string
	rel         *url.URL
	body        io.Reader
	contentType string
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	rel := &url.URL{Path: path}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	return c.send(ctx, request{method: http.MethodGet, rel: rel}, dest)
}

func (c *Client) postJSON(ctx context.Context, path string, body, dest any) error {
	return c.sendJSON(ctx, http.MethodPost, path, body, dest)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, dest any) error {
	req := request{method: method, rel: &url.URL{Path: path}}
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		req.body = bytes.NewReader(buf)
		req.contentType = "application/json"
	}
	return c.send(ctx, req, dest)
}

// send executes one request. Mutating methods acquire the CSRF token first and
// fail as a whole when it cannot be obtained.
func (c *Client) send(ctx context.Context, r request, dest any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	reqURL := c.baseURL.ResolveReference(r.rel)
	req, err := http.NewRequestWithContext(ctx, r.method, reqURL.String(), r.body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(headerRequestID, requestID)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if isMutating(r.method) {
		token, err := c.csrf.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set(headerCSRF, token)
	}

	log := c.log.WithFields(logrus.Fields{
		"method":     r.method,
		"path":       r.rel.Path,
		"request_id": requestID,
	})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("request failed")
		return &NetworkError{Method: r.method, Path: r.rel.Path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &NetworkError{Method: r.method, Path: r.rel.Path, Err: fmt.Errorf("read response: %w", err)}
	}
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(start)})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		herr := newHTTPError(resp.StatusCode, body)
		log.WithField("error", herr.Message).Info("api error response")
		return herr
	}
	log.Debug("api request ok")
	return decodeBody(body, dest)
}

// decodeBody decodes a successful response. Bodies that are not JSON are kept
// as raw text: string destinations receive them verbatim and RawMessage
// destinations receive them as a JSON string.
func decodeBody(body []byte, dest any) error {
	if dest == nil {
		return nil
	}
	trimmed := bytes.TrimSpace(body)
	switch d := dest.(type) {
	case *[]byte:
		*d = append((*d)[:0], body...)
		return nil
	case *string:
		*d = string(body)
		return nil
	case *json.RawMessage:
		switch {
		case len(trimmed) == 0:
			*d = json.RawMessage("null")
		case json.Valid(trimmed):
			*d = append((*d)[:0], trimmed...)
		default:
			text, _ := json.Marshal(string(body))
			*d = text
		}
		return nil
	}
	if len(trimmed) == 0 {
		return nil
	}
	if err := json.Unmarshal(trimmed, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isMutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, errors.New("api url has no host")
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
