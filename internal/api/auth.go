package api

import (
	"context"
	"encoding/json"
)

// LoginRequest is posted to /auth/login. TOTP and BackupCode are only sent on
// the second step of a multi-factor login.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	TOTP       string `json:"totp,omitempty"`
	BackupCode string `json:"backup_code,omitempty"`
}

// RegisterRequest is posted to /auth/register.
type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MFADisableRequest confirms turning off the second factor.
type MFADisableRequest struct {
	Password string `json:"password,omitempty"`
	Code     string `json:"code,omitempty"`
}

// Me returns the raw session payload for the current cookie session.
func (c *Client) Me(ctx context.Context) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.get(ctx, "/auth/me", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Login submits credentials and returns the raw session payload. A response
// asking for a second factor surfaces as an *HTTPError whose MFARequired
// method reports true.
func (c *Client) Login(ctx context.Context, req LoginRequest) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.postJSON(ctx, "/auth/login", req, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Logout ends the server session. The CSRF token is invalidated once the call
// completes, whatever its outcome.
func (c *Client) Logout(ctx context.Context) error {
	defer c.csrf.Invalidate()
	return c.postJSON(ctx, "/auth/logout", nil, nil)
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.postJSON(ctx, "/auth/register", req, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// MFASetup starts TOTP enrollment.
func (c *Client) MFASetup(ctx context.Context) (MFASetup, error) {
	var setup MFASetup
	if err := c.postJSON(ctx, "/auth/mfa/setup", nil, &setup); err != nil {
		return MFASetup{}, err
	}
	return setup, nil
}

// MFAEnable confirms enrollment with a code from the authenticator app and
// returns the one-time backup codes.
func (c *Client) MFAEnable(ctx context.Context, code string) ([]string, error) {
	var payload struct {
		BackupCodes []string `json:"backup_codes"`
	}
	body := map[string]string{"code": code}
	if err := c.postJSON(ctx, "/auth/mfa/enable", body, &payload); err != nil {
		return nil, err
	}
	return payload.BackupCodes, nil
}

// MFADisable turns the second factor off.
func (c *Client) MFADisable(ctx context.Context, req MFADisableRequest) error {
	return c.postJSON(ctx, "/auth/mfa/disable", req, nil)
}

// MFABackupCodes regenerates the backup codes.
func (c *Client) MFABackupCodes(ctx context.Context) ([]string, error) {
	var payload struct {
		BackupCodes []string `json:"backup_codes"`
	}
	if err := c.postJSON(ctx, "/auth/mfa/backup-codes", nil, &payload); err != nil {
		return nil, err
	}
	return payload.BackupCodes, nil
}
