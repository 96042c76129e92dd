package session

import (
	"encoding/json"
	"maps"
	"strings"
)

// User is the opaque user record the server returns. Only a handful of
// fields are interpreted client-side.
type User map[string]any

// Username returns the login name.
func (u User) Username() string { return u.str("username") }

// Email returns the account email.
func (u User) Email() string { return u.str("email") }

// FullName returns the display name.
func (u User) FullName() string {
	if name := u.str("full_name"); name != "" {
		return name
	}
	return u.str("nombre")
}

// NeedsUsername reports accounts created via a social login that still have
// to pick a username.
func (u User) NeedsUsername() bool { return truthy(u["needs_username"]) }

// HasPassword reports whether the account has a local password set.
func (u User) HasPassword() bool { return truthy(u["has_password"]) }

// MFAEnabled reports whether the account has a second factor enrolled.
func (u User) MFAEnabled() bool { return truthy(u["mfa_enabled"]) }

// Clone returns a shallow copy of the record.
func (u User) Clone() User {
	if u == nil {
		return nil
	}
	return maps.Clone(u)
}

func (u User) str(key string) string {
	s, _ := u[key].(string)
	return strings.TrimSpace(s)
}

// Session is the normalized identity. When Authenticated is false, User is
// nil and IsAdmin is false.
type Session struct {
	Authenticated bool
	User          User
	IsAdmin       bool
}

// Anonymous is the signed-out session.
func Anonymous() Session { return Session{} }

var controlKeys = []string{"auth", "is_admin", "isAdmin", "user", "csrf_token"}

// Normalize converts a raw session payload into a Session. A payload is
// authenticated when it carries a truthy auth flag or an embedded user object.
// The admin flag is taken from the top level when present there, otherwise
// from the user record.
func Normalize(raw json.RawMessage) Session {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		return Anonymous()
	}
	return normalizeMap(payload)
}

func normalizeMap(payload map[string]any) Session {
	nested, hasUser := payload["user"].(map[string]any)
	if !truthy(payload["auth"]) && !hasUser {
		return Anonymous()
	}

	var user User
	if hasUser {
		user = User(maps.Clone(nested))
	} else {
		user = User(maps.Clone(payload))
		for _, k := range controlKeys {
			delete(user, k)
		}
	}

	isAdmin := truthy(user["is_admin"]) || truthy(user["isAdmin"])
	if v, ok := adminOverride(payload); ok {
		isAdmin = v
	}
	return Session{Authenticated: true, User: user, IsAdmin: isAdmin}
}

func adminOverride(payload map[string]any) (bool, bool) {
	for _, k := range []string{"is_admin", "isAdmin"} {
		if v, ok := payload[k]; ok && v != nil {
			return truthy(v), true
		}
	}
	return false, false
}

// truthy follows the loose truthiness the backend relies on: non-zero
// numbers, non-empty strings other than "false"/"0", true, and any object or
// array.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		return s != "" && s != "false" && s != "0"
	default:
		return true
	}
}

func (s Session) clone() Session {
	s.User = s.User.Clone()
	return s
}
