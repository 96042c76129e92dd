// Package api provides the HTTP client for the shop REST backend.
//
// # Overview
//
// Client wraps every endpoint the storefront consumes: authentication, the
// product catalog, the cart and checkout, the payment provider bridge, profile
// plans, the admin sales panel and the chat assistant. It owns the cookie jar
// that carries the session and the CSRF token that gates mutating requests.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: storefront/<version>
//   - Carry a fresh X-Request-ID (uuid v4) that is also logged
//   - Go through an otelhttp transport and a publicsuffix-aware cookie jar
//
// Mutating requests (anything but GET/HEAD/OPTIONS) additionally carry
// X-CSRF-Token. When the token cannot be obtained the request is not sent and
// the call fails with a *CSRFError.
//
// # CSRF Token
//
// TokenSource fetches GET /auth/csrf-token at most once per epoch. Callers
// that arrive while a fetch is running wait for that same fetch instead of
// starting another one. Logout invalidates the token when it completes, which
// starts a new epoch; a fetch still running from the previous epoch delivers
// its token to its own waiters but never repopulates the cache.
//
// # Error Handling
//
// The client distinguishes three failures:
//
//   - *NetworkError: the request never produced a response
//   - *HTTPError: non-2xx; Message comes from the payload's error, errores
//     (joined with newlines) or message field, else "HTTP <status>"; Payload
//     keeps the decoded object for structured branches such as mfa_required
//   - *CSRFError: the token endpoint failed or returned no token
//
// UserMessage turns any of them into banner text. The client never retries.
//
// # Payload Shapes
//
// Session and cart payloads vary between endpoints, so those calls return
// json.RawMessage and leave normalization to the session and cart packages.
// A 2xx body that is not JSON is kept as text (a JSON string for RawMessage
// destinations).
package api
