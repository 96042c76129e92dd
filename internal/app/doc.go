// Package app is the composition root of the storefront.
//
// Run loads config.toml, opens the JSON log file, builds the API client and
// the session, cart, checkout and chat services on top of it, starts the
// background cart poller and hands everything to the UI.
//
// Startup errors (bad config, bad API URL, unparseable return URL) are
// returned. Everything after that is logged: the initial session and cart
// refreshes may fail against an offline backend and the stores simply start
// anonymous and empty.
//
// The poller refreshes the cart silently every PollInterval and backs off
// exponentially while the backend keeps failing, up to 30 seconds or eight
// intervals, whichever is longer.
package app
