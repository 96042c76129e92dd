// Package config loads the storefront client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/storefront/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/storefront/config.toml
//   - API root: 127.0.0.1:5000 (scheme defaults to http)
//   - Log directory: ~/.local/share/storefront/logs
//   - Log file: <log_dir>/storefront.log
//   - Background cart refresh: every 30 seconds
//   - Request timeout: 15 seconds
//
// # Example config.toml
//
//	api_url = "https://api.herofit.example"
//	sandbox = true
//	log_dir = "~/.local/share/storefront/logs"
//	poll_seconds = 30
//	request_timeout_seconds = 15
//
// Sandbox only affects provider checkout, where it selects the sandbox
// redirect URL. Command-line flags override the file (see cmd/storefront).
package config
