// Package prefs persists storefront user preferences and the pending
// provider-checkout order in ~/.config/storefront/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Prefs holds user preferences.
type Prefs struct {
	Theme string `toml:"theme"`
	// PendingOrderID is the order sent to the payment provider and not yet
	// reconciled by a return page.
	PendingOrderID string `toml:"pending_order_id,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/storefront/prefs.toml"
	defaultTheme     = "Iron"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Prefs{Theme: defaultTheme}, nil
	}

	prefs := Prefs{Theme: defaultTheme}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Prefs{Theme: defaultTheme}, nil // Graceful degradation
	}

	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}
	prefs.PendingOrderID = strings.TrimSpace(prefs.PendingOrderID)

	return prefs, nil
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

// Store is a file-backed Prefs shared by the UI and the checkout flow.
// Every setter writes the file through.
type Store struct {
	path string

	mu    sync.Mutex
	prefs Prefs
}

// Open loads the preferences at path into a Store.
func Open(path string) *Store {
	p, _ := Load(path)
	return &Store{path: path, prefs: p}
}

// Get returns a copy of the current preferences.
func (s *Store) Get() Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// SetTheme records the selected theme.
func (s *Store) SetTheme(theme string) error {
	return s.update(func(p *Prefs) { p.Theme = strings.TrimSpace(theme) })
}

// PendingOrder returns the cached provider-checkout order id, or "".
func (s *Store) PendingOrder() string {
	return s.Get().PendingOrderID
}

// SetPendingOrder caches id; an empty id clears the cache.
func (s *Store) SetPendingOrder(id string) error {
	return s.update(func(p *Prefs) { p.PendingOrderID = strings.TrimSpace(id) })
}

func (s *Store) update(fn func(*Prefs)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.prefs
	fn(&next)
	if strings.TrimSpace(next.Theme) == "" {
		next.Theme = defaultTheme
	}
	if err := Save(s.path, next); err != nil {
		return err
	}
	s.prefs = next
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
