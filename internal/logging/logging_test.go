package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesJSONWithFieldMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "storefront.log")
	log, closer, err := New(Options{Path: path, Format: "json", Level: "debug"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	log.WithField("component", "cart").Debug("cart updated")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, data)
	}
	if entry[KeyMsg] != "cart updated" || entry[KeyLevel] != "debug" || entry["component"] != "cart" {
		t.Fatalf("entry = %v", entry)
	}
	if _, ok := entry[KeyTime]; !ok {
		t.Fatalf("entry missing %q: %v", KeyTime, entry)
	}
}

func TestNew_ConsoleFormatFromEnv(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	path := filepath.Join(t.TempDir(), "storefront.log")
	log, closer, err := New(Options{Path: path})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	log.Info("hola")
	_ = closer.Close()

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `msg=hola`) {
		t.Fatalf("console output = %q, want text formatter", data)
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "chatty"}); err == nil {
		t.Fatalf("New accepted an unknown level")
	}
}
