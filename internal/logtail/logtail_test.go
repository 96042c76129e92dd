package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"read all (0)", 0, expectedAll},
		{"read all (negative)", -1, expectedAll},
		{"read partial (5)", 5, expectedAll[5:]},
		{"read exactly all (10)", 10, expectedAll},
		{"read more than exists (20)", 20, expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 5)
	if err != nil || got != nil {
		t.Fatalf("Read() = %v, %v; want nil, nil", got, err)
	}
}

func TestParse(t *testing.T) {
	line := `{"component":"cart","count":2,"error":"HTTP 500","message":"cart operation failed; cart reset","op":"add","severity":"warning","timestamp":"2026-10-15T12:00:00.5Z"}`
	e := Parse(line)
	if e.Level != "WARNING" || e.Component != "cart" || e.Message != "cart operation failed; cart reset" || e.Error != "HTTP 500" {
		t.Fatalf("entry = %+v", e)
	}
	if !e.Time.Equal(time.Date(2026, 10, 15, 12, 0, 0, 500_000_000, time.UTC)) {
		t.Fatalf("Time = %v", e.Time)
	}
	if len(e.Fields) != 2 || e.Fields["op"] != "add" {
		t.Fatalf("Fields = %v, want count and op", e.Fields)
	}
	if !strings.HasSuffix(e.Summary(), "[cart] cart operation failed; cart reset – HTTP 500 count=2 op=add") {
		t.Fatalf("Summary = %q", e.Summary())
	}
}

func TestParse_NonJSONKeepsRaw(t *testing.T) {
	for _, line := range []string{"plain text", "{broken", ""} {
		e := Parse(line)
		if e.Raw != line || e.Message != "" || e.Summary() != line {
			t.Fatalf("Parse(%q) = %+v", line, e)
		}
	}
}

func TestReadEntries_SkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.log")
	content := `{"severity":"info","message":"one"}` + "\n\n" + `{"severity":"error","message":"two"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	entries, err := ReadEntries(path, 0)
	if err != nil {
		t.Fatalf("ReadEntries returned error: %v", err)
	}
	if len(entries) != 2 || entries[1].Level != "ERROR" || entries[1].Message != "two" {
		t.Fatalf("entries = %+v", entries)
	}
}
