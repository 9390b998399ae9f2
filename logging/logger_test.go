package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestConfigureWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tracker.log")
	l := logrus.New()
	configure(l, Options{Level: "debug", Format: "json", File: path, System: "tracker-test"})

	l.WithField("task_id", 3).Info("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file, got %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"hello"`) || !strings.Contains(out, `"system":"tracker-test"`) {
		t.Errorf("Unexpected log output: %s", out)
	}
	if l.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %s", l.GetLevel())
	}
}

func TestConfigureStartupEntryFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.log")
	configure(logrus.New(), Options{Level: "warn", Format: "json", File: path})

	// The startup entry is logged at info, below warn.
	data, _ := os.ReadFile(path)
	if len(data) != 0 {
		t.Errorf("Expected no info entries at warn level, got %s", data)
	}

	path = filepath.Join(t.TempDir(), "tracker.log")
	configure(logrus.New(), Options{Level: "debug", Format: "json", File: path})
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Invalid JSON entry %q: %v", line, err)
	}
	if entry["log_level"] != "debug" || entry["level"] != "info" {
		t.Errorf("Unexpected startup entry: %v", entry)
	}
	if _, ok := entry["fields.level"]; ok {
		t.Errorf("Expected no clashing level field, got %v", entry)
	}
}

func TestInitRunsOnce(t *testing.T) {
	Init(Options{Level: "debug"})
	level := Logger.GetLevel()

	Init(Options{Level: "panic"})
	if Logger.GetLevel() != level {
		t.Errorf("Expected second Init to be ignored, level changed to %s", Logger.GetLevel())
	}
}
