package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	file := filepath.Join(t.TempDir(), "spin.log")

	log, err := New(Config{Production: true, Level: "debug", File: file})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log.Info("hello")
	_ = log.Sync()

	if _, err := os.Stat(file); err != nil {
		t.Errorf("expected log file to be created: %v", err)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}
