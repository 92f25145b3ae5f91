package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/router-for-me/StudyGateway/internal/config"
	log "github.com/sirupsen/logrus"
)

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gateway.log")
	closer, err := Setup(config.LoggingConfig{Level: "warn", JSON: true, File: path, MaxSizeMB: 1}, false)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&log.TextFormatter{})
		log.SetLevel(log.InfoLevel)
	})

	log.Info("dropped")
	log.WithField("component", "test").Warn("kept")
	if errClose := closer.Close(); errClose != nil {
		t.Fatalf("close: %v", errClose)
	}

	data, errRead := os.ReadFile(path)
	if errRead != nil {
		t.Fatalf("read log: %v", errRead)
	}
	out := string(data)
	if strings.Contains(out, "dropped") {
		t.Fatalf("info entry written at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"kept"`) || !strings.Contains(out, `"component":"test"`) {
		t.Fatalf("expected json warn entry, got %s", out)
	}
}

func TestSetupDebugOverride(t *testing.T) {
	t.Cleanup(func() { log.SetLevel(log.InfoLevel) })
	if _, err := Setup(config.LoggingConfig{Level: "info"}, true); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}
	if _, err := Setup(config.LoggingConfig{Level: "loud"}, false); err == nil {
		t.Fatalf("expected invalid level error")
	}
}
