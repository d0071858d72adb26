package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"serenote/internal/config"
	"serenote/internal/logging"
)

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	logger, err := logging.New(config.LogConfig{Level: "debug", Format: "json", File: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level %v", logger.GetLevel())
	}
	logger.WithField("message_id", "42").Info("task created")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"message_id":"42"`) || !strings.Contains(line, `"source":"serenote"`) {
		t.Fatalf("unexpected log line %s", line)
	}
}

func TestNewRejectsLevel(t *testing.T) {
	if _, err := logging.New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
}
