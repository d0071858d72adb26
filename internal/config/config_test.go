package config_test

import (
	"os"
	"strings"
	"testing"

	"serenote/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Bot.Prefix != "+" || cfg.Store.Driver != config.DriverSQLite {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Panel.Color != 0x7289DA {
		t.Fatalf("color %x", cfg.Panel.Color)
	}
	if cfg.Style().OpenIcon != "🔲" {
		t.Fatalf("style %+v", cfg.Style())
	}
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := config.FromYAML([]byte("bot:\n  prefix: \"!\"\nwebhooks:\n  - url: http://localhost:9000/hook\n    events: [task.created]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Bot.Prefix != "!" {
		t.Fatalf("prefix %q", cfg.Bot.Prefix)
	}
	if cfg.Emoji.Complete != "✅" {
		t.Fatalf("default emoji lost: %q", cfg.Emoji.Complete)
	}
	if len(cfg.Webhooks) != 1 || cfg.Webhooks[0].Events[0] != "task.created" {
		t.Fatalf("webhooks %+v", cfg.Webhooks)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"prefix":        "bot:\n  prefix: \"\"\n",
		"same emoji":    "emoji:\n  complete: \"x\"\n  delete: \"x\"\n",
		"emoji variant": "emoji:\n  complete: \"\U0001F5D1\"\n  delete: \"\U0001F5D1\uFE0F\"\n",
		"driver":        "store:\n  driver: postgres\n",
		"mongo uri":     "store:\n  driver: mongo\n",
		"webhook url":   "webhooks:\n  - url: not-a-url\n",
		"log format":    "log:\n  format: xml\n",
	}
	for name, doc := range cases {
		if _, err := config.FromYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.LoadOptional(dir)
	if err != nil || cfg == nil || cfg.Bot.Prefix != "+" {
		t.Fatalf("missing file should yield defaults: %v %+v", err, cfg)
	}
	if err := os.WriteFile(config.Path(dir), []byte("store:\n  driver: nope\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadOptional(dir); err == nil || !strings.Contains(err.Error(), "driver") {
		t.Fatalf("expected driver error, got %v", err)
	}
}
