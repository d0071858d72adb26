package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"serenote/internal/chat"
	"serenote/internal/panel"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config models serenote.yml.
type Config struct {
	Bot struct {
		Prefix string `yaml:"prefix"`
	} `yaml:"bot"`
	Emoji struct {
		Complete      string `yaml:"complete"`
		Delete        string `yaml:"delete"`
		OpenIcon      string `yaml:"open_icon"`
		CompletedIcon string `yaml:"completed_icon"`
	} `yaml:"emoji"`
	Panel struct {
		Color       int    `yaml:"color"`
		TaskIconURL string `yaml:"task_icon_url"`
	} `yaml:"panel"`
	Store struct {
		Driver string `yaml:"driver"`
		Mongo  struct {
			URI      string `yaml:"uri"`
			Database string `yaml:"database"`
		} `yaml:"mongo"`
	} `yaml:"store"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
	Log      LogConfig       `yaml:"log"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	Enabled        *bool    `yaml:"enabled"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File enables rotating file output in addition to stderr.
	File string `yaml:"file"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with serenote config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	cfg, err := Load(workspace)
	if err != nil {
		if _, statErr := os.Stat(Path(workspace)); os.IsNotExist(statErr) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bot.Prefix) == "" || strings.ContainsAny(c.Bot.Prefix, " \t\n") {
		return fmt.Errorf("config.bot.prefix must be a non-empty token without whitespace")
	}
	if c.Emoji.Complete == "" || c.Emoji.Delete == "" {
		return fmt.Errorf("config.emoji.complete and config.emoji.delete are required")
	}
	if chat.SameEmoji(c.Emoji.Complete, c.Emoji.Delete) {
		return fmt.Errorf("config.emoji.complete and config.emoji.delete must differ")
	}
	if c.Panel.Color < 0 || c.Panel.Color > 0xFFFFFF {
		return fmt.Errorf("config.panel.color must be a 24-bit RGB value")
	}
	switch c.Store.Driver {
	case DriverSQLite:
	case DriverMongo:
		if strings.TrimSpace(c.Store.Mongo.URI) == "" {
			return fmt.Errorf("config.store.mongo.uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("config.store.driver must be %q or %q", DriverSQLite, DriverMongo)
	}
	for i, hook := range c.Webhooks {
		u, err := url.Parse(hook.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("webhooks[%d].url must be an absolute URL", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	switch c.Log.Level {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config.log.level %q is not a known level", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config.log.format must be text or json")
	}
	return nil
}

// Style returns the panel style configured for task messages.
func (c *Config) Style() panel.Style {
	return panel.Style{
		Color:         c.Panel.Color,
		TaskIconURL:   c.Panel.TaskIconURL,
		OpenIcon:      c.Emoji.OpenIcon,
		CompletedIcon: c.Emoji.CompletedIcon,
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "serenote.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from
// data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `bot:
  prefix: "+"

emoji:
  complete: "✅"
  delete: "🗑️"
  open_icon: "🔲"
  completed_icon: "✅"

panel:
  color: 0x7289DA
  task_icon_url: ""

store:
  driver: sqlite
  mongo:
    uri: ""
    database: serenote

# webhooks:
#   - url: https://example.com/hooks/serenote
#     events: [task.created, task.completed]
#     secret: change-me

log:
  level: info
  format: text
  file: ""
`
