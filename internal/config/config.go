package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/lanes/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Board    BoardConfig    `toml:"board"`
	Notify   NotifyConfig   `toml:"notify"`
	Logging  LoggingConfig  `toml:"logging"`
	Serve    ServeConfig    `toml:"serve"`
}

type APIConfig struct {
	BaseURL   string   `toml:"base_url"`
	Timeout   Duration `toml:"timeout"`
	Limit     int      `toml:"limit"` // 0 = every todo
	UserAgent string   `toml:"user_agent"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type BoardConfig struct {
	PendingTitle    string `toml:"pending_title"`
	InProgressTitle string `toml:"in_progress_title"`
	CompletedTitle  string `toml:"completed_title"`
	ConfirmDelete   bool   `toml:"confirm_delete"`
	PersistLocal    bool   `toml:"persist_local"`
}

type NotifyConfig struct {
	Duration Duration `toml:"duration"`
}

type LoggingConfig struct {
	Level   string               `toml:"level"`
	DevFile LoggingDevFileConfig `toml:"dev_file"`
}

type LoggingDevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ServeConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText renders the duration as text.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText parses a Go duration string such as "3s".
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func Default(dbPath string) Config {
	return Config{
		API: APIConfig{
			BaseURL:   "https://dummyjson.com/todos",
			Timeout:   Duration(10 * time.Second),
			Limit:     30,
			UserAgent: "lanes",
		},
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Board: BoardConfig{
			PendingTitle:    "Pending",
			InProgressTitle: "In Progress",
			CompletedTitle:  "Completed",
			ConfirmDelete:   true,
			PersistLocal:    true,
		},
		Notify: NotifyConfig{
			Duration: Duration(3 * time.Second),
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: LoggingDevFileConfig{
				Enabled: true,
				Dir:     ".lanes/log",
			},
		},
		Serve: ServeConfig{
			HTTPBind:    "127.0.0.1:5437",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return errors.New("api.base_url is required")
	}
	parsed, err := url.Parse(base)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("invalid api.base_url: %q", c.API.BaseURL)
	}
	if c.API.Timeout.Std() <= 0 {
		return fmt.Errorf("api.timeout must be > 0")
	}
	if c.API.Limit < 0 {
		return fmt.Errorf("api.limit must be >= 0")
	}

	titles := map[string]string{
		"board.pending_title":     c.Board.PendingTitle,
		"board.in_progress_title": c.Board.InProgressTitle,
		"board.completed_title":   c.Board.CompletedTitle,
	}
	for key, title := range titles {
		if strings.TrimSpace(title) == "" {
			return fmt.Errorf("%s is required", key)
		}
	}

	if c.Notify.Duration.Std() <= 0 {
		return fmt.Errorf("notify.duration must be > 0")
	}

	if _, err := log.ParseLevel(strings.TrimSpace(strings.ToLower(c.Logging.Level))); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when enabled")
	}

	if _, _, err := net.SplitHostPort(strings.TrimSpace(c.Serve.HTTPBind)); err != nil {
		return fmt.Errorf("invalid serve.http_bind: %q", c.Serve.HTTPBind)
	}
	for key, endpoint := range map[string]string{
		"serve.api_endpoint": c.Serve.APIEndpoint,
		"serve.mcp_endpoint": c.Serve.MCPEndpoint,
	} {
		if !strings.HasPrefix(strings.TrimSpace(endpoint), "/") {
			return fmt.Errorf("%s must start with /: %q", key, endpoint)
		}
	}

	return nil
}

// Lanes returns the configured lane titles in display order.
func (c Config) Lanes() []domain.Lane {
	return domain.NormalizeLanes([]domain.Lane{
		{Status: domain.StatusPending, Title: c.Board.PendingTitle},
		{Status: domain.StatusInProgress, Title: c.Board.InProgressTitle},
		{Status: domain.StatusCompleted, Title: c.Board.CompletedTitle},
	})
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
