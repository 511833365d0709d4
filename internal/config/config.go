package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Afrawles/devtimer/internal/report"
)

// ErrNoSources is returned when neither Wakatime nor a git repository is configured.
var ErrNoSources = errors.New("no commit sources configured (set WAKATIME_API_KEY or git.repos)")

type Config struct {
	Wakatime WakatimeConfig `koanf:"wakatime"`
	Git      GitConfig      `koanf:"git"`
	Jira     JiraConfig     `koanf:"jira"`
	Toggl    TogglConfig    `koanf:"toggl"`
	Output   OutputConfig   `koanf:"output"`
	Log      LogConfig      `koanf:"log"`
}

type WakatimeConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	// Author limits commits to one author.
	Author string `koanf:"author"`
	// Projects limits the projects read when no project is given.
	Projects []string `koanf:"projects"`
}

type GitConfig struct {
	// Repos maps project names to local repository paths.
	Repos              map[string]string `koanf:"repos"`
	MaxGapMinutes      int               `koanf:"max_gap_minutes"`
	FirstCommitMinutes int               `koanf:"first_commit_minutes"`
}

type JiraConfig struct {
	BaseURL       string   `koanf:"base_url"`
	Email         string   `koanf:"email"`
	Token         string   `koanf:"token"`
	Keys          []string `koanf:"keys"`
	TicketPattern string   `koanf:"ticket_pattern"`
}

type TogglConfig struct {
	APIToken    string           `koanf:"api_token"`
	BaseURL     string           `koanf:"base_url"`
	WorkspaceID int64            `koanf:"workspace_id"`
	Projects    map[string]int64 `koanf:"projects"`
	StartHour   int              `koanf:"start_hour"`
	Tags        []string         `koanf:"tags"`
}

type OutputConfig struct {
	Format    string `koanf:"format"` // text, markdown, json, yaml
	Color     bool   `koanf:"color"`
	Directory string `koanf:"directory"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Git: GitConfig{
			Repos:              map[string]string{},
			MaxGapMinutes:      120,
			FirstCommitMinutes: 30,
		},
		Toggl: TogglConfig{
			StartHour: 9,
			Tags:      []string{"devtimer"},
		},
		Output: OutputConfig{
			Format:    "text",
			Color:     true,
			Directory: "reports",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads a TOML, YAML or JSON config file over the defaults and applies
// environment overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when given, otherwise the first config file found
// in the standard locations, otherwise the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	for _, candidate := range searchPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
	}

	cfg := DefaultConfig()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func searchPaths() []string {
	names := []string{
		"devtimer.toml",
		"devtimer.yaml",
		"devtimer.yml",
		"devtimer.json",
		".devtimer.toml",
		".devtimer.yaml",
		".devtimer.yml",
		".devtimer.json",
	}

	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "devtimer"))
	}

	var paths []string
	for _, dir := range dirs {
		for _, name := range names {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

func (c *Config) applyEnv() error {
	c.Wakatime.APIKey = getEnvOrDefault("WAKATIME_API_KEY", c.Wakatime.APIKey)
	c.Toggl.APIToken = getEnvOrDefault("TOGGL_API_TOKEN", c.Toggl.APIToken)
	c.Jira.BaseURL = getEnvOrDefault("JIRA_BASE_URL", c.Jira.BaseURL)
	c.Jira.Email = getEnvOrDefault("JIRA_EMAIL", c.Jira.Email)
	c.Jira.Token = getEnvOrDefault("JIRA_TOKEN", c.Jira.Token)
	c.Output.Directory = getEnvOrDefault("OUTPUT_DIR", c.Output.Directory)

	if ws := os.Getenv("TOGGL_WORKSPACE_ID"); ws != "" {
		id, err := strconv.ParseInt(ws, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TOGGL_WORKSPACE_ID %q: %w", ws, err)
		}
		c.Toggl.WorkspaceID = id
	}

	if keys := os.Getenv("JIRA_KEYS"); keys != "" {
		c.Jira.Keys = nil
		for _, k := range strings.Split(keys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				c.Jira.Keys = append(c.Jira.Keys, k)
			}
		}
	}
	return nil
}

// Validate checks that a run has something to read and, when exporting,
// somewhere to write.
func (c *Config) Validate(export bool) error {
	if c.Wakatime.APIKey == "" && len(c.Git.Repos) == 0 {
		return ErrNoSources
	}

	if export {
		if c.Toggl.APIToken == "" {
			return fmt.Errorf("export requested but TOGGL_API_TOKEN missing")
		}
		if c.Toggl.WorkspaceID == 0 {
			return fmt.Errorf("export requested but TOGGL_WORKSPACE_ID missing")
		}
	}

	if c.Toggl.StartHour < 0 || c.Toggl.StartHour > 23 {
		return fmt.Errorf("toggl.start_hour must be between 0 and 23, got %d", c.Toggl.StartHour)
	}

	return nil
}

// JiraEnabled reports whether ticket summaries can be looked up.
func (c *Config) JiraEnabled() bool {
	return c.Jira.BaseURL != "" && c.Jira.Token != ""
}

// TicketMatcher builds the matcher described by the jira section.
func (c *Config) TicketMatcher() (*report.TicketMatcher, error) {
	if c.Jira.TicketPattern != "" {
		return report.NewTicketMatcherPattern(c.Jira.TicketPattern)
	}
	return report.NewTicketMatcher(c.Jira.Keys...), nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
