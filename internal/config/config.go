// Package config loads engine settings: built-in defaults, then an optional
// YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"

	DriverSQLite = "sqlite"
	DriverMemory = "memory"

	DefaultMusicEndpoint = "https://us-central1-llama-hack.cloudfunctions.net/generate-music"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Game    GameConfig    `yaml:"game"`
	Music   MusicConfig   `yaml:"music"`
	Action  ActionConfig  `yaml:"action"`
	Model   ModelConfig   `yaml:"model"`
	Agent   AgentConfig   `yaml:"agent"`
	Task    TaskConfig    `yaml:"task"`
	Worker  WorkerConfig  `yaml:"worker"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type GameConfig struct {
	Description string `yaml:"description"`
}

type MusicConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type ActionConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	OAuth2         OAuth2Config  `yaml:"oauth2"`
}

// OAuth2Config enables client-credentials auth for the game action API.
type OAuth2Config struct {
	TokenURL     string   `yaml:"token_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

// Enabled reports whether enough settings are present to fetch tokens.
func (o OAuth2Config) Enabled() bool {
	return o.TokenURL != "" && o.ClientID != ""
}

type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
}

// AgentConfig holds the agent persona. Text fields may reference
// {game_state}, {game_description} and {current_strudel_code}.
type AgentConfig struct {
	Role        string `yaml:"role"`
	Goal        string `yaml:"goal"`
	Backstory   string `yaml:"backstory"`
	MaxIter     int    `yaml:"max_iter"`
	InjectDate  bool   `yaml:"inject_date"`
	CaptureExpr string `yaml:"capture_expr"`
}

type TaskConfig struct {
	Description    string `yaml:"description"`
	ExpectedOutput string `yaml:"expected_output"`
}

type WorkerConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	cfg.resolveModel()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
	default:
		return fmt.Errorf("config: unknown model provider %q", c.Model.Provider)
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("config: storage.path is required for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	if c.Agent.MaxIter <= 0 {
		return fmt.Errorf("config: agent.max_iter must be positive, got %d", c.Agent.MaxIter)
	}
	if c.Music.Timeout <= 0 {
		return errors.New("config: music.timeout must be positive")
	}
	if c.Action.DefaultTimeout <= 0 {
		return errors.New("config: action.default_timeout must be positive")
	}
	if strings.TrimSpace(c.Task.Description) == "" {
		return errors.New("config: task.description cannot be empty")
	}
	if c.Worker.Workers < 1 || c.Worker.QueueSize < 1 {
		return errors.New("config: worker.workers and worker.queue_size must be at least 1")
	}
	return nil
}

func (c *Config) resolveModel() {
	if c.Model.Name == "" {
		c.Model.Name = defaultModelName(c.Model.Provider)
	}
	if c.Model.APIKey == "" {
		switch c.Model.Provider {
		case ProviderOpenAI:
			c.Model.APIKey = os.Getenv("OPENAI_API_KEY")
		case ProviderAnthropic:
			c.Model.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if c.Model.Provider == ProviderOllama && c.Model.BaseURL == "" {
		c.Model.BaseURL = os.Getenv("OLLAMA_HOST")
	}
}

func defaultModelName(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "claude-sonnet-4-20250514"
	case ProviderOllama:
		return "llama3.1:8b"
	default:
		return "gpt-4.1"
	}
}

func applyEnv(c *Config) {
	setString(&c.Server.Addr, "TROUBADOR_ADDR")
	setString(&c.Storage.Driver, "TROUBADOR_STORAGE_DRIVER")
	setString(&c.Storage.Path, "TROUBADOR_DB_PATH")
	setString(&c.Log.Level, "TROUBADOR_LOG_LEVEL")
	setString(&c.Log.Format, "TROUBADOR_LOG_FORMAT")
	setString(&c.Game.Description, "TROUBADOR_GAME_DESCRIPTION")
	setString(&c.Music.Endpoint, "TROUBADOR_MUSIC_ENDPOINT")
	setString(&c.Model.Provider, "TROUBADOR_MODEL_PROVIDER")
	setString(&c.Model.Name, "TROUBADOR_MODEL")
	setString(&c.Action.OAuth2.ClientSecret, "TROUBADOR_ACTION_CLIENT_SECRET")

	if raw := os.Getenv("TROUBADOR_MAX_ITER"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			c.Agent.MaxIter = parsed
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
