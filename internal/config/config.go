package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/felixbrock/promptstudio/internal/diff"
)

const EnvPrefix = "PROMPTSTUDIO"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Completion CompletionConfig `mapstructure:"completion"`
	History    HistoryConfig    `mapstructure:"history"`
	Limits     LimitsConfig     `mapstructure:"limits"`
	Rate       RateConfig       `mapstructure:"rate"`
	Diff       DiffConfig       `mapstructure:"diff"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
}

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	StaticDir string `mapstructure:"static_dir"`
}

type LogConfig struct {
	// Mode is dev or prod.
	Mode string `mapstructure:"mode"`
}

type CompletionConfig struct {
	// Provider is gemini, openai or none.
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float64       `mapstructure:"temperature"`
	TopK        float64       `mapstructure:"top_k"`
	TopP        float64       `mapstructure:"top_p"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type HistoryConfig struct {
	// Backend is memory, file, sqlite or redis.
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	RedisAddr  string `mapstructure:"redis_addr"`
	Key        string `mapstructure:"key"`
	MaxEntries int    `mapstructure:"max_entries"`
}

type LimitsConfig struct {
	MaxPromptLength       int `mapstructure:"max_prompt_length"`
	MaxFieldLength        int `mapstructure:"max_field_length"`
	MaxInstructionsLength int `mapstructure:"max_instructions_length"`
}

// RateConfig throttles optimize requests per client. PerSecond 0 disables it.
type RateConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

type DiffConfig struct {
	Mode string `mapstructure:"mode"`
}

type AnalyticsConfig struct {
	PosthogKey string `mapstructure:"posthog_key"`
}

// ArchiveConfig points at a PostgREST endpoint that receives every finished
// optimization. An empty URL disables the archive.
type ArchiveConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8000, StaticDir: "static"},
		Log:    LogConfig{Mode: "dev"},
		Completion: CompletionConfig{
			Provider:    "gemini",
			Temperature: 0.7,
			TopK:        40,
			TopP:        0.95,
			Timeout:     60 * time.Second,
		},
		History: HistoryConfig{
			Backend:    "memory",
			Path:       "data",
			Key:        "optimizerHistory",
			MaxEntries: 20,
		},
		Limits: LimitsConfig{
			MaxPromptLength:       50000,
			MaxFieldLength:        10000,
			MaxInstructionsLength: 2000,
		},
		Rate: RateConfig{PerSecond: 1, Burst: 5},
		Diff: DiffConfig{Mode: string(diff.ModeGreedy)},
	}
}

func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.static_dir", defaults.Server.StaticDir)

	v.SetDefault("log.mode", defaults.Log.Mode)

	v.SetDefault("completion.provider", defaults.Completion.Provider)
	v.SetDefault("completion.model", defaults.Completion.Model)
	v.SetDefault("completion.api_key", defaults.Completion.APIKey)
	v.SetDefault("completion.temperature", defaults.Completion.Temperature)
	v.SetDefault("completion.top_k", defaults.Completion.TopK)
	v.SetDefault("completion.top_p", defaults.Completion.TopP)
	v.SetDefault("completion.timeout", defaults.Completion.Timeout)

	v.SetDefault("history.backend", defaults.History.Backend)
	v.SetDefault("history.path", defaults.History.Path)
	v.SetDefault("history.redis_addr", defaults.History.RedisAddr)
	v.SetDefault("history.key", defaults.History.Key)
	v.SetDefault("history.max_entries", defaults.History.MaxEntries)

	v.SetDefault("limits.max_prompt_length", defaults.Limits.MaxPromptLength)
	v.SetDefault("limits.max_field_length", defaults.Limits.MaxFieldLength)
	v.SetDefault("limits.max_instructions_length", defaults.Limits.MaxInstructionsLength)

	v.SetDefault("rate.per_second", defaults.Rate.PerSecond)
	v.SetDefault("rate.burst", defaults.Rate.Burst)

	v.SetDefault("diff.mode", defaults.Diff.Mode)

	v.SetDefault("analytics.posthog_key", defaults.Analytics.PosthogKey)
	v.SetDefault("archive.url", defaults.Archive.URL)
	v.SetDefault("archive.api_key", defaults.Archive.APIKey)
}

// New returns a viper instance with defaults and environment bindings. The
// older GOPORT and OAI_API_KEY variables are still read.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "GOPORT")
	_ = v.BindEnv("completion.api_key", EnvPrefix+"_COMPLETION_API_KEY", "OAI_API_KEY")

	return v
}

// Load reads the optional config file at path on top of defaults and
// environment, then validates the result.
func Load(path string) (*Config, error) {
	v := New()

	if path != "" {
		v.SetConfigFile(path)

		err := v.ReadInConfig()

		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}
	oneOf := func(field, value string, allowed ...string) {
		if !slices.Contains(allowed, strings.ToLower(value)) {
			add(field, value, "must be one of "+strings.Join(allowed, ", "))
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", c.Server.Port, "must be between 1 and 65535")
	}

	oneOf("log.mode", c.Log.Mode, "dev", "development", "prod", "production")
	oneOf("completion.provider", c.Completion.Provider, "gemini", "openai", "none")

	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		add("completion.temperature", c.Completion.Temperature, "must be between 0 and 2")
	}
	if c.Completion.TopP < 0 || c.Completion.TopP > 1 {
		add("completion.top_p", c.Completion.TopP, "must be between 0 and 1")
	}
	if c.Completion.TopK < 0 {
		add("completion.top_k", c.Completion.TopK, "must not be negative")
	}
	if c.Completion.Timeout <= 0 {
		add("completion.timeout", c.Completion.Timeout, "must be positive")
	}

	oneOf("history.backend", c.History.Backend, "memory", "file", "sqlite", "redis")
	switch strings.ToLower(c.History.Backend) {
	case "file", "sqlite":
		if c.History.Path == "" {
			add("history.path", c.History.Path, "is required for the "+c.History.Backend+" backend")
		}
	case "redis":
		if c.History.RedisAddr == "" {
			add("history.redis_addr", c.History.RedisAddr, "is required for the redis backend")
		}
	}
	if c.History.MaxEntries < 1 {
		add("history.max_entries", c.History.MaxEntries, "must be at least 1")
	}

	if c.Limits.MaxPromptLength < 1 {
		add("limits.max_prompt_length", c.Limits.MaxPromptLength, "must be at least 1")
	}
	if c.Limits.MaxFieldLength < 1 {
		add("limits.max_field_length", c.Limits.MaxFieldLength, "must be at least 1")
	}
	if c.Limits.MaxInstructionsLength < 1 {
		add("limits.max_instructions_length", c.Limits.MaxInstructionsLength, "must be at least 1")
	}

	if c.Rate.PerSecond < 0 {
		add("rate.per_second", c.Rate.PerSecond, "must not be negative")
	}
	if c.Rate.Burst < 1 {
		add("rate.burst", c.Rate.Burst, "must be at least 1")
	}

	if _, err := diff.ParseMode(c.Diff.Mode); err != nil {
		add("diff.mode", c.Diff.Mode, err.Error())
	}

	if c.Archive.URL != "" && c.Archive.APIKey == "" {
		add("archive.api_key", "", "is required when archive.url is set")
	}

	return errs
}
