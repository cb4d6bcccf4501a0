package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/danielpatrickdp/collapse-engine/internal/engine"
	"github.com/danielpatrickdp/collapse-engine/internal/execstub"
	"github.com/danielpatrickdp/collapse-engine/internal/logging"
)

// #region keys
// Keys double as environment variable names (upper-cased) and YAML keys.
const (
	KeyPort              = "port"
	KeyClientURL         = "client_url"
	KeyGRPCAddr          = "grpc_addr"
	KeyEnv               = "collapse_env"
	KeyJournal           = "collapse_journal"
	KeySeed              = "collapse_seed"
	KeyLogLevel          = "log_level"
	KeyLogJSON           = "log_json"
	KeyRateLimitRequests = "rate_limit_requests"
	KeyRateLimitWindow   = "rate_limit_window"
	KeyExecDelay         = "exec_delay"
	KeyMutationDelay     = "collapse_mutation_delay"
	KeyReplaceDelay      = "collapse_replace_delay"
	KeyCollapseDuration  = "collapse_duration"
	KeyCooldown          = "collapse_cooldown"
)

// #endregion keys

// #region config
// Config is the service configuration.
type Config struct {
	Port       int    `yaml:"port"`
	ClientURL  string `yaml:"client_url"`
	GRPCAddr   string `yaml:"grpc_addr"`
	Env        string `yaml:"collapse_env"`
	JournalDSN string `yaml:"collapse_journal"`
	Seed       int64  `yaml:"collapse_seed"` // 0 seeds from the clock

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	ExecDelay         time.Duration `yaml:"exec_delay"`

	MutationDelay    time.Duration `yaml:"collapse_mutation_delay"`
	ReplaceDelay     time.Duration `yaml:"collapse_replace_delay"`
	CollapseDuration time.Duration `yaml:"collapse_duration"`
	Cooldown         time.Duration `yaml:"collapse_cooldown"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	ec := engine.DefaultConfig()
	return Config{
		Port:              5000,
		ClientURL:         "http://localhost:3000",
		GRPCAddr:          ":50051",
		Env:               "development",
		JournalDSN:        ":memory:",
		LogLevel:          "info",
		RateLimitRequests: 100,
		RateLimitWindow:   15 * time.Minute,
		ExecDelay:         execstub.DefaultConfig().Delay,
		MutationDelay:     ec.MutationDelay,
		ReplaceDelay:      ec.ReplaceDelay,
		CollapseDuration:  ec.CollapseDuration,
		Cooldown:          ec.Cooldown,
	}
}

// #endregion config

// #region load
// LoadOptions names the optional files read by Load.
type LoadOptions struct {
	EnvFile    string // .env file; a missing file is not an error
	ConfigFile string // YAML file; a missing file is an error when set
}

// Load resolves the configuration. Precedence, lowest first: defaults, YAML file,
// .env file, process environment.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	}

	if opts.EnvFile != "" {
		if err := loadDotEnv(v, opts.EnvFile); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Port:              v.GetInt(KeyPort),
		ClientURL:         v.GetString(KeyClientURL),
		GRPCAddr:          v.GetString(KeyGRPCAddr),
		Env:               v.GetString(KeyEnv),
		JournalDSN:        v.GetString(KeyJournal),
		Seed:              v.GetInt64(KeySeed),
		LogLevel:          v.GetString(KeyLogLevel),
		LogJSON:           v.GetBool(KeyLogJSON),
		RateLimitRequests: v.GetInt(KeyRateLimitRequests),
		RateLimitWindow:   v.GetDuration(KeyRateLimitWindow),
		ExecDelay:         v.GetDuration(KeyExecDelay),
		MutationDelay:     v.GetDuration(KeyMutationDelay),
		ReplaceDelay:      v.GetDuration(KeyReplaceDelay),
		CollapseDuration:  v.GetDuration(KeyCollapseDuration),
		Cooldown:          v.GetDuration(KeyCooldown),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyClientURL, d.ClientURL)
	v.SetDefault(KeyGRPCAddr, d.GRPCAddr)
	v.SetDefault(KeyEnv, d.Env)
	v.SetDefault(KeyJournal, d.JournalDSN)
	v.SetDefault(KeySeed, d.Seed)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogJSON, d.LogJSON)
	v.SetDefault(KeyRateLimitRequests, d.RateLimitRequests)
	v.SetDefault(KeyRateLimitWindow, d.RateLimitWindow)
	v.SetDefault(KeyExecDelay, d.ExecDelay)
	v.SetDefault(KeyMutationDelay, d.MutationDelay)
	v.SetDefault(KeyReplaceDelay, d.ReplaceDelay)
	v.SetDefault(KeyCollapseDuration, d.CollapseDuration)
	v.SetDefault(KeyCooldown, d.Cooldown)
}

// loadDotEnv applies .env entries that the process environment does not already set.
func loadDotEnv(v *viper.Viper, path string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file %s: %w", path, err)
	}
	for key, value := range env {
		if _, set := os.LookupEnv(key); set {
			continue
		}
		v.Set(strings.ToLower(key), value)
	}
	return nil
}

// #endregion load

// #region validate
// Validate rejects values no component can run with.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("validate config: port %d out of range", c.Port)
	}
	if c.RateLimitRequests < 1 {
		return fmt.Errorf("validate config: rate limit requests must be positive, got %d", c.RateLimitRequests)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("validate config: rate limit window must be positive, got %s", c.RateLimitWindow)
	}
	if c.ExecDelay < 0 {
		return fmt.Errorf("validate config: exec delay must not be negative, got %s", c.ExecDelay)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if err := c.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

// #endregion validate

// #region derived
// EngineConfig returns the engine defaults with the configured timings.
func (c Config) EngineConfig() engine.Config {
	ec := engine.DefaultConfig()
	ec.MutationDelay = c.MutationDelay
	ec.ReplaceDelay = c.ReplaceDelay
	ec.CollapseDuration = c.CollapseDuration
	ec.Cooldown = c.Cooldown
	return ec
}

// ExecConfig returns the execution stub settings.
func (c Config) ExecConfig() execstub.Config {
	ec := execstub.DefaultConfig()
	ec.Delay = c.ExecDelay
	return ec
}

// LogOptions returns the logger settings.
func (c Config) LogOptions() logging.Options {
	return logging.Options{
		Level:       c.LogLevel,
		JSON:        c.LogJSON,
		Development: !c.IsProduction(),
	}
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HTTPAddr is the listen address for the relay.
func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// #endregion derived
