// Package config loads the run configuration from defaults, an optional
// YAML file, a .env file and CHANGELOGGING_ environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/git-pkgs/changelogging/client"
	"github.com/git-pkgs/changelogging/internal/parser"
	"github.com/git-pkgs/changelogging/internal/scanner"
)

const (
	EnvPrefix      = "CHANGELOGGING"
	ConfigName     = ".changelogging"
	DefaultEnvFile = ".env"
)

// ErrInvalid is wrapped by every load and validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	InputPath   string `mapstructure:"input_path"`
	UpdatesPath string `mapstructure:"updates_path"`
	OutputPath  string `mapstructure:"output_path"`

	Concurrency      int    `mapstructure:"concurrency"`
	RequestTimeoutMS int    `mapstructure:"request_timeout_ms"`
	RegistryURL      string `mapstructure:"registry_url"`
	RegistryToken    string `mapstructure:"registry_token"`
	MaxRetries       int    `mapstructure:"max_retries"`
	RetryDelayMS     int    `mapstructure:"retry_delay_ms"`
	BreakerThreshold int    `mapstructure:"breaker_threshold"`
	GitHubOnly       bool   `mapstructure:"github_only"`

	LeadingBlocks  int `mapstructure:"leading_blocks"`
	TrailingBlocks int `mapstructure:"trailing_blocks"`

	ScanCommand string `mapstructure:"scan_command"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// SetDefaults registers every key with its default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input_path", "input.json")
	v.SetDefault("updates_path", "updates.txt")
	v.SetDefault("output_path", "data.json")
	v.SetDefault("concurrency", 8)
	v.SetDefault("request_timeout_ms", 10000)
	v.SetDefault("registry_url", client.DefaultRegistryURL)
	v.SetDefault("registry_token", "")
	v.SetDefault("max_retries", 2)
	v.SetDefault("retry_delay_ms", 500)
	v.SetDefault("breaker_threshold", 5)
	v.SetDefault("github_only", false)
	v.SetDefault("leading_blocks", parser.DefaultLeadingBlocks)
	v.SetDefault("trailing_blocks", parser.DefaultTrailingBlocks)
	v.SetDefault("scan_command", scanner.DefaultCommand)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads the configuration into v and returns the validated result.
// cfgFile names an explicit config file; when empty, .changelogging.yaml is
// looked up in the working directory and may be absent. Flags bound to v
// before Load take precedence over everything else.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if err := godotenv.Load(DefaultEnvFile); err != nil {
		logger.Debugf("No %s file loaded: %v", DefaultEnvFile, err)
	}

	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(ConfigName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: reading config file: %v", ErrInvalid, err)
		}
	} else {
		logger.Debugf("Using config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every value and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string

	for key, path := range map[string]string{
		"input_path":   c.InputPath,
		"updates_path": c.UpdatesPath,
		"output_path":  c.OutputPath,
	} {
		if strings.TrimSpace(path) == "" {
			problems = append(problems, key+" must not be empty")
		}
	}

	if c.Concurrency < 1 {
		problems = append(problems, fmt.Sprintf("concurrency must be positive, got: %d", c.Concurrency))
	}
	if c.RequestTimeoutMS <= 0 {
		problems = append(problems, fmt.Sprintf("request_timeout_ms must be positive, got: %d", c.RequestTimeoutMS))
	}
	if c.MaxRetries < 0 {
		problems = append(problems, fmt.Sprintf("max_retries must not be negative, got: %d", c.MaxRetries))
	}
	if c.RetryDelayMS < 0 {
		problems = append(problems, fmt.Sprintf("retry_delay_ms must not be negative, got: %d", c.RetryDelayMS))
	}
	if c.BreakerThreshold < 1 {
		problems = append(problems, fmt.Sprintf("breaker_threshold must be positive, got: %d", c.BreakerThreshold))
	}
	if c.LeadingBlocks < 0 || c.TrailingBlocks < 0 {
		problems = append(problems, fmt.Sprintf("leading_blocks and trailing_blocks must not be negative, got: %d/%d", c.LeadingBlocks, c.TrailingBlocks))
	}

	if u, err := url.Parse(c.RegistryURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("registry_url must be an absolute http(s) URL, got: %q", c.RegistryURL))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("log_level: %v", err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("log_format must be text or json, got: %q", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrInvalid, strings.Join(problems, "\n  "))
	}
	return nil
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMS) * time.Millisecond
}

// ConfigureLogging applies the log level and format to the standard logger.
// verbose forces the debug level.
func (c *Config) ConfigureLogging(verbose bool) {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		level = logger.InfoLevel
	}
	if verbose {
		level = logger.DebugLevel
	}
	logger.SetLevel(level)

	if c.LogFormat == "json" {
		logger.SetFormatter(&logger.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}
