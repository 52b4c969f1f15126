// Package config loads application configuration from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Prefix is prepended to every environment variable name.
const Prefix = "PYAUTOFIX_"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR,default=0.0.0.0:8080"`
	Env        string `env:"ENV,default=production"`
	LogLevel   string `env:"LOG_LEVEL,default=info"`
	LogFormat  string `env:"LOG_FORMAT,default=text"`

	AppID          int64  `env:"APP_ID"`
	PrivateKey     string `env:"PRIVATE_KEY"`
	PrivateKeyPath string `env:"PRIVATE_KEY_PATH"`
	WebhookSecret  string `env:"WEBHOOK_SECRET"`
	GitHubAPIURL   string `env:"GITHUB_API_URL"`
	GitHubHost     string `env:"GITHUB_HOST,default=github.com"`

	DBPath string `env:"DB_PATH,default=pyautofix.db"`

	ProInstallations []int64 `env:"PRO_INSTALLATIONS"`
	PlansFile        string  `env:"PLANS_FILE"`
	PlanOverride     string  `env:"PLAN_OVERRIDE"`

	RuffBin        string        `env:"RUFF_BIN,default=ruff"`
	IsortBin       string        `env:"ISORT_BIN,default=isort"`
	PipBin         string        `env:"PIP_BIN,default=pip"`
	CommandTimeout time.Duration `env:"COMMAND_TIMEOUT,default=5m"`
	WorkDir        string        `env:"WORK_DIR"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=2m"`

	CommitAuthorName  string `env:"COMMIT_AUTHOR_NAME,default=pyautofix[bot]"`
	CommitAuthorEmail string `env:"COMMIT_AUTHOR_EMAIL,default=pyautofix[bot]@users.noreply.github.com"`

	TroubleshootingURL string `env:"TROUBLESHOOTING_URL,default=https://github.com/ericfisherdev/pyautofix#troubleshooting"`
}

// IsTest reports whether the process runs in the test environment, the only
// one in which the plan override is honored.
func (c *Config) IsTest() bool {
	return c.Env == "test"
}

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through lookuper, so tests can supply a map.
// Required for serving: PYAUTOFIX_APP_ID, PYAUTOFIX_WEBHOOK_SECRET and one of
// PYAUTOFIX_PRIVATE_KEY or PYAUTOFIX_PRIVATE_KEY_PATH. Use Validate to check them.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(Prefix, lookuper),
	}); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}

	if cfg.CommandTimeout <= 0 {
		return nil, fmt.Errorf("%sCOMMAND_TIMEOUT must be positive, got %s", Prefix, cfg.CommandTimeout)
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, fmt.Errorf("%sSHUTDOWN_TIMEOUT must be positive, got %s", Prefix, cfg.ShutdownTimeout)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	return &cfg, nil
}

// Validate checks the settings the webhook server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.AppID <= 0 {
		errs = append(errs, fmt.Errorf("%sAPP_ID is required", Prefix))
	}
	if c.WebhookSecret == "" {
		errs = append(errs, fmt.Errorf("%sWEBHOOK_SECRET is required", Prefix))
	}
	if c.PrivateKey == "" && c.PrivateKeyPath == "" {
		errs = append(errs, fmt.Errorf("%sPRIVATE_KEY or %sPRIVATE_KEY_PATH is required", Prefix, Prefix))
	}
	return errors.Join(errs...)
}

// PrivateKeyPEM returns the App private key, reading it from disk when only
// a path was configured.
func (c *Config) PrivateKeyPEM() ([]byte, error) {
	if c.PrivateKey != "" {
		return []byte(strings.ReplaceAll(c.PrivateKey, `\n`, "\n")), nil
	}
	data, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	return data, nil
}
