package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/magicaleks/magickey/internal/domain"
	"github.com/magicaleks/magickey/internal/infra/paths"
)

// Build-time variables injected via -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// EnvPrefix is the prefix of every environment override, e.g. MAGICKEY_DCID.
const EnvPrefix = "MAGICKEY"

// Config holds the client configuration. It is built once by Load and is
// read-only afterwards.
type Config struct {
	// AppName is used as the logger name and in diagnostics.
	AppName string `yaml:"app_name" envconfig:"APP_NAME"`

	// Version is reported in the fingerprint "version" field.
	Version string `yaml:"version" envconfig:"VERSION" validate:"required"`

	// DCID is the device-class id reported in the fingerprint "dcid" field.
	DCID string `yaml:"dcid" envconfig:"DCID"`

	// IPCheckURL returns the public address of this host. Empty disables the
	// network identity lookup.
	IPCheckURL string `yaml:"ipcheck_url" envconfig:"IPCHECK_URL" validate:"omitempty,url"`

	// ProxyCheckURL is the proxy/risk service base; the address is appended.
	ProxyCheckURL string `yaml:"proxycheck_url" envconfig:"PROXYCHECK_URL" validate:"omitempty,url"`

	// ActivationURL receives the encrypted fingerprint.
	ActivationURL string `yaml:"activation_url" envconfig:"ACTIVATION_URL" validate:"required,url"`

	// LoginBaseURL is the destination handed to the browser with the token.
	LoginBaseURL string `yaml:"login_base_url" envconfig:"LOGIN_BASE_URL" validate:"required,url"`

	// UserAgent is the client identity sent with every request.
	UserAgent string `yaml:"user_agent" envconfig:"USER_AGENT" validate:"required"`

	// PublicKeyPEM and PublicKeyFile are the two ways to supply the
	// activation public key. Exactly one must be set.
	PublicKeyPEM  string `yaml:"public_key_pem" envconfig:"PUBLIC_KEY_PEM" validate:"required_without=PublicKeyFile,excluded_with=PublicKeyFile"`
	PublicKeyFile string `yaml:"public_key_file" envconfig:"PUBLIC_KEY_FILE" validate:"required_without=PublicKeyPEM"`

	// LogDir additionally writes logs to <LogDir>/<name>.log when set.
	LogDir string `yaml:"log_dir" envconfig:"LOG_DIR"`

	Debug DebugConfig `yaml:"debug" envconfig:"DEBUG"`
}

// DebugConfig gates diagnostic output. Identifiers, fingerprints and
// ciphertext are never logged unless the matching flag is on.
type DebugConfig struct {
	Enabled            bool `yaml:"enabled" envconfig:"ENABLED"`
	LogSystemInfo      bool `yaml:"log_system_info" envconfig:"LOG_SYSTEM_INFO"`
	LogServerResponses bool `yaml:"log_server_responses" envconfig:"LOG_SERVER_RESPONSES"`
	LogEncryptedData   bool `yaml:"log_encrypted_data" envconfig:"LOG_ENCRYPTED_DATA"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		AppName:       "magickey",
		Version:       Version,
		ProxyCheckURL: "https://proxycheck.io/v2/",
		UserAgent:     "magickey/" + Version,
	}
}

// Override adjusts a Config during Load, after the file and environment
// have been applied and before validation.
type Override func(*Config)

// WithDebug turns debug logging on.
func WithDebug() Override {
	return func(c *Config) { c.Debug.Enabled = true }
}

// Load applies, in order: defaults, the YAML file at path (skipped when path
// is empty), MAGICKEY_* environment overrides, then overrides. The result is
// validated and must not be modified afterwards.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	for _, o := range overrides {
		o(cfg)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) normalize() {
	c.ActivationURL = strings.TrimSpace(c.ActivationURL)
	c.LoginBaseURL = strings.TrimSpace(c.LoginBaseURL)
	c.IPCheckURL = strings.TrimSpace(c.IPCheckURL)
	c.ProxyCheckURL = strings.TrimSpace(c.ProxyCheckURL)
	c.PublicKeyFile = strings.TrimSpace(c.PublicKeyFile)
	if strings.TrimSpace(c.PublicKeyPEM) == "" {
		c.PublicKeyPEM = ""
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required fields and URL formats.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// StaticFields returns the fingerprint fields taken from configuration.
func (c *Config) StaticFields() domain.StaticFields {
	return domain.StaticFields{DCID: c.DCID, Version: c.Version}
}

// Redacted returns a copy safe to print: inline key material is elided.
func (c *Config) Redacted() Config {
	out := *c
	if out.PublicKeyPEM != "" {
		out.PublicKeyPEM = fmt.Sprintf("<inline, %d bytes>", len(c.PublicKeyPEM))
	}
	return out
}

// Dump renders the redacted configuration as YAML.
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.Redacted()); err != nil {
		return err
	}
	return enc.Close()
}

// NewLogger creates a structured logger writing JSON to stderr and, when
// LogDir is set, to <LogDir>/<name>.log as well. When LogDir is not writable
// the file goes under ~/.<app_name>. The returned func closes the log file.
func NewLogger(cfg *Config, name string) (*slog.Logger, func() error, error) {
	var (
		out      io.Writer = os.Stderr
		closeFn            = func() error { return nil }
		logPath  string
		fellBack bool
	)

	if cfg.LogDir != "" {
		var err error
		logPath, fellBack, err = paths.Resolve(cfg.AppName, cfg.LogDir, name+".log")
		if err != nil {
			return nil, nil, err
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", logPath, err)
		}
		out = io.MultiWriter(os.Stderr, file)
		closeFn = file.Close
	}

	level := slog.LevelInfo
	if cfg.Debug.Enabled {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	if fellBack {
		logger.Warn("log dir unavailable, using fallback", "log_dir", cfg.LogDir, "path", logPath)
	}
	return logger, closeFn, nil
}
