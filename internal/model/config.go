package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// DSN is a file path for sqlite or a connection string for postgres.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	TokenTTL time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// AuthConfig holds token signing settings. SigningKey may be left empty and
// supplied through the environment or the system keyring instead.
type AuthConfig struct {
	SigningKey string `mapstructure:"signing_key" yaml:"signing_key"`
}

// AttachmentConfig controls where uploaded files are kept.
type AttachmentConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir"`
	MaxBytes int64  `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// SeedConfig describes the bootstrap administrator account.
type SeedConfig struct {
	AdminEmail    string `mapstructure:"admin_email" yaml:"admin_email"`
	AdminName     string `mapstructure:"admin_name" yaml:"admin_name"`
	AdminPassword string `mapstructure:"admin_password" yaml:"admin_password"`
}

// NotifyConfig holds settings for delivering assignment notices to an
// IMAP mailbox.
type NotifyConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Host            string `mapstructure:"host" yaml:"host"`
	Port            string `mapstructure:"port" yaml:"port"`
	Username        string `mapstructure:"username" yaml:"username"`
	Password        string `mapstructure:"password" yaml:"password"`
	TLS             bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox         string `mapstructure:"mailbox" yaml:"mailbox"`
	From            string `mapstructure:"from" yaml:"from"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database    DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Server      ServerConfig     `mapstructure:"server" yaml:"server"`
	Auth        AuthConfig       `mapstructure:"auth" yaml:"auth"`
	Attachments AttachmentConfig `mapstructure:"attachments" yaml:"attachments"`
	Seed        SeedConfig       `mapstructure:"seed" yaml:"seed"`
	Notify      NotifyConfig     `mapstructure:"notify" yaml:"notify"`
	Log         LogConfig        `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/tasktracker/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "tasktracker", "config.yaml")
}

// defaultDataDir returns the directory holding the database and attachments.
func defaultDataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "tasktracker")
}

// DefaultAppConfig returns the built-in configuration, ignoring files and
// environment.
func DefaultAppConfig() *AppConfig {
	dataDir := defaultDataDir()
	return &AppConfig{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(dataDir, "tasktracker.db"),
		},
		Server: ServerConfig{
			Addr:     ":8080",
			TokenTTL: 72 * time.Hour,
		},
		Attachments: AttachmentConfig{
			Dir:      filepath.Join(dataDir, "attachments"),
			MaxBytes: 10 << 20,
		},
		Seed: SeedConfig{
			AdminEmail: "admin@tasktracker.com",
			AdminName:  "System Administrator",
		},
		Notify: NotifyConfig{
			Port:            "993",
			TLS:             true,
			Mailbox:         "Task Notices",
			From:            "tasktracker@localhost",
			PollIntervalSec: 60,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// setDefaults mirrors DefaultAppConfig so missing keys resolve to sensible
// values and environment overrides are visible to Unmarshal.
func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.token_ttl", d.Server.TokenTTL)
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("attachments.dir", d.Attachments.Dir)
	v.SetDefault("attachments.max_bytes", d.Attachments.MaxBytes)
	v.SetDefault("seed.admin_email", d.Seed.AdminEmail)
	v.SetDefault("seed.admin_name", d.Seed.AdminName)
	v.SetDefault("seed.admin_password", "")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.host", "")
	v.SetDefault("notify.port", d.Notify.Port)
	v.SetDefault("notify.username", "")
	v.SetDefault("notify.password", "")
	v.SetDefault("notify.tls", d.Notify.TLS)
	v.SetDefault("notify.mailbox", d.Notify.Mailbox)
	v.SetDefault("notify.from", d.Notify.From)
	v.SetDefault("notify.poll_interval_sec", d.Notify.PollIntervalSec)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", "")
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Values may be overridden with TASKTRACKER_* environment variables
// (e.g. TASKTRACKER_DATABASE_DSN). If the file does not exist, defaults are
// used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("tasktracker")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultAppConfig()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Notify.PollIntervalSec <= 0 {
		cfg.Notify.PollIntervalSec = 60
	}
	if cfg.Server.TokenTTL <= 0 {
		cfg.Server.TokenTTL = 72 * time.Hour
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("server", map[string]any{
		"addr":      cfg.Server.Addr,
		"token_ttl": cfg.Server.TokenTTL.String(),
	})
	v.Set("auth", cfg.Auth)
	v.Set("attachments", cfg.Attachments)
	v.Set("seed", cfg.Seed)
	v.Set("notify", cfg.Notify)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
