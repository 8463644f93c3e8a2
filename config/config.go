// Package config loads server configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file, a .env file,
// then COLLECTIONS_* environment variables. A .env file never overrides a
// variable already set in the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Notify    NotifyConfig    `yaml:"notify"`
}

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port" validate:"min=1,max=65535"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type StoreConfig struct {
	Driver    string          `yaml:"driver" validate:"oneof=memory sqlite firestore"`
	Path      string          `yaml:"path" validate:"required_if=Driver sqlite"`
	Firestore FirestoreConfig `yaml:"firestore"`
}

type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	Collection      string `yaml:"collection"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

type SchedulerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Spec      string `yaml:"spec" validate:"required"` // six fields, seconds first
	CutoffDay int    `yaml:"cutoff_day" validate:"min=1,max=28"`
	Timezone  string `yaml:"timezone"`
}

type NotifyConfig struct {
	SendGridAPIKey string   `yaml:"sendgrid_api_key"`
	FromEmail      string   `yaml:"from_email" validate:"omitempty,email"`
	FromName       string   `yaml:"from_name"`
	To             []string `yaml:"to" validate:"dive,email"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "./data/collections.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Scheduler: SchedulerConfig{
			Enabled:   true,
			Spec:      "0 0 8 * * *",
			CutoffDay: 16,
			Timezone:  "UTC",
		},
		Notify: NotifyConfig{
			FromName: "Collections",
		},
	}
}

// Load builds the configuration. path names the YAML file; when empty,
// COLLECTIONS_CONFIG_PATH is used, and when that is unset no file is read.
// envFiles default to ".env"; missing ones are skipped.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if path == "" {
		path = os.Getenv("COLLECTIONS_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Location resolves the scheduler timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Scheduler.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Scheduler.Timezone)
}

// Validate checks field constraints and the timezone.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: scheduler timezone: %w", err)
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"COLLECTIONS_SERVER_HOST":           &cfg.Server.Host,
		"COLLECTIONS_STORE_DRIVER":          &cfg.Store.Driver,
		"COLLECTIONS_DB_PATH":               &cfg.Store.Path,
		"COLLECTIONS_FIRESTORE_PROJECT_ID":  &cfg.Store.Firestore.ProjectID,
		"COLLECTIONS_FIRESTORE_CREDENTIALS": &cfg.Store.Firestore.CredentialsFile,
		"COLLECTIONS_FIRESTORE_COLLECTION":  &cfg.Store.Firestore.Collection,
		"COLLECTIONS_LOG_LEVEL":             &cfg.Log.Level,
		"COLLECTIONS_LOG_FORMAT":            &cfg.Log.Format,
		"COLLECTIONS_SCHEDULE":              &cfg.Scheduler.Spec,
		"COLLECTIONS_TIMEZONE":              &cfg.Scheduler.Timezone,
		"SENDGRID_API_KEY":                  &cfg.Notify.SendGridAPIKey,
		"COLLECTIONS_DIGEST_FROM":           &cfg.Notify.FromEmail,
		"COLLECTIONS_DIGEST_FROM_NAME":      &cfg.Notify.FromName,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"COLLECTIONS_SERVER_PORT": &cfg.Server.Port,
		"COLLECTIONS_CUTOFF_DAY":  &cfg.Scheduler.CutoffDay,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}

	if v := os.Getenv("COLLECTIONS_SCHEDULER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid COLLECTIONS_SCHEDULER_ENABLED: %w", err)
		}
		cfg.Scheduler.Enabled = enabled
	}

	lists := map[string]*[]string{
		"COLLECTIONS_DIGEST_TO":    &cfg.Notify.To,
		"COLLECTIONS_CORS_ORIGINS": &cfg.Server.CORSOrigins,
	}
	for key, dst := range lists {
		if v := os.Getenv(key); v != "" {
			*dst = splitList(v)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
