// Package app wires configuration, storage, the conversation engine and the
// Telegram transport into a runnable bot.
package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/assocbot/core/config"
	coredatabase "github.com/m3rciful/assocbot/core/database"
	"github.com/m3rciful/assocbot/internal/domain"
	"github.com/m3rciful/assocbot/internal/uploads"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER" validate:"oneof=postgres memory"`
}

// UploadsConfig bounds and places received files.
type UploadsConfig struct {
	Dir            string `yaml:"dir" envconfig:"UPLOADS_DIR"`
	MaxBytes       int64  `yaml:"max_bytes" envconfig:"UPLOADS_MAX_BYTES" validate:"gt=0"`
	PosterMaxBytes int64  `yaml:"poster_max_bytes" envconfig:"UPLOADS_POSTER_MAX_BYTES" validate:"gt=0"`
}

// RegistrationConfig holds defaults for new events.
type RegistrationConfig struct {
	SingleRegistrationDefault *bool `yaml:"single_registration_default" envconfig:"REGISTRATION_SINGLE_DEFAULT"`
}

// NotifyConfig holds the initial state of the admin notification toggles.
// Stored settings win over these.
type NotifyConfig struct {
	NewRegistration *bool `yaml:"new_registration"`
	NewMembership   *bool `yaml:"new_membership"`
	NewIdea         *bool `yaml:"new_idea"`
	NewCollab       *bool `yaml:"new_collab"`
	NewDonation     *bool `yaml:"new_donation"`
	NewTicket       *bool `yaml:"new_ticket"`
}

// WatcherConfig controls the deadline watcher.
type WatcherConfig struct {
	Interval time.Duration `yaml:"interval" envconfig:"WATCHER_INTERVAL" validate:"gte=1s"`
}

// HealthConfig controls the HTTP health listener. An empty Listen disables it.
type HealthConfig struct {
	Listen string `yaml:"listen" envconfig:"HEALTH_LISTEN" validate:"omitempty,hostname_port"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database     coredatabase.Config `yaml:"database"`
	Storage      StorageConfig       `yaml:"storage"`
	Uploads      UploadsConfig       `yaml:"uploads"`
	Registration RegistrationConfig  `yaml:"registration"`
	Notify       NotifyConfig        `yaml:"notify"`
	Watcher      WatcherConfig       `yaml:"watcher"`
	Health       HealthConfig        `yaml:"health"`
}

// CoreConfig exposes the transport and logging part.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// SingleDefault reports the single-registration flag given to new events.
func (c *Config) SingleDefault() bool {
	if c.Registration.SingleRegistrationDefault == nil {
		return true
	}
	return *c.Registration.SingleRegistrationDefault
}

// NotifyDefaults maps each notification key to its initial state.
func (c *Config) NotifyDefaults() map[string]bool {
	flag := func(v *bool) bool { return v == nil || *v }
	return map[string]bool{
		domain.NotifyRegistration: flag(c.Notify.NewRegistration),
		domain.NotifyMembership:   flag(c.Notify.NewMembership),
		domain.NotifyIdea:         flag(c.Notify.NewIdea),
		domain.NotifyCollab:       flag(c.Notify.NewCollab),
		domain.NotifyDonation:     flag(c.Notify.NewDonation),
		domain.NotifyTicket:       flag(c.Notify.NewTicket),
	}
}

// LoadConfig reads path, overlays the environment, fills defaults and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize applies defaults and validates every section.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverPostgres
	}
	if c.Storage.Driver == DriverPostgres {
		c.Database.Normalize()
	}
	if c.Uploads.Dir == "" {
		c.Uploads.Dir = "uploads"
	}
	if c.Uploads.MaxBytes == 0 {
		c.Uploads.MaxBytes = uploads.DefaultMaxBytes
	}
	if c.Uploads.PosterMaxBytes == 0 {
		c.Uploads.PosterMaxBytes = uploads.PosterMaxBytes
	}
	if c.Watcher.Interval == 0 {
		c.Watcher.Interval = 60 * time.Second
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	for _, section := range []any{c.Storage, c.Uploads, c.Watcher, c.Health} {
		if err := v.Struct(section); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}
