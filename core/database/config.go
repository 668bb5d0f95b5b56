package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds Postgres connection settings.
type Config struct {
	Host           string        `yaml:"host" envconfig:"DB_HOST"`
	Port           string        `yaml:"port" envconfig:"DB_PORT"`
	User           string        `yaml:"user" envconfig:"DB_USER"`
	Password       string        `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string        `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string        `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int           `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"DB_CONNECT_TIMEOUT"`
	// MigrationsDir defaults to ./migrations relative to the working directory.
	MigrationsDir string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Normalize fills defaults.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Port) == "" {
		c.Port = "5432"
	}
	if strings.TrimSpace(c.SSLMode) == "" {
		c.SSLMode = "disable"
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}

// DSN returns the lib/pq keyword form.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.User, quoteDSN(c.Password), c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// URL returns the postgres:// form used by migrate.
func (c Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
