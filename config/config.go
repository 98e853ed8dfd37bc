// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the service reads at startup.
type Config struct {
	AppName  string `env:"APP_NAME" envDefault:"estatedesk"`
	Addr     string `env:"APP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Timezone string `env:"TIMEZONE" envDefault:"Local"`

	SecretKey    string        `env:"SECRET_KEY,required,notEmpty"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
	RedisURL     string        `env:"REDIS_URL"`

	// AuthBackend selects the identity store: "static" uses StaffUsers,
	// "database" uses the staff_users table.
	AuthBackend string `env:"AUTH_BACKEND" envDefault:"static"`
	StaffUsers  string `env:"STAFF_USERS"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      int    `env:"DB_PORT" envDefault:"5432"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME"`
	DBSSLMode   string `env:"DB_SSLMODE" envDefault:"disable"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`

	Mail Mail
}

// Mail mirrors the SMTP settings used for sale notifications.
type Mail struct {
	Server     string   `env:"MAIL_SERVER"`
	Port       int      `env:"MAIL_PORT" envDefault:"587"`
	UseTLS     bool     `env:"MAIL_USE_TLS" envDefault:"true"`
	UseSSL     bool     `env:"MAIL_USE_SSL" envDefault:"false"`
	Username   string   `env:"MAIL_USERNAME"`
	Password   string   `env:"MAIL_PASSWORD"`
	Sender     string   `env:"MAIL_DEFAULT_SENDER"`
	Recipients []string `env:"MAIL_RECIPIENTS" envSeparator:","`
}

// Load reads .env (when present) and then parses the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.AuthBackend = strings.ToLower(strings.TrimSpace(cfg.AuthBackend))
	if cfg.AuthBackend != "static" && cfg.AuthBackend != "database" {
		return Config{}, fmt.Errorf("config: unknown AUTH_BACKEND %q", cfg.AuthBackend)
	}
	if _, err := loadLocation(cfg.Timezone); err != nil {
		return Config{}, fmt.Errorf("config: invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	if cfg.Mail.Sender == "" {
		cfg.Mail.Sender = cfg.Mail.Username
	}
	if len(cfg.Mail.Recipients) == 0 && cfg.Mail.Sender != "" {
		cfg.Mail.Recipients = []string{cfg.Mail.Sender}
	}
	return cfg, nil
}

// DatabaseDSN prefers DATABASE_URL and otherwise assembles a postgres URL from
// the DB_* parts.
func (c Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.DBName == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": []string{c.DBSSLMode}}.Encode(),
	}
	if c.DBUser != "" {
		if c.DBPassword != "" {
			u.User = url.UserPassword(c.DBUser, c.DBPassword)
		} else {
			u.User = url.User(c.DBUser)
		}
	}
	return u.String()
}

// Location resolves Timezone. Load and LoadFrom reject zones that do not
// resolve, so the local fallback only serves hand-built configs.
func (c Config) Location() *time.Location {
	loc, err := loadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
