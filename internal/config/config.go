// Package config loads the server configuration from environment variables.
//
// LOADING ORDER:
//  1. If ENV=dev or DOTENV=1, a .env file in the working directory is loaded
//     with godotenv. Variables already set in the environment win.
//  2. Every setting is read with getEnv*, falling back to a default.
//  3. Validate() reports the first missing or out-of-range value.
//
// The signing secret and teacher registration code have no defaults: the
// server refuses to start without them.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	Database DatabaseConfig
	Auth     AuthConfig
	Log      LogConfig

	WelcomeMessage string
	AutoMigrate    bool
}

type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"
	Path   string // SQLite file

	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret       string
	Issuer          string
	TokenTTL        time.Duration
	TeacherAuthCode string
	BcryptCost      int
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// Load reads the configuration. It never fails; problems surface in Validate.
func Load() Config {
	if os.Getenv("ENV") == "dev" || os.Getenv("DOTENV") == "1" {
		// A missing .env is fine in dev; the defaults still apply.
		_ = godotenv.Load()
	}

	return Config{
		Port: getEnvInt("PORT", 8080),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			Path:     getEnv("DB_PATH", "data/school.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "school"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "school"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			Issuer:          getEnv("JWT_ISSUER", "school-backend"),
			TokenTTL:        getEnvDuration("TOKEN_TTL", 30*time.Minute),
			TeacherAuthCode: getEnv("TEACHER_AUTH_CODE", ""),
			BcryptCost:      getEnvInt("BCRYPT_COST", 12),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
		WelcomeMessage: getEnv("WELCOME_MESSAGE", ""),
		AutoMigrate:    getEnvBool("AUTO_MIGRATE", true),
	}
}

// Validate checks the values Load could not default sensibly.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not sqlite or postgres", c.Database.Driver))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 16 characters"))
	}
	if c.Auth.TeacherAuthCode == "" {
		errs = append(errs, errors.New("TEACHER_AUTH_CODE must be set"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be a positive duration"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not text or json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// DSN returns the data source name for Database.Driver: the file path for
// SQLite, a postgres:// URL otherwise.
func (d DatabaseConfig) DSN() string {
	if d.Driver != "postgres" {
		return d.Path
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		User:   url.UserPassword(d.User, d.Password),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// NewLogger builds the process logger described by c.
func (c LogConfig) NewLogger() *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q is not debug, info, warn or error", s)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns defaultValue when key is unset or not an integer.
func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(strings.TrimSpace(valueStr)); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(strings.TrimSpace(valueStr)); err == nil {
			return value
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30m", "1h") and bare integers,
// which are read as minutes.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueStr = strings.TrimSpace(valueStr)
	if minutes, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	return defaultValue
}
