package config

import (
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

type Option func(*Config)

func WithDatabasePath(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.DatabasePath = path
		}
	}
}

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) { c.Log.Level = level }
}

func WithSMTPPassword(password string) Option {
	return func(c *Config) { c.SMTP.Password = password }
}

// LoadEnvFile loads KEY=value pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
