package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewConfigDefaults(t *testing.T) {
	for _, k := range []string{"LEDGER_DB", "LOG_LEVEL", "SMTP_PORT", "SMTP_TIMEOUT", "SMTP_SERVER", "SENDER_EMAIL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := NewConfig()
	require.NoError(t, err)
	require.Equal(t, "database.db", cfg.DatabasePath)
	require.Equal(t, zapcore.InfoLevel, cfg.Log.Level)
	require.Equal(t, 465, cfg.SMTP.Port)
	require.Equal(t, 15*time.Second, cfg.SMTP.Timeout)
	require.Error(t, cfg.CanSend())
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("LEDGER_DB", "/tmp/ledger.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SENDER_NAME", "Rafal")
	t.Setenv("SENDER_EMAIL", "rafal@books.pl")
	t.Setenv("SMTP_SERVER", "smtp.books.pl")
	t.Setenv("SMTP_PORT", "2465")

	cfg, err := NewConfig(WithLogLevel(zapcore.WarnLevel), WithDatabasePath(""))
	require.NoError(t, err)
	require.Equal(t, "/tmp/ledger.db", cfg.DatabasePath)
	require.Equal(t, zapcore.WarnLevel, cfg.Log.Level)
	require.Equal(t, "smtp.books.pl", cfg.SMTP.Host)
	require.Equal(t, 2465, cfg.SMTP.Port)
	require.Equal(t, "rafal@books.pl", cfg.SMTP.Username)
	require.Equal(t, "Rafal", cfg.ReminderSender().Name)
	require.Equal(t, "rafal@books.pl", cfg.ReminderSender().Email)
	require.NoError(t, cfg.CanSend())

	cfg, err = NewConfig(WithDatabasePath("other.db"))
	require.NoError(t, err)
	require.Equal(t, "other.db", cfg.DatabasePath)
}

func TestLoadEnvFile(t *testing.T) {
	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))

	t.Setenv("SENDER_NAME", "From Env")
	t.Setenv("SMTP_PASSWORD", "")
	os.Unsetenv("SMTP_PASSWORD")
	t.Cleanup(func() { os.Unsetenv("SMTP_PASSWORD") })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SENDER_NAME=From File\nSMTP_PASSWORD=secret\n"), 0o600))
	require.NoError(t, LoadEnvFile(path))

	require.Equal(t, "From Env", os.Getenv("SENDER_NAME"))
	require.Equal(t, "secret", os.Getenv("SMTP_PASSWORD"))
}
