package config

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"email-reminder/logger"
	"email-reminder/mailer"
	"email-reminder/reminder"
)

type Sender struct {
	Name  string `envconfig:"SENDER_NAME"`
	Email string `envconfig:"SENDER_EMAIL"`
}

type Config struct {
	DatabasePath string `envconfig:"LEDGER_DB" default:"database.db"`
	Sender       Sender
	SMTP         mailer.Config
	Log          logger.Log
}

// ReminderSender is the identity reminder emails are signed with.
func (c Config) ReminderSender() reminder.Sender {
	return reminder.Sender{Name: c.Sender.Name, Email: c.Sender.Email}
}

// NewConfig reads config from environment. Options run after the
// environment so they act as command-line overrides.
func NewConfig(ops ...Option) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process env")
	}
	for _, op := range ops {
		op(&cfg)
	}
	return &cfg, nil
}

// CanSend reports whether enough SMTP settings are present to try delivery.
func (c Config) CanSend() error {
	switch {
	case c.SMTP.Host == "":
		return errors.New("SMTP_SERVER is not set")
	case c.Sender.Email == "":
		return errors.New("SENDER_EMAIL is not set")
	}
	return nil
}
