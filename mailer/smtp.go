// Package mailer delivers reminder messages over SMTP with implicit TLS.
package mailer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"email-reminder/reminder"
)

type Config struct {
	Host     string        `envconfig:"SMTP_SERVER"`
	Port     int           `envconfig:"SMTP_PORT" default:"465"`
	Username string        `envconfig:"SENDER_EMAIL"`
	Password string        `envconfig:"SMTP_PASSWORD" json:"-"`
	Timeout  time.Duration `envconfig:"SMTP_TIMEOUT" default:"15s"`
}

// SMTP implements reminder.Mailer. Every Send opens its own connection.
type SMTP struct {
	cfg Config
	log *zap.Logger
}

func New(cfg Config, log *zap.Logger) *SMTP {
	return &SMTP{cfg: cfg, log: log.Named("smtp")}
}

func (s *SMTP) Send(ctx context.Context, msg reminder.Message) error {
	m, err := buildMsg(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
	}
	if s.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.Timeout))
	}
	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return errors.Wrap(err, "smtp client")
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return errors.Wrapf(err, "send to %s", msg.To)
	}
	s.log.Debug("message delivered", zap.String("to", msg.To), zap.String("host", s.cfg.Host))
	return nil
}

func buildMsg(msg reminder.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(msg.FromName, msg.From); err != nil {
		return nil, errors.Wrap(err, "from address")
	}
	if err := m.AddToFormat(msg.ToName, msg.To); err != nil {
		return nil, errors.Wrap(err, "to address")
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}
