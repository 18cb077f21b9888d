// Package reminder emails borrowers whose hirings are overdue.
package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"email-reminder/ledger"
)

//go:generate mockgen -source=dispatcher.go -destination=mocks/mock.go -package=mocks

// ErrInvalidEmail marks a hiring skipped because the borrower's address
// failed ledger.User.IsValidEmail.
var ErrInvalidEmail = errors.New("invalid email address")

// Mailer delivers one rendered message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// HiringSource lists every recorded hiring.
type HiringSource interface {
	GetAllHirings(ctx context.Context) ([]ledger.Hiring, error)
}

// Status is the result of processing one overdue hiring.
type Status int

const (
	StatusSent Status = iota
	StatusSkippedInvalidEmail
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusSkippedInvalidEmail:
		return "skipped-invalid-email"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome reports what happened to one overdue hiring.
type Outcome struct {
	Hiring ledger.Hiring
	Status Status
	Err    error
}

type Dispatcher struct {
	mailer Mailer
	sender Sender
	log    *zap.Logger
	now    func() time.Time
}

type Option func(*Dispatcher)

// WithClock replaces time.Now when deciding what is overdue.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func NewDispatcher(mailer Mailer, sender Sender, log *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		mailer: mailer,
		sender: sender,
		log:    log.Named("reminder"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendReminders sends one message per overdue hiring whose borrower has a
// valid address. Hirings that are not overdue produce no outcome. A bad
// address or a failed delivery is recorded in the outcome and the batch goes
// on; the error return is only for failing to list hirings or a cancelled ctx.
func (d *Dispatcher) SendReminders(ctx context.Context, src HiringSource) ([]Outcome, error) {
	hirings, err := src.GetAllHirings(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list hirings")
	}

	log := d.log.With(zap.String("run", uuid.NewString()))
	now := d.now()
	var outcomes []Outcome
	for _, h := range hirings {
		if !h.IsOverdueAt(now) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, d.remind(ctx, log, h))
	}

	s := Summarize(outcomes)
	log.Info("reminders processed",
		zap.Int("sent", s.Sent), zap.Int("skipped", s.Skipped), zap.Int("failed", s.Failed))
	return outcomes, nil
}

func (d *Dispatcher) remind(ctx context.Context, log *zap.Logger, h ledger.Hiring) Outcome {
	log = log.With(zap.Int64("hiring_id", h.ID), zap.String("email", h.User.Email))

	if !h.User.IsValidEmail() {
		log.Warn("skipping reminder, invalid email")
		return Outcome{
			Hiring: h,
			Status: StatusSkippedInvalidEmail,
			Err:    errors.Wrapf(ErrInvalidEmail, "%q", h.User.Email),
		}
	}

	msg, err := Render(d.sender, h)
	if err != nil {
		return Outcome{Hiring: h, Status: StatusFailed, Err: err}
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		log.Error("send reminder", zap.Error(err))
		return Outcome{Hiring: h, Status: StatusFailed, Err: err}
	}
	log.Debug("reminder sent")
	return Outcome{Hiring: h, Status: StatusSent}
}

// Summary counts outcomes per status.
type Summary struct {
	Sent    int
	Skipped int
	Failed  int
}

func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Status {
		case StatusSent:
			s.Sent++
		case StatusSkippedInvalidEmail:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
