package reminder_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"email-reminder/ledger"
	"email-reminder/reminder"
	"email-reminder/reminder/mocks"
)

var (
	now    = time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)
	sender = reminder.Sender{Name: "Rafal", Email: "rafal@books.pl"}
)

func hiring(id int64, name, email string, due time.Time) ledger.Hiring {
	return ledger.Hiring{
		ID:      id,
		User:    ledger.User{Name: name, Email: email},
		Book:    ledger.Book{Title: "Dune", Author: "Herbert"},
		DueDate: due,
	}
}

func TestDispatcher_SendReminders(t *testing.T) {
	t.Parallel()
	overdue := now.Add(-48 * time.Hour)
	upcoming := now.Add(48 * time.Hour)
	errSMTP := errors.New("smtp: 421 service not available")

	type mockBehavior func(m *mocks.MockMailer)

	tests := []struct {
		name         string
		hirings      []ledger.Hiring
		mockBehavior mockBehavior
		want         []reminder.Status
	}{
		{
			name:    "ok",
			hirings: []ledger.Hiring{hiring(1, "Ann", "ann@x.pl", overdue)},
			mockBehavior: func(m *mocks.MockMailer) {
				m.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
			},
			want: []reminder.Status{reminder.StatusSent},
		},
		{
			name:         "not overdue",
			hirings:      []ledger.Hiring{hiring(1, "Ann", "ann@x.pl", upcoming)},
			mockBehavior: func(m *mocks.MockMailer) {},
			want:         nil,
		},
		{
			name:         "invalid email",
			hirings:      []ledger.Hiring{hiring(1, "Bob", "bob@nowhere", overdue)},
			mockBehavior: func(m *mocks.MockMailer) {},
			want:         []reminder.Status{reminder.StatusSkippedInvalidEmail},
		},
		{
			name: "failure does not abort batch",
			hirings: []ledger.Hiring{
				hiring(1, "Ann", "ann@x.pl", overdue),
				hiring(2, "Bob", "bob", overdue),
				hiring(3, "Cid", "cid@mail.com", overdue),
				hiring(4, "Dan", "dan@mail.com", upcoming),
			},
			mockBehavior: func(m *mocks.MockMailer) {
				gomock.InOrder(
					m.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errSMTP),
					m.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil),
				)
			},
			want: []reminder.Status{
				reminder.StatusFailed,
				reminder.StatusSkippedInvalidEmail,
				reminder.StatusSent,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()

			mailer := mocks.NewMockMailer(c)
			tt.mockBehavior(mailer)
			src := mocks.NewMockHiringSource(c)
			src.EXPECT().GetAllHirings(gomock.Any()).Return(tt.hirings, nil)

			d := reminder.NewDispatcher(mailer, sender, zap.NewNop(),
				reminder.WithClock(func() time.Time { return now }))
			outcomes, err := d.SendReminders(context.Background(), src)
			require.NoError(t, err)

			var got []reminder.Status
			for _, o := range outcomes {
				got = append(got, o.Status)
				switch o.Status {
				case reminder.StatusSent:
					require.NoError(t, o.Err)
				case reminder.StatusSkippedInvalidEmail:
					require.True(t, errors.Is(o.Err, reminder.ErrInvalidEmail))
				case reminder.StatusFailed:
					require.True(t, errors.Is(o.Err, errSMTP))
				}
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDispatcher_SourceError(t *testing.T) {
	c := gomock.NewController(t)
	defer c.Finish()

	src := mocks.NewMockHiringSource(c)
	src.EXPECT().GetAllHirings(gomock.Any()).Return(nil, errors.New("disk I/O error"))

	d := reminder.NewDispatcher(mocks.NewMockMailer(c), sender, zap.NewNop())
	_, err := d.SendReminders(context.Background(), src)
	require.Error(t, err)
}

func TestDispatcher_CancelledContext(t *testing.T) {
	c := gomock.NewController(t)
	defer c.Finish()

	src := mocks.NewMockHiringSource(c)
	src.EXPECT().GetAllHirings(gomock.Any()).
		Return([]ledger.Hiring{hiring(1, "Ann", "ann@x.pl", now.Add(-time.Hour))}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := reminder.NewDispatcher(mocks.NewMockMailer(c), sender, zap.NewNop(),
		reminder.WithClock(func() time.Time { return now }))
	_, err := d.SendReminders(ctx, src)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDispatcher_EndToEnd(t *testing.T) {
	ctx := context.Background()
	mgr, err := ledger.NewLedgerManager(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer mgr.Close()

	_, _, err = mgr.AddBook(ctx, "Dune", "Herbert")
	require.NoError(t, err)
	_, _, err = mgr.AddUser(ctx, "Ann", "ann@x.pl")
	require.NoError(t, err)
	yesterday := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	added, err := mgr.AddHiring(ctx,
		ledger.User{Name: "Ann", Email: "ann@x.pl"},
		ledger.Book{Title: "Dune", Author: "Herbert"},
		yesterday)
	require.NoError(t, err)
	require.True(t, added)

	hirings, err := mgr.GetAllHirings(ctx)
	require.NoError(t, err)
	require.Len(t, hirings, 1)
	require.True(t, hirings[0].IsOverdue())
	require.True(t, hirings[0].User.IsValidEmail())

	c := gomock.NewController(t)
	defer c.Finish()
	mailer := mocks.NewMockMailer(c)
	var sent reminder.Message
	mailer.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msg reminder.Message) error {
			sent = msg
			return nil
		})

	outcomes, err := reminder.NewDispatcher(mailer, sender, zap.NewNop()).SendReminders(ctx, mgr.Database())
	require.NoError(t, err)
	require.Equal(t, reminder.Summary{Sent: 1}, reminder.Summarize(outcomes))
	require.Equal(t, "ann@x.pl", sent.To)
	require.Contains(t, sent.Body, yesterday.Format(reminder.DueDateLayout))
}
