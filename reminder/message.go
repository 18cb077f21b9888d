package reminder

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"email-reminder/ledger"
)

// DueDateLayout is how due dates appear in reminder emails.
const DueDateLayout = "02.01.2006"

// Sender is the identity reminders are sent from.
type Sender struct {
	Name  string
	Email string
}

// Message is one rendered reminder, ready for a Mailer.
type Message struct {
	FromName string
	From     string
	ToName   string
	To       string
	Subject  string
	Body     string
}

const defaultSubject = "Time to return my book"

var bodyTemplate = template.Must(template.New("reminder").Parse(`Hi {{.User.Name}}!

You may have missed it, but on {{.DueDate}} you were supposed to return my book "{{.Book.Title}}" by {{.Book.Author}}.

I'd be grateful to have it back.

Best regards,
{{.Sender.Name}}
`))

type bodyData struct {
	Sender  Sender
	User    ledger.User
	Book    ledger.Book
	DueDate string
}

// Render builds the reminder for h.
func Render(sender Sender, h ledger.Hiring) (Message, error) {
	var body strings.Builder
	err := bodyTemplate.Execute(&body, bodyData{
		Sender:  sender,
		User:    h.User,
		Book:    h.Book,
		DueDate: h.DueDate.Format(DueDateLayout),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "render reminder")
	}
	return Message{
		FromName: sender.Name,
		From:     sender.Email,
		ToName:   h.User.Name,
		To:       h.User.Email,
		Subject:  defaultSubject,
		Body:     body.String(),
	}, nil
}
