package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Book is a lendable book. Identity in the database is the surrogate ID;
// two books are the same record when Title and Author match exactly.
type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title" validate:"required"`
	Author    string    `json:"author" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}

func (b Book) String() string {
	return fmt.Sprintf("%s: %q", b.Author, b.Title)
}

// User is a borrower.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required"`
	Email     string    `json:"email" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) String() string {
	return fmt.Sprintf("%s (%s)", u.Name, u.Email)
}

// IsValidEmail is a heuristic, not RFC 5322: the address must contain '@'
// and a '.' three or four characters from the end ("x@abc.pl", "x@mail.com").
func (u User) IsValidEmail() bool {
	if !strings.Contains(u.Email, "@") {
		return false
	}
	n := len(u.Email)
	for _, i := range []int{n - 4, n - 3} {
		if i >= 0 && u.Email[i] == '.' {
			return true
		}
	}
	return false
}

// Hiring is a single loan of Book to User that should come back by DueDate.
// User and Book are value copies, not references to shared records.
type Hiring struct {
	ID        int64     `json:"id"`
	User      User      `json:"user"`
	Book      Book      `json:"book"`
	DueDate   time.Time `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
}

// IsOverdue reports whether the due date has passed.
func (h Hiring) IsOverdue() bool { return h.IsOverdueAt(time.Now()) }

// IsOverdueAt reports whether now is strictly after the due date.
func (h Hiring) IsOverdueAt(now time.Time) bool { return now.After(h.DueDate) }
