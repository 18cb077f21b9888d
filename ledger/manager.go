package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// LedgerManager is a thin façade over the Database, keeping CLI code simple.
type LedgerManager struct {
	db *Database
}

// NewLedgerManager opens (or creates) the SQLite database at dbPath.
func NewLedgerManager(dbPath string, opts ...Option) (*LedgerManager, error) {
	db, err := NewDatabase(dbPath, opts...)
	if err != nil {
		return nil, err
	}
	return &LedgerManager{db: db}, nil
}

// Close closes the underlying database.
func (lm *LedgerManager) Close() error { return lm.db.Close() }

// Database exposes the store for components that read it directly.
func (lm *LedgerManager) Database() *Database { return lm.db }

// ------------------ Book helpers ------------------

// AddBook inserts the book unless an identical one exists. created is false
// when the existing id is returned.
func (lm *LedgerManager) AddBook(ctx context.Context, title, author string) (id int64, created bool, err error) {
	b := Book{Title: strings.TrimSpace(title), Author: strings.TrimSpace(author)}
	id, found, err := lm.db.bookID(ctx, b)
	if err != nil || found {
		return id, false, err
	}
	id, err = lm.db.AddBook(ctx, b)
	return id, err == nil, err
}

// AddBooksFromFile imports "title,author" rows from a CSV file. A header row
// whose first cell is "title" is skipped. Rows that already exist are
// counted as skipped, not as errors.
func (lm *LedgerManager) AddBooksFromFile(ctx context.Context, path string) (ImportReport, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return ImportReport{}, err
	}
	defer f.Close()
	return lm.AddBooksFromReader(ctx, f)
}

// ImportReport summarises a bulk import.
type ImportReport struct {
	Added   int
	Skipped int
	Errors  []error
}

// AddBooksFromReader is AddBooksFromFile over any reader.
func (lm *LedgerManager) AddBooksFromReader(ctx context.Context, r io.Reader) (ImportReport, error) {
	var report ImportReport
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			report.Errors = append(report.Errors, errors.Wrapf(err, "record %d", line))
			continue
		}
		if err != nil {
			return report, errors.Wrap(err, "read csv")
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "title") {
			continue
		}
		_, created, err := lm.AddBook(ctx, rec[0], rec[1])
		switch {
		case err != nil:
			report.Errors = append(report.Errors, errors.Wrapf(err, "record %d", line))
		case created:
			report.Added++
		default:
			report.Skipped++
		}
	}
	return report, nil
}

func (lm *LedgerManager) GetBook(ctx context.Context, id int64) (Book, error) {
	return lm.db.GetBook(ctx, id)
}

func (lm *LedgerManager) GetAllBooks(ctx context.Context) ([]Book, error) {
	return lm.db.GetAllBooks(ctx)
}

// FindBooks returns books whose title contains query.
func (lm *LedgerManager) FindBooks(ctx context.Context, query string) ([]Book, error) {
	res, err := lm.db.GetBooksByTitle(ctx, query)
	if err != nil {
		return nil, err
	}
	return res[query], nil
}

// ------------------ User helpers ------------------

// AddUser inserts the user unless an identical one exists.
func (lm *LedgerManager) AddUser(ctx context.Context, name, email string) (id int64, created bool, err error) {
	u := User{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
	id, found, err := lm.db.userID(ctx, u)
	if err != nil || found {
		return id, false, err
	}
	id, err = lm.db.AddUser(ctx, u)
	return id, err == nil, err
}

func (lm *LedgerManager) GetUser(ctx context.Context, id int64) (User, error) {
	return lm.db.GetUser(ctx, id)
}

func (lm *LedgerManager) GetAllUsers(ctx context.Context) ([]User, error) {
	return lm.db.GetAllUsers(ctx)
}

// FindUsers returns users whose name contains query.
func (lm *LedgerManager) FindUsers(ctx context.Context, query string) ([]User, error) {
	res, err := lm.db.GetUsersByName(ctx, query)
	if err != nil {
		return nil, err
	}
	return res[query], nil
}

// ------------------ Hirings ------------------

// AddHiring lends book to user until due. added is false when that user
// already has that book.
func (lm *LedgerManager) AddHiring(ctx context.Context, user User, book Book, due time.Time) (added bool, err error) {
	return lm.db.AddHiring(ctx, Hiring{User: user, Book: book, DueDate: due})
}

func (lm *LedgerManager) GetAllHirings(ctx context.Context) ([]Hiring, error) {
	return lm.db.GetAllHirings(ctx)
}

// OverdueHirings returns the hirings whose due date is before now.
func (lm *LedgerManager) OverdueHirings(ctx context.Context, now time.Time) ([]Hiring, error) {
	all, err := lm.db.GetAllHirings(ctx)
	if err != nil {
		return nil, err
	}
	var overdue []Hiring
	for _, h := range all {
		if h.IsOverdueAt(now) {
			overdue = append(overdue, h)
		}
	}
	return overdue, nil
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b Book) string {
	return fmt.Sprintf("%-5d %-30s %-25s", b.ID, truncate(b.Title, 30), truncate(b.Author, 25))
}

// PrettyUser formats a user for lists.
func PrettyUser(u User) string {
	return fmt.Sprintf("%-5d %-25s %-30s", u.ID, truncate(u.Name, 25), truncate(u.Email, 30))
}

// PrettyHiring formats a hiring for lists, flagging overdue ones.
func PrettyHiring(h Hiring, now time.Time) string {
	flag := ""
	if h.IsOverdueAt(now) {
		flag = "OVERDUE"
	}
	return fmt.Sprintf("%-30s %-25s %-20s %-10s %s",
		truncate(h.Book.Title, 30),
		truncate(h.Book.Author, 25),
		truncate(h.User.Name, 20),
		h.DueDate.Format("2006-01-02"),
		flag)
}

// truncate cuts s to maxLen runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
