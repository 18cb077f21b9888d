package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"email-reminder/ledger"
	"email-reminder/reminder"
)

const dueDateInputLayout = "2006-01-02"

type remindFunc func(ctx context.Context) ([]reminder.Outcome, error)

// menu is the interactive text interface over the ledger.
type menu struct {
	sc     *bufio.Scanner
	out    io.Writer
	mgr    *ledger.LedgerManager
	remind remindFunc
}

func newMenu(in io.Reader, out io.Writer, mgr *ledger.LedgerManager, remind remindFunc) *menu {
	return &menu{
		sc:     bufio.NewScanner(in),
		out:    out,
		mgr:    mgr,
		remind: remind,
	}
}

func (m *menu) run(ctx context.Context) error {
	fmt.Fprintln(m.out, "Welcome to the book lending manager!")
	fmt.Fprintln(m.out, "Available options:")
	fmt.Fprintln(m.out, "  1 - list borrowers")
	fmt.Fprintln(m.out, "  2 - list books")
	fmt.Fprintln(m.out, "  3 - list hirings")
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  4 - add borrower")
	fmt.Fprintln(m.out, "  5 - add book")
	fmt.Fprintln(m.out, "  6 - add hiring")
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  7 - email reminders for overdue books")
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  0 - exit")

	for {
		fmt.Fprint(m.out, "\n> ")
		if !m.sc.Scan() {
			return m.sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		switch strings.TrimSpace(m.sc.Text()) {
		case "1":
			m.report(printUsers(ctx, m.out, m.mgr))
		case "2":
			m.report(printBooks(ctx, m.out, m.mgr))
		case "3":
			m.report(printHirings(ctx, m.out, m.mgr))
		case "4":
			m.handleAddUser(ctx)
		case "5":
			m.handleAddBook(ctx)
		case "6":
			m.handleAddHiring(ctx)
		case "7":
			m.handleSendReminders(ctx)
		case "0", "exit":
			fmt.Fprintln(m.out, "Goodbye!")
			return nil
		default:
			fmt.Fprintln(m.out, "Unknown option. Pick one of the numbers listed above.")
		}
	}
}

func (m *menu) report(err error) {
	if err != nil {
		fmt.Fprintf(m.out, "Error: %v\n", err)
	}
}

// prompt prints label and reads one trimmed line; false on end of input.
func (m *menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.sc.Text()), true
}

// choose reads a number in [0, n], asking again on anything else.
func (m *menu) choose(n int, label string) (int, bool) {
	for {
		s, ok := m.prompt(label)
		if !ok {
			return 0, false
		}
		choice, err := strconv.Atoi(s)
		if err == nil && choice >= 0 && choice <= n {
			return choice, true
		}
		fmt.Fprintln(m.out, "!!! Wrong value !!!")
	}
}

func (m *menu) handleAddUser(ctx context.Context) {
	name, ok := m.prompt("Name: ")
	if !ok {
		return
	}
	email, ok := m.prompt("Email: ")
	if !ok {
		return
	}

	id, created, err := m.mgr.AddUser(ctx, name, email)
	switch {
	case err != nil:
		fmt.Fprintf(m.out, "Error adding borrower: %v\n", err)
	case created:
		fmt.Fprintf(m.out, "Added borrower '%s' with ID %d\n", name, id)
	default:
		fmt.Fprintf(m.out, "Borrower '%s' already exists (ID %d)\n", name, id)
	}
}

func (m *menu) handleAddBook(ctx context.Context) {
	title, ok := m.prompt("Title: ")
	if !ok {
		return
	}
	author, ok := m.prompt("Author: ")
	if !ok {
		return
	}

	id, created, err := m.mgr.AddBook(ctx, title, author)
	switch {
	case err != nil:
		fmt.Fprintf(m.out, "Error adding book: %v\n", err)
	case created:
		fmt.Fprintf(m.out, "Added book ID %d\n", id)
	default:
		fmt.Fprintf(m.out, "Book already exists (ID %d)\n", id)
	}
}

func (m *menu) handleAddHiring(ctx context.Context) {
	fmt.Fprintln(m.out, "Borrower:")
	user, ok := m.pickUser(ctx)
	if !ok {
		return
	}
	fmt.Fprintln(m.out, "Book:")
	book, ok := m.pickBook(ctx)
	if !ok {
		return
	}

	var due time.Time
	for {
		s, ok := m.prompt("Due date (YYYY-MM-DD): ")
		if !ok {
			return
		}
		d, err := time.ParseInLocation(dueDateInputLayout, s, time.Local)
		if err == nil {
			due = d
			break
		}
		fmt.Fprintf(m.out, "Invalid date: %s\n", s)
	}

	added, err := m.mgr.AddHiring(ctx, user, book, due)
	switch {
	case err != nil:
		fmt.Fprintf(m.out, "Error adding hiring: %v\n", err)
	case added:
		fmt.Fprintf(m.out, "%s borrowed %s until %s\n", user.Name, book, due.Format(dueDateInputLayout))
	default:
		fmt.Fprintf(m.out, "%s already has %s\n", user.Name, book)
	}
}

// pickUser searches borrowers by name and lets the caller pick one or
// describe a new one; AddHiring creates new borrowers on its own.
func (m *menu) pickUser(ctx context.Context) (ledger.User, bool) {
	name, ok := m.prompt("Name: ")
	if !ok {
		return ledger.User{}, false
	}
	users, err := m.mgr.FindUsers(ctx, name)
	if err != nil {
		fmt.Fprintf(m.out, "Error: %v\n", err)
		return ledger.User{}, false
	}

	switch len(users) {
	case 0:
	case 1:
		fmt.Fprintf(m.out, "Borrower: %s\n", users[0])
		return users[0], true
	default:
		fmt.Fprintf(m.out, "Found %d borrowers whose name contains '%s':\n", len(users), name)
		for i, u := range users {
			fmt.Fprintf(m.out, "%3d. %s\n", i+1, u)
		}
		choice, ok := m.choose(len(users), "Pick a borrower (0 to add a new one): ")
		if !ok {
			return ledger.User{}, false
		}
		if choice > 0 {
			return users[choice-1], true
		}
		if name, ok = m.prompt("Name: "); !ok {
			return ledger.User{}, false
		}
	}

	email, ok := m.prompt("Email: ")
	if !ok {
		return ledger.User{}, false
	}
	return ledger.User{Name: name, Email: email}, true
}

func (m *menu) pickBook(ctx context.Context) (ledger.Book, bool) {
	title, ok := m.prompt("Title: ")
	if !ok {
		return ledger.Book{}, false
	}
	books, err := m.mgr.FindBooks(ctx, title)
	if err != nil {
		fmt.Fprintf(m.out, "Error: %v\n", err)
		return ledger.Book{}, false
	}

	if len(books) == 0 {
		fmt.Fprintln(m.out, "No book with a similar title, it will be added.")
	} else {
		fmt.Fprintf(m.out, "Found %d book(s) whose title contains '%s':\n", len(books), title)
		for i, b := range books {
			fmt.Fprintf(m.out, "%3d. %s\n", i+1, b)
		}
		choice, ok := m.choose(len(books), "Pick a book (0 to add a new one): ")
		if !ok {
			return ledger.Book{}, false
		}
		if choice > 0 {
			return books[choice-1], true
		}
		if title, ok = m.prompt("Title: "); !ok {
			return ledger.Book{}, false
		}
	}

	author, ok := m.prompt("Author: ")
	if !ok {
		return ledger.Book{}, false
	}
	return ledger.Book{Title: title, Author: author}, true
}

func (m *menu) handleSendReminders(ctx context.Context) {
	fmt.Fprintln(m.out, "Sending reminder emails...")
	outcomes, err := m.remind(ctx)
	if err != nil {
		fmt.Fprintf(m.out, "Error: %v\n", err)
		return
	}
	printOutcomes(m.out, outcomes)
}

func printUsers(ctx context.Context, w io.Writer, mgr *ledger.LedgerManager) error {
	users, err := mgr.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(w, "No borrowers registered.")
		return nil
	}
	fmt.Fprintf(w, "%-5s %-25s %-30s\n", "ID", "Name", "Email")
	fmt.Fprintln(w, strings.Repeat("-", 62))
	for _, u := range users {
		fmt.Fprintln(w, ledger.PrettyUser(u))
	}
	return nil
}

func printBooks(ctx context.Context, w io.Writer, mgr *ledger.LedgerManager) error {
	books, err := mgr.GetAllBooks(ctx)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in the ledger.")
		return nil
	}
	fmt.Fprintf(w, "%-5s %-30s %-25s\n", "ID", "Title", "Author")
	fmt.Fprintln(w, strings.Repeat("-", 62))
	for _, b := range books {
		fmt.Fprintln(w, ledger.PrettyBook(b))
	}
	return nil
}

func printHirings(ctx context.Context, w io.Writer, mgr *ledger.LedgerManager) error {
	hirings, err := mgr.GetAllHirings(ctx)
	if err != nil {
		return err
	}
	if len(hirings) == 0 {
		fmt.Fprintln(w, "No hirings recorded.")
		return nil
	}
	now := time.Now()
	writeHirings(w, hirings, now)

	overdue, err := mgr.OverdueHirings(ctx, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d of %d hiring(s) overdue\n", len(overdue), len(hirings))
	return nil
}

func printOverdue(ctx context.Context, w io.Writer, mgr *ledger.LedgerManager) error {
	now := time.Now()
	overdue, err := mgr.OverdueHirings(ctx, now)
	if err != nil {
		return err
	}
	if len(overdue) == 0 {
		fmt.Fprintln(w, "No overdue hirings.")
		return nil
	}
	writeHirings(w, overdue, now)
	return nil
}

func writeHirings(w io.Writer, hirings []ledger.Hiring, now time.Time) {
	fmt.Fprintf(w, "%-30s %-25s %-20s %-10s\n", "Title", "Author", "Borrower", "Due")
	fmt.Fprintln(w, strings.Repeat("-", 98))
	for _, h := range hirings {
		fmt.Fprintln(w, ledger.PrettyHiring(h, now))
	}
}
