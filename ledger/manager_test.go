package ledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *LedgerManager {
	dir := t.TempDir()
	mgr, err := NewLedgerManager(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("mgr: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestManagerAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	id, created, err := mgr.AddBook(ctx, "Dune", "Herbert")
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := mgr.AddBook(ctx, " Dune ", "Herbert")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, id, again)

	uid, created, err := mgr.AddUser(ctx, "Ann", "ann@x.pl")
	require.NoError(t, err)
	require.True(t, created)
	uagain, created, err := mgr.AddUser(ctx, "Ann", "ann@x.pl")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, uid, uagain)

	// Same name, different address is another borrower.
	_, created, err = mgr.AddUser(ctx, "Ann", "ann@other.pl")
	require.NoError(t, err)
	require.True(t, created)
}

func TestAddBooksFromFile(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)
	_, _, err := mgr.AddBook(ctx, "Solaris", "Lem")
	require.NoError(t, err)

	tmp := filepath.Join(t.TempDir(), "books.csv")
	data := "title,author\nDune,Frank Herbert\nSolaris,Lem\n\"Quoted, Title\",Someone\nbroken\n"
	if err := os.WriteFile(tmp, []byte(data), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	report, err := mgr.AddBooksFromFile(ctx, tmp)
	require.NoError(t, err)
	require.Equal(t, 2, report.Added)
	require.Equal(t, 1, report.Skipped)
	require.Len(t, report.Errors, 1)

	books, err := mgr.FindBooks(ctx, "Quoted")
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, "Quoted, Title", books[0].Title)
}

func TestAddBooksFromReaderWithoutHeader(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)

	report, err := mgr.AddBooksFromReader(ctx, strings.NewReader("Dune,Herbert\n"))
	require.NoError(t, err)
	require.Equal(t, 1, report.Added)
}

func TestOverdueHirings(t *testing.T) {
	ctx := context.Background()
	mgr := newManager(t)
	now := time.Now()

	ann := User{Name: "Ann", Email: "ann@x.pl"}
	_, err := mgr.AddHiring(ctx, ann, Book{Title: "Dune", Author: "Herbert"}, now.Add(-24*time.Hour))
	require.NoError(t, err)
	_, err = mgr.AddHiring(ctx, ann, Book{Title: "Solaris", Author: "Lem"}, now.Add(24*time.Hour))
	require.NoError(t, err)

	overdue, err := mgr.OverdueHirings(ctx, now)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	require.Equal(t, "Dune", overdue[0].Book.Title)
	require.Contains(t, PrettyHiring(overdue[0], now), "OVERDUE")

	users, err := mgr.FindUsers(ctx, "An")
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestPrettyTruncatesOnRunes(t *testing.T) {
	b := Book{ID: 1, Title: strings.Repeat("x", 26) + strings.Repeat("ł", 10), Author: "Żeromski"}
	line := PrettyBook(b)
	require.True(t, utf8.ValidString(line), "%q", line)
	require.Contains(t, line, strings.Repeat("x", 26)+"ł...")
	require.Contains(t, line, "Żeromski")
}

func TestPrettyTruncates(t *testing.T) {
	b := Book{ID: 7, Title: strings.Repeat("x", 40), Author: "Herbert"}
	line := PrettyBook(b)
	require.Contains(t, line, strings.Repeat("x", 27)+"...")
	require.NotContains(t, line, strings.Repeat("x", 28))
}
