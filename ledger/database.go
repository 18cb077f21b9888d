package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"email-reminder/ledger/migrations"
)

// timeLayout is how every timestamp column is written.
const timeLayout = "2006-01-02 15:04:05"

const (
	booksTableName   = `books`
	usersTableName   = `users`
	hiringsTableName = `hirings`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Database owns the SQLite connection and is the only component issuing
// queries against the ledger.
type Database struct {
	db       *sqlx.DB
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time

	addBookStmt *sqlx.Stmt
	addUserStmt *sqlx.Stmt
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger; the default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(d *Database) { d.log = log }
}

// WithClock replaces time.Now for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(d *Database) { d.now = now }
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies the
// embedded migrations, and prepares the insert statements.
func NewDatabase(dbPath string, opts ...Option) (*Database, error) {
	d := &Database{
		log:      zap.NewNop(),
		validate: validator.New(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.Named("ledger")

	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create db dir")
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// One logical actor, one connection.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db.DB, d.log); err != nil {
		db.Close()
		return nil, err
	}

	d.db = db
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	d.log.Debug("database opened", zap.String("path", dbPath))
	return d, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addBookStmt != nil {
		d.addBookStmt.Close()
	}
	if d.addUserStmt != nil {
		d.addUserStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

// gooseMu guards goose's package-level base FS, logger and dialect while one
// store migrates.
var gooseMu sync.Mutex

type gooseLogger struct{ *zap.SugaredLogger }

func (l gooseLogger) Printf(format string, v ...interface{}) { l.Debugf(format, v...) }

func applyMigrations(db *sql.DB, log *zap.Logger) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return errors.Wrap(err, "enable WAL")
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.MigrationFiles)
	goose.SetLogger(gooseLogger{log.Named("migrate").Sugar()})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "goose dialect")
	}
	if err := goose.Up(db, "."); err != nil {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addBookStmt, err = d.db.Preparex(`INSERT INTO books(author,title,created_at) VALUES(?,?,?)`); err != nil {
		return errors.Wrap(err, "prepare add book")
	}
	if d.addUserStmt, err = d.db.Preparex(`INSERT INTO users(name,email,created_at) VALUES(?,?,?)`); err != nil {
		return errors.Wrap(err, "prepare add user")
	}
	return nil
}

// formatStamp writes t as local wall-clock text, the zone stamp.Scan reads
// it back in.
func formatStamp(t time.Time) string { return t.In(time.Local).Format(timeLayout) }

func (d *Database) timestamp() string { return formatStamp(d.now()) }

func insert(ctx context.Context, stmt *sqlx.Stmt, args ...interface{}) (int64, error) {
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

// stamp scans the TEXT timestamps written with timeLayout. NULL scans to the
// zero time.
type stamp struct{ time.Time }

func (s *stamp) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		s.Time = time.Time{}
		return nil
	case time.Time:
		s.Time = v
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return errors.Errorf("unsupported timestamp type %T", src)
	}
	t, err := time.ParseInLocation(timeLayout, raw, time.Local)
	if err != nil {
		return errors.Wrapf(err, "parse timestamp %q", raw)
	}
	s.Time = t
	return nil
}

type bookRow struct {
	ID        int64  `db:"id"`
	Title     string `db:"title"`
	Author    string `db:"author"`
	CreatedAt stamp  `db:"created_at"`
}

func (r bookRow) book() Book {
	return Book{ID: r.ID, Title: r.Title, Author: r.Author, CreatedAt: r.CreatedAt.Time}
}

type userRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Email     string `db:"email"`
	CreatedAt stamp  `db:"created_at"`
}

func (r userRow) user() User {
	return User{ID: r.ID, Name: r.Name, Email: r.Email, CreatedAt: r.CreatedAt.Time}
}

// hiringRow comes from an outer join, so every book and user column may be NULL.
type hiringRow struct {
	ID        int64          `db:"id"`
	CreatedAt stamp          `db:"created_at"`
	DueDate   stamp          `db:"returned_to"`
	BookID    sql.NullInt64  `db:"book_id"`
	Title     sql.NullString `db:"title"`
	Author    sql.NullString `db:"author"`
	UserID    sql.NullInt64  `db:"user_id"`
	Name      sql.NullString `db:"name"`
	Email     sql.NullString `db:"email"`
}

func (r hiringRow) hiring() Hiring {
	return Hiring{
		ID:        r.ID,
		User:      User{ID: r.UserID.Int64, Name: r.Name.String, Email: r.Email.String},
		Book:      Book{ID: r.BookID.Int64, Title: r.Title.String, Author: r.Author.String},
		DueDate:   r.DueDate.Time,
		CreatedAt: r.CreatedAt.Time,
	}
}

// ---------------------------------------------------------------------------
// Books
// ---------------------------------------------------------------------------

// AddBook inserts b unconditionally and returns its id.
func (d *Database) AddBook(ctx context.Context, b Book) (int64, error) {
	if err := d.validate.Struct(b); err != nil {
		return 0, errors.Wrap(err, "invalid book")
	}
	id, err := insert(ctx, d.addBookStmt, b.Author, b.Title, d.timestamp())
	if err != nil {
		return 0, errors.Wrap(err, "add book")
	}
	return id, nil
}

// GetAllBooks returns every book ordered by id.
func (d *Database) GetAllBooks(ctx context.Context) ([]Book, error) {
	return d.selectBooks(ctx, qb.Select("id", "title", "author", "created_at").
		From(booksTableName).
		OrderBy("id"))
}

// GetBook fetches a single book; ErrNotFound when there is no such id.
func (d *Database) GetBook(ctx context.Context, id int64) (Book, error) {
	books, err := d.GetBooksByID(ctx, id)
	if err != nil {
		return Book{}, err
	}
	return books[id], nil
}

// GetBooksByID fetches the books with the given ids in one query. When some
// ids have no row the found books are still returned, together with a
// *NotFoundError naming the missing ids.
func (d *Database) GetBooksByID(ctx context.Context, ids ...int64) (map[int64]Book, error) {
	result := make(map[int64]Book, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	books, err := d.selectBooks(ctx, qb.Select("id", "title", "author", "created_at").
		From(booksTableName).
		Where(sq.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for _, b := range books {
		result[b.ID] = b
	}
	return result, missing("book", ids, func(id int64) bool { _, ok := result[id]; return ok })
}

// GetBooksByAuthor returns, per requested author, the books whose author
// contains it.
func (d *Database) GetBooksByAuthor(ctx context.Context, authors ...string) (map[string][]Book, error) {
	return d.booksLike(ctx, "author", authors)
}

// GetBooksByTitle returns, per requested title, the books whose title
// contains it.
func (d *Database) GetBooksByTitle(ctx context.Context, titles ...string) (map[string][]Book, error) {
	return d.booksLike(ctx, "title", titles)
}

func (d *Database) booksLike(ctx context.Context, column string, keys []string) (map[string][]Book, error) {
	result := make(map[string][]Book, len(keys))
	for _, key := range keys {
		books, err := d.selectBooks(ctx, qb.Select("id", "title", "author", "created_at").
			From(booksTableName).
			Where(sq.Like{column: "%" + key + "%"}).
			OrderBy("id"))
		if err != nil {
			return nil, err
		}
		result[key] = books
	}
	return result, nil
}

func (d *Database) selectBooks(ctx context.Context, q sq.SelectBuilder) ([]Book, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	d.log.Debug("select books", zap.String("query", query), zap.Any("args", args))

	var rows []bookRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select books")
	}
	books := make([]Book, 0, len(rows))
	for _, r := range rows {
		books = append(books, r.book())
	}
	return books, nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// AddUser inserts u unconditionally and returns its id.
func (d *Database) AddUser(ctx context.Context, u User) (int64, error) {
	if err := d.validate.Struct(u); err != nil {
		return 0, errors.Wrap(err, "invalid user")
	}
	id, err := insert(ctx, d.addUserStmt, u.Name, u.Email, d.timestamp())
	if err != nil {
		return 0, errors.Wrap(err, "add user")
	}
	return id, nil
}

// GetAllUsers returns every user ordered by id.
func (d *Database) GetAllUsers(ctx context.Context) ([]User, error) {
	return d.selectUsers(ctx, qb.Select("id", "name", "email", "created_at").
		From(usersTableName).
		OrderBy("id"))
}

// GetUser fetches a single user; ErrNotFound when there is no such id.
func (d *Database) GetUser(ctx context.Context, id int64) (User, error) {
	users, err := d.GetUsersByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	return users[id], nil
}

// GetUsersByID behaves like GetBooksByID.
func (d *Database) GetUsersByID(ctx context.Context, ids ...int64) (map[int64]User, error) {
	result := make(map[int64]User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	users, err := d.selectUsers(ctx, qb.Select("id", "name", "email", "created_at").
		From(usersTableName).
		Where(sq.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, missing("user", ids, func(id int64) bool { _, ok := result[id]; return ok })
}

// GetUsersByName returns, per requested name, the users whose name contains it.
func (d *Database) GetUsersByName(ctx context.Context, names ...string) (map[string][]User, error) {
	result := make(map[string][]User, len(names))
	for _, name := range names {
		users, err := d.selectUsers(ctx, qb.Select("id", "name", "email", "created_at").
			From(usersTableName).
			Where(sq.Like{"name": "%" + name + "%"}).
			OrderBy("id"))
		if err != nil {
			return nil, err
		}
		result[name] = users
	}
	return result, nil
}

func (d *Database) selectUsers(ctx context.Context, q sq.SelectBuilder) ([]User, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	d.log.Debug("select users", zap.String("query", query), zap.Any("args", args))

	var rows []userRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select users")
	}
	users := make([]User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func missing(entity string, ids []int64, found func(int64) bool) error {
	var absent []int64
	for _, id := range ids {
		if !found(id) {
			absent = append(absent, id)
		}
	}
	if len(absent) == 0 {
		return nil
	}
	return &NotFoundError{Entity: entity, IDs: absent}
}

// ---------------------------------------------------------------------------
// Hirings
// ---------------------------------------------------------------------------

// AddHiring records h. The user and book are matched exactly on (name, email)
// and (author, title) and created when absent. If the (book, user) pair is
// already hired nothing is written and added is false.
//
// The existence check and the inserts share one transaction, and the
// UNIQUE(book_id, user_id) index rejects anything that slips past it.
func (d *Database) AddHiring(ctx context.Context, h Hiring) (added bool, err error) {
	if err := d.validate.Struct(h.User); err != nil {
		return false, errors.Wrap(err, "invalid user")
	}
	if err := d.validate.Struct(h.Book); err != nil {
		return false, errors.Wrap(err, "invalid book")
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	userID, userFound, err := lookupID(ctx, tx, userKey(h.User))
	if err != nil {
		return false, errors.Wrap(err, "resolve user")
	}
	bookID, bookFound, err := lookupID(ctx, tx, bookKey(h.Book))
	if err != nil {
		return false, errors.Wrap(err, "resolve book")
	}

	if userFound && bookFound {
		_, hired, err := lookupID(ctx, tx, qb.Select("id").
			From(hiringsTableName).
			Where(sq.Eq{"book_id": bookID, "user_id": userID}))
		if err != nil {
			return false, errors.Wrap(err, "check hiring")
		}
		if hired {
			d.log.Debug("hiring already recorded",
				zap.Int64("book_id", bookID), zap.Int64("user_id", userID))
			return false, nil
		}
	}

	now := d.timestamp()
	if !userFound {
		if userID, err = insert(ctx, tx.StmtxContext(ctx, d.addUserStmt), h.User.Name, h.User.Email, now); err != nil {
			return false, errors.Wrap(err, "add user")
		}
		d.log.Info("user created for hiring", zap.Int64("user_id", userID), zap.String("name", h.User.Name))
	}
	if !bookFound {
		if bookID, err = insert(ctx, tx.StmtxContext(ctx, d.addBookStmt), h.Book.Author, h.Book.Title, now); err != nil {
			return false, errors.Wrap(err, "add book")
		}
		d.log.Info("book created for hiring", zap.Int64("book_id", bookID), zap.String("title", h.Book.Title))
	}

	query, args, err := qb.Insert(hiringsTableName).
		Columns("user_id", "book_id", "created_at", "returned_to").
		Values(userID, bookID, now, formatStamp(h.DueDate)).
		ToSql()
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return false, errors.Wrap(err, "add hiring")
	}
	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "commit hiring")
	}
	return true, nil
}

// GetAllHirings returns every hiring with its book and user. A hiring whose
// book or user row is gone is still returned with those fields empty.
func (d *Database) GetAllHirings(ctx context.Context) ([]Hiring, error) {
	query, args, err := qb.Select(
		"h.id AS id", "h.created_at AS created_at", "h.returned_to AS returned_to",
		"b.id AS book_id", "b.title AS title", "b.author AS author",
		"u.id AS user_id", "u.name AS name", "u.email AS email",
	).
		From(hiringsTableName + " h").
		LeftJoin(booksTableName + " b ON h.book_id = b.id").
		LeftJoin(usersTableName + " u ON h.user_id = u.id").
		OrderBy("h.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []hiringRow
	if err := d.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select hirings")
	}
	hirings := make([]Hiring, 0, len(rows))
	for _, r := range rows {
		hirings = append(hirings, r.hiring())
	}
	return hirings, nil
}

// bookID resolves b by exact (author, title).
func (d *Database) bookID(ctx context.Context, b Book) (int64, bool, error) {
	return lookupID(ctx, d.db, bookKey(b))
}

// userID resolves u by exact (name, email).
func (d *Database) userID(ctx context.Context, u User) (int64, bool, error) {
	return lookupID(ctx, d.db, userKey(u))
}

func bookKey(b Book) sq.SelectBuilder {
	return qb.Select("id").
		From(booksTableName).
		Where(sq.Eq{"author": b.Author, "title": b.Title})
}

func userKey(u User) sq.SelectBuilder {
	return qb.Select("id").
		From(usersTableName).
		Where(sq.Eq{"name": u.Name, "email": u.Email})
}

func lookupID(ctx context.Context, q sqlx.QueryerContext, b sq.SelectBuilder) (int64, bool, error) {
	query, args, err := b.Limit(1).ToSql()
	if err != nil {
		return 0, false, err
	}
	var id int64
	err = sqlx.GetContext(ctx, q, &id, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
