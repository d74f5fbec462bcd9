package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/markcrawl/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "markcrawl.db"

// CrawlDB provides SQLite-based storage for crawl sessions and pages.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// Otherwise a missing database yields an error wrapping ErrNotFound.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database %s: %w", dbPath, ErrNotFound)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file, mode=rwc allows it.
	// Foreign keys are enabled per connection through the DSN.
	dsn := dbPath + "?mode=rw&_pragma=foreign_keys(1)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawl_sessions (
		id TEXT PRIMARY KEY,
		seed_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		page_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_started ON crawl_sessions(started_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_seed ON crawl_sessions(seed_url);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES crawl_sessions(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		title TEXT,
		markdown TEXT NOT NULL,
		hash TEXT,
		headers TEXT,
		fetched_at TEXT,
		UNIQUE(session_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	CREATE INDEX IF NOT EXISTS idx_pages_session ON pages(session_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Session is one stored crawl run.
type Session struct {
	ID          string
	SeedURL     string
	StartedAt   time.Time
	FinishedAt  time.Time
	PageCount   int
	FailedCount int
}

// PageRecord is a stored page of a session.
type PageRecord struct {
	ID          int64
	SessionID   string
	URL         string
	Depth       int
	StatusCode  int
	ContentType string
	Title       string
	Markdown    string
	Hash        string
	Headers     map[string][]string
	FetchedAt   time.Time
}

// CreateSession inserts a new session for seedURL and returns its ID.
func (cdb *CrawlDB) CreateSession(ctx context.Context, seedURL string, startedAt time.Time) (string, error) {
	id := uuid.NewString()

	query := `INSERT INTO crawl_sessions (id, seed_url, started_at) VALUES (?, ?, ?)`
	if _, err := cdb.db.ExecContext(ctx, query, id, seedURL, formatTimestamp(startedAt)); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// FinishSession records the end time and counters of a session.
func (cdb *CrawlDB) FinishSession(ctx context.Context, id string, finishedAt time.Time, failed int) error {
	query := `
	UPDATE crawl_sessions
	SET finished_at = ?,
		page_count = (SELECT COUNT(*) FROM pages WHERE session_id = ?),
		failed_count = ?
	WHERE id = ?
	`

	result, err := cdb.db.ExecContext(ctx, query, formatTimestamp(finishedAt), id, failed, id)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// InsertPage inserts or updates a page of a session.
// Uses UPSERT to handle duplicates (same session + URL).
func (cdb *CrawlDB) InsertPage(ctx context.Context, sessionID string, page *model.Page) error {
	return insertPage(ctx, cdb.db, sessionID, page)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPage(ctx context.Context, db execer, sessionID string, page *model.Page) error {
	headersJSON, err := json.Marshal(page.Headers)
	if err != nil {
		return fmt.Errorf("failed to serialize headers: %w", err)
	}

	query := `
	INSERT INTO pages (session_id, url, depth, status_code, content_type, title, markdown, hash, headers, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id, url) DO UPDATE SET
		depth = excluded.depth,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		title = excluded.title,
		markdown = excluded.markdown,
		hash = excluded.hash,
		headers = excluded.headers,
		fetched_at = excluded.fetched_at
	`

	_, err = db.ExecContext(ctx, query,
		sessionID,
		page.URL,
		page.Depth,
		page.StatusCode,
		page.ContentType,
		page.Title(),
		page.Markdown,
		page.Hash,
		string(headersJSON),
		formatTimestamp(page.FetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page %s: %w", page.URL, err)
	}
	return nil
}

// SaveCrawl stores a complete crawl in one transaction and returns the
// new session ID.
func (cdb *CrawlDB) SaveCrawl(ctx context.Context, seedURL string, pages []*model.Page, failed int, startedAt, finishedAt time.Time) (string, error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	id := uuid.NewString()
	query := `
	INSERT INTO crawl_sessions (id, seed_url, started_at, finished_at, page_count, failed_count)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query,
		id, seedURL, formatTimestamp(startedAt), formatTimestamp(finishedAt), len(pages), failed,
	); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	for _, page := range pages {
		if err := insertPage(ctx, tx, id, page); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit crawl: %w", err)
	}
	return id, nil
}

const sessionColumns = `id, seed_url, started_at, finished_at, page_count, failed_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		s          Session
		startedAt  string
		finishedAt sql.NullString
	)
	if err := row.Scan(&s.ID, &s.SeedURL, &startedAt, &finishedAt, &s.PageCount, &s.FailedCount); err != nil {
		return nil, err
	}
	s.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		s.FinishedAt = parseTimestamp(finishedAt.String)
	}
	return &s, nil
}

// ListSessions returns sessions, newest first. A limit of 0 or less
// returns every session.
func (cdb *CrawlDB) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM crawl_sessions ORDER BY started_at DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// FindSession returns the session whose ID starts with prefix.
func (cdb *CrawlDB) FindSession(ctx context.Context, prefix string) (*Session, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("empty session ID: %w", ErrNotFound)
	}

	query := `SELECT ` + sessionColumns + ` FROM crawl_sessions WHERE id LIKE ? ESCAPE '\' LIMIT 2`
	rows, err := cdb.db.QueryContext(ctx, query, escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	defer rows.Close()

	var found []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		found = append(found, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("session %s: %w", prefix, ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("session %s: %w", prefix, ErrAmbiguousID)
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// DeleteSession removes a session and its pages.
func (cdb *CrawlDB) DeleteSession(ctx context.Context, id string) error {
	result, err := cdb.db.ExecContext(ctx, `DELETE FROM crawl_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

const pageColumns = `id, session_id, url, depth, status_code, content_type, title, markdown, hash, headers, fetched_at`

func scanPage(row scanner) (*PageRecord, error) {
	var (
		p           PageRecord
		statusCode  sql.NullInt64
		contentType sql.NullString
		title       sql.NullString
		hash        sql.NullString
		headersJSON sql.NullString
		fetchedAt   sql.NullString
	)
	err := row.Scan(
		&p.ID,
		&p.SessionID,
		&p.URL,
		&p.Depth,
		&statusCode,
		&contentType,
		&title,
		&p.Markdown,
		&hash,
		&headersJSON,
		&fetchedAt,
	)
	if err != nil {
		return nil, err
	}

	p.StatusCode = int(statusCode.Int64)
	p.ContentType = contentType.String
	p.Title = title.String
	p.Hash = hash.String
	if fetchedAt.Valid {
		p.FetchedAt = parseTimestamp(fetchedAt.String)
	}
	if headersJSON.Valid && headersJSON.String != "" && headersJSON.String != "null" {
		if err := json.Unmarshal([]byte(headersJSON.String), &p.Headers); err != nil {
			return nil, fmt.Errorf("failed to parse headers: %w", err)
		}
	}
	return &p, nil
}

// GetSessionPages returns the pages of a session in insertion order.
func (cdb *CrawlDB) GetSessionPages(ctx context.Context, sessionID string) ([]PageRecord, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE session_id = ? ORDER BY id`

	rows, err := cdb.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// GetPage returns the page stored for url in a session.
func (cdb *CrawlDB) GetPage(ctx context.Context, sessionID, url string) (*PageRecord, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE session_id = ? AND url = ?`

	p, err := scanPage(cdb.db.QueryRowContext(ctx, query, sessionID, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", url, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return p, nil
}

// LatestPage returns the most recently fetched copy of url across all
// sessions.
func (cdb *CrawlDB) LatestPage(ctx context.Context, url string) (*PageRecord, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE url = ? ORDER BY fetched_at DESC, id DESC LIMIT 1`

	p, err := scanPage(cdb.db.QueryRowContext(ctx, query, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", url, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return p, nil
}

// HasChanged reports whether page differs from the latest stored copy of
// its URL. A URL never stored counts as changed.
func (cdb *CrawlDB) HasChanged(ctx context.Context, page *model.Page) (bool, error) {
	latest, err := cdb.LatestPage(ctx, page.URL)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return latest.Hash != page.Hash, nil
}

// timestampLayout is used for every stored timestamp. Fixed-width UTC
// values sort lexically in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
