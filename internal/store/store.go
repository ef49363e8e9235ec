// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists search results per owner in SQLite or
// PostgreSQL. A result is identified by its natural key (title, source,
// owner); the schema enforces at most one row per key.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/edusearch/pkg/types"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"

	defaultSQLitePath = "edusearch.db"
)

// Store reads and writes search_results rows.
type Store struct {
	db     *sql.DB
	driver string

	mu          sync.Mutex
	lastCreated int64
	now         func() time.Time
	newID       func() string
}

// Open connects to the database named by cfg and creates the schema if
// it does not exist. An empty driver means SQLite.
func Open(ctx context.Context, cfg types.StoreConfig) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}

	var dsn string
	switch driver {
	case DriverSQLite:
		path := cfg.DSN
		if path == "" {
			path = defaultSQLitePath
		}
		if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		dsn = path
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.New("postgres driver requires a DSN")
		}
		dsn = cfg.DSN
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{db: db, driver: driver, now: time.Now, newID: uuid.NewString}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver names the SQL driver in use.
func (s *Store) Driver() string { return s.driver }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createSchema(ctx context.Context) error {
	seqCol := "seq INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == DriverPostgres {
		seqCol = "seq BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS search_results (
			` + seqCol + `,
			id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			source TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			title_fold TEXT NOT NULL DEFAULT '',
			description_fold TEXT NOT NULL DEFAULT '',
			UNIQUE (title, source, owner_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_owner_created
			ON search_results (owner_id, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// nextCreatedAt returns a creation time strictly after the previous one
// issued by this Store.
func (s *Store) nextCreatedAt() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.now().UnixNano()
	if n <= s.lastCreated {
		n = s.lastCreated + 1
	}
	s.lastCreated = n
	return n
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (s *Store) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const resultColumns = `id, title, description, image_url, link, type, source, owner_id, created_at`

// foldCase lower-cases text in Go so matching does not depend on the
// database's LOWER, which in SQLite only folds ASCII.
func foldCase(s string) string { return strings.ToLower(s) }

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (types.StoredResult, error) {
	var (
		r       types.StoredResult
		typ     string
		source  string
		created int64
	)
	err := row.Scan(&r.ID, &r.Title, &r.Description, &r.ImageURL, &r.Link,
		&typ, &source, &r.OwnerID, &created)
	if err != nil {
		return types.StoredResult{}, err
	}
	r.ContentType = types.ContentType(typ)
	r.Source = types.Source(source)
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}

// FindByKey returns the result stored under key, if any.
func (s *Store) FindByKey(ctx context.Context, key types.NaturalKey) (types.StoredResult, bool, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+resultColumns+` FROM search_results
		 WHERE title = ? AND source = ? AND owner_id = ?`),
		key.Title, string(key.Source), key.OwnerID)

	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.StoredResult{}, false, nil
	}
	if err != nil {
		return types.StoredResult{}, false, fmt.Errorf("finding result: %w", err)
	}
	return r, true, nil
}

// InsertIfAbsent stores c for owner unless a result with the same
// natural key exists. It returns the canonical stored result and whether
// this call created it. Concurrent callers racing on one key all get the
// same row back.
func (s *Store) InsertIfAbsent(ctx context.Context, owner string, c types.CandidateResult) (types.StoredResult, bool, error) {
	if strings.TrimSpace(c.Title) == "" {
		return types.StoredResult{}, false, errors.New("result title is empty")
	}
	if owner == "" {
		return types.StoredResult{}, false, errors.New("owner is empty")
	}

	res, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO search_results (`+resultColumns+`, title_fold, description_fold)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (title, source, owner_id) DO NOTHING`),
		s.newID(), c.Title, c.Description, c.ImageURL, c.Link,
		string(c.ContentType), string(c.Source), owner, s.nextCreatedAt(),
		foldCase(c.Title), foldCase(c.Description))
	if err != nil {
		return types.StoredResult{}, false, fmt.Errorf("inserting result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.StoredResult{}, false, fmt.Errorf("checking insert: %w", err)
	}

	key := types.NaturalKey{Title: c.Title, Source: c.Source, OwnerID: owner}
	r, found, err := s.FindByKey(ctx, key)
	if err != nil {
		return types.StoredResult{}, false, err
	}
	if !found {
		return types.StoredResult{}, false, fmt.Errorf("result %q from %s vanished after insert", c.Title, c.Source)
	}
	return r, n > 0, nil
}

// Filter selects an owner's results, optionally narrowed by a
// case-insensitive substring of title or description.
type Filter struct {
	OwnerID string
	Text    string
}

func (f Filter) where() (string, []any) {
	clause := `owner_id = ?`
	args := []any{f.OwnerID}
	if text := strings.TrimSpace(f.Text); text != "" {
		pattern := "%" + escapeLike(foldCase(text)) + "%"
		clause += ` AND (title_fold LIKE ? ESCAPE '\' OR description_fold LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}
	return clause, args
}

// escapeLike makes LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Count returns the number of results matching f.
func (s *Store) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM search_results WHERE `+where), args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting results: %w", err)
	}
	return n, nil
}

// List returns up to limit results matching f, newest first, skipping
// offset rows. Results created at the same instant keep insertion order.
func (s *Store) List(ctx context.Context, f Filter, limit, offset int) ([]types.StoredResult, error) {
	where, args := f.where()
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT `+resultColumns+` FROM search_results
		 WHERE `+where+`
		 ORDER BY created_at DESC, seq ASC
		 LIMIT ? OFFSET ?`), args...)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()

	var out []types.StoredResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}
	return out, nil
}

// SourceCount is the number of results an owner holds from one source.
type SourceCount struct {
	Source types.Source `json:"source" yaml:"source"`
	Count  int          `json:"count" yaml:"count"`
}

// CountBySource groups an owner's results by source, largest first.
func (s *Store) CountBySource(ctx context.Context, owner string) ([]SourceCount, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT source, COUNT(*) FROM search_results
		 WHERE owner_id = ?
		 GROUP BY source
		 ORDER BY COUNT(*) DESC, source ASC`), owner)
	if err != nil {
		return nil, fmt.Errorf("counting by source: %w", err)
	}
	defer rows.Close()

	var out []SourceCount
	for rows.Next() {
		var sc SourceCount
		var source string
		if err := rows.Scan(&source, &sc.Count); err != nil {
			return nil, fmt.Errorf("scanning source count: %w", err)
		}
		sc.Source = types.Source(source)
		out = append(out, sc)
	}
	return out, rows.Err()
}
