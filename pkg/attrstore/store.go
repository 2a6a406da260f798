package attrstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/edp1096/spicelib/pkg/library"
)

//go:embed schema.sql
var schemaSQL string

// Store keeps the numeric metadata of catalog definitions queryable by
// range. It mirrors one catalog generation and is rebuilt by Sync.
type Store struct {
	db *sql.DB
}

// Open creates or opens the store at path. ":memory:" works for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer; an in-memory database also lives on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Sync replaces the stored attributes with those of snap in one
// transaction and records its generation.
func (s *Store) Sync(ctx context.Context, snap *library.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM attributes"); err != nil {
		return fmt.Errorf("clear attributes: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM definitions"); err != nil {
		return fmt.Errorf("clear definitions: %w", err)
	}

	defStmt, err := tx.PrepareContext(ctx, "INSERT INTO definitions (key, name, source, line) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare definitions: %w", err)
	}
	defer defStmt.Close()

	attrStmt, err := tx.PrepareContext(ctx, "INSERT INTO attributes (def_key, param, value) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare attributes: %w", err)
	}
	defer attrStmt.Close()

	for _, def := range snap.Definitions() {
		if len(def.Derived) == 0 {
			continue
		}
		if _, err = defStmt.ExecContext(ctx, def.Key(), def.Name, def.Source, def.Line); err != nil {
			return fmt.Errorf("insert %s: %w", def.Name, err)
		}
		for param, value := range def.Derived {
			if _, err = attrStmt.ExecContext(ctx, def.Key(), param, value); err != nil {
				return fmt.Errorf("insert %s.%s: %w", def.Name, param, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_state (id, generation, synced_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET generation = excluded.generation, synced_at = excluded.synced_at`,
		int64(snap.Generation), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit sync: %w", err)
	}
	return nil
}

// Generation returns the catalog generation last synced, 0 if never.
func (s *Store) Generation(ctx context.Context) (uint64, error) {
	var gen int64
	err := s.db.QueryRowContext(ctx, "SELECT generation FROM sync_state WHERE id = 1").Scan(&gen)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read generation: %w", err)
	}
	return uint64(gen), nil
}

// Stale reports whether the store lags behind snap.
func (s *Store) Stale(ctx context.Context, snap *library.Snapshot) (bool, error) {
	gen, err := s.Generation(ctx)
	if err != nil {
		return false, err
	}
	return gen != snap.Generation, nil
}

// Range bounds one derived parameter. A nil bound is open.
type Range struct {
	Key string
	Min *float64
	Max *float64
}

func (r Range) String() string {
	lo, hi := "-inf", "+inf"
	if r.Min != nil {
		lo = fmt.Sprint(*r.Min)
	}
	if r.Max != nil {
		hi = fmt.Sprint(*r.Max)
	}
	return fmt.Sprintf("%s in [%s, %s]", r.Key, lo, hi)
}

// Query returns the names of definitions satisfying every range, sorted by
// name. limit <= 0 means no cap.
func (s *Store) Query(ctx context.Context, ranges []Range, limit int) ([]string, error) {
	var (
		where []string
		args  []any
	)
	for _, r := range ranges {
		cond := "d.key IN (SELECT def_key FROM attributes WHERE param = ?"
		args = append(args, strings.ToLower(r.Key))
		if r.Min != nil {
			cond += " AND value >= ?"
			args = append(args, *r.Min)
		}
		if r.Max != nil {
			cond += " AND value <= ?"
			args = append(args, *r.Max)
		}
		where = append(where, cond+")")
	}

	query := "SELECT d.name FROM definitions d"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY d.key"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ParseRange reads "key=min:max"; either bound may be empty, "fs=:40".
// A bare "key=value" matches that value exactly.
func ParseRange(expr string, parse func(string) (float64, error)) (Range, error) {
	key, bounds, ok := strings.Cut(expr, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return Range{}, fmt.Errorf("range %q: want key=min:max", expr)
	}
	r := Range{Key: strings.ToLower(key)}

	lo, hi, isRange := strings.Cut(bounds, ":")
	if !isRange {
		hi = lo
	}
	if lo = strings.TrimSpace(lo); lo != "" {
		v, err := parse(lo)
		if err != nil {
			return Range{}, fmt.Errorf("range %q: %w", expr, err)
		}
		r.Min = &v
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		v, err := parse(hi)
		if err != nil {
			return Range{}, fmt.Errorf("range %q: %w", expr, err)
		}
		r.Max = &v
	}
	return r, nil
}
