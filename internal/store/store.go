// Package store exports pipeline tables to SQLite and reads them back for
// the browser.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lvstat/internal/table"
)

// ErrNoTable is returned for a table that is not in the database.
var ErrNoTable = errors.New("no such table")

// indexed columns get an index when a table has them.
var indexed = []string{"Year", "TIME_PERIOD"}

// ColumnType picks the SQLite type of a column: Year is INTEGER, a column
// whose non-empty cells all parse as numbers is REAL, anything else TEXT.
func ColumnType(name string, cells []string) string {
	if name == "Year" {
		return "INTEGER"
	}
	seen := false
	for _, c := range cells {
		if c == "" {
			continue
		}
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			return "TEXT"
		}
		seen = true
	}
	if !seen {
		return "TEXT"
	}
	return "REAL"
}

func sqliteValue(cell, typ string) any {
	if cell == "" {
		return nil
	}
	switch typ {
	case "INTEGER":
		if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return n
		}
	case "REAL":
		if f, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsNaN(f) {
			return f
		}
		return nil
	}
	return cell
}

// Export writes every table to a fresh SQLite file at path. Tables are
// written in name order.
func Export(ctx context.Context, path string, tables map[string]*table.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	_ = os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeTable(ctx, db, name, tables[name]); err != nil {
			return fmt.Errorf("failed to write table %s: %w", name, err)
		}
	}
	return nil
}

func writeTable(ctx context.Context, db *sql.DB, name string, t *table.Table) error {
	types := make([]string, len(t.Header))
	var defs []string
	for i, col := range t.Header {
		cells := make([]string, len(t.Rows))
		for r, row := range t.Rows {
			cells[r] = row[i]
		}
		types[i] = ColumnType(col, cells)
		defs = append(defs, quoteIdent(col)+" "+types[i])
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(name)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+quoteIdent(name)+` (`+strings.Join(defs, ", ")+`)`); err != nil {
		return err
	}
	ph := strings.TrimRight(strings.Repeat("?,", len(t.Header)), ",")
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+quoteIdent(name)+` (`+joinIdents(t.Header)+`) VALUES (`+ph+`)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range t.Rows {
		args := make([]any, len(t.Header))
		for i := range t.Header {
			args[i] = sqliteValue(row[i], types[i])
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	for _, col := range indexed {
		if !t.Has(col) {
			continue
		}
		idx := quoteIdent("idx_" + name + "_" + strings.ToLower(col))
		if _, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS `+idx+` ON `+quoteIdent(name)+`(`+quoteIdent(col)+`)`); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Store reads an exported database.
type Store struct {
	db *sql.DB
}

// Open opens an existing export.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sqlite path error: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Tables lists the user tables in name order.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	const q = `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *Store) checkTable(ctx context.Context, name string) error {
	tables, err := s.Tables(ctx)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if t == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrNoTable, name)
}

// Columns returns the column names of a table in definition order.
func (s *Store) Columns(ctx context.Context, name string) ([]string, error) {
	if err := s.checkTable(ctx, name); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var cid int
		var col, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &col, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns found for table %q", name)
	}
	return cols, nil
}

// Count returns the number of rows in a table.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	if err := s.checkTable(ctx, name); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quoteIdent(name)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Rows returns one page of a table in rowid order. NULL cells are nil.
func (s *Store) Rows(ctx context.Context, name string, limit, offset int) ([][]any, error) {
	cols, err := s.Columns(ctx, name)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid LIMIT ? OFFSET ?", joinIdents(cols), quoteIdent(name))
	rows, err := s.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([][]any, 0, limit)
	for rows.Next() {
		values := make([]any, len(cols))
		scans := make([]any, len(cols))
		for i := range values {
			scans[i] = &values[i]
		}
		if err := rows.Scan(scans...); err != nil {
			return nil, err
		}
		for i := range values {
			values[i] = normalizeValue(values[i])
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

// Point is one (key, value) pair of a series. Value is nil when missing.
type Point struct {
	Key   any      `json:"key"`
	Value *float64 `json:"value"`
}

// Series returns col against keyCol, ordered by keyCol.
func (s *Store) Series(ctx context.Context, name, keyCol, col string) ([]Point, error) {
	cols, err := s.Columns(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, c := range []string{keyCol, col} {
		if !contains(cols, c) {
			return nil, fmt.Errorf("column %q not found in table %q", c, name)
		}
	}
	q := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s", quoteIdent(keyCol), quoteIdent(col), quoteIdent(name), quoteIdent(keyCol))
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Point
	for rows.Next() {
		var key any
		var v sql.NullFloat64
		if err := rows.Scan(&key, &v); err != nil {
			return nil, err
		}
		p := Point{Key: normalizeValue(key)}
		if v.Valid {
			f := v.Float64
			p.Value = &f
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return v
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func joinIdents(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = quoteIdent(c)
	}
	return strings.Join(parts, ", ")
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
