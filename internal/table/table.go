// Package table holds CSV files in memory with an ordered header and
// writes them back with minimal quoting and "\n" line endings.
package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is a CSV file held in memory.
type Table struct {
	Header []string
	Rows   [][]string
}

// New returns an empty table with the given header.
func New(header ...string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

type readOptions struct {
	skipLines int
}

// ReadOption configures Read.
type ReadOption func(*readOptions)

// SkipLines drops n physical lines before the header. Blank lines count.
func SkipLines(n int) ReadOption {
	return func(o *readOptions) { o.skipLines = n }
}

// ReadFile reads a CSV file from disk.
func ReadFile(path string, opts ...ReadOption) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Read(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV from r. A leading byte order mark is removed and rows
// shorter than the header are padded with empty cells. Cells beyond the
// header width must be empty.
func Read(r io.Reader, opts ...ReadOption) (*Table, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	br := bufio.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	for i := 0; i < o.skipLines; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("only %d lines before header, want %d", i, o.skipLines)
			}
			return nil, err
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}
	t := New(header...)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for i := len(t.Header); i < len(rec); i++ {
			if strings.TrimSpace(rec[i]) != "" {
				line, _ := cr.FieldPos(i)
				return nil, fmt.Errorf("line %d: %d fields, header has %d", line+o.skipLines, len(rec), len(t.Header))
			}
		}
		row := make([]string, len(t.Header))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteFile writes t to path, creating parent directories.
func WriteFile(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := Write(w, t); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes t as CSV with "\n" line terminators.
func Write(w io.Writer, t *Table) error {
	if err := writeRecord(w, t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := writeRecord(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRecord(w io.Writer, rec []string) error {
	for i, field := range rec {
		if i > 0 {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		if needsQuote(field) {
			field = `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
		}
		if _, err := io.WriteString(w, field); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func needsQuote(s string) bool {
	return strings.ContainsAny(s, ",\"\n\r")
}

// Index returns the position of col in the header, or -1.
func (t *Table) Index(col string) int {
	for i, h := range t.Header {
		if h == col {
			return i
		}
	}
	return -1
}

// Has reports whether the header contains col.
func (t *Table) Has(col string) bool { return t.Index(col) >= 0 }

// Column returns a copy of the values of col.
func (t *Table) Column(col string) ([]string, bool) {
	idx := t.Index(col)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// Floats returns col parsed with ParseFloat.
func (t *Table) Floats(col string) ([]float64, bool) {
	vals, ok := t.Column(col)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = ParseFloat(v)
	}
	return out, true
}

// Append adds a row, padding or truncating it to the header width.
func (t *Table) Append(row ...string) {
	r := make([]string, len(t.Header))
	copy(r, row)
	t.Rows = append(t.Rows, r)
}

// Rename changes the name of column from to to. It reports whether from existed.
func (t *Table) Rename(from, to string) bool {
	idx := t.Index(from)
	if idx < 0 {
		return false
	}
	t.Header[idx] = to
	return true
}

// FormatFloat renders f the shortest way that round-trips; NaN is empty.
func FormatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseFloat parses a numeric cell. Empty, NA, NaN and anything
// non-numeric become NaN.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "", "NA", "NaN", "nan", "<NA>", "NaT":
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
