// Package server serves a read-only browser over the SQLite export and the
// generated plots.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"lvstat/internal/store"
)

// PageSize is the number of rows shown per table page.
const PageSize = 50

// Reader is the part of the store the server reads from.
type Reader interface {
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, name string) ([]string, error)
	Count(ctx context.Context, name string) (int, error)
	Rows(ctx context.Context, name string, limit, offset int) ([][]any, error)
	Series(ctx context.Context, name, keyCol, col string) ([]store.Point, error)
}

// Server routes the browser's HTTP endpoints.
type Server struct {
	logger   *zap.Logger
	db       Reader
	plotsDir string
	mux      *http.ServeMux
}

// New creates a server over db. Plots are served from plotsDir when set.
func New(logger *zap.Logger, db Reader, plotsDir string) *Server {
	s := &Server{logger: logger, db: db, plotsDir: plotsDir, mux: http.NewServeMux()}
	s.mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("/api/tables", s.handleTables)
	s.mux.HandleFunc("/api/series", s.handleSeries)
	s.mux.HandleFunc("/table/", s.handleTablePage)
	if plotsDir != "" {
		s.mux.Handle("/plots/", http.StripPrefix("/plots/", http.FileServer(http.Dir(plotsDir))))
	}
	s.mux.HandleFunc("/", s.handleIndex)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", zap.String("addr", addr), zap.String("plots", s.plotsDir))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type entry struct {
		Name string
		Rows int
	}
	names, err := s.db.Tables(r.Context())
	if err != nil {
		s.internalError(w, "tables", err)
		return
	}
	entries := make([]entry, 0, len(names))
	for _, n := range names {
		c, err := s.db.Count(r.Context(), n)
		if err != nil {
			s.internalError(w, "count", err)
			return
		}
		entries = append(entries, entry{Name: n, Rows: c})
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPageTemplate.Execute(w, map[string]any{
		"title":  "lvstat",
		"tables": entries,
		"plots":  s.plotsDir != "",
	}); err != nil {
		s.logger.Error("template error", zap.Error(err))
	}
}

func (s *Server) handleTablePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/table/"), "/")
	if name == "" {
		http.Error(w, "missing table name", http.StatusBadRequest)
		return
	}
	page, ok := parsePageQueryParam(r, "page", 1)
	if !ok {
		http.Error(w, "invalid page", http.StatusBadRequest)
		return
	}
	offset, ok := pageOffset(page, PageSize)
	if !ok {
		http.Error(w, "page value is too large", http.StatusBadRequest)
		return
	}
	cols, err := s.db.Columns(r.Context(), name)
	if errors.Is(err, store.ErrNoTable) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.internalError(w, "columns", err)
		return
	}
	total, err := s.db.Count(r.Context(), name)
	if err != nil {
		s.internalError(w, "count", err)
		return
	}
	rows, err := s.db.Rows(r.Context(), name, PageSize, offset)
	if err != nil {
		s.internalError(w, "rows", err)
		return
	}
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[i][j] = fmt.Sprint(v)
			}
		}
	}
	pages := (total + PageSize - 1) / PageSize
	data := map[string]any{
		"title":   name + " | lvstat",
		"name":    name,
		"columns": cols,
		"rows":    cells,
		"page":    page,
		"pages":   pages,
		"total":   total,
	}
	if page > 1 {
		data["prev"] = page - 1
	}
	if page < pages {
		data["next"] = page + 1
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tablePageTemplate.Execute(w, data); err != nil {
		s.logger.Error("template error", zap.Error(err))
	}
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	type tableInfo struct {
		Name    string   `json:"name"`
		Rows    int      `json:"rows"`
		Columns []string `json:"columns"`
	}
	names, err := s.db.Tables(r.Context())
	if err != nil {
		s.internalError(w, "tables", err)
		return
	}
	out := make([]tableInfo, 0, len(names))
	for _, n := range names {
		cols, err := s.db.Columns(r.Context(), n)
		if err != nil {
			s.internalError(w, "columns", err)
			return
		}
		c, err := s.db.Count(r.Context(), n)
		if err != nil {
			s.internalError(w, "count", err)
			return
		}
		out = append(out, tableInfo{Name: n, Rows: c, Columns: cols})
	}
	s.writeJSON(w, out)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	name, col := strings.TrimSpace(q.Get("table")), strings.TrimSpace(q.Get("column"))
	if name == "" || col == "" {
		http.Error(w, "table and column are required", http.StatusBadRequest)
		return
	}
	cols, err := s.db.Columns(r.Context(), name)
	if errors.Is(err, store.ErrNoTable) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.internalError(w, "columns", err)
		return
	}
	key := strings.TrimSpace(q.Get("key"))
	if key == "" {
		key = cols[0]
	}
	if !contains(cols, col) || !contains(cols, key) {
		http.Error(w, "unknown column", http.StatusNotFound)
		return
	}
	pts, err := s.db.Series(r.Context(), name, key, col)
	if err != nil {
		s.internalError(w, "series", err)
		return
	}
	if pts == nil {
		pts = []store.Point{}
	}
	s.writeJSON(w, pts)
}

func (s *Server) internalError(w http.ResponseWriter, what string, err error) {
	http.Error(w, "internal error", http.StatusInternalServerError)
	s.logger.Error(what+" error", zap.Error(err))
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.logger.Error("encode error", zap.Error(err))
	}
}

func parsePageQueryParam(r *http.Request, key string, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, true
	}
	n64, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n64 < 1 {
		return 0, false
	}
	if n64 > maxIntValue() {
		return 0, false
	}
	return int(n64), true
}

func pageOffset(page, perPage int) (int, bool) {
	if page < 1 || perPage < 1 {
		return 0, false
	}
	p := int64(page - 1)
	sz := int64(perPage)
	if p > maxIntValue()/sz {
		return 0, false
	}
	return int(p * sz), true
}

func maxIntValue() int64 {
	return int64(^uint(0) >> 1)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
