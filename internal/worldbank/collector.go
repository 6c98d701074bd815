package worldbank

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Target is one series to download and the file name it is saved under.
type Target struct {
	Code string
	File string
}

// FileName returns t.File, or the bulk download style name when unset.
func (t Target) FileName() string {
	if t.File != "" {
		return t.File
	}
	return "API_" + t.Code + ".csv"
}

// Collect downloads every target for country and writes it under rawDir.
// Failures are logged and returned per code; the other targets still run.
func (c *Client) Collect(ctx context.Context, country, rawDir string, targets []Target) ([]string, map[string]error) {
	var saved []string
	failed := map[string]error{}
	for _, tgt := range targets {
		if ctx.Err() != nil {
			failed[tgt.Code] = ctx.Err()
			continue
		}
		path := filepath.Join(rawDir, tgt.FileName())
		if err := c.collectOne(ctx, country, tgt.Code, path); err != nil {
			c.logger.Error("Error loading indicator", zap.String("code", tgt.Code), zap.Error(err))
			failed[tgt.Code] = err
			continue
		}
		saved = append(saved, path)
	}
	return saved, failed
}

func (c *Client) collectOne(ctx context.Context, country, code, path string) error {
	s, err := c.Fetch(ctx, country, code)
	if err != nil {
		return err
	}
	if len(s.Observations) == 0 {
		return fmt.Errorf("no observations for %s in %s", code, country)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := s.WriteCSV(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	c.logger.Info("Saved", zap.String("code", code), zap.String("output", path), zap.Int("observations", len(s.Observations)))
	return f.Close()
}
