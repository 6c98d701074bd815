package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"lvstat/internal/annual"
	"lvstat/internal/profile"
	"lvstat/internal/store"
	"lvstat/internal/table"
)

// ProfileFile is the markdown report written next to the annual table.
const ProfileFile = "annual_profile.md"

// ProfilePath is where the annual profile is written.
func (p *Pipeline) ProfilePath() string { return filepath.Join(p.cfg.MergedDir(), ProfileFile) }

// Export loads the merged and annual tables into the SQLite store. Tables
// are named after their file stem; a table that has not been produced yet
// is skipped.
func (p *Pipeline) Export(ctx context.Context) (*Report, error) {
	rep := newReport(StageExport)
	tables := map[string]*table.Table{}
	for _, path := range []string{p.MergedPath(), p.AnnualPath()} {
		name := strings.TrimSuffix(filepath.Base(path), ".csv")
		t, err := table.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			rep.Skipped = append(rep.Skipped, name)
			continue
		}
		if err != nil {
			return rep, err
		}
		tables[name] = t
	}
	if len(tables) == 0 {
		return rep, errors.New("nothing to export, run the merge stage first")
	}
	if err := store.Export(ctx, p.cfg.StorePath(), tables); err != nil {
		return rep, fmt.Errorf("failed to export: %w", err)
	}
	for name := range tables {
		rep.Processed = append(rep.Processed, name)
	}
	p.logger.Info("Exported tables", zap.String("output", p.cfg.StorePath()), zap.Strings("tables", rep.Processed))
	return rep, nil
}

// Profile aggregates the merged table again to recover the column classes
// and interpolated years, and writes the markdown profile of the result.
func (p *Pipeline) Profile(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	merged, err := table.ReadFile(p.MergedPath())
	if err != nil {
		return "", err
	}
	res, err := annual.Aggregate(merged, annual.Options{
		Continuous:   p.cfg.Indicators.Continuous,
		Discrete:     p.cfg.Indicators.Discrete,
		Unclassified: p.cfg.Indicators.Unclassified,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		return "", err
	}
	md := profile.Build(res.Table, profile.Options{
		Title:        "Annual indicators profile",
		Source:       p.MergedPath(),
		KeyColumn:    annual.YearColumn,
		Classes:      res.Classes,
		Interpolated: res.Interpolated,
	})
	path := p.ProfilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", err
	}
	p.logger.Info("Wrote profile", zap.String("output", path))
	return path, nil
}
