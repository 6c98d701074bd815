// Package pipeline runs the collection and processing stages over the data
// directory laid out by the configuration.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lvstat/internal/config"
	"lvstat/internal/indicator"
)

// Output file names.
const (
	MergedFile = "merged_df_readable.csv"
	AnnualFile = "merged_df_annual.csv"
)

// Stage names used in reports.
const (
	StageCollect = "collect"
	StageReshape = "reshape"
	StagePeriods = "periods"
	StageMerge   = "merge"
	StageAnnual  = "annual"
	StageEDA     = "eda"
	StageExport  = "export"
)

// Report lists what a stage did per input.
type Report struct {
	Stage     string
	Processed []string
	Skipped   []string
	Failed    map[string]error
}

func newReport(stage string) *Report {
	return &Report{Stage: stage, Failed: map[string]error{}}
}

// Err summarises the failures, or nil when there were none.
func (r *Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Failed))
	for k := range r.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		errs = append(errs, fmt.Errorf("%s: %w", k, r.Failed[k]))
	}
	return fmt.Errorf("%s: %d failed: %w", r.Stage, len(r.Failed), errors.Join(errs...))
}

// Pipeline runs stages with one configuration.
type Pipeline struct {
	cfg    *config.Config
	logger *zap.Logger
}

// New creates a pipeline.
func New(cfg *config.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() *config.Config { return p.cfg }

// Indicators loads the indicator catalog.
func (p *Pipeline) Indicators() ([]indicator.Indicator, error) {
	path := p.cfg.Resolve(p.cfg.Paths.IndicatorsFile)
	inds, err := indicator.LoadCatalog(path, p.cfg.Eurostat.Geo)
	if err != nil {
		return nil, fmt.Errorf("failed to load indicators: %w", err)
	}
	return inds, nil
}

// MergedPath is where the merged readable table is written.
func (p *Pipeline) MergedPath() string { return filepath.Join(p.cfg.MergedDir(), MergedFile) }

// AnnualPath is where the annual table is written.
func (p *Pipeline) AnnualPath() string { return filepath.Join(p.cfg.MergedDir(), AnnualFile) }

// listFiles returns the regular files of dir in name order. A missing
// directory is an empty list.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// fileFunc processes one input and returns the output path, or "" with a
// nil error when the input is skipped.
type fileFunc func(ctx context.Context, path string) (string, error)

// eachFile runs fn over files with the configured concurrency. Every file
// is independent: a failing file is recorded and the others still run.
func (p *Pipeline) eachFile(ctx context.Context, rep *Report, files []string, fn fileFunc) error {
	limit := p.cfg.Concurrency
	if limit < 1 {
		limit = 1
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, path := range files {
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := fn(gctx, path)
			mu.Lock()
			defer mu.Unlock()
			name := filepath.Base(path)
			switch {
			case err != nil:
				p.logger.Error("Error processing file", zap.String("stage", rep.Stage), zap.String("file", name), zap.Error(err))
				rep.Failed[name] = err
			case out == "":
				rep.Skipped = append(rep.Skipped, name)
			default:
				rep.Processed = append(rep.Processed, out)
			}
			return nil
		})
	}
	err := g.Wait()
	sort.Strings(rep.Processed)
	sort.Strings(rep.Skipped)
	if err != nil {
		return err
	}
	return ctx.Err()
}
