package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"lvstat/internal/annual"
	"lvstat/internal/eda"
	"lvstat/internal/eurostat"
	"lvstat/internal/merge"
	"lvstat/internal/period"
	"lvstat/internal/reshape"
	"lvstat/internal/table"
	"lvstat/internal/worldbank"
)

// worldBankPreamble is the number of lines above the header of a World
// Bank bulk CSV.
const worldBankPreamble = 4

// Collect downloads the Eurostat catalog and the World Bank series into
// the raw directory.
func (p *Pipeline) Collect(ctx context.Context) (*Report, error) {
	rep := newReport(StageCollect)
	inds, err := p.Indicators()
	if err != nil {
		return rep, err
	}

	es, err := eurostat.NewClient(p.logger.Named("eurostat"), p.cfg.Eurostat.BaseURL, p.cfg.GetEurostatTimeout(), p.cfg.Concurrency)
	if err != nil {
		return rep, fmt.Errorf("failed to create eurostat client: %w", err)
	}
	defer es.Close()
	res, err := eurostat.NewCollector(p.logger.Named("eurostat"), es, p.cfg.RawDir(), p.cfg.Concurrency).Collect(ctx, inds)
	rep.Processed = append(rep.Processed, res.Saved...)
	for code, ferr := range res.Failed {
		rep.Failed[code] = ferr
	}
	if err != nil {
		return rep, err
	}

	if len(p.cfg.WorldBank.Indicators) > 0 {
		wb, err := worldbank.NewClient(p.logger.Named("worldbank"), p.cfg.WorldBank.BaseURL, p.cfg.GetWorldBankTimeout())
		if err != nil {
			return rep, fmt.Errorf("failed to create worldbank client: %w", err)
		}
		defer wb.Close()
		targets := make([]worldbank.Target, 0, len(p.cfg.WorldBank.Indicators))
		for _, spec := range p.cfg.WorldBank.Indicators {
			targets = append(targets, worldbank.Target{Code: spec.Code, File: spec.File})
		}
		saved, failed := wb.Collect(ctx, p.cfg.WorldBank.Country, p.cfg.RawDir(), targets)
		rep.Processed = append(rep.Processed, saved...)
		for code, ferr := range failed {
			rep.Failed[code] = ferr
		}
	}
	p.logger.Info("Collected", zap.Int("saved", len(rep.Processed)), zap.Int("failed", len(rep.Failed)))
	return rep, ctx.Err()
}

// Source kinds of raw files.
const (
	SourceUnknown   = ""
	SourceEurostat  = "eurostat"
	SourceWorldBank = "worldbank"
)

// SourceOf routes a raw file name to its reshaper.
func SourceOf(name string) string {
	switch {
	case !strings.HasSuffix(name, ".csv"):
		return SourceUnknown
	case strings.HasSuffix(name, "_raw.csv"):
		return SourceEurostat
	case strings.HasPrefix(name, "API_"):
		return SourceWorldBank
	}
	return SourceUnknown
}

// Reshape turns every raw file into a long table.
func (p *Pipeline) Reshape(ctx context.Context) (*Report, error) {
	rep := newReport(StageReshape)
	files, err := listFiles(p.cfg.RawDir())
	if err != nil {
		return rep, err
	}
	outDir := p.cfg.LongDir()
	err = p.eachFile(ctx, rep, files, func(_ context.Context, path string) (string, error) {
		name := filepath.Base(path)
		stem := strings.TrimSuffix(name, ".csv")
		var long *table.Table
		switch SourceOf(name) {
		case SourceEurostat:
			raw, err := table.ReadFile(path)
			if err != nil {
				return "", err
			}
			code := strings.TrimSuffix(stem, "_raw")
			long, err = reshape.Eurostat(raw, p.cfg.Indicators.Filters[code])
			if err != nil {
				return "", err
			}
		case SourceWorldBank:
			raw, err := table.ReadFile(path, table.SkipLines(worldBankPreamble))
			if err != nil {
				return "", err
			}
			long, err = reshape.WorldBank(raw, p.cfg.WorldBank.CountryName)
			if err != nil {
				return "", err
			}
		default:
			p.logger.Warn("Skipping unrecognized raw file", zap.String("file", name))
			return "", nil
		}
		out := filepath.Join(outDir, stem+"_long.csv")
		if err := table.WriteFile(out, long); err != nil {
			return "", err
		}
		p.logger.Info("Transformed to long format", zap.String("file", name), zap.Int("rows", len(long.Rows)))
		return out, nil
	})
	return rep, err
}

// FormatPeriods harmonizes the period labels of every long table.
func (p *Pipeline) FormatPeriods(ctx context.Context) (*Report, error) {
	rep := newReport(StagePeriods)
	files, err := listFiles(p.cfg.LongDir())
	if err != nil {
		return rep, err
	}
	outDir := p.cfg.FormattedDir()
	err = p.eachFile(ctx, rep, files, func(_ context.Context, path string) (string, error) {
		name := filepath.Base(path)
		if !strings.HasSuffix(name, "_long.csv") {
			return "", nil
		}
		long, err := table.ReadFile(path)
		if err != nil {
			return "", err
		}
		formatted, fr, err := period.FormatLong(long)
		if err != nil {
			return "", err
		}
		out := filepath.Join(outDir, strings.TrimSuffix(name, "_long.csv")+"_formatted.csv")
		if err := table.WriteFile(out, formatted); err != nil {
			return "", err
		}
		fields := []zap.Field{
			zap.String("file", name),
			zap.Int("rows", fr.Rows),
			zap.Int("zero", fr.Zero),
			zap.Int("invalid", fr.Invalid),
		}
		for kind, n := range fr.ByKind {
			fields = append(fields, zap.Int(kind.String(), n))
		}
		p.logger.Info("Formatted time periods", fields...)
		if fr.Invalid > 0 {
			p.logger.Warn("Dropped rows with unrecognized periods", zap.String("file", name), zap.Int("rows", fr.Invalid))
		}
		return out, nil
	})
	return rep, err
}

// Merge joins every formatted file into the readable wide table.
func (p *Pipeline) Merge(ctx context.Context) (*Report, error) {
	rep := newReport(StageMerge)
	files, err := listFiles(p.cfg.FormattedDir())
	if err != nil {
		return rep, err
	}
	var series []merge.Series
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		name := filepath.Base(path)
		if !strings.HasSuffix(name, "_formatted.csv") {
			rep.Skipped = append(rep.Skipped, name)
			continue
		}
		s, err := merge.LoadFile(path, p.cfg.Indicators.Names)
		if err != nil {
			p.logger.Error("Error loading formatted file", zap.String("file", name), zap.Error(err))
			rep.Failed[name] = err
			continue
		}
		series = append(series, s)
	}
	if len(series) == 0 {
		return rep, errors.New("no formatted files to merge")
	}
	merged := merge.Merge(series)
	if err := table.WriteFile(p.MergedPath(), merged); err != nil {
		return rep, err
	}
	rep.Processed = append(rep.Processed, p.MergedPath())
	p.logger.Info("Merged indicators", zap.Int("series", len(series)), zap.Int("columns", len(merged.Header)-1), zap.Int("rows", len(merged.Rows)))
	return rep, nil
}

// Annual aggregates the merged table to one row per year.
func (p *Pipeline) Annual(ctx context.Context) (*annual.Result, *Report, error) {
	rep := newReport(StageAnnual)
	if err := ctx.Err(); err != nil {
		return nil, rep, err
	}
	merged, err := table.ReadFile(p.MergedPath())
	if err != nil {
		return nil, rep, err
	}
	res, err := annual.Aggregate(merged, annual.Options{
		Continuous:   p.cfg.Indicators.Continuous,
		Discrete:     p.cfg.Indicators.Discrete,
		Unclassified: p.cfg.Indicators.Unclassified,
		Logger:       p.logger.Named("annual"),
	})
	if err != nil {
		return nil, rep, err
	}
	if err := table.WriteFile(p.AnnualPath(), res.Table); err != nil {
		return nil, rep, err
	}
	rep.Processed = append(rep.Processed, p.AnnualPath())
	rep.Skipped = append(rep.Skipped, res.Dropped...)
	for col, years := range res.Interpolated {
		p.logger.Debug("Interpolated", zap.String("column", col), zap.Ints("years", years))
	}
	p.logger.Info("Aggregated to annual", zap.Int("years", len(res.Table.Rows)), zap.Int("columns", len(res.Table.Header)-1))
	return res, rep, nil
}

// EDA draws the plots of every research question.
func (p *Pipeline) EDA(ctx context.Context) (*Report, error) {
	rep := newReport(StageEDA)
	df, err := eda.Load(p.AnnualPath(), p.cfg.EDA.MinYear)
	if err != nil {
		return rep, err
	}
	for _, rq := range p.cfg.EDA.ResearchQuestions {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		r, err := eda.Generate(df, eda.ResearchQuestion{
			Name:         rq.Name,
			Indicators:   rq.Indicators,
			ScatterPairs: rq.ScatterPairs,
			Combined:     rq.Combined,
		}, p.cfg.PlotsDir(), p.logger.Named("eda"))
		if err != nil {
			rep.Failed[rq.Name] = err
			p.logger.Error("Error generating plots", zap.String("rq", rq.Name), zap.Error(err))
			continue
		}
		rep.Processed = append(rep.Processed, r.Files...)
		rep.Skipped = append(rep.Skipped, r.Skipped...)
	}
	p.logger.Info("EDA plots saved", zap.String("dir", p.cfg.PlotsDir()), zap.Int("files", len(rep.Processed)))
	return rep, nil
}

// Run executes every stage in order. Collection is skipped when
// skipCollect is set; a stage error stops the run.
func (p *Pipeline) Run(ctx context.Context, skipCollect bool) ([]*Report, error) {
	var reports []*Report
	if !skipCollect {
		rep, err := p.Collect(ctx)
		reports = append(reports, rep)
		if err != nil {
			return reports, err
		}
	}
	for _, stage := range []func(context.Context) (*Report, error){p.Reshape, p.FormatPeriods, p.Merge} {
		rep, err := stage(ctx)
		reports = append(reports, rep)
		if err != nil {
			return reports, fmt.Errorf("%s: %w", rep.Stage, err)
		}
	}
	_, rep, err := p.Annual(ctx)
	reports = append(reports, rep)
	if err != nil {
		return reports, fmt.Errorf("%s: %w", rep.Stage, err)
	}
	rep, err = p.EDA(ctx)
	reports = append(reports, rep)
	if err != nil {
		return reports, fmt.Errorf("%s: %w", rep.Stage, err)
	}
	return reports, nil
}
