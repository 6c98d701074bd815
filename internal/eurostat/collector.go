package eurostat

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lvstat/internal/indicator"
	"lvstat/internal/table"
)

// Fetcher downloads one dataset.
type Fetcher interface {
	Fetch(ctx context.Context, code string) (*table.Table, error)
}

// Collector saves the catalog's datasets under a raw directory.
type Collector struct {
	logger      *zap.Logger
	fetcher     Fetcher
	rawDir      string
	concurrency int
}

// CollectReport lists the outcome per indicator code.
type CollectReport struct {
	Saved  []string         // output paths
	Failed map[string]error // code -> error
}

// NewCollector creates a collector writing {rawDir}/{code}_raw.csv files.
func NewCollector(logger *zap.Logger, fetcher Fetcher, rawDir string, concurrency int) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{logger: logger, fetcher: fetcher, rawDir: rawDir, concurrency: concurrency}
}

// RawPath returns where the dataset of code is saved.
func (c *Collector) RawPath(code string) string {
	return filepath.Join(c.rawDir, code+"_raw.csv")
}

// Collect fetches every indicator, keeps the rows of its geo and saves it.
// A failing indicator is logged and recorded; the others still run. The
// returned error is only set when ctx is cancelled.
func (c *Collector) Collect(ctx context.Context, inds []indicator.Indicator) (CollectReport, error) {
	rep := CollectReport{Failed: map[string]error{}}
	var mu sync.Mutex

	c.logger.Info("Loading indicators", zap.Int("count", len(inds)))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, ind := range inds {
		ind := ind
		g.Go(func() error {
			path, err := c.collectOne(gctx, ind)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.Error("Error loading indicator", zap.String("code", ind.Code), zap.Error(err))
				rep.Failed[ind.Code] = err
				return nil
			}
			rep.Saved = append(rep.Saved, path)
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(rep.Saved)
	return rep, ctx.Err()
}

func (c *Collector) collectOne(ctx context.Context, ind indicator.Indicator) (string, error) {
	logger := c.logger.With(zap.String("code", ind.Code), zap.String("name", ind.Name), zap.String("geo", ind.Geo))
	logger.Info("Loading indicator")
	t, err := c.fetcher.Fetch(ctx, ind.Code)
	if err != nil {
		return "", err
	}
	filtered, ok := FilterGeo(t, ind.Geo)
	if ok {
		logger.Info("Filtered by geo", zap.Int("rows", len(filtered.Rows)))
	} else {
		logger.Warn("geo column not found in dataset")
	}
	path := c.RawPath(ind.Code)
	if err := table.WriteFile(path, filtered); err != nil {
		return "", err
	}
	logger.Info("Saved", zap.String("output", path), zap.Int("rows", len(filtered.Rows)), zap.Int("cols", len(filtered.Header)))
	return path, nil
}
