// Package eda draws the exploratory plots for each research question from
// the annual indicator table.
package eda

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"
)

// YearColumn is the x axis of every time plot.
const YearColumn = "Year"

// CombinedFile is the name of the overlaid time series plot.
const CombinedFile = "combined_timeseries_GDP_Exports_Transport.png"

// ResearchQuestion groups the indicators analysed together.
type ResearchQuestion struct {
	Name         string
	Indicators   []string
	ScatterPairs [][2]string // (x, y)
	Combined     []string
}

// Report lists the files written and the plots that were skipped.
type Report struct {
	Files   []string
	Skipped []string
}

// Load reads the annual CSV and keeps the rows with Year >= minYear.
// Every column is read as a float; empty cells are NaN.
func Load(path string, minYear int) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.Float),
		dataframe.NaNValues([]string{"", "NA", "NaN", "nan", "<NA>"}),
	)
	if df.Err != nil {
		return df, fmt.Errorf("read %s: %w", path, df.Err)
	}
	if !hasColumn(df, YearColumn) {
		return df, fmt.Errorf("%s has no %s column", path, YearColumn)
	}
	df = df.Filter(dataframe.F{Colname: YearColumn, Comparator: series.GreaterEq, Comparando: float64(minYear)})
	if df.Err != nil {
		return df, fmt.Errorf("filter %s: %w", path, df.Err)
	}
	return df, nil
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// column returns the values of name, or false when the column is absent.
func column(df dataframe.DataFrame, name string) ([]float64, bool) {
	if !hasColumn(df, name) {
		return nil, false
	}
	return df.Col(name).Float(), true
}

// FileSafe makes an indicator name usable inside a file name.
func FileSafe(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}

// Generate writes every plot of rq under outDir/rq.Name.
func Generate(df dataframe.DataFrame, rq ResearchQuestion, outDir string, logger *zap.Logger) (Report, error) {
	var rep Report
	logger = logger.With(zap.String("rq", rq.Name))
	dir := filepath.Join(outDir, rq.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rep, err
	}
	years, ok := column(df, YearColumn)
	if !ok {
		return rep, fmt.Errorf("no %s column", YearColumn)
	}

	var present []string
	for _, ind := range rq.Indicators {
		if !hasColumn(df, ind) {
			logger.Warn("Indicator not in annual table", zap.String("indicator", ind))
			rep.Skipped = append(rep.Skipped, "timeseries_"+FileSafe(ind)+".png")
			continue
		}
		present = append(present, ind)
	}

	for _, ind := range present {
		vals, _ := column(df, ind)
		path := filepath.Join(dir, "timeseries_"+FileSafe(ind)+".png")
		if err := TimeSeries(path, ind, years, vals); err != nil {
			return rep, fmt.Errorf("plot %s: %w", ind, err)
		}
		rep.Files = append(rep.Files, path)
	}

	if len(rq.Combined) > 0 {
		var lines []NamedSeries
		for _, ind := range rq.Combined {
			if vals, ok := column(df, ind); ok {
				lines = append(lines, NamedSeries{Name: ind, Values: vals})
			}
		}
		if len(lines) > 0 {
			path := filepath.Join(dir, CombinedFile)
			if err := Combined(path, "Combined Time Series: "+joinNames(rq.Combined), years, lines); err != nil {
				return rep, fmt.Errorf("plot combined: %w", err)
			}
			rep.Files = append(rep.Files, path)
		} else {
			rep.Skipped = append(rep.Skipped, CombinedFile)
		}
	}

	for _, pair := range rq.ScatterPairs {
		x, y := pair[0], pair[1]
		name := "scatter_" + FileSafe(y) + "_vs_" + FileSafe(x) + ".png"
		xs, okX := column(df, x)
		ys, okY := column(df, y)
		if !okX || !okY {
			logger.Warn("Scatter pair not in annual table", zap.String("x", x), zap.String("y", y))
			rep.Skipped = append(rep.Skipped, name)
			continue
		}
		path := filepath.Join(dir, name)
		if err := Scatter(path, x, y, xs, ys); err != nil {
			return rep, fmt.Errorf("plot %s: %w", name, err)
		}
		rep.Files = append(rep.Files, path)
	}

	cols := make([][]float64, len(present))
	for i, ind := range present {
		cols[i], _ = column(df, ind)
	}
	corr, rows := Correlation(cols)
	if corr == nil {
		logger.Warn("Not enough complete rows for correlation heatmap", zap.Int("rows", rows))
		rep.Skipped = append(rep.Skipped, "correlation_heatmap.png")
		return rep, nil
	}
	csvPath := filepath.Join(dir, "correlation_matrix.csv")
	if err := WriteMatrix(csvPath, present, corr); err != nil {
		return rep, err
	}
	heatPath := filepath.Join(dir, "correlation_heatmap.png")
	if err := Heatmap(heatPath, "Correlation Heatmap of "+rq.Name, present, corr); err != nil {
		return rep, fmt.Errorf("plot heatmap: %w", err)
	}
	rep.Files = append(rep.Files, csvPath, heatPath)
	logger.Info("Generated plots", zap.Int("files", len(rep.Files)), zap.Int("skipped", len(rep.Skipped)), zap.Int("corr_rows", rows))
	return rep, nil
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

// points pairs xs and ys, skipping pairs with a NaN.
func points(xs, ys []float64) ([]float64, []float64) {
	var px, py []float64
	for i := range xs {
		if i >= len(ys) || math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		px = append(px, xs[i])
		py = append(py, ys[i])
	}
	return px, py
}
