package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"lvstat/internal/annual"
	"lvstat/internal/indicator"
	"lvstat/internal/profile"
	"lvstat/internal/table"
)

func (a *app) summaryCmd() *cobra.Command {
	var merged bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print per-indicator coverage and statistics of the annual table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.pipeline()
			path, key := p.AnnualPath(), annual.YearColumn
			if merged {
				path, key = p.MergedPath(), "TIME_PERIOD"
			}
			t, err := table.ReadFile(path)
			if err != nil {
				return err
			}
			classes := indicator.NewClasses(a.cfg.Indicators.Continuous, a.cfg.Indicators.Discrete)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d indicators\n", path, len(t.Rows), len(t.Header)-1)
			printSummary(cmd.OutOrStdout(), profile.Stats(t, profile.Options{KeyColumn: key, Classes: classes}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&merged, "merged", false, "Summarise the merged table instead of the annual one")
	return cmd
}

func printSummary(w io.Writer, stats []profile.ColumnStats) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Indicator", "Class", "Values", "Missing %", "First", "Last", "Min", "Mean", "Max"})
	tw.SetAutoWrapText(false)
	for _, cs := range stats {
		row := []string{
			cs.Name,
			cs.Class.String(),
			strconv.Itoa(cs.NonEmpty),
			strconv.FormatFloat(cs.MissingPct, 'f', 1, 64),
			cs.First,
			cs.Last,
			"", "", "",
		}
		if n := len(cs.Nums); n > 0 {
			// Nums is sorted.
			row[6] = fmtStat(cs.Nums[0])
			row[7] = fmtStat(stat.Mean(cs.Nums, nil))
			row[8] = fmtStat(cs.Nums[n-1])
		}
		tw.Append(row)
	}
	tw.Render()
}

func fmtStat(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }
