package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"lvstat/internal/pipeline"
)

// printReports renders one line per stage followed by the failed inputs.
func printReports(w io.Writer, reports ...*pipeline.Report) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Stage", "Processed", "Skipped", "Failed"})
	for _, r := range reports {
		if r == nil {
			continue
		}
		tw.Append([]string{r.Stage, strconv.Itoa(len(r.Processed)), strconv.Itoa(len(r.Skipped)), strconv.Itoa(len(r.Failed))})
	}
	tw.Render()

	for _, r := range reports {
		if r == nil || len(r.Failed) == 0 {
			continue
		}
		keys := make([]string, 0, len(r.Failed))
		for k := range r.Failed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s: %s: %v\n", r.Stage, k, r.Failed[k])
		}
	}
}

// stageCmd wraps a single-report stage. Per-input failures are printed but
// do not fail the command.
func (a *app) stageCmd(use, short string, run func(*pipeline.Pipeline, context.Context) (*pipeline.Report, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := run(a.pipeline(), cmd.Context())
			printReports(cmd.OutOrStdout(), rep)
			return err
		},
	}
}

func (a *app) collectCmd() *cobra.Command {
	return a.stageCmd("collect", "Download Eurostat datasets and World Bank series into the raw directory", (*pipeline.Pipeline).Collect)
}

func (a *app) reshapeCmd() *cobra.Command {
	return a.stageCmd("reshape", "Transform raw files to long format", (*pipeline.Pipeline).Reshape)
}

func (a *app) periodsCmd() *cobra.Command {
	return a.stageCmd("periods", "Harmonize period labels to dates", (*pipeline.Pipeline).FormatPeriods)
}

func (a *app) mergeCmd() *cobra.Command {
	return a.stageCmd("merge", "Merge formatted files into one table", (*pipeline.Pipeline).Merge)
}

func (a *app) edaCmd() *cobra.Command {
	return a.stageCmd("eda", "Draw plots and correlation matrices per research question", (*pipeline.Pipeline).EDA)
}

func (a *app) exportCmd() *cobra.Command {
	return a.stageCmd("export", "Load the merged and annual tables into SQLite", (*pipeline.Pipeline).Export)
}

func (a *app) annualCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "annual",
		Short: "Aggregate the merged table to one row per year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, rep, err := a.pipeline().Annual(cmd.Context())
			printReports(cmd.OutOrStdout(), rep)
			if err != nil {
				return err
			}
			if len(res.Missing) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "configured but absent: %v\n", res.Missing)
			}
			return nil
		},
	}
}

func (a *app) runCmd() *cobra.Command {
	var skipCollect bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every stage in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reports, err := a.pipeline().Run(cmd.Context(), skipCollect)
			printReports(cmd.OutOrStdout(), reports...)
			return err
		},
	}
	cmd.Flags().BoolVar(&skipCollect, "skip-collect", false, "Reuse the files already in the raw directory")
	return cmd
}

func (a *app) profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Write a markdown data-quality profile of the annual table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.pipeline().Profile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile: %s\n", path)
			return nil
		},
	}
}
