package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"lvstat/internal/compare"
	"lvstat/internal/table"
)

func (a *app) compareCmd() *cobra.Command {
	var (
		key     string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "compare <reference.csv> <candidate.csv>",
		Short: "Score a candidate table against a reference aligned on a key column",
		Example: `  lvstat compare reference/merged_df_annual.csv data/processed/merged/merged_df_annual.csv
  lvstat compare ref.csv cand.csv --key TIME_PERIOD --out outputs/compare_report.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := compare.Files(args[0], args[1], key)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := report.WriteJSON(outPath); err != nil {
					return err
				}
			}
			printCompare(cmd.OutOrStdout(), report)
			if outPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\n", outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", compare.DefaultKey, "Key column used to align rows")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the JSON report to this path")
	return cmd
}

func printCompare(w io.Writer, r compare.Report) {
	fmt.Fprintf(w, "Status:             %s\n", r.Status)
	fmt.Fprintf(w, "Matched rows:       %d of %d (candidate %d)\n", r.RowAlignment.MatchedRows, r.RowAlignment.ReferenceRows, r.RowAlignment.CandidateRows)
	fmt.Fprintf(w, "Dataset similarity: %.6f\n", r.Scores.DatasetSimilarity)
	fmt.Fprintf(w, "Overall score:      %.6f\n", r.Scores.OverallScore)

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Reference", "Candidate", "Header", "Similarity"})
	tw.SetAutoWrapText(false)
	for _, cs := range r.Scores.PerReferenceColumn {
		cand := "-"
		if cs.CandidateColumn != nil {
			cand = *cs.CandidateColumn
		}
		tw.Append([]string{
			cs.ReferenceColumn,
			cand,
			strconv.FormatFloat(cs.HeaderSimilarity, 'f', 3, 64),
			strconv.FormatFloat(cs.Similarity, 'f', 6, 64),
		})
	}
	tw.Render()
	if len(r.CandidateUnmatched) > 0 {
		fmt.Fprintf(w, "Unmatched candidate columns: %v\n", r.CandidateUnmatched)
	}
}

func (a *app) shuffleCmd() *cobra.Command {
	var (
		seed       int64
		sampleRows int
	)
	cmd := &cobra.Command{
		Use:   "shuffle <input.csv> <output.csv>",
		Short: "Write a shuffled, slightly renamed copy of a table for checking compare",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := table.ReadFile(args[0])
			if err != nil {
				return err
			}
			out, renames := compare.Shuffle(in, seed, sampleRows)
			if err := table.WriteFile(args[1], out); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Input:  %s\n", args[0])
			fmt.Fprintf(w, "Output: %s\n", args[1])
			fmt.Fprintf(w, "Seed:   %d\n", seed)
			fmt.Fprintf(w, "Rows:   %d\n", len(out.Rows))
			fmt.Fprintf(w, "Cols:   %d\n", len(out.Header))
			fmt.Fprintln(w, "Column mapping:")
			for _, col := range in.Header {
				fmt.Fprintf(w, "  %s -> %s\n", col, renames[col])
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", compare.DefaultSeed, "Deterministic shuffle seed")
	cmd.Flags().IntVar(&sampleRows, "sample-rows", 0, "If > 0, keep only this many rows after shuffling")
	return cmd
}
