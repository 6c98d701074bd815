// Command lvstat collects Latvian macroeconomic indicators from Eurostat and
// the World Bank, harmonizes them to annual resolution and explores them.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lvstat/internal/config"
	"lvstat/internal/logging"
	"lvstat/internal/pipeline"
)

// app holds what the root command sets up for its subcommands.
type app struct {
	configPath string
	dataDir    string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
}

func (a *app) pipeline() *pipeline.Pipeline {
	return pipeline.New(a.cfg, a.logger)
}

// setup loads the configuration, applies the flag overrides and builds the
// logger. Validation is skipped for commands that inspect or rewrite the
// configuration itself.
func (a *app) setup(validate bool) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.Paths.DataDir = a.dataDir
	}
	if validate {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, a.verbose)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out, logger: zap.NewNop()}
	rootCmd := &cobra.Command{
		Use:   "lvstat",
		Short: "Latvia indicators pipeline",
		Long: `lvstat downloads Eurostat datasets and World Bank series for Latvia,
reshapes them to long format, harmonizes period labels, merges them into one
table, aggregates it to annual resolution and draws exploratory plots.

Stages can be run one at a time or all together:
  lvstat run
  lvstat run --skip-collect`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(true)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "Data directory (overrides paths.data_dir)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		a.collectCmd(),
		a.reshapeCmd(),
		a.periodsCmd(),
		a.mergeCmd(),
		a.annualCmd(),
		a.edaCmd(),
		a.runCmd(),
		a.exportCmd(),
		a.profileCmd(),
		a.summaryCmd(),
		a.compareCmd(),
		a.shuffleCmd(),
		a.serveCmd(),
		a.configCmd(),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
