package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lvstat/internal/config"
	"lvstat/internal/indicator"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(false)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration and a sample indicator catalog",
		Args:  cobra.MaximumNArgs(1),
		// The existing file may be unreadable; init never loads it.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}
			cfg := config.DefaultConfig()
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

			if a.dataDir != "" {
				cfg.Paths.DataDir = a.dataDir
			}
			catalog := cfg.Resolve(cfg.Paths.IndicatorsFile)
			if _, err := os.Stat(catalog); err == nil {
				return nil
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := writeCatalog(catalog, sampleCatalog(cfg)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", catalog)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg); err != nil {
				return err
			}
			if err := enc.Close(); err != nil {
				return err
			}
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

// sampleCatalog lists the Eurostat datasets named in cfg. World Bank files
// are configured separately and left out.
func sampleCatalog(cfg *config.Config) []indicator.Indicator {
	var inds []indicator.Indicator
	for code, name := range cfg.Indicators.Names {
		if strings.HasPrefix(code, "API_") {
			continue
		}
		inds = append(inds, indicator.Indicator{Code: code, Name: name, Geo: cfg.Eurostat.Geo})
	}
	sort.Slice(inds, func(i, j int) bool { return inds[i].Code < inds[j].Code })
	return inds
}

func writeCatalog(path string, inds []indicator.Indicator) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := indicator.WriteCatalog(f, inds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
