package main

import (
	"github.com/spf13/cobra"

	"lvstat/internal/server"
	"lvstat/internal/store"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Browse the SQLite export and the EDA plots over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			db, err := store.Open(a.cfg.StorePath())
			if err != nil {
				return err
			}
			defer db.Close()
			return server.New(a.logger.Named("server"), db, a.cfg.PlotsDir()).ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	return cmd
}
