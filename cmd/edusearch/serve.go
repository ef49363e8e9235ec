// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/edusearch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP search API",
	Long: `Serve starts the HTTP API. GET or POST /api/search runs a search for the
bearer token's user; /health reports store reachability and /metrics
exposes Prometheus counters. The server stops cleanly on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		a.cfg.Server.Addr = addr
	}
	tokens, err := a.tokens()
	if err != nil {
		return err
	}

	a.log.Info("starting edusearch",
		zap.String("version", version),
		zap.Any("sources", a.agg.Sources()),
		zap.String("empty_query_mode", string(a.cfg.Server.EmptyQueryMode)),
	)
	srv := server.New(a.cfg.Server, a.svc, tokens, a.metrics, a.log,
		server.HealthCheck{Name: "store", Check: a.store.Ping},
	)
	return srv.Run(ctx)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")

	rootCmd.AddCommand(serveCmd)
}
