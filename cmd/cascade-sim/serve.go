package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"cascade-sim/internal/api"
	"cascade-sim/internal/metrics"
)

var (
	serveAddr      string
	serveGraphFile string
	serveOutFile   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation HTTP API",
	Long:  "serve exposes POST /api/v1/simulate/cascade, /health and /metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		provider, err := newProvider(cfg, serveGraphFile)
		if err != nil {
			return err
		}
		o, err := newOrchestrator(cfg, provider, metrics.New(reg))
		if err != nil {
			return err
		}

		writer, cleanup, err := newWriters(cfg, false, false, true, serveOutFile, "")
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := api.NewServer(o, api.Options{Logger: logger, Writer: writer, Gatherer: reg})
		if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("http server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveGraphFile, "graph", "", "Static graph YAML used instead of the knowledge graph")
	serveCmd.Flags().StringVar(&serveOutFile, "out", "", "Write every result to this JSONL file")
}
