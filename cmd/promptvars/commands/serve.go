package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/teranos/promptvars/logger"
	"github.com/teranos/promptvars/toolserver"
)

// ServeCmd serves the tools over stdio
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tools over stdio (Model Context Protocol)",
	Long: `Expose extract_variables, render_template and the template store operations
as Model Context Protocol tools on stdin/stdout. Logs go to stderr.

With metrics.enabled and metrics.address set, Prometheus metrics are
served on http://<address>/metrics.

Example client configuration:
  {"command": "promptvars", "args": ["serve"]}`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	h, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	log := logger.ComponentLogger("serve")
	if cfg.Metrics.Enabled && cfg.Metrics.Address != "" {
		srv := &http.Server{Addr: cfg.Metrics.Address, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Infow("Metrics server listening", "address", cfg.Metrics.Address)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorw("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	log.Infow("Starting tool server", "backend", h.Kind, "name", cfg.Server.Name)
	return toolserver.New(h.Store, cfg.Server, logger.ComponentLogger("tools")).Serve()
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
