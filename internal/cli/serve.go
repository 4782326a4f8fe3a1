package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clearcast/clearcast/internal/config"
	"github.com/clearcast/clearcast/internal/server"
	"github.com/clearcast/clearcast/internal/worker"
)

var serveAddr string

// serveCmd runs the HTTP service and its worker pool
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the verification service",
	Long: `Serve starts the HTTP API and the background worker pool.

Checks are submitted with POST /api/v1/checks, polled with
GET /api/v1/checks/{id}, and streamed with GET /api/v1/checks/{id}/events.

Example:
  clearcast serve
  clearcast serve --addr :9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	pool := worker.NewPool(cfg.Worker)
	pool.Start()
	defer pool.Shutdown()

	srv := server.New(cfg.Server, comps.store, pool, comps.pipeline, comps.hub, comps.tracker)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}
