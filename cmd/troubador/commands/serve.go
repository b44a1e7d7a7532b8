package commands

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

	"github.com/Victoriakaey/troubador2/internal/adapters/rest"
	"github.com/Victoriakaey/troubador2/internal/worker"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			a, err := newApp(cmd.Context(), cfg, reg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			pool := worker.NewPool(a.orchestrator, cfg.Worker.QueueSize, logger)
			pool.Start(cfg.Worker.Workers)
			defer pool.Stop()

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           rest.NewHandler(a.orchestrator, a.tools, pool, reg, logger),
				ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
			}

			serverErr := make(chan error, 1)
			go func() {
				err := srv.ListenAndServe()
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
					return
				}
				serverErr <- nil
			}()

			logger.Info("serve: troubador API is running",
				"addr", cfg.Server.Addr,
				"model_provider", cfg.Model.Provider,
				"model", cfg.Model.Name,
				"storage", cfg.Storage.Driver)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-serverErr:
				return err
			case <-ctx.Done():
				logger.Info("serve: shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("serve: shutdown error", "error", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
