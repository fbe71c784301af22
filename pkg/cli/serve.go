package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpctrl "github.com/appu-labs/appu/pkg/controller/http"
	"github.com/appu-labs/appu/pkg/service/worker"
	"github.com/appu-labs/appu/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var consolidationInterval time.Duration
	var consolidationTimeout time.Duration
	var pipeline pipelineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("APPU_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "consolidation-interval",
			Usage:       "Interval of the background consolidation sweep (0 disables it)",
			Value:       time.Hour,
			Sources:     cli.EnvVars("APPU_CONSOLIDATION_INTERVAL"),
			Destination: &consolidationInterval,
		},
		&cli.DurationFlag{
			Name:        "consolidation-timeout",
			Usage:       "Timeout of a consolidation run triggered over HTTP",
			Value:       5 * time.Minute,
			Sources:     cli.EnvVars("APPU_CONSOLIDATION_TIMEOUT"),
			Destination: &consolidationTimeout,
		},
	}
	flags = append(flags, pipeline.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server and the consolidation worker",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, cleanup, err := pipeline.build(ctx)
			defer cleanup()
			if err != nil {
				return err
			}

			var consolidationWorker *worker.ConsolidationWorker
			if consolidationInterval > 0 {
				consolidationWorker = worker.NewConsolidationWorker(uc.Consolidation, consolidationInterval)
				if err := consolidationWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start consolidation worker")
				}
				defer consolidationWorker.Stop()
			} else {
				logging.Default().Warn("Consolidation worker disabled")
			}

			server := &http.Server{
				Addr: addr,
				Handler: httpctrl.New(uc,
					httpctrl.WithMetricsHandler(uc.Metrics().Handler()),
					httpctrl.WithConsolidationTimeout(consolidationTimeout),
				),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop the worker first so no sweep races the shutdown
				if consolidationWorker != nil {
					consolidationWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
