package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/radryc/binance-exporter/binance"
	"github.com/radryc/binance-exporter/collector"
	"github.com/radryc/binance-exporter/config"
	"github.com/radryc/binance-exporter/drift"
	"github.com/radryc/binance-exporter/logger"
	"github.com/radryc/binance-exporter/webserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			http.NewServeMux,
			prometheus.NewRegistry,
			provideClient,
			func(c *binance.Client) drift.TimeSource { return c },
			provideCollector,
			drift.New,
		),
		fx.Invoke(registerWebserver),
		fx.Invoke(registerHooks),
		logger.Module,
	).Run()
}

func provideClient(cfg *config.Config, log *zap.SugaredLogger) (*binance.Client, error) {
	return binance.NewClient(cfg.APIKey, cfg.Secret, binance.WithLogger(log))
}

func provideCollector(client *binance.Client, cfg *config.Config, log *zap.SugaredLogger) *collector.Collector {
	return collector.New(client, collector.Catalog(), cfg.Name, log)
}

// registerWebserver wires the scrape handler with a fatal path that shuts the
// process down: a failed snapshot must never be followed by a partial scrape,
// so the supervisor restarting the exporter is the recovery mechanism.
func registerWebserver(
	mux *http.ServeMux, col *collector.Collector, registry *prometheus.Registry,
	log *zap.SugaredLogger, shutdowner fx.Shutdowner,
) {
	onFatal := func(err error) {
		log.Errorw("shutting down after failed snapshot", "error", err)
		if err := shutdowner.Shutdown(fx.ExitCode(1)); err != nil {
			log.Errorw("shutdown failed", "error", err)
		}
	}
	webserver.New(mux, col, registry, log, onFatal)
}

func registerHooks(
	lifecycle fx.Lifecycle, cfg *config.Config, mux *http.ServeMux,
	log *zap.SugaredLogger, checker *drift.Checker,
) {
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}
	lifecycle.Append(
		fx.Hook{
			OnStart: func(context.Context) error {
				log.Infof("Starting Binance Exporter %s on port %d.", cfg.Name, cfg.Port)
				go server.ListenAndServe()
				return checker.StartCron()
			},
			OnStop: func(ctx context.Context) error {
				checker.StopCron()
				_ = server.Shutdown(ctx)
				return log.Sync()
			},
		},
	)
}
