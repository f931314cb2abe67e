package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/japaniel/songvocab/pkg/api"
	"github.com/japaniel/songvocab/pkg/observe"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	prov, err := observe.InitProvider()
	if err != nil {
		return err
	}
	defer func() { _ = prov.Shutdown(context.Background()) }()

	a, err := newApp(ctx, cfg, logger, prov.Metrics)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := api.NewServer(a.agent, a.store, api.Options{
		AgentPerMinute:    cfg.RateLimit.AgentPerMinute,
		ThoughtsPerMinute: cfg.RateLimit.ThoughtsPerMinute,
		IdleTTL:           cfg.RateLimit.IdleTTL,
		TraceCapacity:     cfg.Traces.Capacity,
		TrustProxy:        cfg.HTTP.TrustProxy,
		Checkers:          []api.Checker{{Name: "database", Check: a.store.Ping}},
		MetricsHandler:    prov.Handler,
		Logger:            logger.Named("http"),
		Metrics:           prov.Metrics,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
