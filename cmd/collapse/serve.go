package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/collapse-engine/internal/clock"
	"github.com/danielpatrickdp/collapse-engine/internal/config"
	"github.com/danielpatrickdp/collapse-engine/internal/engine"
	"github.com/danielpatrickdp/collapse-engine/internal/execstub"
	"github.com/danielpatrickdp/collapse-engine/internal/health"
	"github.com/danielpatrickdp/collapse-engine/internal/journal"
	"github.com/danielpatrickdp/collapse-engine/internal/metrics"
	"github.com/danielpatrickdp/collapse-engine/internal/relay"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/websocket API and the gRPC health service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg, a.logger)
		},
	}
}

// #region serve
// serve wires one engine session to its observers and runs both listeners until ctx ends
// or either listener fails.
func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	eng, err := engine.New(cfg.EngineConfig(), clock.Real(), rand.New(rand.NewSource(seed)), logger.Named("engine"))
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer eng.Close()

	store, err := journal.NewStore(cfg.JournalDSN)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer store.Close()
	eng.Subscribe(journal.NewRecorder(store, logger.Named("journal")))

	collector := metrics.NewCollector()
	eng.Subscribe(collector)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	api, err := relay.NewServer(relay.Deps{
		Engine:  eng,
		Runner:  execstub.New(cfg.ExecConfig()),
		Journal: store,
		Metrics: collector.Handler(),
	}, relay.Options{
		ClientURL:         cfg.ClientURL,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	}, logger.Named("relay"))
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	eng.Subscribe(api.Hub())

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("serve: listen %s: %w", cfg.GRPCAddr, err)
	}
	grpcSrv := health.NewServer(logger.Named("health"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening",
			zap.String("addr", httpSrv.Addr),
			zap.String("env", cfg.Env),
			zap.String("session_id", eng.Snapshot().SessionID),
		)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := grpcSrv.Serve(lis); err != nil {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})
	grpcSrv.SetServing(true)

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		grpcSrv.Shutdown()
		api.Hub().Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// #endregion serve
