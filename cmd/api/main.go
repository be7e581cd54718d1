package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimemonitor/internal/config"
	"github.com/hamed0406/uptimemonitor/internal/domain"
	"github.com/hamed0406/uptimemonitor/internal/httpapi"
	apimw "github.com/hamed0406/uptimemonitor/internal/httpapi/middleware"
	"github.com/hamed0406/uptimemonitor/internal/logging"
	"github.com/hamed0406/uptimemonitor/internal/metricsink"
	"github.com/hamed0406/uptimemonitor/internal/probe"
	"github.com/hamed0406/uptimemonitor/internal/repo"
	"github.com/hamed0406/uptimemonitor/internal/repo/memory"
	"github.com/hamed0406/uptimemonitor/internal/repo/postgres"
	"github.com/hamed0406/uptimemonitor/internal/scheduler"
)

var version = "dev"

type store interface {
	repo.MonitorStore
	repo.CheckStore
	repo.SnapshotStore
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api_exit", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var st store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		st = pg
		logger.Info("store_postgres")
	} else {
		st = memory.New()
		logger.Info("store_memory")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metricsink.NewPrometheus(reg)

	sinks := metricsink.Multi{prom}
	if g := metricsink.NewGraphite(cfg.Graphite.Host, cfg.Graphite.Port, cfg.Graphite.Protocol, cfg.Graphite.Prefix); g != nil {
		sinks = append(sinks, g)
		logger.Info("sink_graphite", zap.String("host", cfg.Graphite.Host), zap.String("protocol", cfg.Graphite.Protocol))
	}
	if k := metricsink.NewKafka(cfg.KafkaBroker, cfg.KafkaTopic); k != nil {
		sinks = append(sinks, k)
		defer func() { err = multierr.Append(err, k.Close()) }()
		logger.Info("sink_kafka", zap.Strings("brokers", cfg.KafkaBroker), zap.String("topic", cfg.KafkaTopic))
	}
	fwd := metricsink.NewForwarder(logger, sinks, cfg.SinkTimeout)

	runner := scheduler.NewRunner(logger, st, st, st, probe.NewHTTPChecker(cfg.ProbeTimeout), fwd, cfg.MaxConcurrent)
	loop := scheduler.NewLoop(logger, runner, cfg.RoundInterval)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()

	api := httpapi.NewServer(logger, st, st, st, runner)
	api.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	api.OnDelete = prom.Forget
	api.Version = version

	owners := make(map[string]domain.OwnerID, len(cfg.APIKeys))
	for key, owner := range cfg.APIKeys {
		owners[key] = domain.OwnerID(owner)
	}
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.Router(httpapi.Options{
			Keys:           apimw.Keys{Owners: owners, Admin: cfg.AdminAPIKeys},
			AllowedOrigins: cfg.AllowedOrigins,
			RateRPM:        cfg.RateRPM,
			RateBurst:      cfg.RateBurst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if len(owners) == 0 && len(cfg.AdminAPIKeys) == 0 {
		logger.Warn("auth_disabled", zap.String("owner", string(apimw.LocalOwner)))
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.String("version", version))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		logger.Info("api_shutdown")
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
	defer done()
	err = multierr.Append(err, srv.Shutdown(shutdownCtx))
	// a round in flight runs to completion, then its metrics drain
	<-loopDone
	runner.Flush()
	return err
}
