package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"logship/pkg/appender"
	"logship/pkg/control"
	"logship/pkg/diag"
	"logship/pkg/ingest"
	"logship/pkg/logging"
	"logship/pkg/metrics"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingest listeners and the delivery pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, v)
		},
	}

	flags := cmd.Flags()
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.String("tcp-addr", "", "TCP ingest address")
	flags.String("udp-addr", "", "UDP ingest address")
	flags.Bool("watch", false, "reload appenders when the config file changes")
	_ = v.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
	_ = v.BindPFlag("ingest.tcp_addr", flags.Lookup("tcp-addr"))
	_ = v.BindPFlag("ingest.udp_addr", flags.Lookup("udp-addr"))
	_ = v.BindPFlag("watch", flags.Lookup("watch"))
	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	// 1. Config and logger
	cfg, _, err := loadConfig(v)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Service, cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("initializing logship")

	// 2. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 3. Shared collaborators
	deps := appender.Deps{
		Diagnostics: diag.NewLogger(log.Named("pipeline")),
		Metrics:     m,
		Console:     os.Stdout,
	}
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		deps.Redis = rdb
	}

	// 4. Appenders
	set, err := appender.Build(cfg, deps)
	if err != nil {
		return err
	}
	router := appender.NewRouter(set, deps.Diagnostics)
	defer func() {
		log.Info("shutting down appenders")
		if err := router.Close(); err != nil {
			log.Warn("appenders did not shut down cleanly", zap.Error(err))
		}
	}()

	// 5. Control plane
	applier := control.NewApplier(router, deps, log.Named("control"))
	if rdb != nil {
		src := control.NewRedisSource(rdb, cfg.Redis.ConfigKey, cfg.Redis.Channel, applier, log.Named("control"))
		if err := src.Start(ctx); err != nil {
			log.Warn("redis config source unavailable", zap.Error(err))
		}
	}
	if path := v.GetString("config"); path != "" && v.GetBool("watch") {
		if err := control.NewFileSource(path, applier, log.Named("control")).Start(ctx); err != nil {
			return err
		}
	}

	// 6. Ingestors
	errCh := make(chan error, 3)
	if cfg.Ingest.TCPAddr != "" {
		tcp := ingest.NewTCPIngestor(cfg.Ingest.TCPAddr, router, log)
		if err := tcp.Listen(); err != nil {
			return err
		}
		go func() { errCh <- tcp.Serve(ctx) }()
	}
	if cfg.Ingest.UDPAddr != "" {
		udp := ingest.NewUDPIngestor(cfg.Ingest.UDPAddr, router, log)
		if err := udp.Listen(); err != nil {
			return err
		}
		go func() { errCh <- udp.Serve(ctx) }()
	}

	// 7. Metrics endpoint
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info("metrics endpoint listening", zap.String("addr", cfg.Metrics.Addr), zap.String("path", cfg.Metrics.Path))
	}

	log.Info("logship running", zap.Int("appenders", len(set.Appenders())))
	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			log.Error("listener failed", zap.Error(err))
		}
		return err
	}
}
