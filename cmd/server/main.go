package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xtding233/wheel-backend/internal/config"
	"github.com/xtding233/wheel-backend/internal/logging"
	"github.com/xtding233/wheel-backend/internal/metrics"
	"github.com/xtding233/wheel-backend/internal/server"
	"github.com/xtding233/wheel-backend/internal/wheel"
)

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}
	flag.StringVar(&settings.ConfigDir, "conf", settings.ConfigDir, "config base dir (contains wheels/)")
	flag.StringVar(&settings.WheelName, "wheel", settings.WheelName, "wheel name")
	flag.Parse()

	logger := logging.New(logging.Config{
		Level: settings.LogLevel,
		App:   "wheel",
		Dir:   settings.LogDir,
		File:  settings.LogFile,
	})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, settings, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, s config.Settings, logger *zap.Logger) error {
	loader := config.NewLoader(s.ConfigDir)
	_, w, err := loader.Resolve(s.WheelName, config.Overrides{})
	if err != nil {
		return fmt.Errorf("resolve wheel %q: %w", s.WheelName, err)
	}

	opts := []wheel.Option{}
	if s.Seed != 0 {
		opts = append(opts, wheel.WithRNG(wheel.NewSeededRNG(s.Seed)))
	}
	if s.AutoComplete {
		opts = append(opts, wheel.WithAnimator(server.NewTimerAnimator(logger)))
	}
	engine, err := wheel.NewEngine(wheel.NewTable(), w.Spin, opts...)
	if err != nil {
		return err
	}
	svc := server.NewService(engine, logger, server.WithManualCompletion(!s.AutoComplete))
	if res := svc.Apply(w); !res.Valid {
		return fmt.Errorf("wheel %q: %s", w.Name, res)
	}
	logger.Info("wheel loaded",
		zap.String("wheel", w.Name),
		zap.String("version", w.Version),
		zap.Int("slices", len(w.Slices)),
	)

	httpSrv := &http.Server{
		Addr:              s.HTTPAddr,
		Handler:           server.NewHandler(svc, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcSrv, health := server.NewGRPCServer(svc, logger)

	watcher := config.NewFileWatcher(
		[]string{loader.Paths().DefaultPath(), loader.Paths().WheelPath(s.WheelName)},
		s.WatchInterval,
		func(path string) { reload(loader, svc, s.WheelName, path, logger) },
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", s.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", s.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		logger.Info("grpc listening", zap.String("addr", s.GRPCAddr))
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		grpcSrv.GracefulStop()
		return nil
	})
	return g.Wait()
}

// reload re-reads the wheel and swaps the slice table. On error the old
// table stays in place.
func reload(loader *config.Loader, svc *server.Service, name, path string, logger *zap.Logger) {
	loader.Invalidate()
	_, w, err := loader.Resolve(name, config.Overrides{})
	if err != nil {
		metrics.ConfigReloaded(false)
		logger.Error("reload failed", zap.String("path", path), zap.Error(err))
		return
	}
	res := svc.Apply(w)
	metrics.ConfigReloaded(res.Valid)
	logger.Info("wheel reloaded",
		zap.String("path", path),
		zap.String("version", w.Version),
		zap.Bool("valid", res.Valid),
	)
}
