// Package main wires together the acquisition service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/insightforge/webintel/internal/api"
	archivememory "github.com/insightforge/webintel/internal/archive/memory"
	archivepostgres "github.com/insightforge/webintel/internal/archive/postgres"
	"github.com/insightforge/webintel/internal/cache"
	"github.com/insightforge/webintel/internal/clock/system"
	"github.com/insightforge/webintel/internal/config"
	"github.com/insightforge/webintel/internal/extract"
	"github.com/insightforge/webintel/internal/fetch"
	"github.com/insightforge/webintel/internal/fetcher/browser"
	"github.com/insightforge/webintel/internal/fetcher/httpclient"
	"github.com/insightforge/webintel/internal/logging"
	"github.com/insightforge/webintel/internal/metrics"
	"github.com/insightforge/webintel/internal/pacing"
	"github.com/insightforge/webintel/internal/pipeline"
	publishermemory "github.com/insightforge/webintel/internal/publisher/memory"
	publisherpubsub "github.com/insightforge/webintel/internal/publisher/pubsub"
	"github.com/insightforge/webintel/internal/search"
	snapshotgcs "github.com/insightforge/webintel/internal/snapshot/gcs"
	snapshotlocal "github.com/insightforge/webintel/internal/snapshot/local"
	snapshotmemory "github.com/insightforge/webintel/internal/snapshot/memory"
	"github.com/insightforge/webintel/internal/synth"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := system.New()
	store := cache.New(time.Duration(cfg.Cache.SweepSeconds)*time.Second, clk)
	store.Start(ctx)

	httpFetcher := httpclient.New(httpclient.Config{
		Timeout:    cfg.HTTPTimeout(),
		UserAgents: cfg.HTTP.UserAgents,
	})
	browserManager := browser.NewManager(browser.Config{
		Enabled:          cfg.Browser.Enabled,
		NavTimeout:       cfg.NavTimeout(),
		MaxUses:          cfg.Browser.MaxUses,
		BreakerThreshold: cfg.Browser.BreakerThreshold,
		BlockAssets:      cfg.Browser.BlockAssets,
		UserAgent:        cfg.Browser.UserAgent,
		OnBreakerOpen:    func() { metrics.SetBreakerOpen(true) },
	}, logger.Named("browser"))
	defer browserManager.Close()

	providers := make([]fetch.SearchProvider, 0, len(cfg.Search.Providers))
	for _, name := range cfg.Search.Providers {
		switch name {
		case "duckduckgo":
			providers = append(providers, search.NewDuckDuckGo(cfg.HTTPTimeout()))
		case "bing":
			providers = append(providers, search.NewBing(cfg.HTTPTimeout()))
		case "startpage":
			providers = append(providers, search.NewStartpage(cfg.HTTPTimeout()))
		}
	}

	archiveStore, closeArchive, err := buildArchive(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("archive init failed", zap.Error(err))
	}
	defer closeArchive()

	snapshotStore, err := buildSnapshots(ctx, cfg)
	if err != nil {
		logger.Fatal("snapshot init failed", zap.Error(err))
	}

	publisher, closePublisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	defer closePublisher()

	ex := extract.New()
	svc, err := pipeline.New(logger.Named("pipeline"), pipeline.Config{
		DefaultTimeout:    time.Duration(cfg.Pipeline.DefaultTimeoutSeconds) * time.Second,
		MinTextLen:        cfg.Pipeline.MinTextLen,
		DefaultMaxResults: cfg.Pipeline.DefaultMaxResults,
		PageTTL:           time.Duration(cfg.Pipeline.PageTTLSeconds) * time.Second,
		SearchTTL:         time.Duration(cfg.Pipeline.SearchTTLSeconds) * time.Second,
		SyntheticTTL:      time.Duration(cfg.Pipeline.SyntheticTTLSeconds) * time.Second,
		BatchSize:         cfg.Pipeline.BatchSize,
		BatchPause:        time.Duration(cfg.Pipeline.BatchPauseMs) * time.Millisecond,
		MaxConcurrency:    cfg.Pipeline.MaxConcurrency,
	}, pipeline.Deps{
		Cache:     store,
		Clock:     clk,
		Pages:     []fetch.PageStrategy{httpFetcher, browserManager},
		Providers: providers,
		Extractor: ex,
		Reviews:   ex,
		Synth:     synth.New(),
		Pacer: pacing.New(pacing.Config{
			DefaultRPS:   cfg.Pacing.DefaultRPS,
			DefaultBurst: cfg.Pacing.DefaultBurst,
		}),
		Archive:   archiveStore,
		Snapshots: snapshotStore,
		Publisher: publisher,
	})
	if err != nil {
		logger.Fatal("pipeline init failed", zap.Error(err))
	}

	apiServer := api.NewServer(logger.Named("api"), svc,
		api.WithBreakerState(func() string { return browserManager.Breaker().State().String() }),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (pipeline.Archiver, func(), error) {
	switch cfg.Archive.Provider {
	case config.ProviderNone:
		return nil, func() {}, nil
	case config.ProviderMemory:
		return archivememory.New(), func() {}, nil
	case config.ProviderPostgres:
		store, err := archivepostgres.New(ctx, archivepostgres.Config{DSN: cfg.Archive.DSN})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	logger.Warn("unknown archive provider", zap.String("provider", cfg.Archive.Provider))
	return nil, func() {}, nil
}

func buildSnapshots(ctx context.Context, cfg config.Config) (pipeline.SnapshotStore, error) {
	switch cfg.Snapshot.Provider {
	case config.ProviderMemory:
		return snapshotmemory.New(cfg.Snapshot.Prefix), nil
	case config.ProviderLocal:
		return snapshotlocal.New(cfg.Snapshot.Dir, cfg.Snapshot.Prefix)
	case config.ProviderGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client: %w", err)
		}
		return snapshotgcs.New(client, snapshotgcs.Config{
			Bucket:      cfg.Snapshot.GCSBucket,
			Prefix:      cfg.Snapshot.Prefix,
			ContentType: cfg.Snapshot.ContentType,
		})
	}
	return nil, nil
}

func buildPublisher(ctx context.Context, cfg config.Config) (fetch.Publisher, func(), error) {
	switch cfg.Publisher.Provider {
	case config.ProviderMemory:
		return publishermemory.New(), func() {}, nil
	case config.ProviderPubSub:
		client, err := pubsub.NewClient(ctx, cfg.Publisher.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub client: %w", err)
		}
		pub := publisherpubsub.New(client.Topic(cfg.Publisher.TopicName))
		return pub, func() {
			pub.Stop()
			if err := client.Close(); err != nil {
				zap.L().Warn("pubsub client close failed", zap.Error(err))
			}
		}, nil
	}
	return nil, func() {}, nil
}
