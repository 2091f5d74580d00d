// cmd/council-api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ai-council/internal/api"
	"ai-council/internal/common/config"
	"ai-council/internal/common/database"
	commonhttp "ai-council/internal/common/http"
	"ai-council/internal/common/logger"
	"ai-council/internal/common/notify"
	"ai-council/internal/common/observability"
	healthprobe "ai-council/internal/council/health-probe"
	memberclient "ai-council/internal/council/member-client"
	memberregistry "ai-council/internal/council/member-registry"
	"ai-council/internal/council/orchestrator"
	searchaugmenter "ai-council/internal/council/search-augmenter"
	"ai-council/internal/council/synthesizer"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// newSearcher builds the configured search backend. An Elasticsearch cluster
// that stays unreachable through the retries degrades to searxng.
func newSearcher(ctx context.Context, cfg config.SearchConfig, httpClient *commonhttp.Client, attempts int, delay time.Duration, zapLog *zap.Logger) searchaugmenter.Searcher {
	searxng := searchaugmenter.NewSearxngSearcher(cfg.Endpoint, httpClient)
	if cfg.Provider != searchaugmenter.ProviderElasticsearch {
		return searxng
	}

	var esClient *database.ElasticsearchClient
	err := retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, attempts, delay, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Warn("elasticsearch unavailable, falling back to searxng",
			zap.Error(err),
			zap.String("endpoint", cfg.Endpoint),
		)
		return searxng
	}
	return searchaugmenter.NewElasticsearchSearcher(esClient, cfg.Elasticsearch.Index, cfg.MaxResults)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	obs := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		TracingEnabled: cfg.Observability.TracingEnabled,
		SampleRatio:    cfg.Observability.SampleRatio,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		OTLPInsecure:   cfg.Observability.OTLPInsecure,
	}, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Council registry ---
	registry, err := memberregistry.FromConfig(cfg.Council)
	if err != nil {
		zapLog.Fatal("invalid council configuration", zap.Error(err))
	}
	zapLog.Info("council registry loaded",
		zap.Strings("members", registry.IDs()),
		zap.String("synthesizer", registry.Synthesizer().ID),
	)

	httpClient := commonhttp.NewClient(0)

	// --- Search backend ---
	searchCfg := &searchaugmenter.Config{
		Provider:   cfg.Search.Provider,
		Endpoint:   cfg.Search.Endpoint,
		Index:      cfg.Search.Elasticsearch.Index,
		Timeout:    config.GetDuration(cfg.Search.Timeout),
		MaxResults: cfg.Search.MaxResults,
		CacheTTL:   config.GetDuration(cfg.Search.Cache.TTL),
	}

	searcher := newSearcher(ctx, cfg.Search, httpClient, 5, 2*time.Second, zapLog)
	zapLog.Info("search backend configured", zap.String("provider", searcher.Name()))

	// --- Optional search cache ---
	var cache searchaugmenter.Cache
	if cfg.Search.Cache.Enabled {
		redis := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redis.Ping(ctx)
		}, 3, time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("search cache disabled", zap.Error(err))
			_ = redis.Close()
		} else {
			defer redis.Close()
			cache = searchaugmenter.NewRedisCache(redis.Client, searchCfg.CacheTTL, log)
			zapLog.Info("Redis search cache enabled", zap.Duration("ttl", searchCfg.CacheTTL))
		}
	}

	augmenter := searchaugmenter.NewAugmenter(searchCfg, searcher, cache, log)

	// --- Outage notifications ---
	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.Notifications.SNS.Enabled {
		sns, err := notify.NewSNSNotifier(ctx, cfg.Notifications.SNS.Region, cfg.Notifications.SNS.TopicARN, log)
		if err != nil {
			zapLog.Fatal("sns notifier init failed", zap.Error(err))
		}
		notifier = sns
	}

	// --- Council components ---
	client := memberclient.NewClient(
		&memberclient.Config{CallTimeout: config.GetDuration(cfg.Council.CallTimeout)},
		httpClient, obs.Tracer(), log,
	)
	synth := synthesizer.NewSynthesizer(
		&synthesizer.Config{Temperature: cfg.Synthesis.Temperature},
		registry.Synthesizer(), client, log,
	)
	orch := orchestrator.NewOrchestrator(
		&orchestrator.Config{SharedSearch: cfg.Search.Shared, NotifyTimeout: 5 * time.Second},
		registry, client, augmenter, synth, notifier, log,
	)
	prober := healthprobe.NewProber(
		&healthprobe.Config{Timeout: config.GetDuration(cfg.Health.Timeout)},
		registry.Members(), httpClient, log,
	)

	server := api.NewServer(api.Options{
		Orchestrator:  orch,
		Health:        prober,
		Observability: obs,
		AllowOrigins:  cfg.Server.AllowOrigins,
		Logger:        log,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("council API listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLog.Info("shutting down council API...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("council API stopped")
}
