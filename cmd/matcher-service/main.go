// cmd/matcher-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	awsclient "product-matcher/internal/common/aws"
	"product-matcher/internal/common/config"
	"product-matcher/internal/common/database"
	"product-matcher/internal/common/logger"

	"product-matcher/internal/api"
	"product-matcher/internal/costing"
	"product-matcher/internal/matching"
	"product-matcher/internal/notify"
	"product-matcher/internal/processor"
	"product-matcher/internal/progress"
	"product-matcher/internal/providers"
	"product-matcher/internal/providers/catalog"
	"product-matcher/internal/providers/web"
	"product-matcher/internal/ranking"
	"product-matcher/internal/repository"
	"product-matcher/internal/search"
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
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
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting matcher service...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) with retry ---
	var esClient *database.ElasticsearchClient
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Repositories ---
	jobRepo := repository.NewJobRepository(pg.DB)
	resultRepo := repository.NewResultRepository(pg.DB)

	// --- Providers ---
	catalogProvider := catalog.NewProvider(cfg.Providers.Catalog, redis, log)
	webProvider := web.NewProvider(cfg.Providers.Web, web.NewHTTPResearchClient(cfg.Providers.Web), log)
	registry := providers.NewRegistry(catalogProvider, webProvider)

	// --- Scoring pipeline ---
	matcher := matching.NewScorer(log)
	estimator := costing.NewEstimator(log)
	ranker := ranking.NewScorer(log)

	// --- Optional collaborators ---
	opts := processor.Options{
		Progress: progress.NewPublisher(redis, log),
	}

	if esClient != nil {
		opts.Indexer = search.NewIndexer(esClient, cfg.Database.Elasticsearch.ResultsIdx, log)
	}

	if cfg.Notifications.SNS.Enabled {
		snsClient, err := awsclient.NewSNSClient(ctx, cfg.Notifications.SNS.Region, cfg.Notifications.SNS.TopicARN)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		opts.Notifier = notify.NewSNSNotifier(snsClient, log)
		zapLog.Info("SNS notifier initialized", zap.String("topic", snsClient.TopicARN()))
	}

	proc := processor.New(
		jobRepo, resultRepo, registry,
		matcher, estimator, ranker,
		cfg.Processor, opts, log,
	)

	// --- HTTP API ---
	dispatch := func(jobID string) {
		go func() {
			if err := proc.Process(context.Background(), jobID); err != nil {
				log.Error("Job processing failed", map[string]interface{}{
					"jobId": jobID,
					"error": err.Error(),
				})
			}
		}()
	}

	server, err := api.NewServer(cfg, log, jobRepo, resultRepo, dispatch)
	if err != nil {
		zapLog.Fatal("server init failed", zap.Error(err))
	}

	// pprof on a side port, never exposed publicly
	go func() {
		zapLog.Info("pprof listening on :6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			zapLog.Warn("pprof server stopped", zap.Error(err))
		}
	}()

	go func() {
		if err := server.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	zapLog.Info("Shutting down...", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Matcher service stopped")
}
