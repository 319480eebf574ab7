// Command worker runs the full ingestion pipeline: scheduled feed
// crawling, normalization, duplicate detection and alert dispatch,
// plus the maintenance passes (cluster merge, compaction).
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"newswatch/internal/ai"
	"newswatch/internal/alert"
	"newswatch/internal/dedup"
	"newswatch/internal/domain/entity"
	pgrepo "newswatch/internal/infra/adapter/persistence/postgres"
	"newswatch/internal/infra/db"
	"newswatch/internal/infra/fetcher"
	"newswatch/internal/infra/notifier"
	"newswatch/internal/infra/scraper"
	workerpkg "newswatch/internal/infra/worker"
	"newswatch/internal/ingest"
	"newswatch/internal/normalize"
	"newswatch/internal/pkg/config"
	"newswatch/internal/repository"
)

func main() {
	logger := initLogger()

	workerMetrics := workerpkg.NewWorkerMetrics()
	workerConfig := workerpkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("metrics_port", workerConfig.MetricsPort),
		slog.Duration("shutdown_timeout", workerConfig.ShutdownTimeout))

	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	// Signal context drives the observability servers; the pipeline has
	// its own context so shutdown can proceed stage by stage.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db.StartStatsReporter(ctx, database, 15*time.Second)

	feedRepo := pgrepo.NewFeedRepo(database)
	articleRepo := pgrepo.NewArticleRepo(database)
	duplicateRepo := pgrepo.NewDuplicateRepo(database)
	clusterRepo := pgrepo.NewClusterRepo(database)
	embeddingRepo := pgrepo.NewEmbeddingRepo(database)
	alertRepo := pgrepo.NewAlertRepo(database)
	metricRepo := pgrepo.NewMetricRepo(database)

	feedsCfg := loadFeeds(logger)
	syncFeeds(ctx, logger, feedRepo, feedsCfg)

	ingestCfg := ingest.LoadConfig(feedsCfg.Globals)

	// Feed fetching and content enhancement.
	rssFetcher := scraper.NewRSSFetcher(scraper.NewHTTPClient(ingestCfg.FeedTimeout))
	contentCfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("content fetch configuration invalid, disabling content fetching",
			slog.Any("error", err))
		contentCfg = fetcher.DefaultConfig()
		contentCfg.Enabled = false
	}
	if contentCfg.Enabled {
		ingestCfg.ContentThreshold = contentCfg.Threshold
	}

	// Normalization.
	hashAlgo := normalize.HashAlgorithm(config.LoadEnvString("CONTENT_HASH_ALGO", string(normalize.HashSHA256)))
	hasher, err := normalize.NewHasher(hashAlgo)
	if err != nil {
		logger.Error("invalid content hash algorithm", slog.Any("error", err))
		os.Exit(1)
	}
	normalizer := normalize.NewNormalizer(articleRepo, duplicateRepo, hasher, 0)

	// Duplicate detection with optional semantic and LLM signals.
	dedupCfg, err := dedup.LoadConfig()
	if err != nil {
		logger.Error("invalid dedup configuration", slog.Any("error", err))
		os.Exit(1)
	}
	ingestCfg.MergeThreshold = dedupCfg.ClusterMergeThreshold

	embeddingSvc := ai.NewEmbeddingService(buildEmbedder(logger), embeddingRepo)
	clusterer := dedup.NewClusterer(clusterRepo)
	engine := dedup.NewEngine(dedupCfg, articleRepo, duplicateRepo, clusterer, embeddingSvc, buildValidator(logger))

	// Alert dispatch.
	alertCfg := alert.LoadConfig()
	dispatcher := alert.NewDispatcher(alertCfg, alertRepo, articleRepo, buildChannels(logger)...)
	engine.SetUniqueHandler(dispatcher.HandleUnique)

	var svc *ingest.Service
	if contentCfg.Enabled {
		svc = ingest.NewService(ingestCfg, feedRepo, rssFetcher, fetcher.NewReadabilityFetcher(contentCfg), normalizer, engine, metricRepo)
	} else {
		svc = ingest.NewService(ingestCfg, feedRepo, rssFetcher, nil, normalizer, engine, metricRepo)
	}

	maint := ingest.NewMaintenance(ingestCfg, clusterer, articleRepo, clusterRepo, embeddingRepo, alertRepo)
	scheduler := ingest.NewScheduler(ingestCfg, svc, maint)
	scheduler.SetJobMetrics(workerMetrics)

	// Observability servers.
	healthServer := workerpkg.NewHealthServer(fmt.Sprintf(":%d", workerConfig.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	workerpkg.StartMetricsServer(ctx, workerConfig.MetricsPort, logger)

	// Pipeline stages.
	pipelineCtx, pipelineCancel := context.WithCancel(context.Background())
	defer pipelineCancel()

	engineDone := make(chan struct{})
	go func() {
		engine.Run(pipelineCtx)
		close(engineDone)
	}()
	dispatcherDone := make(chan struct{})
	go func() {
		dispatcher.Run(pipelineCtx)
		close(dispatcherDone)
	}()

	// Recover work left over from a previous run.
	if replayed, err := dispatcher.ReplayPending(pipelineCtx); err != nil {
		logger.Warn("pending alert replay failed", slog.Any("error", err))
	} else if replayed > 0 {
		logger.Info("replaying pending alerts", slog.Int("count", replayed))
	}
	if queued, err := engine.DrainBacklog(pipelineCtx); err != nil {
		logger.Warn("dedup backlog drain failed", slog.Any("error", err))
	} else if queued > 0 {
		logger.Info("queued unchecked articles", slog.Int("count", queued))
	}

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	go scheduler.RunCycle()

	healthServer.SetReady(true)
	logger.Info("worker started")

	<-ctx.Done()
	logger.Info("shutdown signal received")
	healthServer.SetReady(false)

	// Stop stages in dataflow order: no new cycles, then drain dedup and
	// dispatch. Unprocessed queue entries are recovered on the next start
	// by DrainBacklog and ReplayPending.
	deadline := time.Now().Add(workerConfig.ShutdownTimeout)
	scheduler.Stop()
	pipelineCancel()
	waitUntil(logger, "dedup engine", engineDone, deadline)
	waitUntil(logger, "alert dispatcher", dispatcherDone, deadline)
	logger.Info("worker stopped")
}

func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the connection pool and applies pending migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("migrations failed", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// loadFeeds reads the feeds document. A missing or invalid document is a
// startup failure; the worker has nothing to do without feeds.
func loadFeeds(logger *slog.Logger) *config.FeedsConfig {
	path := config.LoadEnvString("FEEDS_CONFIG_PATH", "feeds.yaml")
	feedsCfg, warnings, err := config.LoadFeedsConfig(path)
	if err != nil {
		logger.Error("failed to load feeds document",
			slog.String("path", path), slog.Any("error", err))
		os.Exit(1)
	}
	for _, warning := range warnings {
		logger.Warn("feeds document warning", slog.String("warning", warning))
	}
	logger.Info("feeds document loaded",
		slog.String("path", path), slog.Int("feeds", len(feedsCfg.Feeds)))
	return feedsCfg
}

// syncFeeds reconciles the feeds document into the database. Individual
// upsert failures are logged and skipped; the feed stays on its stored
// definition until the next start.
func syncFeeds(ctx context.Context, logger *slog.Logger, feeds repository.FeedRepository, feedsCfg *config.FeedsConfig) {
	syncCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, feed := range feedsCfg.Feeds {
		if err := feeds.Upsert(syncCtx, feed); err != nil {
			logger.Warn("feed upsert failed",
				slog.String("feed_id", feed.ID), slog.Any("error", err))
		}
	}
}

// buildEmbedder returns the OpenAI embedder when an API key is present,
// nil otherwise. The embedding service degrades to pseudo-embeddings on
// a nil primary.
func buildEmbedder(logger *slog.Logger) ai.Embedder {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Info("OPENAI_API_KEY not set, semantic similarity uses pseudo-embeddings")
		return nil
	}
	return ai.NewOpenAIEmbedder(apiKey)
}

// buildValidator returns the Claude duplicate validator when an API key
// is present, nil otherwise. The engine skips the borderline gate on nil.
func buildValidator(logger *slog.Logger) ai.Validator {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		logger.Info("ANTHROPIC_API_KEY not set, LLM validation gate disabled")
		return nil
	}
	return ai.NewClaudeValidator(apiKey)
}

// buildChannels assembles the configured alert channels. With
// ALERT_DRY_RUN=true every channel is replaced by a no-op so the full
// admission and dispatch path runs without external deliveries.
func buildChannels(logger *slog.Logger) []notifier.Channel {
	if os.Getenv("ALERT_DRY_RUN") == "true" {
		logger.Info("alert dry run enabled, all channels are no-ops")
		return []notifier.Channel{
			notifier.NewNoopChannel(entity.ChannelWebhook),
			notifier.NewNoopChannel(entity.ChannelEmail),
			notifier.NewNoopChannel(entity.ChannelSlack),
		}
	}

	var channels []notifier.Channel

	if cfg := loadWebhookConfig(logger); cfg.Enabled {
		channels = append(channels, notifier.NewWebhookChannel(cfg))
		logger.Info("webhook channel enabled")
	}
	if cfg := loadSlackConfig(logger); cfg.Enabled {
		channels = append(channels, notifier.NewSlackChannel(cfg))
		logger.Info("slack channel enabled")
	}
	if cfg := loadEmailConfig(logger); cfg.Enabled {
		channels = append(channels, notifier.NewEmailChannel(cfg))
		logger.Info("email channel enabled")
	}

	if len(channels) == 0 {
		logger.Warn("no alert channels configured, alerts will be recorded but not delivered")
	}
	return channels
}

// loadWebhookConfig loads the generic webhook channel configuration.
//
// Environment variables:
//   - WEBHOOK_ENABLED (default false)
//   - WEBHOOK_URL (required if enabled, must be HTTPS)
func loadWebhookConfig(logger *slog.Logger) notifier.WebhookConfig {
	if os.Getenv("WEBHOOK_ENABLED") != "true" {
		return notifier.WebhookConfig{Enabled: false}
	}

	endpoint := os.Getenv("WEBHOOK_URL")
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		logger.Warn("invalid webhook URL, disabling webhook channel")
		return notifier.WebhookConfig{Enabled: false}
	}

	return notifier.WebhookConfig{
		Enabled: true,
		URL:     endpoint,
		Timeout: 10 * time.Second,
	}
}

// loadSlackConfig loads the Slack channel configuration.
//
// Environment variables:
//   - SLACK_ENABLED (default false)
//   - SLACK_WEBHOOK_URL (required if enabled, hooks.slack.com only)
//   - SLACK_CHANNEL (optional channel override)
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	if os.Getenv("SLACK_ENABLED") != "true" {
		return notifier.SlackConfig{Enabled: false}
	}

	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	u, err := url.Parse(webhookURL)
	if err != nil || u.Scheme != "https" || u.Host != "hooks.slack.com" || !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("invalid Slack webhook URL, disabling slack channel")
		return notifier.SlackConfig{Enabled: false}
	}

	return notifier.SlackConfig{
		Enabled:     true,
		WebhookURL:  webhookURL,
		ChannelName: os.Getenv("SLACK_CHANNEL"),
		Timeout:     10 * time.Second,
	}
}

// loadEmailConfig loads the SMTP channel configuration.
//
// Environment variables:
//   - EMAIL_ENABLED (default false)
//   - SMTP_HOST / SMTP_PORT / SMTP_USERNAME / SMTP_PASSWORD
//   - EMAIL_FROM / EMAIL_TO (comma-separated recipients)
func loadEmailConfig(logger *slog.Logger) notifier.EmailConfig {
	if os.Getenv("EMAIL_ENABLED") != "true" {
		return notifier.EmailConfig{Enabled: false}
	}

	host := os.Getenv("SMTP_HOST")
	from := os.Getenv("EMAIL_FROM")
	to := config.LoadEnvStringSlice("EMAIL_TO", nil)
	if host == "" || from == "" || len(to) == 0 {
		logger.Warn("incomplete SMTP configuration, disabling email channel")
		return notifier.EmailConfig{Enabled: false}
	}

	port := config.LoadEnvInt("SMTP_PORT", 587, func(v int) error {
		return config.ValidateIntRange(v, 1, 65535)
	})
	for _, warning := range port.Warnings {
		logger.Warn(warning)
	}

	return notifier.EmailConfig{
		Enabled:  true,
		Host:     host,
		Port:     port.Value.(int),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     from,
		To:       to,
		Timeout:  10 * time.Second,
	}
}

// waitUntil blocks until the stage signals completion or the shutdown
// deadline passes.
func waitUntil(logger *slog.Logger, stage string, done <-chan struct{}, deadline time.Time) {
	select {
	case <-done:
		logger.Info("stage stopped", slog.String("stage", stage))
	case <-time.After(time.Until(deadline)):
		logger.Warn("stage did not stop before deadline", slog.String("stage", stage))
	}
}
