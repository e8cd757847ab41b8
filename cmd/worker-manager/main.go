// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cv-pipeline/internal/api"
	"cv-pipeline/internal/common/aws"
	"cv-pipeline/internal/common/camunda"
	"cv-pipeline/internal/common/config"
	"cv-pipeline/internal/common/database"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/common/metrics"
	"cv-pipeline/internal/common/observability"
	"cv-pipeline/internal/documents"
	"cv-pipeline/internal/events"
	"cv-pipeline/internal/jobs"
	"cv-pipeline/internal/listings"
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/pipeline"
	"cv-pipeline/internal/queue"
	"cv-pipeline/internal/reasoning"
	"cv-pipeline/internal/store"
	"cv-pipeline/internal/vectorstore"
	"cv-pipeline/internal/workers/evaluation"
	"cv-pipeline/internal/workers/matcher"
	"cv-pipeline/pkg/registry"
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

// closers run in reverse order on shutdown.
type closers []func()

func (c *closers) add(fn func()) { *c = append(*c, fn) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("queueBackend", cfg.Queue.Backend),
	)

	obs := observability.New(cfg.App.Name, observability.Options{Tracing: cfg.Tracing}, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cleanup closers
	defer cleanup.run()

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("pipeline registry load failed", zap.Error(err))
	}

	if err := documents.ConfigurePDFLicense(cfg.Documents.UnidocKey); err != nil {
		zapLog.Warn("PDF license not applied, PDF extraction may be limited", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		return err
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	cleanup.add(func() { rdb.Close() })
	zapLog.Info("Redis connected successfully")

	checks := []api.ReadinessCheck{{Name: "redis", Check: rdb.Ping}}

	jobStore, storeCheck := buildStore(cfg, log, zapLog, &cleanup)
	if storeCheck != nil {
		checks = append(checks, *storeCheck)
	}

	source, descriptions, docCheck := buildDocuments(cfg, zapLog, &cleanup)
	if docCheck != nil {
		checks = append(checks, *docCheck)
	}
	textCache := documents.NewRedisTextCache(rdb.Client, config.GetDuration(cfg.Database.Redis.TextTTL))
	resolver := documents.NewResolver(source, documents.NewFileExtractor(log), textCache, log)

	var esClient *elasticsearch.Client
	if cfg.VectorStore.Backend == "elasticsearch" {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		esClient = es.Client
		checks = append(checks, api.ReadinessCheck{Name: "elasticsearch", Check: es.Ping})
		zapLog.Info("Elasticsearch connected successfully")
	}

	vectors, err := vectorstore.New(ctx, cfg, esClient, log)
	if err != nil {
		zapLog.Fatal("vector store init failed", zap.Error(err))
	}
	seedDescriptions(ctx, descriptions, vectors, zapLog)

	adapter, err := reasoning.NewAdapter(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("reasoning adapter init failed", zap.Error(err))
	}
	if c, ok := adapter.(interface{ Close() error }); ok {
		cleanup.add(func() { c.Close() })
	}
	reasoner := reasoning.NewService(adapter, config.GetDuration(cfg.APIs.Reasoning.Timeout), log)

	var listingProvider listings.Provider
	if cfg.APIs.Listings.BaseURL != "" {
		listingProvider = listings.NewHTTPProvider(cfg.APIs.Listings.BaseURL, cfg.APIs.Listings.APIKey,
			config.GetDuration(cfg.APIs.Listings.Timeout), log)
	} else {
		zapLog.Warn("No listing provider configured, matcher jobs use the fallback listings")
	}

	publisher := buildEvents(ctx, cfg, log, zapLog, &cleanup)

	broker := buildBroker(cfg, rdb.Client, log, zapLog, &cleanup)
	guard := pipeline.NewRedisGuard(rdb.Client, cfg.Queue.Prefix, config.GetDuration(cfg.Queue.IdempotencyTTL))

	// --- Pipelines ---
	evalCfg := evaluation.LoadConfig()
	matchCfg := matcher.LoadConfigFrom(cfg)

	pipelines := []pipeline.Pipeline{
		evaluation.NewHandler(evalCfg, evaluation.Dependencies{
			Documents:    resolver,
			Descriptions: descriptions,
			Reasoning:    reasoner,
			Vectors:      vectors,
			Guard:        guard,
		}, log),
		matcher.NewHandler(matchCfg, matcher.Dependencies{
			Documents: resolver,
			Reasoning: reasoner,
			Listings:  listingProvider,
		}, log),
	}

	var wg sync.WaitGroup
	for _, p := range pipelines {
		jobType := string(p.JobType())
		if _, ok := reg.Find(jobType); !ok {
			zapLog.Warn("Pipeline missing from registry, not started", zap.String("jobType", jobType))
			continue
		}
		if !config.IsWorkerEnabled(cfg, jobType) {
			zapLog.Info("Worker disabled", zap.String("jobType", jobType))
			continue
		}
		wcfg := config.GetWorkerConfig(cfg, jobType)
		runner := pipeline.NewRunner(p, jobStore, pipeline.RunnerOptions{
			Retry:  queue.RetryPolicyFrom(cfg.Queue, wcfg.MaxRetries),
			Events: publisher,
			Obs:    obs,
		}, log)

		wg.Add(1)
		go func(jobType models.JobType, concurrency int) {
			defer wg.Done()
			zapLog.Info("Worker started", zap.String("jobType", string(jobType)), zap.Int("concurrency", concurrency))
			if err := broker.Consume(ctx, jobType, concurrency, runner.Handle); err != nil && !errors.Is(err, context.Canceled) {
				zapLog.Error("Worker stopped", zap.String("jobType", string(jobType)), zap.Error(err))
			}
		}(p.JobType(), wcfg.MaxJobsActive)
	}

	janitor := queue.NewJanitor(jobStore,
		queue.RetentionPolicyFrom(cfg.Queue.CompletedRetention, cfg.Queue.CompletedKeep, cfg.Queue.FailedRetention),
		config.GetDuration(cfg.Queue.JanitorInterval), log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		janitor.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		reportQueueDepth(ctx, broker, pipelines)
	}()

	// --- API ---
	var srv *http.Server
	if cfg.Server.Enabled {
		svc, err := jobs.NewService(reg, jobStore, broker, log)
		if err != nil {
			zapLog.Fatal("job service init failed", zap.Error(err))
		}
		srv = &http.Server{
			Addr:              cfg.Server.Address,
			Handler:           api.NewServer(svc, checks, log).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zapLog.Error("HTTP server failed", zap.Error(err))
				stop()
			}
		}()
	}

	zapLog.Info("Worker manager started")
	<-ctx.Done()
	zapLog.Info("Shutting down worker manager...")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zapLog.Warn("HTTP server shutdown incomplete", zap.Error(err))
		}
		cancel()
	}
	wg.Wait()
	zapLog.Info("Worker manager stopped")
}

func buildStore(cfg *config.Config, log logger.Logger, zapLog *zap.Logger, cleanup *closers) (store.Store, *api.ReadinessCheck) {
	if cfg.Store.Backend == "memory" {
		zapLog.Warn("Using in-memory job store, jobs are lost on restart")
		return store.NewMemoryStore(), nil
	}

	var pg *database.PostgresClient
	err := retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		return err
	}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	cleanup.add(func() { pg.Close() })

	if err := pg.Migrate(context.Background()); err != nil {
		zapLog.Fatal("postgres migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")
	return store.NewPostgresStore(pg.DB, log), &api.ReadinessCheck{Name: "postgres", Check: pg.Ping}
}

// descriptionStore lists descriptions for indexing as well as serving lookups.
type descriptionStore interface {
	documents.DescriptionRepository
	List(ctx context.Context) ([]models.JobDescription, error)
}

func buildDocuments(cfg *config.Config, zapLog *zap.Logger, cleanup *closers) (documents.Source, descriptionStore, *api.ReadinessCheck) {
	if cfg.Documents.Backend == "memory" {
		zapLog.Warn("Using in-memory document source")
		return documents.NewMemorySource(), documents.NewMemoryDescriptionRepository(), nil
	}

	var my *database.MySQLClient
	err := retryWithBackoff(func() error {
		var err error
		my, err = database.NewMySQL(cfg.Database.MySQL)
		return err
	}, 10, 2*time.Second, zapLog, "MySQL connection")
	if err != nil {
		zapLog.Fatal("mysql failed after retries", zap.Error(err))
	}
	cleanup.add(func() { my.Close() })

	if err := documents.Migrate(my.DB); err != nil {
		zapLog.Fatal("document schema migration failed", zap.Error(err))
	}
	zapLog.Info("MySQL connected successfully")
	return documents.NewGormSource(my.DB), documents.NewGormDescriptionRepository(my.DB),
		&api.ReadinessCheck{Name: "mysql", Check: my.Ping}
}

// seedDescriptions indexes every stored job description for retrieval.
// Failures only reduce evaluation context.
func seedDescriptions(ctx context.Context, repo descriptionStore, vectors vectorstore.Store, zapLog *zap.Logger) {
	items, err := repo.List(ctx)
	if err != nil {
		zapLog.Warn("Could not list job descriptions for indexing", zap.Error(err))
		return
	}
	var docs []vectorstore.Document
	for _, jd := range items {
		docs = append(docs, vectorstore.DescriptionDocuments(jd)...)
	}
	if len(docs) == 0 {
		return
	}
	if err := vectors.Upsert(ctx, docs); err != nil {
		zapLog.Warn("Job description indexing failed", zap.Error(err))
		return
	}
	zapLog.Info("Indexed job descriptions", zap.Int("descriptions", len(items)), zap.Int("documents", len(docs)))
}

func buildEvents(ctx context.Context, cfg *config.Config, log logger.Logger, zapLog *zap.Logger, cleanup *closers) queue.Publisher {
	sinks := []events.Sink{events.NewLogSink(log)}

	if cfg.Events.SNS.Enabled {
		client, err := aws.NewSNSClient(ctx, cfg.Events.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		sinks = append(sinks, events.NewSNSSink(client, cfg.Events.SNS.TopicARN))
		zapLog.Info("SNS event sink enabled", zap.String("topic", cfg.Events.SNS.TopicARN))
	}

	if cfg.Events.SES.Enabled {
		client, err := aws.NewSESClient(ctx, cfg.Events.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		sinks = append(sinks, events.NewSESAlertSink(client, cfg.Events.SES.FromEmail, cfg.Events.SES.To))
		zapLog.Info("SES failure alerts enabled", zap.Strings("to", cfg.Events.SES.To))
	}

	if cfg.Events.AMQP.Enabled {
		var sink *events.AMQPSink
		err := retryWithBackoff(func() error {
			var err error
			sink, err = events.DialAMQP(cfg.Events.AMQP.URL, cfg.Events.AMQP.Exchange)
			return err
		}, 5, 2*time.Second, zapLog, "RabbitMQ connection")
		if err != nil {
			zapLog.Fatal("rabbitmq failed after retries", zap.Error(err))
		}
		cleanup.add(func() { sink.Close() })
		sinks = append(sinks, sink)
		zapLog.Info("AMQP event sink enabled", zap.String("exchange", cfg.Events.AMQP.Exchange))
	}

	return events.NewMulti(log, sinks...)
}

func buildBroker(cfg *config.Config, rdb *redis.Client, log logger.Logger, zapLog *zap.Logger, cleanup *closers) queue.Broker {
	timeouts := map[models.JobType]time.Duration{}
	for _, jt := range []models.JobType{models.JobTypeEvaluation, models.JobTypeMatcher} {
		timeouts[jt] = config.GetDuration(config.GetWorkerConfig(cfg, string(jt)).Timeout)
	}

	if cfg.Queue.Backend != "zeebe" {
		return queue.NewRedisBroker(rdb, queue.RedisBrokerConfig{
			Prefix:       cfg.Queue.Prefix,
			PollInterval: config.GetDuration(cfg.Queue.PollInterval),
			LeaseTimeout: config.GetDuration(cfg.Queue.LeaseTimeout),
			ReapInterval: config.GetDuration(cfg.Queue.ReapInterval),
			JobTimeouts:  timeouts,
		}, log)
	}

	// --- Init Zeebe Client with retry ---
	var client *camunda.Client
	err := retryWithBackoff(func() error {
		var err error
		client, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		if err != nil {
			return err
		}
		if err := client.HealthCheck(context.Background()); err != nil {
			client.Close()
			return err
		}
		return nil
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	broker := camunda.NewZeebeBroker(client, camunda.BrokerConfig{
		ProcessIDs:   cfg.Camunda.ProcessIDs,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		JobTimeout:   config.GetDuration(cfg.Camunda.Timeout),
		PollInterval: config.GetDuration(cfg.Queue.PollInterval),
	}, log)
	cleanup.add(func() { broker.Close() })
	return broker
}

func reportQueueDepth(ctx context.Context, broker queue.Broker, pipelines []pipeline.Pipeline) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range pipelines {
				depth, err := broker.Depth(ctx, p.JobType())
				if errors.Is(err, queue.ErrDepthUnsupported) {
					return
				}
				if err == nil {
					metrics.QueueDepth.WithLabelValues(string(p.JobType())).Set(float64(depth))
				}
			}
		}
	}
}
