// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Job types known to the pool configuration.
const (
	JobTypeEvaluation = "evaluation"
	JobTypeMatcher    = "matcher"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// QUEUE_BACKEND overrides queue.backend
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	// keys absent from the yaml are invisible to AutomaticEnv without a default
	v.SetDefault("apis.listings.external_skill_score", false)
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // tests in test/e2e/
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are commonly provided only as plain env vars.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.APIs.OpenAI.APIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.APIs.Gemini.APIKey, "GEMINI_API_KEY")
	setIfEmpty(&cfg.APIs.Vertex.ProjectID, "GOOGLE_CLOUD_PROJECT")
	setIfEmpty(&cfg.APIs.Listings.APIKey, "LISTINGS_API_KEY")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.MySQL.User, "MYSQL_USER")
	setIfEmpty(&cfg.Database.MySQL.Password, "MYSQL_PASSWORD")
	setIfEmpty(&cfg.Events.AMQP.URL, "AMQP_URL")
	setIfEmpty(&cfg.Events.SNS.TopicARN, "SNS_TOPIC_ARN")
	setIfEmpty(&cfg.Documents.UnidocKey, "UNIDOC_LICENSE_API_KEY")
}

func setIfEmpty(field *string, envKey string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "cv-pipeline"
	}

	// Server
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	// Queue
	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = "redis"
	}
	if cfg.Queue.Prefix == "" {
		cfg.Queue.Prefix = "cvq"
	}
	if cfg.Queue.MaxAttempts == 0 {
		cfg.Queue.MaxAttempts = 3
	}
	if cfg.Queue.BackoffDelay == 0 {
		cfg.Queue.BackoffDelay = 5000
	}
	if cfg.Queue.BackoffMultiplier == 0 {
		cfg.Queue.BackoffMultiplier = 2
	}
	if cfg.Queue.MaxBackoff == 0 {
		cfg.Queue.MaxBackoff = 300000
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = 500
	}
	if cfg.Queue.LeaseTimeout == 0 {
		cfg.Queue.LeaseTimeout = 600000
	}
	if cfg.Queue.ReapInterval == 0 {
		cfg.Queue.ReapInterval = 15000
	}
	if cfg.Queue.CompletedRetention == 0 {
		cfg.Queue.CompletedRetention = 3600000
	}
	if cfg.Queue.CompletedKeep == 0 {
		cfg.Queue.CompletedKeep = 100
	}
	if cfg.Queue.FailedRetention == 0 {
		cfg.Queue.FailedRetention = 86400000
	}
	if cfg.Queue.JanitorInterval == 0 {
		cfg.Queue.JanitorInterval = 60000
	}
	if cfg.Queue.IdempotencyTTL == 0 {
		cfg.Queue.IdempotencyTTL = 86400000
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "postgres"
	}
	if cfg.Documents.Backend == "" {
		cfg.Documents.Backend = "mysql"
	}

	// Camunda
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}
	if cfg.Camunda.ProcessIDs == nil {
		cfg.Camunda.ProcessIDs = map[string]string{}
	}
	for _, jobType := range []string{JobTypeEvaluation, JobTypeMatcher} {
		if cfg.Camunda.ProcessIDs[jobType] == "" {
			cfg.Camunda.ProcessIDs[jobType] = "cv-" + jobType
		}
	}

	// Database
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.MySQL.Port == 0 {
		cfg.Database.MySQL.Port = 3306
	}
	if cfg.Database.MySQL.MaxConnections == 0 {
		cfg.Database.MySQL.MaxConnections = 10
	}
	if cfg.Database.MySQL.MaxIdle == 0 {
		cfg.Database.MySQL.MaxIdle = 5
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Redis.TextTTL == 0 {
		cfg.Database.Redis.TextTTL = 86400000
	}

	// Workers
	if cfg.Workers == nil {
		cfg.Workers = map[string]WorkerConfig{}
	}
	defaultConcurrency := map[string]int{JobTypeEvaluation: 5, JobTypeMatcher: 10}
	for jobType, concurrency := range defaultConcurrency {
		if _, ok := cfg.Workers[jobType]; !ok {
			cfg.Workers[jobType] = WorkerConfig{Enabled: true, MaxJobsActive: concurrency}
		}
	}
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			if c, ok := defaultConcurrency[key]; ok {
				worker.MaxJobsActive = c
			} else {
				worker.MaxJobsActive = 5
			}
		}
		if worker.Timeout == 0 {
			worker.Timeout = 300000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = cfg.Queue.MaxAttempts
		}
		cfg.Workers[key] = worker
	}

	// APIs
	if cfg.APIs.Reasoning.Provider == "" {
		cfg.APIs.Reasoning.Provider = "openai"
	}
	if cfg.APIs.Reasoning.Timeout == 0 {
		cfg.APIs.Reasoning.Timeout = 60000
	}
	if cfg.APIs.OpenAI.Model == "" {
		cfg.APIs.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.APIs.OpenAI.EmbeddingModel == "" {
		cfg.APIs.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.APIs.Gemini.Model == "" {
		cfg.APIs.Gemini.Model = "gemini-2.0-flash"
	}
	if cfg.APIs.Vertex.Location == "" {
		cfg.APIs.Vertex.Location = "us-central1"
	}
	if cfg.APIs.Vertex.Model == "" {
		cfg.APIs.Vertex.Model = "gemini-2.0-flash-001"
	}
	if cfg.APIs.Listings.Timeout == 0 {
		cfg.APIs.Listings.Timeout = 10000
	}
	if cfg.APIs.Listings.TopN <= 0 {
		cfg.APIs.Listings.TopN = 5
	}
	if cfg.APIs.Listings.Location == "" {
		cfg.APIs.Listings.Location = "Indonesia"
	}
	if cfg.APIs.Embeddings.Provider == "" {
		cfg.APIs.Embeddings.Provider = "hash"
	}
	if cfg.APIs.Embeddings.Dimensions == 0 {
		cfg.APIs.Embeddings.Dimensions = 384
	}

	// Vector store
	if cfg.VectorStore.Backend == "" {
		cfg.VectorStore.Backend = "memory"
	}
	if cfg.VectorStore.Index == "" {
		cfg.VectorStore.Index = "cv-pipeline-vectors"
	}
	if cfg.VectorStore.Timeout == 0 {
		cfg.VectorStore.Timeout = 5000
	}

	// Events
	if cfg.Events.AMQP.Exchange == "" {
		cfg.Events.AMQP.Exchange = "cv-pipeline.jobs"
	}
	if cfg.Events.AWS.Region == "" {
		cfg.Events.AWS.Region = "us-east-1"
	}

	// Logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/pipelines.json"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.Queue.Backend {
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis queue backend")
		}
	case "zeebe":
		if cfg.Camunda.BrokerAddress == "" {
			return fmt.Errorf("camunda.broker_address is required for the zeebe queue backend")
		}
	default:
		return fmt.Errorf("queue.backend must be redis or zeebe, got %q", cfg.Queue.Backend)
	}

	if cfg.Queue.BackoffMultiplier < 1 {
		return fmt.Errorf("queue.backoff_multiplier must be >= 1")
	}

	switch cfg.Store.Backend {
	case "postgres":
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case "memory":
	default:
		return fmt.Errorf("store.backend must be postgres or memory, got %q", cfg.Store.Backend)
	}

	switch cfg.Documents.Backend {
	case "mysql":
		if cfg.Database.MySQL.Host == "" {
			return fmt.Errorf("database.mysql.host is required")
		}
	case "memory":
	default:
		return fmt.Errorf("documents.backend must be mysql or memory, got %q", cfg.Documents.Backend)
	}

	switch cfg.VectorStore.Backend {
	case "memory":
	case "elasticsearch":
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for the elasticsearch vector store")
		}
	default:
		return fmt.Errorf("vector_store.backend must be memory or elasticsearch, got %q", cfg.VectorStore.Backend)
	}

	switch cfg.APIs.Reasoning.Provider {
	case "openai", "gemini":
	case "vertex":
		if cfg.APIs.Vertex.ProjectID == "" {
			return fmt.Errorf("apis.vertex.project_id is required for the vertex reasoning provider")
		}
	default:
		return fmt.Errorf("apis.reasoning.provider must be openai, gemini or vertex, got %q", cfg.APIs.Reasoning.Provider)
	}

	if cfg.Events.SNS.Enabled && cfg.Events.SNS.TopicARN == "" {
		return fmt.Errorf("events.sns.topic_arn is required when sns is enabled")
	}
	if cfg.Events.AMQP.Enabled && cfg.Events.AMQP.URL == "" {
		return fmt.Errorf("events.amqp.url is required when amqp is enabled")
	}
	if cfg.Events.SES.Enabled && (cfg.Events.SES.FromEmail == "" || len(cfg.Events.SES.To) == 0) {
		return fmt.Errorf("events.ses.from_email and events.ses.to are required when ses is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves pool configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, jobType string) WorkerConfig {
	if worker, exists := cfg.Workers[jobType]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       300000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if the pool for a job type is enabled
func IsWorkerEnabled(cfg *Config, jobType string) bool {
	if worker, exists := cfg.Workers[jobType]; exists {
		return worker.Enabled
	}
	return true
}
