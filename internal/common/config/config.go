// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App         AppConfig               `mapstructure:"app"`
	Server      ServerConfig            `mapstructure:"server"`
	Queue       QueueConfig             `mapstructure:"queue"`
	Store       StoreConfig             `mapstructure:"store"`
	Camunda     CamundaConfig           `mapstructure:"camunda"`
	Database    DatabaseConfig          `mapstructure:"database"`
	Documents   DocumentsConfig         `mapstructure:"documents"`
	Workers     map[string]WorkerConfig `mapstructure:"workers"`
	APIs        APIsConfig              `mapstructure:"apis"`
	VectorStore VectorStoreConfig       `mapstructure:"vector_store"`
	Events      EventsConfig            `mapstructure:"events"`
	Logging     LoggingConfig           `mapstructure:"logging"`
	Tracing     TracingConfig           `mapstructure:"tracing"`
	Registry    RegistryConfig          `mapstructure:"registry"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Address         string `mapstructure:"address"`
	Mode            string `mapstructure:"mode"`             // gin mode
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// QueueConfig drives the broker, the retry policy and the retention janitor.
type QueueConfig struct {
	Backend            string  `mapstructure:"backend"` // redis | zeebe
	Prefix             string  `mapstructure:"prefix"`
	MaxAttempts        int     `mapstructure:"max_attempts"`
	BackoffDelay       int     `mapstructure:"backoff_delay"` // milliseconds
	BackoffMultiplier  float64 `mapstructure:"backoff_multiplier"`
	MaxBackoff         int     `mapstructure:"max_backoff"`         // milliseconds
	PollInterval       int     `mapstructure:"poll_interval"`       // milliseconds
	LeaseTimeout       int     `mapstructure:"lease_timeout"`       // milliseconds
	ReapInterval       int     `mapstructure:"reap_interval"`       // milliseconds
	CompletedRetention int     `mapstructure:"completed_retention"` // milliseconds
	CompletedKeep      int     `mapstructure:"completed_keep"`
	FailedRetention    int     `mapstructure:"failed_retention"` // milliseconds
	JanitorInterval    int     `mapstructure:"janitor_interval"` // milliseconds
	IdempotencyTTL     int     `mapstructure:"idempotency_ttl"`  // milliseconds
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"` // postgres | memory
}

// DocumentsConfig selects where document metadata and job descriptions live.
type DocumentsConfig struct {
	Backend   string `mapstructure:"backend"` // mysql | memory
	UnidocKey string `mapstructure:"unidoc_key"`
}

type CamundaConfig struct {
	BrokerAddress  string            `mapstructure:"broker_address"`
	MaxJobsActive  int               `mapstructure:"max_jobs_active"`
	Timeout        int               `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int               `mapstructure:"request_timeout"` // milliseconds
	ProcessIDs     map[string]string `mapstructure:"process_ids"`     // job type -> BPMN process id
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	MySQL         MySQLConfig         `mapstructure:"mysql"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// MySQLConfig points at the document and job description tables.
type MySQLConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
}

// GetDSN returns the go-sql-driver style DSN used by gorm's mysql driver.
func (m MySQLConfig) GetDSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		m.User, m.Password, m.Host, m.Port, m.Database,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
	TextTTL  int    `mapstructure:"text_ttl"` // milliseconds, extracted text cache
}

// WorkerConfig holds the core settings applicable to every pool.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"` // pool concurrency
	Timeout       int  `mapstructure:"timeout"`         // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// APIsConfig holds settings for external collaborators.
type APIsConfig struct {
	Reasoning struct {
		Provider string `mapstructure:"provider"` // openai | gemini | vertex
		Timeout  int    `mapstructure:"timeout"`  // milliseconds
	} `mapstructure:"reasoning"`

	OpenAI struct {
		BaseURL        string `mapstructure:"base_url"`
		APIKey         string `mapstructure:"api_key"`
		Model          string `mapstructure:"model"`
		EmbeddingModel string `mapstructure:"embedding_model"`
	} `mapstructure:"openai"`

	Gemini struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"gemini"`

	Vertex struct {
		ProjectID string `mapstructure:"project_id"`
		Location  string `mapstructure:"location"`
		Model     string `mapstructure:"model"`
	} `mapstructure:"vertex"`

	Listings struct {
		BaseURL  string `mapstructure:"base_url"`
		APIKey   string `mapstructure:"api_key"`
		Location string `mapstructure:"location"`
		Timeout  int    `mapstructure:"timeout"` // milliseconds
		TopN     int    `mapstructure:"top_n"`
		// ExternalSkillScore scores each listing with a reasoning call
		// instead of the local skill overlap.
		ExternalSkillScore bool `mapstructure:"external_skill_score"`
	} `mapstructure:"listings"`

	Embeddings struct {
		Provider   string `mapstructure:"provider"` // openai | hash
		Dimensions int    `mapstructure:"dimensions"`
	} `mapstructure:"embeddings"`
}

type VectorStoreConfig struct {
	Backend string `mapstructure:"backend"` // memory | elasticsearch
	Index   string `mapstructure:"index"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// EventsConfig selects the job event sinks.
type EventsConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	AMQP struct {
		Enabled  bool   `mapstructure:"enabled"`
		URL      string `mapstructure:"url"`
		Exchange string `mapstructure:"exchange"`
	} `mapstructure:"amqp"`
	SES struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		To        []string `mapstructure:"to"`
	} `mapstructure:"ses"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// RegistryConfig points at the pipeline registry file.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}
