package config

import (
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"sage-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PATCH,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  int           `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"sage"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Auth
	AuthEnabled   bool   `env:"AUTH_ENABLED" env-default:"false"`
	AuthIssuerURL string `env:"AUTH_ISSUER_URL" env-default:""`
	AuthClientID  string `env:"AUTH_CLIENT_ID" env-default:""`

	// Kafka Producer settings
	KafkaBrokers                  []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaEventsEnabled            bool     `env:"KAFKA_EVENTS_ENABLED" env-default:"true"`
	KafkaConfigEventsTopic        string   `env:"KAFKA_CONFIG_EVENTS_TOPIC" env-default:"customer-config-events"`
	KafkaOnboardingEventsTopic    string   `env:"KAFKA_ONBOARDING_EVENTS_TOPIC" env-default:"onboarding-events"`
	KafkaBatchSize                int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout             int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks             int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression              string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`
	KafkaAllowAutoTopicCreation   bool     `env:"KAFKA_ALLOW_AUTO_TOPIC_CREATION" env-default:"true"`

	// Graph Database (Neo4j)
	GraphSyncEnabled bool   `env:"GRAPH_SYNC_ENABLED" env-default:"false"`
	GraphDBHost      string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort      int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser      string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword  string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// IMS
	IMSBaseURL      string        `env:"IMS_BASE_URL" env-default:"https://ims-na1.adobelogin.com"`
	IMSClientID     string        `env:"IMS_CLIENT_ID" env-default:""`
	IMSClientSecret string        `env:"IMS_CLIENT_SECRET" env-default:""`
	IMSScopes       []string      `env:"IMS_SCOPES" env-default:"openid,AdobeID"`
	IMSTokenTTLSkew time.Duration `env:"IMS_TOKEN_TTL_SKEW" env-default:"60s"`

	// Slack
	SlackBaseURL        string `env:"SLACK_BASE_URL" env-default:"https://slack.com/api"`
	SlackBotToken       string `env:"SLACK_BOT_TOKEN" env-default:""`
	SlackDefaultChannel string `env:"SLACK_DEFAULT_CHANNEL" env-default:""`

	// Chrome UX Report
	CruxBaseURL  string        `env:"CRUX_BASE_URL" env-default:"https://chromeuxreport.googleapis.com/v1"`
	CruxAPIKey   string        `env:"CRUX_API_KEY" env-default:""`
	CruxCacheTTL time.Duration `env:"CRUX_CACHE_TTL" env-default:"6h"`

	// Brand API
	BrandAPIBaseURL string `env:"BRAND_API_BASE_URL" env-default:""`

	// Tracing
	TracingEnabled      bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingOTLPEndpoint string `env:"TRACING_OTLP_ENDPOINT" env-default:""`
	TracingOTLPProtocol string `env:"TRACING_OTLP_PROTOCOL" env-default:"grpc"`
	TracingOTLPInsecure bool   `env:"TRACING_OTLP_INSECURE" env-default:"true"`
}

// Load reads .env when present and binds the environment onto a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
