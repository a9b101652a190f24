package server

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/graph"
	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/Ramsey-B/sage/pkg/tracing/exporters"
)

// TracingDependency initializes the OTLP trace provider. When tracing is
// disabled it leaves the no-op tracer in place.
type TracingDependency struct {
	cfg      *config.Config
	logger   ectologger.Logger
	provider *sdktrace.TracerProvider
}

func NewTracingDependency(cfg *config.Config, logger ectologger.Logger) *TracingDependency {
	return &TracingDependency{cfg: cfg, logger: logger}
}

func (d *TracingDependency) GetName() string {
	return "tracing"
}

func (d *TracingDependency) DependsOn() []string {
	return nil
}

func (d *TracingDependency) Start(ctx context.Context) error {
	if !d.cfg.TracingEnabled {
		d.logger.Info("Tracing is disabled")
		return nil
	}

	var exporter sdktrace.SpanExporter
	if d.cfg.TracingOTLPEndpoint == "" {
		exporter = &exporters.ConsoleExporter{}
	} else {
		var err error
		exporter, err = exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: d.cfg.TracingOTLPEndpoint,
			Protocol: d.cfg.TracingOTLPProtocol,
			Insecure: d.cfg.TracingOTLPInsecure,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(d.cfg.AppName),
		)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracing.SetTracer(provider.Tracer(d.cfg.AppName))

	d.provider = provider
	d.logger.Infof("Tracing initialized for %s", d.cfg.AppName)
	return nil
}

func (d *TracingDependency) Stop(ctx context.Context) error {
	if d.provider == nil {
		return nil
	}
	return d.provider.Shutdown(ctx)
}

// DatabaseDependency connects to postgres and applies migrations.
type DatabaseDependency struct {
	cfg    *config.Config
	logger ectologger.Logger

	DB database.DB
}

func NewDatabaseDependency(cfg *config.Config, logger ectologger.Logger) *DatabaseDependency {
	return &DatabaseDependency{cfg: cfg, logger: logger}
}

func (d *DatabaseDependency) GetName() string {
	return "database"
}

func (d *DatabaseDependency) DependsOn() []string {
	return nil
}

func (d *DatabaseDependency) Start(ctx context.Context) error {
	db, err := database.Connect(ctx, database.ConnectionConfig{
		Host:            d.cfg.DatabaseHost,
		Port:            d.cfg.DatabasePort,
		Username:        d.cfg.DatabaseUserName,
		Password:        d.cfg.DatabasePassword,
		Name:            d.cfg.DatabaseName,
		SSLMode:         d.cfg.DatabaseSSLMode,
		MaxOpenConns:    d.cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    d.cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: d.cfg.DatabaseConnMaxLifetime,
	}, d.logger)
	if err != nil {
		return err
	}

	driver, err := migratepg.WithInstance(db.Unsafe().DB, &migratepg.Config{})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationService := database.NewMigrationService(d.logger, &database.MigrationConfig{
		MigrationFolderPath: d.cfg.DatabaseMigrationFolderPath,
		Version:             uint(d.cfg.DatabaseMigrationVersion),
		Force:               d.cfg.DatabaseMigrationForce,
		AutoRollback:        d.cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrationService.Migrate(d.cfg.DatabaseName, driver); err != nil {
		_ = db.Close()
		return err
	}

	d.DB = db
	return nil
}

func (d *DatabaseDependency) Stop(ctx context.Context) error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// RedisDependency connects to redis.
type RedisDependency struct {
	cfg    *config.Config
	logger ectologger.Logger

	Client *redis.Client
}

func NewRedisDependency(cfg *config.Config, logger ectologger.Logger) *RedisDependency {
	return &RedisDependency{cfg: cfg, logger: logger}
}

func (d *RedisDependency) GetName() string {
	return "redis"
}

func (d *RedisDependency) DependsOn() []string {
	return nil
}

func (d *RedisDependency) Start(ctx context.Context) error {
	client, err := redis.NewClient(redis.Config{
		Host:     d.cfg.RedisHost,
		Port:     d.cfg.RedisPort,
		Password: d.cfg.RedisPassword,
		DB:       d.cfg.RedisDB,
	}, d.logger)
	if err != nil {
		return err
	}

	d.Client = client
	return nil
}

func (d *RedisDependency) Stop(ctx context.Context) error {
	if d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// KafkaDependency builds the event producer. The writer connects lazily,
// so startup succeeds even while brokers are still coming up.
type KafkaDependency struct {
	cfg    *config.Config
	logger ectologger.Logger

	Producer *kafka.Producer
}

func NewKafkaDependency(cfg *config.Config, logger ectologger.Logger) *KafkaDependency {
	return &KafkaDependency{cfg: cfg, logger: logger}
}

func (d *KafkaDependency) GetName() string {
	return "kafka"
}

func (d *KafkaDependency) DependsOn() []string {
	return nil
}

func (d *KafkaDependency) Start(ctx context.Context) error {
	if !d.cfg.KafkaEventsEnabled {
		d.logger.Info("Kafka events are disabled")
		return nil
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:                d.cfg.KafkaBrokers,
		BatchSize:              d.cfg.KafkaBatchSize,
		BatchTimeout:           time.Duration(d.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks:           d.cfg.KafkaRequiredAcks,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		Compression:            d.cfg.KafkaCompression,
		AllowAutoTopicCreation: d.cfg.KafkaAllowAutoTopicCreation,
	}, d.logger)
	if err != nil {
		return err
	}

	d.Producer = producer
	return nil
}

func (d *KafkaDependency) Stop(ctx context.Context) error {
	if d.Producer == nil {
		return nil
	}
	return d.Producer.Close()
}

// GraphDependency connects to the graph database when graph sync is
// enabled.
type GraphDependency struct {
	cfg    *config.Config
	logger ectologger.Logger

	Client *graph.Client
}

func NewGraphDependency(cfg *config.Config, logger ectologger.Logger) *GraphDependency {
	return &GraphDependency{cfg: cfg, logger: logger}
}

func (d *GraphDependency) GetName() string {
	return "graph"
}

func (d *GraphDependency) DependsOn() []string {
	return nil
}

func (d *GraphDependency) Start(ctx context.Context) error {
	if !d.cfg.GraphSyncEnabled {
		d.logger.Info("Graph sync is disabled")
		return nil
	}

	client, err := graph.NewClient(graph.Config{
		Host:     d.cfg.GraphDBHost,
		Port:     d.cfg.GraphDBPort,
		Username: d.cfg.GraphDBUser,
		Password: d.cfg.GraphDBPassword,
	}, d.logger)
	if err != nil {
		return err
	}

	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return fmt.Errorf("failed to verify graph connectivity: %w", err)
	}

	d.Client = client
	return nil
}

func (d *GraphDependency) Stop(ctx context.Context) error {
	if d.Client == nil {
		return nil
	}
	return d.Client.Close(ctx)
}
