package testcontainers

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const networkName = "sage-test-network"

// ServiceManager starts the infrastructure the sage API needs so the
// YAML suites can run against a throwaway local stack instead of a
// shared environment.
type ServiceManager struct {
	ctx context.Context

	postgres  testcontainers.Container
	zookeeper testcontainers.Container
	kafka     testcontainers.Container
	redis     testcontainers.Container
	sage      testcontainers.Container

	network testcontainers.Network

	PostgresURL  string
	KafkaBrokers []string
	RedisAddr    string
	SageURL      string
}

// NewServiceManager creates a new service manager
func NewServiceManager(ctx context.Context) *ServiceManager {
	return &ServiceManager{ctx: ctx}
}

// StartInfrastructure starts PostgreSQL, Kafka (with Zookeeper), and Redis
func (sm *ServiceManager) StartInfrastructure() error {
	network, err := testcontainers.GenericNetwork(sm.ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{
			Name:           networkName,
			CheckDuplicate: true,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create network: %w", err)
	}
	sm.network = network

	if err := sm.startZookeeper(); err != nil {
		return fmt.Errorf("failed to start Zookeeper: %w", err)
	}
	if err := sm.startKafka(); err != nil {
		return fmt.Errorf("failed to start Kafka: %w", err)
	}
	if err := sm.startPostgres(); err != nil {
		return fmt.Errorf("failed to start PostgreSQL: %w", err)
	}
	if err := sm.startRedis(); err != nil {
		return fmt.Errorf("failed to start Redis: %w", err)
	}

	return nil
}

// StartSage starts the sage API container wired to the infrastructure.
// image is the locally built service image to run.
func (sm *ServiceManager) StartSage(image string) error {
	req := testcontainers.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{"3004/tcp"},
		Env: map[string]string{
			"DB_HOST":              "postgres",
			"DB_PORT":              "5432",
			"DB_USER_NAME":         "user",
			"DB_PASSWORD":          "password",
			"DB_NAME":              "sage",
			"REDIS_HOST":           "redis",
			"REDIS_PORT":           "6379",
			"KAFKA_BROKERS":        "kafka:9093",
			"KAFKA_EVENTS_ENABLED": "true",
			"GRAPH_SYNC_ENABLED":   "false",
			"TRACING_ENABLED":      "false",
		},
		Networks: []string{networkName},
		WaitingFor: wait.ForHTTP("/api/v1/health/ready").
			WithPort("3004/tcp").
			WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(sm.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return fmt.Errorf("failed to start sage: %w", err)
	}
	sm.sage = container

	host, err := container.Host(sm.ctx)
	if err != nil {
		return err
	}
	port, err := container.MappedPort(sm.ctx, "3004")
	if err != nil {
		return err
	}

	sm.SageURL = fmt.Sprintf("http://%s:%s", host, port.Port())
	return nil
}

// Stop terminates every container and removes the network
func (sm *ServiceManager) Stop() {
	for _, container := range []testcontainers.Container{sm.sage, sm.kafka, sm.zookeeper, sm.postgres, sm.redis} {
		if container != nil {
			_ = container.Terminate(sm.ctx)
		}
	}
	if sm.network != nil {
		_ = sm.network.Remove(sm.ctx)
	}
}

func (sm *ServiceManager) startZookeeper() error {
	req := testcontainers.ContainerRequest{
		Image:        "confluentinc/cp-zookeeper:7.5.0",
		ExposedPorts: []string{"2181/tcp"},
		Env: map[string]string{
			"ZOOKEEPER_CLIENT_PORT": "2181",
			"ZOOKEEPER_TICK_TIME":   "2000",
		},
		Networks: []string{networkName},
		NetworkAliases: map[string][]string{
			networkName: {"zookeeper"},
		},
		WaitingFor: wait.ForLog("binding to port").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(sm.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return err
	}

	sm.zookeeper = container
	return nil
}

func (sm *ServiceManager) startKafka() error {
	req := testcontainers.ContainerRequest{
		Image:        "confluentinc/cp-kafka:7.5.0",
		ExposedPorts: []string{"9092/tcp", "9093/tcp"},
		Env: map[string]string{
			"KAFKA_BROKER_ID":                        "1",
			"KAFKA_ZOOKEEPER_CONNECT":                "zookeeper:2181",
			"KAFKA_ADVERTISED_LISTENERS":             "PLAINTEXT://localhost:9092,PLAINTEXT_INTERNAL://kafka:9093",
			"KAFKA_LISTENER_SECURITY_PROTOCOL_MAP":   "PLAINTEXT:PLAINTEXT,PLAINTEXT_INTERNAL:PLAINTEXT",
			"KAFKA_OFFSETS_TOPIC_REPLICATION_FACTOR": "1",
			"KAFKA_TRANSACTION_STATE_LOG_MIN_ISR":    "1",
			"KAFKA_TRANSACTION_STATE_LOG_REPLICATION_FACTOR": "1",
		},
		Networks: []string{networkName},
		NetworkAliases: map[string][]string{
			networkName: {"kafka"},
		},
		WaitingFor: wait.ForLog("started (kafka.server.KafkaServer)").
			WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(sm.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return err
	}

	sm.kafka = container

	host, err := container.Host(sm.ctx)
	if err != nil {
		return err
	}
	port, err := container.MappedPort(sm.ctx, "9092")
	if err != nil {
		return err
	}

	sm.KafkaBrokers = []string{fmt.Sprintf("%s:%s", host, port.Port())}
	return nil
}

func (sm *ServiceManager) startPostgres() error {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "user",
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "sage",
		},
		Networks: []string{networkName},
		NetworkAliases: map[string][]string{
			networkName: {"postgres"},
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(sm.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return err
	}

	sm.postgres = container

	host, err := container.Host(sm.ctx)
	if err != nil {
		return err
	}
	port, err := container.MappedPort(sm.ctx, "5432")
	if err != nil {
		return err
	}

	sm.PostgresURL = fmt.Sprintf("postgres://user:password@%s:%s/sage?sslmode=disable", host, port.Port())
	return nil
}

func (sm *ServiceManager) startRedis() error {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		Networks:     []string{networkName},
		NetworkAliases: map[string][]string{
			networkName: {"redis"},
		},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(sm.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return err
	}

	sm.redis = container

	host, err := container.Host(sm.ctx)
	if err != nil {
		return err
	}
	port, err := container.MappedPort(sm.ctx, "6379")
	if err != nil {
		return err
	}

	sm.RedisAddr = fmt.Sprintf("%s:%s", host, port.Port())
	return nil
}
