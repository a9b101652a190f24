package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config holds test configuration
type Config struct {
	SageURL               string
	KafkaBrokers          []string
	ConfigEventsTopic     string
	OnboardingEventsTopic string
	TestUserID            string
	TestIMSOrgID          string
}

// DefaultConfig returns default test configuration
func DefaultConfig() Config {
	return Config{
		SageURL:               getEnv("SAGE_URL", "http://localhost:3004"),
		KafkaBrokers:          []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
		ConfigEventsTopic:     getEnv("CONFIG_EVENTS_TOPIC", "customer-config-events"),
		OnboardingEventsTopic: getEnv("ONBOARDING_EVENTS_TOPIC", "onboarding-events"),
		TestUserID:            getEnv("TEST_USER_ID", "e2e-test-user"),
		TestIMSOrgID:          getEnv("TEST_IMS_ORG_ID", "E2E12345@AdobeOrg"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// HTTPClient wraps http.Client with helper methods
type HTTPClient struct {
	client  *http.Client
	baseURL string
	userID  string
}

// NewHTTPClient creates a new HTTP client for the API
func NewHTTPClient(baseURL, userID string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		userID:  userID,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(path string) (*http.Response, error) {
	req, err := http.NewRequest("GET", c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.addHeaders(req)
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(path string, body any) (*http.Response, error) {
	return c.send("POST", path, body)
}

// Patch performs a PATCH request with JSON body
func (c *HTTPClient) Patch(path string, body any) (*http.Response, error) {
	return c.send("PATCH", path, body)
}

func (c *HTTPClient) send(method, path string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	c.addHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

func (c *HTTPClient) addHeaders(req *http.Request) {
	// Test identity headers - used when AUTH_ENABLED=false
	req.Header.Set("X-User-ID", c.userID)
}

// ParseResponse parses a JSON response into the given type
func ParseResponse[T any](resp *http.Response) (T, error) {
	var result T
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, err
	}
	defer resp.Body.Close()

	if err := json.Unmarshal(body, &result); err != nil {
		return result, fmt.Errorf("failed to parse response: %w (body: %s)", err, string(body))
	}
	return result, nil
}

// KafkaHelper provides Kafka testing utilities
type KafkaHelper struct {
	brokers []string
}

// NewKafkaHelper creates a new Kafka helper
func NewKafkaHelper(brokers []string) *KafkaHelper {
	return &KafkaHelper{brokers: brokers}
}

// ConsumeMessages consumes messages from a topic with a timeout
// Only returns messages published after 'afterTime' to filter out stale messages
func (k *KafkaHelper) ConsumeMessages(ctx context.Context, topic, groupID string, timeout time.Duration, maxMessages int) ([]kafka.Message, error) {
	return k.ConsumeMessagesAfter(ctx, topic, groupID, timeout, maxMessages, time.Time{})
}

// ConsumeMessagesAfter consumes messages from a topic, filtering for messages after a specific time
func (k *KafkaHelper) ConsumeMessagesAfter(ctx context.Context, topic, groupID string, timeout time.Duration, maxMessages int, afterTime time.Time) ([]kafka.Message, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  k.brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	defer reader.Close()

	messages := make([]kafka.Message, 0, maxMessages)
	deadline := time.Now().Add(timeout)

	for len(messages) < maxMessages && time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
		msg, err := reader.FetchMessage(ctx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				continue // Timeout, try again
			}
			return messages, err
		}

		// Commit all messages to advance offset, but only keep recent ones
		reader.CommitMessages(context.Background(), msg)

		// Filter: only keep messages after the specified time
		if !afterTime.IsZero() && msg.Time.Before(afterTime) {
			continue // Skip old messages
		}

		messages = append(messages, msg)
	}

	return messages, nil
}

// RequireService skips the test if the API is not available
// Waits up to 10 seconds for the service to become ready (handles 503 during startup)
func RequireService(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(10 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url + "/api/v1/health")
		if err != nil {
			// Service not running at all
			t.Skipf("Skipping: service at %s is not available. Start the stack with 'make dev'", url)
			return
		}

		status := resp.StatusCode
		resp.Body.Close()

		if status == http.StatusOK {
			return // Service is ready
		}

		if status == http.StatusServiceUnavailable {
			// Service is starting up, wait and retry
			t.Logf("Service at %s is starting (503), waiting...", url)
			time.Sleep(1 * time.Second)
			continue
		}

		// Other error status
		t.Skipf("Skipping: service at %s returned status %d", url, status)
		return
	}

	t.Skipf("Skipping: service at %s did not become ready within 10s", url)
}

// RequireKafkaEvents skips the test unless Kafka event assertions were
// explicitly requested. The API runs fine with events disabled, so these
// checks only make sense against a stack started with KAFKA_EVENTS_ENABLED=true.
func RequireKafkaEvents(t *testing.T) {
	t.Helper()
	if os.Getenv("E2E_KAFKA_EVENTS") != "true" {
		t.Skip("Skipping: set E2E_KAFKA_EVENTS=true to assert on Kafka events")
	}
}

// uniqueSuffix returns a per-run marker for test data so reruns never
// collide with leftovers from earlier runs.
func uniqueSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
