package e2e

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

// TestOnboardingFlow runs the full onboarding pipeline against a live
// stack: provision org and site, verify lookups, verify the seeded
// customer config, and confirm the rerun is idempotent.
func TestOnboardingFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := DefaultConfig()
	RequireService(t, cfg.SageURL)

	client := NewHTTPClient(cfg.SageURL, cfg.TestUserID)

	suffix := uniqueSuffix()
	baseURL := fmt.Sprintf("https://e2e-%s.example.com", suffix)
	imsOrgID := fmt.Sprintf("E2E%s@AdobeOrg", suffix)
	orgName := "E2E Test Org " + suffix

	// Step 1: Onboard a brand new site
	t.Log("Onboarding new site...")
	resp, err := client.Post("/api/v1/onboarding", map[string]any{
		"imsOrgID": imsOrgID,
		"baseURL":  baseURL,
		"profile":  orgName,
	})
	if err != nil {
		t.Fatalf("Failed to onboard site: %v", err)
	}
	if resp.StatusCode != 200 {
		body, _ := ParseResponse[map[string]any](resp)
		t.Fatalf("Onboarding returned %d: %v", resp.StatusCode, body)
	}

	result, err := ParseResponse[map[string]any](resp)
	if err != nil {
		t.Fatalf("Failed to parse onboarding response: %v", err)
	}
	t.Logf("Onboarding result: %+v", result)

	orgID, _ := result["organizationId"].(string)
	siteID, _ := result["siteId"].(string)
	configKey, _ := result["configKey"].(string)
	if orgID == "" || siteID == "" || configKey == "" {
		t.Fatalf("Onboarding result is missing ids: %+v", result)
	}
	if alreadyExisted, _ := result["alreadyExisted"].(bool); alreadyExisted {
		t.Fatal("First onboarding run reported alreadyExisted")
	}

	// Step 2: The organization is resolvable by IMS org id
	t.Log("Looking up organization by IMS org id...")
	resp, err = client.Get("/api/v1/organizations/by-ims-org-id/" + imsOrgID)
	if err != nil {
		t.Fatalf("Failed to look up organization: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Organization lookup returned %d", resp.StatusCode)
	}
	org, err := ParseResponse[map[string]any](resp)
	if err != nil {
		t.Fatalf("Failed to parse organization: %v", err)
	}
	if org["id"] != orgID {
		t.Errorf("Organization id mismatch: got %v, want %s", org["id"], orgID)
	}
	if org["name"] != orgName {
		t.Errorf("Organization name mismatch: got %v, want %s", org["name"], orgName)
	}

	// Step 3: The site is resolvable by base URL
	t.Log("Looking up site by base URL...")
	encoded := base64.URLEncoding.EncodeToString([]byte(baseURL))
	resp, err = client.Get("/api/v1/sites/by-base-url/" + encoded)
	if err != nil {
		t.Fatalf("Failed to look up site: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Site lookup returned %d", resp.StatusCode)
	}
	site, err := ParseResponse[map[string]any](resp)
	if err != nil {
		t.Fatalf("Failed to parse site: %v", err)
	}
	if site["id"] != siteID {
		t.Errorf("Site id mismatch: got %v, want %s", site["id"], siteID)
	}
	if site["config_key"] != configKey {
		t.Errorf("Site config key mismatch: got %v, want %s", site["config_key"], configKey)
	}

	// Step 4: The customer config was seeded under the config key
	t.Log("Fetching seeded customer config...")
	resp, err = client.Get("/api/v1/customer-configs/" + configKey)
	if err != nil {
		t.Fatalf("Failed to fetch customer config: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Customer config fetch returned %d", resp.StatusCode)
	}
	config, err := ParseResponse[configView](resp)
	if err != nil {
		t.Fatalf("Failed to parse customer config: %v", err)
	}
	if config.Document.Customer.CustomerName != orgName {
		t.Errorf("Seeded customerName mismatch: got %q, want %q", config.Document.Customer.CustomerName, orgName)
	}
	if config.Version < 1 {
		t.Errorf("Seeded config version should be at least 1, got %d", config.Version)
	}

	// Step 5: Rerunning onboarding for the same site is a no-op
	t.Log("Rerunning onboarding for the same site...")
	resp, err = client.Post("/api/v1/onboarding", map[string]any{
		"imsOrgID": imsOrgID,
		"baseURL":  baseURL,
	})
	if err != nil {
		t.Fatalf("Failed to rerun onboarding: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Onboarding rerun returned %d", resp.StatusCode)
	}
	rerun, err := ParseResponse[map[string]any](resp)
	if err != nil {
		t.Fatalf("Failed to parse rerun response: %v", err)
	}
	if alreadyExisted, _ := rerun["alreadyExisted"].(bool); !alreadyExisted {
		t.Error("Rerun did not report alreadyExisted")
	}
	if rerun["siteId"] != siteID {
		t.Errorf("Rerun site id mismatch: got %v, want %s", rerun["siteId"], siteID)
	}
	if rerun["configKey"] != configKey {
		t.Errorf("Rerun config key mismatch: got %v, want %s", rerun["configKey"], configKey)
	}

	t.Log("Onboarding flow complete")
}

// TestOnboardingEmitsEvents verifies that onboarding publishes its
// lifecycle events. Requires a stack started with KAFKA_EVENTS_ENABLED=true.
func TestOnboardingEmitsEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := DefaultConfig()
	RequireKafkaEvents(t)
	RequireService(t, cfg.SageURL)

	client := NewHTTPClient(cfg.SageURL, cfg.TestUserID)
	kafkaHelper := NewKafkaHelper(cfg.KafkaBrokers)
	ctx := context.Background()

	suffix := uniqueSuffix()
	baseURL := fmt.Sprintf("https://e2e-events-%s.example.com", suffix)
	imsOrgID := fmt.Sprintf("E2EEVT%s@AdobeOrg", suffix)

	// Record time before onboarding to filter out old messages
	publishTime := time.Now().Add(-1 * time.Second)

	t.Log("Onboarding new site...")
	resp, err := client.Post("/api/v1/onboarding", map[string]any{
		"imsOrgID": imsOrgID,
		"baseURL":  baseURL,
	})
	if err != nil {
		t.Fatalf("Failed to onboard site: %v", err)
	}
	if resp.StatusCode != 200 {
		body, _ := ParseResponse[map[string]any](resp)
		t.Fatalf("Onboarding returned %d: %v", resp.StatusCode, body)
	}
	result, err := ParseResponse[map[string]any](resp)
	if err != nil {
		t.Fatalf("Failed to parse onboarding response: %v", err)
	}
	siteID, _ := result["siteId"].(string)
	orgID, _ := result["organizationId"].(string)

	t.Log("Consuming onboarding events...")
	groupID := "e2e-onboarding-" + suffix
	messages, err := kafkaHelper.ConsumeMessagesAfter(ctx, cfg.OnboardingEventsTopic, groupID, 30*time.Second, 5, publishTime)
	if err != nil {
		t.Fatalf("Failed to consume onboarding events: %v", err)
	}
	t.Logf("Consumed %d messages", len(messages))

	var sawSiteOnboarded, sawOrgCreated bool
	for _, msg := range messages {
		var event map[string]any
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			t.Logf("Skipping unparseable message: %v", err)
			continue
		}
		switch event["event_type"] {
		case "site.onboarded":
			if event["site_id"] == siteID {
				sawSiteOnboarded = true
				if event["base_url"] != baseURL {
					t.Errorf("site.onboarded base_url mismatch: got %v, want %s", event["base_url"], baseURL)
				}
			}
		case "organization.created":
			if event["org_id"] == orgID {
				sawOrgCreated = true
			}
		}
	}

	if !sawSiteOnboarded {
		t.Error("Did not observe a site.onboarded event for the new site")
	}
	if !sawOrgCreated {
		t.Error("Did not observe an organization.created event for the new organization")
	}
}

// configView is the subset of the config response these tests care about.
type configView struct {
	ConfigKey string `json:"configKey"`
	Version   int64  `json:"version"`
	UpdatedBy string `json:"updatedBy"`
	Document  struct {
		Customer struct {
			CustomerName string      `json:"customerName"`
			Brands       []brandView `json:"brands"`
		} `json:"customer"`
	} `json:"document"`
}

type brandView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	UpdatedBy string `json:"updatedBy"`
	UpdatedAt string `json:"updatedAt"`
}
