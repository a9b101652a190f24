package e2e

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// patchView is the subset of the PATCH response these tests care about.
type patchView struct {
	Message string `json:"message"`
	Stats   struct {
		Brands struct {
			Total    int `json:"total"`
			Modified int `json:"modified"`
			Added    int `json:"added"`
		} `json:"brands"`
	} `json:"stats"`
}

// TestCustomerConfigPatchFlow exercises the config merge pipeline against
// a live stack: create via first patch, verify stamping, verify that a
// resend changes nothing, then grow the document and read back history.
func TestCustomerConfigPatchFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := DefaultConfig()
	RequireService(t, cfg.SageURL)

	client := NewHTTPClient(cfg.SageURL, cfg.TestUserID)
	configKey := "e2e-cfg-" + uniqueSuffix()
	configPath := "/api/v1/customer-configs/" + configKey

	// Step 1: First patch creates the document
	t.Log("Creating config via first patch...")
	resp, err := client.Patch(configPath, map[string]any{
		"customer": map[string]any{
			"customerName": "E2E Config Co",
			"brands": []map[string]any{
				{"id": "brand-e2e-1", "name": "First Brand", "status": "active"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Failed to patch config: %v", err)
	}
	if resp.StatusCode != 200 {
		body, _ := ParseResponse[map[string]any](resp)
		t.Fatalf("First patch returned %d: %v", resp.StatusCode, body)
	}
	patch, err := ParseResponse[patchView](resp)
	if err != nil {
		t.Fatalf("Failed to parse patch response: %v", err)
	}
	if patch.Stats.Brands.Added != 1 || patch.Stats.Brands.Total != 1 {
		t.Errorf("First patch stats wrong: %+v", patch.Stats.Brands)
	}

	// Step 2: The stored document carries the actor stamp
	t.Log("Reading back created config...")
	resp, err = client.Get(configPath)
	if err != nil {
		t.Fatalf("Failed to fetch config: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Config fetch returned %d", resp.StatusCode)
	}
	config, err := ParseResponse[configView](resp)
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}
	if config.Version != 1 {
		t.Errorf("Expected version 1 after create, got %d", config.Version)
	}
	if len(config.Document.Customer.Brands) != 1 {
		t.Fatalf("Expected 1 brand, got %d", len(config.Document.Customer.Brands))
	}
	brand := config.Document.Customer.Brands[0]
	if brand.UpdatedBy != cfg.TestUserID {
		t.Errorf("Brand updatedBy should carry the caller, got %q", brand.UpdatedBy)
	}
	if brand.UpdatedAt == "" {
		t.Error("Brand updatedAt was not stamped")
	}
	firstStamp := brand.UpdatedAt

	// Step 3: Resending identical content must not restamp anything
	t.Log("Resending identical content...")
	resp, err = client.Patch(configPath, map[string]any{
		"customer": map[string]any{
			"customerName": "E2E Config Co",
			"brands": []map[string]any{
				{"id": "brand-e2e-1", "name": "First Brand", "status": "active"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Failed to resend patch: %v", err)
	}
	patch, err = ParseResponse[patchView](resp)
	if err != nil {
		t.Fatalf("Failed to parse resend response: %v", err)
	}
	if patch.Stats.Brands.Modified != 0 {
		t.Errorf("Resend must report 0 modified brands, got %d", patch.Stats.Brands.Modified)
	}

	resp, err = client.Get(configPath)
	if err != nil {
		t.Fatalf("Failed to fetch config after resend: %v", err)
	}
	config, err = ParseResponse[configView](resp)
	if err != nil {
		t.Fatalf("Failed to parse config after resend: %v", err)
	}
	if config.Document.Customer.Brands[0].UpdatedAt != firstStamp {
		t.Errorf("Resend restamped the brand: got %q, want %q", config.Document.Customer.Brands[0].UpdatedAt, firstStamp)
	}

	// Step 4: Rename the brand and add a second one
	t.Log("Renaming brand and adding another...")
	resp, err = client.Patch(configPath, map[string]any{
		"customer": map[string]any{
			"brands": []map[string]any{
				{"id": "brand-e2e-1", "name": "First Brand Renamed", "status": "active"},
				{"id": "brand-e2e-2", "name": "Second Brand", "status": "active"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Failed to patch brands: %v", err)
	}
	patch, err = ParseResponse[patchView](resp)
	if err != nil {
		t.Fatalf("Failed to parse patch response: %v", err)
	}
	if patch.Stats.Brands.Total != 2 || patch.Stats.Brands.Modified != 2 || patch.Stats.Brands.Added != 1 {
		t.Errorf("Brand growth stats wrong: %+v", patch.Stats.Brands)
	}

	resp, err = client.Get(configPath)
	if err != nil {
		t.Fatalf("Failed to fetch grown config: %v", err)
	}
	config, err = ParseResponse[configView](resp)
	if err != nil {
		t.Fatalf("Failed to parse grown config: %v", err)
	}
	if len(config.Document.Customer.Brands) != 2 {
		t.Fatalf("Expected 2 brands after growth, got %d", len(config.Document.Customer.Brands))
	}
	if config.Document.Customer.CustomerName != "E2E Config Co" {
		t.Errorf("Patching brands must not drop customerName, got %q", config.Document.Customer.CustomerName)
	}

	// Step 5: Revision history covers every write, newest first
	t.Log("Listing revisions...")
	resp, err = client.Get(configPath + "/revisions")
	if err != nil {
		t.Fatalf("Failed to list revisions: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Revision list returned %d", resp.StatusCode)
	}
	revisions, err := ParseResponse[struct {
		ConfigKey string `json:"configKey"`
		Items     []struct {
			Version int64 `json:"version"`
		} `json:"items"`
	}](resp)
	if err != nil {
		t.Fatalf("Failed to parse revisions: %v", err)
	}
	if len(revisions.Items) != 3 {
		t.Errorf("Expected 3 revisions, got %d", len(revisions.Items))
	}
	if len(revisions.Items) > 0 && revisions.Items[0].Version != config.Version {
		t.Errorf("Newest revision should be version %d, got %d", config.Version, revisions.Items[0].Version)
	}

	// Step 6: Invalid patches are rejected up front
	t.Log("Verifying invalid patches are rejected...")
	resp, err = client.Patch(configPath, map[string]any{})
	if err != nil {
		t.Fatalf("Failed to send empty patch: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("Empty patch should return 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = client.Patch("/api/v1/customer-configs/e2e-unnamed-"+uniqueSuffix(), map[string]any{
		"customer": map[string]any{"brands": []map[string]any{}},
	})
	if err != nil {
		t.Fatalf("Failed to send unnamed create: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("Create without customerName should return 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	t.Log("Customer config patch flow complete")
}

// TestCustomerConfigEmitsEvents verifies that config writes publish
// config.updated events. Requires a stack started with KAFKA_EVENTS_ENABLED=true.
func TestCustomerConfigEmitsEvents(t *testing.T) {
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
	configKey := "e2e-evt-" + suffix

	// Record time before writing to filter out old messages
	publishTime := time.Now().Add(-1 * time.Second)

	t.Log("Writing config...")
	resp, err := client.Patch("/api/v1/customer-configs/"+configKey, map[string]any{
		"customer": map[string]any{
			"customerName": "E2E Events Co",
			"brands": []map[string]any{
				{"id": "brand-evt-1", "name": "Event Brand"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Failed to patch config: %v", err)
	}
	if resp.StatusCode != 200 {
		body, _ := ParseResponse[map[string]any](resp)
		t.Fatalf("Patch returned %d: %v", resp.StatusCode, body)
	}
	resp.Body.Close()

	t.Log("Consuming config events...")
	groupID := "e2e-config-" + suffix
	messages, err := kafkaHelper.ConsumeMessagesAfter(ctx, cfg.ConfigEventsTopic, groupID, 30*time.Second, 5, publishTime)
	if err != nil {
		t.Fatalf("Failed to consume config events: %v", err)
	}
	t.Logf("Consumed %d messages", len(messages))

	var found bool
	for _, msg := range messages {
		var event map[string]any
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			t.Logf("Skipping unparseable message: %v", err)
			continue
		}
		if event["event_type"] != "config.updated" || event["config_key"] != configKey {
			continue
		}
		found = true
		if event["actor"] != cfg.TestUserID {
			t.Errorf("Event actor mismatch: got %v, want %s", event["actor"], cfg.TestUserID)
		}
		if version, ok := event["version"].(float64); !ok || version != 1 {
			t.Errorf("Event version should be 1, got %v", event["version"])
		}
	}

	if !found {
		t.Error("Did not observe a config.updated event for the new config key")
	}
}
