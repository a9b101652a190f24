package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func TestBuildBatches(t *testing.T) {
	config := &models.CustomerConfig{
		Customer: models.Customer{
			CustomerName: "Acme Corp",
			Brands: []models.Brand{
				{
					ID:     "brand-1",
					Name:   "Acme",
					Status: "active",
					Prompts: []models.Prompt{
						{ID: "prompt-1", Prompt: "best running shoes", CategoryID: "cat-1", TopicID: "topic-1"},
						{ID: "prompt-2", Prompt: "acme store hours"},
					},
					Competitors: []models.Competitor{
						{Name: "Globex"},
						{Name: ""},
					},
					UpdatedBy: "alice@acme.example",
					UpdatedAt: "2024-03-01T10:00:00Z",
				},
			},
			Categories: []models.Category{
				{ID: "cat-1", Name: "Footwear", Origin: "user", Status: "active"},
			},
			Topics: []models.Topic{
				{ID: "topic-1", Name: "Running", CategoryID: "cat-1", Status: "active"},
			},
		},
	}

	batches := buildBatches("cfg-123", config)

	require.Len(t, batches["brands"], 1)
	assert.Equal(t, map[string]any{
		"id":         "brand-1",
		"config_key": "cfg-123",
		"name":       "Acme",
		"status":     "active",
		"updated_by": "alice@acme.example",
		"updated_at": "2024-03-01T10:00:00Z",
	}, batches["brands"][0])

	require.Len(t, batches["prompts"], 2)
	assert.Equal(t, "brand-1", batches["prompts"][0]["brand_id"])
	assert.Equal(t, "best running shoes", batches["prompts"][0]["prompt"])

	// Only prompt-1 carries category and topic links.
	require.Len(t, batches["prompt_categories"], 1)
	assert.Equal(t, map[string]any{
		"prompt_id":   "prompt-1",
		"brand_id":    "brand-1",
		"category_id": "cat-1",
	}, batches["prompt_categories"][0])

	require.Len(t, batches["prompt_topics"], 1)
	assert.Equal(t, "topic-1", batches["prompt_topics"][0]["topic_id"])

	// Nameless competitors are dropped.
	require.Len(t, batches["competitors"], 1)
	assert.Equal(t, "Globex", batches["competitors"][0]["name"])
	require.Len(t, batches["brand_competitors"], 1)

	require.Len(t, batches["categories"], 1)
	require.Len(t, batches["topics"], 1)
	require.Len(t, batches["topic_categories"], 1)
	assert.Equal(t, "cat-1", batches["topic_categories"][0]["category_id"])
}

func TestBuildBatchesEmptyConfig(t *testing.T) {
	assert.Empty(t, buildBatches("cfg-123", nil))
	assert.Empty(t, buildBatches("cfg-123", &models.CustomerConfig{}))
}

func TestProjectionStepsReferenceKnownBatches(t *testing.T) {
	known := map[string]bool{
		"brands":            true,
		"prompts":           true,
		"categories":        true,
		"topics":            true,
		"competitors":       true,
		"prompt_categories": true,
		"prompt_topics":     true,
		"topic_categories":  true,
		"brand_competitors": true,
	}

	for _, step := range projectionSteps {
		if step.batchKey == "" {
			continue
		}
		assert.True(t, known[step.batchKey], "step %q references unknown batch %q", step.name, step.batchKey)
	}
}

func TestDisabledProjectorSkipsProjection(t *testing.T) {
	projector := NewProjector(nil, true, nil)
	assert.False(t, projector.Enabled())

	err := projector.ProjectConfig(context.Background(), "cfg-123", &models.CustomerConfig{})
	assert.NoError(t, err)
}
