package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Projector upserts merged customer configs into the graph as nodes and
// relationships keyed by config key and entity id.
type Projector struct {
	client  *Client
	logger  ectologger.Logger
	enabled bool
}

// NewProjector creates a config projector. A disabled projector turns
// every projection into a no-op.
func NewProjector(client *Client, enabled bool, logger ectologger.Logger) *Projector {
	return &Projector{
		client:  client,
		logger:  logger,
		enabled: enabled && client != nil,
	}
}

// Enabled reports whether projections run
func (p *Projector) Enabled() bool {
	return p.enabled
}

// ProjectConfig mirrors a merged document into the graph. Nodes upsert
// in place; relationships rebuild wholesale, which keeps edges honest
// after whole-list replacements. Documents are small enough that the
// rebuild stays cheap.
func (p *Projector) ProjectConfig(ctx context.Context, configKey string, config *models.CustomerConfig) error {
	if !p.enabled {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectConfig")
	defer span.End()

	batches := buildBatches(configKey, config)

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, step := range projectionSteps {
			params := map[string]any{"config_key": configKey}
			if step.batchKey != "" {
				batch := batches[step.batchKey]
				if len(batch) == 0 {
					continue
				}
				params["batch"] = batch
			}
			if _, err := tx.Run(ctx, step.cypher, params); err != nil {
				return nil, fmt.Errorf("projection step %q: %w", step.name, err)
			}
		}
		return nil, nil
	})

	if err != nil {
		metrics.GraphSyncsTotal.WithLabelValues("error").Inc()
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"config_key": configKey,
		}).Error("Failed to project config into graph")
		return fmt.Errorf("failed to project config into graph: %w", err)
	}

	metrics.GraphSyncsTotal.WithLabelValues("ok").Inc()
	p.logger.WithContext(ctx).WithFields(map[string]any{
		"config_key": configKey,
		"brands":     len(batches["brands"]),
		"prompts":    len(batches["prompts"]),
		"categories": len(batches["categories"]),
		"topics":     len(batches["topics"]),
	}).Debug("Projected config into graph")
	return nil
}

type projectionStep struct {
	name     string
	batchKey string
	cypher   string
}

// Steps run in order inside one write transaction: clear old edges,
// upsert nodes, recreate edges from the current document.
var projectionSteps = []projectionStep{
	{
		name: "clear brand edges",
		cypher: `
			MATCH (:Brand {config_key: $config_key})-[r:HAS_PROMPT|COMPETES_WITH]->()
			DELETE r
		`,
	},
	{
		name: "clear prompt edges",
		cypher: `
			MATCH (:Prompt {config_key: $config_key})-[r:IN_CATEGORY|IN_TOPIC]->()
			DELETE r
		`,
	},
	{
		name: "clear topic edges",
		cypher: `
			MATCH (:Topic {config_key: $config_key})-[r:BELONGS_TO]->()
			DELETE r
		`,
	},
	{
		name:     "upsert brands",
		batchKey: "brands",
		cypher: `
			UNWIND $batch AS b
			MERGE (n:Brand {id: b.id, config_key: $config_key})
			SET n = b
		`,
	},
	{
		name:     "upsert prompts",
		batchKey: "prompts",
		cypher: `
			UNWIND $batch AS p
			MERGE (n:Prompt {id: p.id, brand_id: p.brand_id, config_key: $config_key})
			SET n = p
		`,
	},
	{
		name:     "upsert categories",
		batchKey: "categories",
		cypher: `
			UNWIND $batch AS c
			MERGE (n:Category {id: c.id, config_key: $config_key})
			SET n = c
		`,
	},
	{
		name:     "upsert topics",
		batchKey: "topics",
		cypher: `
			UNWIND $batch AS t
			MERGE (n:Topic {id: t.id, config_key: $config_key})
			SET n = t
		`,
	},
	{
		name:     "upsert competitors",
		batchKey: "competitors",
		cypher: `
			UNWIND $batch AS c
			MERGE (n:Competitor {name: c.name, config_key: $config_key})
			SET n = c
		`,
	},
	{
		name:     "link prompts",
		batchKey: "prompts",
		cypher: `
			UNWIND $batch AS p
			MATCH (b:Brand {id: p.brand_id, config_key: $config_key})
			MATCH (n:Prompt {id: p.id, brand_id: p.brand_id, config_key: $config_key})
			MERGE (b)-[:HAS_PROMPT]->(n)
		`,
	},
	{
		name:     "link prompt categories",
		batchKey: "prompt_categories",
		cypher: `
			UNWIND $batch AS link
			MATCH (p:Prompt {id: link.prompt_id, brand_id: link.brand_id, config_key: $config_key})
			MATCH (c:Category {id: link.category_id, config_key: $config_key})
			MERGE (p)-[:IN_CATEGORY]->(c)
		`,
	},
	{
		name:     "link prompt topics",
		batchKey: "prompt_topics",
		cypher: `
			UNWIND $batch AS link
			MATCH (p:Prompt {id: link.prompt_id, brand_id: link.brand_id, config_key: $config_key})
			MATCH (t:Topic {id: link.topic_id, config_key: $config_key})
			MERGE (p)-[:IN_TOPIC]->(t)
		`,
	},
	{
		name:     "link topic categories",
		batchKey: "topic_categories",
		cypher: `
			UNWIND $batch AS link
			MATCH (t:Topic {id: link.topic_id, config_key: $config_key})
			MATCH (c:Category {id: link.category_id, config_key: $config_key})
			MERGE (t)-[:BELONGS_TO]->(c)
		`,
	},
	{
		name:     "link competitors",
		batchKey: "brand_competitors",
		cypher: `
			UNWIND $batch AS link
			MATCH (b:Brand {id: link.brand_id, config_key: $config_key})
			MATCH (c:Competitor {name: link.name, config_key: $config_key})
			MERGE (b)-[:COMPETES_WITH]->(c)
		`,
	},
}

// buildBatches flattens the document into UNWIND payloads. Node maps
// double as link sources where the keys line up.
func buildBatches(configKey string, config *models.CustomerConfig) map[string][]map[string]any {
	batches := make(map[string][]map[string]any)
	if config == nil {
		return batches
	}

	for _, brand := range config.Customer.Brands {
		batches["brands"] = append(batches["brands"], map[string]any{
			"id":         brand.ID,
			"config_key": configKey,
			"name":       brand.Name,
			"status":     brand.Status,
			"updated_by": brand.UpdatedBy,
			"updated_at": brand.UpdatedAt,
		})

		for _, prompt := range brand.Prompts {
			batches["prompts"] = append(batches["prompts"], map[string]any{
				"id":         prompt.ID,
				"brand_id":   brand.ID,
				"config_key": configKey,
				"prompt":     prompt.Prompt,
				"status":     prompt.Status,
				"updated_by": prompt.UpdatedBy,
				"updated_at": prompt.UpdatedAt,
			})
			if prompt.CategoryID != "" {
				batches["prompt_categories"] = append(batches["prompt_categories"], map[string]any{
					"prompt_id":   prompt.ID,
					"brand_id":    brand.ID,
					"category_id": prompt.CategoryID,
				})
			}
			if prompt.TopicID != "" {
				batches["prompt_topics"] = append(batches["prompt_topics"], map[string]any{
					"prompt_id": prompt.ID,
					"brand_id":  brand.ID,
					"topic_id":  prompt.TopicID,
				})
			}
		}

		for _, competitor := range brand.Competitors {
			if competitor.Name == "" {
				continue
			}
			batches["competitors"] = append(batches["competitors"], map[string]any{
				"name":       competitor.Name,
				"config_key": configKey,
			})
			batches["brand_competitors"] = append(batches["brand_competitors"], map[string]any{
				"brand_id": brand.ID,
				"name":     competitor.Name,
			})
		}
	}

	for _, category := range config.Customer.Categories {
		batches["categories"] = append(batches["categories"], map[string]any{
			"id":         category.ID,
			"config_key": configKey,
			"name":       category.Name,
			"origin":     category.Origin,
			"status":     category.Status,
		})
	}

	for _, topic := range config.Customer.Topics {
		batches["topics"] = append(batches["topics"], map[string]any{
			"id":         topic.ID,
			"config_key": configKey,
			"name":       topic.Name,
			"status":     topic.Status,
		})
		if topic.CategoryID != "" {
			batches["topic_categories"] = append(batches["topic_categories"], map[string]any{
				"topic_id":    topic.ID,
				"category_id": topic.CategoryID,
			})
		}
	}

	return batches
}
