// Package customerconfig orchestrates the read-merge-write cycle for
// customer config documents: fetch the stored document, merge the
// incoming patch, persist the result, then fan out events and graph
// projection.
package customerconfig

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ramsey-B/sage/pkg/merging"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// ConfigStore is the storage surface the service needs
type ConfigStore interface {
	Get(ctx context.Context, configKey string) (*models.CustomerConfigRecord, error)
	Upsert(ctx context.Context, configKey string, doc models.CustomerConfig, updatedBy string) (*models.CustomerConfigRecord, error)
	ListRevisions(ctx context.Context, configKey string, limit int) ([]models.CustomerConfigRevision, error)
}

// EventEmitter publishes config lifecycle events
type EventEmitter interface {
	EmitConfigUpdated(ctx context.Context, configKey string, version int64, actor string, stats models.MergeStats) error
}

// Projector mirrors merged documents into the graph
type Projector interface {
	ProjectConfig(ctx context.Context, configKey string, config *models.CustomerConfig) error
}

// Service runs config document operations
type Service struct {
	store     ConfigStore
	emitter   EventEmitter
	projector Projector
	logger    ectologger.Logger
}

// NewService creates a customer config service. emitter and projector
// may be nil; the corresponding fan-out is skipped.
func NewService(store ConfigStore, emitter EventEmitter, projector Projector, logger ectologger.Logger) *Service {
	return &Service{
		store:     store,
		emitter:   emitter,
		projector: projector,
		logger:    logger,
	}
}

// PatchResult carries the persisted record and the merge statistics
type PatchResult struct {
	Record *models.CustomerConfigRecord
	Stats  models.MergeStats
}

// Get returns the stored document for a config key, nil when absent
func (s *Service) Get(ctx context.Context, configKey string) (*models.CustomerConfigRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "customerconfig.Service.Get")
	defer span.End()

	return s.store.Get(ctx, configKey)
}

// ListRevisions returns recent document revisions, newest first
func (s *Service) ListRevisions(ctx context.Context, configKey string, limit int) ([]models.CustomerConfigRevision, error) {
	ctx, span := tracing.StartSpan(ctx, "customerconfig.Service.ListRevisions")
	defer span.End()

	return s.store.ListRevisions(ctx, configKey, limit)
}

// Patch merges an incoming partial config into the stored document and
// persists the result. A missing stored document is a create, and a
// failed read degrades to one as well: the write path must not depend on
// the read path, so read failures only warn.
//
// Merge rejections (merging.ErrInvalidInput, merging.ErrInvalidMergedConfig)
// pass through unwrapped for callers to map onto their own boundary.
func (s *Service) Patch(ctx context.Context, configKey string, incoming *models.PartialCustomerConfig, actor string) (*PatchResult, error) {
	ctx, span := tracing.StartSpan(ctx, "customerconfig.Service.Patch")
	defer span.End()

	timer := prometheus.NewTimer(metrics.ConfigMergeDuration)
	defer timer.ObserveDuration()

	if actor == "" {
		actor = merging.DefaultActor
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"config_key": configKey,
		"actor":      actor,
	})

	var existing *models.CustomerConfig
	record, err := s.store.Get(ctx, configKey)
	if err != nil {
		log.WithError(err).Warn("Failed to read existing config, treating as create")
	} else if record != nil {
		doc := record.Document.Data
		existing = &doc
	}

	result, err := merging.Merge(existing, incoming, actor, time.Now())
	if err != nil {
		metrics.ConfigMergesTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	persisted, err := s.store.Upsert(ctx, configKey, *result.Config, actor)
	if err != nil {
		metrics.ConfigMergesTotal.WithLabelValues("write_failed").Inc()
		log.WithError(err).Error("Failed to persist merged config")
		return nil, fmt.Errorf("failed to persist merged config: %w", err)
	}

	metrics.ConfigMergesTotal.WithLabelValues("ok").Inc()
	recordEntityStats(result.Stats)

	// Fan-out is best effort. The write already succeeded; consumers
	// catch up on the next write if these fail.
	if s.emitter != nil {
		if err := s.emitter.EmitConfigUpdated(ctx, configKey, persisted.Version, actor, result.Stats); err != nil {
			log.WithError(err).Warn("Failed to emit config updated event")
		}
	}
	if s.projector != nil {
		if err := s.projector.ProjectConfig(ctx, configKey, result.Config); err != nil {
			log.WithError(err).Warn("Failed to project config into graph")
		}
	}

	log.WithFields(map[string]any{
		"version":          persisted.Version,
		"brands_total":     result.Stats.Brands.Total,
		"brands_modified":  result.Stats.Brands.Modified,
		"prompts_modified": result.Stats.Prompts.Modified,
	}).Info("Merged customer config")

	return &PatchResult{Record: persisted, Stats: result.Stats}, nil
}

// Seed writes an initial document for a config key unless one already
// exists. Returns true when it created the document.
func (s *Service) Seed(ctx context.Context, configKey, customerName, actor string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "customerconfig.Service.Seed")
	defer span.End()

	record, err := s.store.Get(ctx, configKey)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to check for existing config before seeding")
	}
	if record != nil {
		return false, nil
	}

	incoming := &models.PartialCustomerConfig{
		Customer: &models.PartialCustomer{
			CustomerName: &customerName,
			Brands:       []models.PartialBrand{},
		},
	}

	if _, err := s.Patch(ctx, configKey, incoming, actor); err != nil {
		return false, fmt.Errorf("failed to seed config: %w", err)
	}
	return true, nil
}

func recordEntityStats(stats models.MergeStats) {
	for entity, entityStats := range map[string]models.EntityStats{
		"brands":     stats.Brands,
		"prompts":    stats.Prompts,
		"categories": stats.Categories,
		"topics":     stats.Topics,
	} {
		if entityStats.Modified > 0 {
			metrics.ConfigEntitiesModified.WithLabelValues(entity).Add(float64(entityStats.Modified))
		}
	}
}
