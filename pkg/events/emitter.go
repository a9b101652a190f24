// Package events publishes lifecycle events for config and onboarding
// changes so downstream consumers can react without polling.
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/kafka"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Event types published by the service
const (
	EventConfigUpdated       = "config.updated"
	EventSiteOnboarded       = "site.onboarded"
	EventOrganizationCreated = "organization.created"
)

// ConfigUpdatedEvent announces a customer config write
type ConfigUpdatedEvent struct {
	EventType     string            `json:"event_type"`
	SchemaVersion string            `json:"schema_version"`
	ConfigKey     string            `json:"config_key"`
	Version       int64             `json:"version"`
	Actor         string            `json:"actor"`
	Stats         models.MergeStats `json:"stats"`
	Timestamp     time.Time         `json:"timestamp"`
}

// SiteOnboardedEvent announces a completed site onboarding
type SiteOnboardedEvent struct {
	EventType      string    `json:"event_type"`
	SchemaVersion  string    `json:"schema_version"`
	SiteID         string    `json:"site_id"`
	OrganizationID string    `json:"organization_id"`
	IMSOrgID       string    `json:"ims_org_id"`
	BaseURL        string    `json:"base_url"`
	ConfigKey      string    `json:"config_key"`
	Timestamp      time.Time `json:"timestamp"`
}

// OrganizationCreatedEvent announces a new organization
type OrganizationCreatedEvent struct {
	EventType     string    `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	OrgID         string    `json:"org_id"`
	IMSOrgID      string    `json:"ims_org_id"`
	Name          string    `json:"name"`
	Timestamp     time.Time `json:"timestamp"`
}

// Emitter publishes domain events. A nil producer or disabled flag turns
// every emit into a no-op so callers never branch on configuration.
type Emitter struct {
	producer        *kafka.Producer
	logger          ectologger.Logger
	enabled         bool
	configTopic     string
	onboardingTopic string
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, enabled bool, configTopic, onboardingTopic string, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer:        producer,
		logger:          logger,
		enabled:         enabled && producer != nil,
		configTopic:     configTopic,
		onboardingTopic: onboardingTopic,
	}
}

// EmitConfigUpdated emits a config.updated event after a successful write
func (e *Emitter) EmitConfigUpdated(ctx context.Context, configKey string, version int64, actor string, stats models.MergeStats) error {
	if !e.enabled {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitConfigUpdated")
	defer span.End()

	event := ConfigUpdatedEvent{
		EventType:     EventConfigUpdated,
		SchemaVersion: SchemaVersion,
		ConfigKey:     configKey,
		Version:       version,
		Actor:         actor,
		Stats:         stats,
		Timestamp:     time.Now().UTC(),
	}

	headers := map[string]string{"event_type": EventConfigUpdated}
	if err := e.producer.PublishJSON(ctx, e.configTopic, configKey, headers, event); err != nil {
		metrics.EventsPublished.WithLabelValues(EventConfigUpdated, "error").Inc()
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit config.updated event")
		return err
	}

	metrics.EventsPublished.WithLabelValues(EventConfigUpdated, "ok").Inc()
	return nil
}

// EmitSiteOnboarded emits a site.onboarded event
func (e *Emitter) EmitSiteOnboarded(ctx context.Context, site *models.Site, imsOrgID string) error {
	if !e.enabled {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSiteOnboarded")
	defer span.End()

	event := SiteOnboardedEvent{
		EventType:      EventSiteOnboarded,
		SchemaVersion:  SchemaVersion,
		SiteID:         site.ID,
		OrganizationID: site.OrganizationID,
		IMSOrgID:       imsOrgID,
		BaseURL:        site.BaseURL,
		ConfigKey:      site.ConfigKey,
		Timestamp:      time.Now().UTC(),
	}

	headers := map[string]string{"event_type": EventSiteOnboarded}
	if err := e.producer.PublishJSON(ctx, e.onboardingTopic, site.ID, headers, event); err != nil {
		metrics.EventsPublished.WithLabelValues(EventSiteOnboarded, "error").Inc()
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit site.onboarded event")
		return err
	}

	metrics.EventsPublished.WithLabelValues(EventSiteOnboarded, "ok").Inc()
	return nil
}

// EmitOrganizationCreated emits an organization.created event
func (e *Emitter) EmitOrganizationCreated(ctx context.Context, org *models.Organization) error {
	if !e.enabled {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitOrganizationCreated")
	defer span.End()

	event := OrganizationCreatedEvent{
		EventType:     EventOrganizationCreated,
		SchemaVersion: SchemaVersion,
		OrgID:         org.ID,
		IMSOrgID:      org.IMSOrgID,
		Name:          org.Name,
		Timestamp:     time.Now().UTC(),
	}

	headers := map[string]string{"event_type": EventOrganizationCreated}
	if err := e.producer.PublishJSON(ctx, e.onboardingTopic, org.ID, headers, event); err != nil {
		metrics.EventsPublished.WithLabelValues(EventOrganizationCreated, "error").Inc()
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit organization.created event")
		return err
	}

	metrics.EventsPublished.WithLabelValues(EventOrganizationCreated, "ok").Inc()
	return nil
}
