package site

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// SiteRepository defines the interface for site operations
type SiteRepository interface {
	Create(ctx context.Context, req models.CreateSiteRequest, configKey string) (*models.Site, error)
	GetByID(ctx context.Context, id string) (*models.Site, error)
	GetByBaseURL(ctx context.Context, baseURL string) (*models.Site, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]models.Site, error)
	SetLive(ctx context.Context, id string, isLive bool) (*models.Site, error)
	Delete(ctx context.Context, id string) error
}

// Repository implements SiteRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new site repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "sites"

var selectColumns = []string{"id", "organization_id", "base_url", "delivery_type", "config_key", "is_live", "created_at", "updated_at", "deleted_at"}

// Create creates a new site
func (r *Repository) Create(ctx context.Context, req models.CreateSiteRequest, configKey string) (*models.Site, error) {
	ctx, span := tracing.StartSpan(ctx, "SiteRepository.Create")
	defer span.End()

	now := time.Now().UTC()
	id := uuid.New().String()

	deliveryType := req.DeliveryType
	if deliveryType == "" {
		deliveryType = models.DeliveryTypeOther
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "organization_id", "base_url", "delivery_type", "config_key", "is_live", "created_at", "updated_at")
	sb.Values(id, req.OrganizationID, req.BaseURL, deliveryType, configKey, false, now, now)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create site")
		return nil, fmt.Errorf("failed to create site: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":              id,
		"organization_id": req.OrganizationID,
		"base_url":        req.BaseURL,
		"config_key":      configKey,
	}).Info("created site")

	return r.GetByID(ctx, id)
}

// GetByID gets a site by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Site, error) {
	ctx, span := tracing.StartSpan(ctx, "SiteRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	var site models.Site
	err := r.db.GetContext(ctx, &site, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get site by ID")
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	return &site, nil
}

// GetByBaseURL gets a site by its base url
func (r *Repository) GetByBaseURL(ctx context.Context, baseURL string) (*models.Site, error) {
	ctx, span := tracing.StartSpan(ctx, "SiteRepository.GetByBaseURL")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("base_url", baseURL),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	var site models.Site
	err := r.db.GetContext(ctx, &site, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get site by base url")
		return nil, fmt.Errorf("failed to get site: %w", err)
	}

	return &site, nil
}

// ListByOrganization lists all sites owned by an organization
func (r *Repository) ListByOrganization(ctx context.Context, organizationID string) ([]models.Site, error) {
	ctx, span := tracing.StartSpan(ctx, "SiteRepository.ListByOrganization")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("organization_id", organizationID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("base_url ASC")

	query, args := sb.Build()

	var items []models.Site
	err := r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list sites")
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}

	return items, nil
}

// SetLive toggles the site's live flag
func (r *Repository) SetLive(ctx context.Context, id string, isLive bool) (*models.Site, error) {
	ctx, span := tracing.StartSpan(ctx, "SiteRepository.SetLive")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("is_live", isLive),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update site live flag")
		return nil, fmt.Errorf("failed to update site: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"is_live":       isLive,
		"rows_affected": rowsAffected,
	}).Info("updated site live flag")

	return r.GetByID(ctx, id)
}

// Delete soft deletes a site
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "SiteRepository.Delete")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(sb.Assign("deleted_at", time.Now().UTC()))
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete site")
		return fmt.Errorf("failed to delete site: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"rows_affected": rowsAffected,
	}).Info("deleted site")

	return nil
}
