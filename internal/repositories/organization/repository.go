package organization

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

// OrganizationRepository defines the interface for organization operations
type OrganizationRepository interface {
	Create(ctx context.Context, req models.CreateOrganizationRequest) (*models.Organization, error)
	GetByID(ctx context.Context, id string) (*models.Organization, error)
	GetByIMSOrgID(ctx context.Context, imsOrgID string) (*models.Organization, error)
	List(ctx context.Context, page, pageSize int) ([]models.Organization, int, error)
	UpdateConfig(ctx context.Context, id string, config map[string]any) (*models.Organization, error)
	Delete(ctx context.Context, id string) error
}

// Repository implements OrganizationRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new organization repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "organizations"

var selectColumns = []string{"id", "name", "ims_org_id", "config", "created_at", "updated_at", "deleted_at"}

// Create creates a new organization
func (r *Repository) Create(ctx context.Context, req models.CreateOrganizationRequest) (*models.Organization, error) {
	ctx, span := tracing.StartSpan(ctx, "OrganizationRepository.Create")
	defer span.End()

	now := time.Now().UTC()
	id := uuid.New().String()

	config := req.Config
	if config == nil {
		config = map[string]any{}
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "name", "ims_org_id", "config", "created_at", "updated_at")
	sb.Values(id, req.Name, req.IMSOrgID, database.NewJSONB(config), now, now)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to create organization")
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":         id,
		"ims_org_id": req.IMSOrgID,
	}).Info("created organization")

	return r.GetByID(ctx, id)
}

// GetByID gets an organization by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	ctx, span := tracing.StartSpan(ctx, "OrganizationRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	var org models.Organization
	err := r.db.GetContext(ctx, &org, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get organization by ID")
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

// GetByIMSOrgID gets an organization by its IMS org id
func (r *Repository) GetByIMSOrgID(ctx context.Context, imsOrgID string) (*models.Organization, error) {
	ctx, span := tracing.StartSpan(ctx, "OrganizationRepository.GetByIMSOrgID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("ims_org_id", imsOrgID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	var org models.Organization
	err := r.db.GetContext(ctx, &org, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get organization by IMS org id")
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

// List lists organizations with pagination
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.Organization, int, error) {
	ctx, span := tracing.StartSpan(ctx, "OrganizationRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	countSb := database.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(tableName)
	countSb.Where(countSb.IsNull("deleted_at"))
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count organizations")
		return nil, 0, fmt.Errorf("failed to count organizations: %w", err)
	}

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From(tableName)
	sb.Where(sb.IsNull("deleted_at"))
	sb.OrderBy("name ASC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.Organization
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list organizations")
		return nil, 0, fmt.Errorf("failed to list organizations: %w", err)
	}

	return items, totalCount, nil
}

// UpdateConfig replaces the organization's config document
func (r *Repository) UpdateConfig(ctx context.Context, id string, config map[string]any) (*models.Organization, error) {
	ctx, span := tracing.StartSpan(ctx, "OrganizationRepository.UpdateConfig")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("config", database.NewJSONB(config)),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to update organization config")
		return nil, fmt.Errorf("failed to update organization config: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"rows_affected": rowsAffected,
	}).Info("updated organization config")

	return r.GetByID(ctx, id)
}

// Delete soft deletes an organization
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "OrganizationRepository.Delete")
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
		r.logger.WithContext(ctx).WithError(err).Error("failed to delete organization")
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            id,
		"rows_affected": rowsAffected,
	}).Info("deleted organization")

	return nil
}
