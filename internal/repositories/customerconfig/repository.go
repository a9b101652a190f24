package customerconfig

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// CustomerConfigRepository defines the interface for config document storage.
// Documents are stored wholesale, keyed by config key.
type CustomerConfigRepository interface {
	Get(ctx context.Context, configKey string) (*models.CustomerConfigRecord, error)
	Upsert(ctx context.Context, configKey string, doc models.CustomerConfig, updatedBy string) (*models.CustomerConfigRecord, error)
	ListRevisions(ctx context.Context, configKey string, limit int) ([]models.CustomerConfigRevision, error)
}

// Repository implements CustomerConfigRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new customer config repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const (
	tableName         = "customer_configs"
	revisionTableName = "customer_config_revisions"
)

var selectColumns = []string{"config_key", "document", "version", "updated_by", "created_at", "updated_at"}

// Get reads the stored document for a config key. A missing document is not
// an error; callers get nil and decide what absence means.
func (r *Repository) Get(ctx context.Context, configKey string) (*models.CustomerConfigRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerConfigRepository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From(tableName)
	sb.Where(sb.Equal("config_key", configKey))

	query, args := sb.Build()

	var record models.CustomerConfigRecord
	err := r.db.GetContext(ctx, &record, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"config_key": configKey,
		}).Error("failed to get customer config")
		return nil, fmt.Errorf("failed to get customer config: %w", err)
	}

	return &record, nil
}

// Upsert writes the document as the new head row for the config key and
// appends a revision row, in one transaction. The head row's version
// increments on every overwrite; writes are last-writer-wins.
func (r *Repository) Upsert(ctx context.Context, configKey string, doc models.CustomerConfig, updatedBy string) (*models.CustomerConfigRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerConfigRepository.Upsert")
	defer span.End()

	now := time.Now().UTC()

	ib := database.NewInsertBuilder()
	ib.InsertInto(tableName)
	ib.Cols("config_key", "document", "version", "updated_by", "created_at", "updated_at")
	ib.Values(configKey, database.NewJSONB(doc), 1, updatedBy, now, now)

	ub := ib.OnConflict("config_key")
	ub.Set(
		ub.Assign("document", database.Excluded("document")),
		ub.Assign("updated_by", database.Excluded("updated_by")),
		ub.Assign("updated_at", database.Excluded("updated_at")),
		ub.Assign("version", sqlbuilder.Raw(tableName+".version + 1")),
	)

	query, args := ib.Build()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"config_key": configKey,
			"updated_by": updatedBy,
		}).Error("failed to upsert customer config")
		return nil, fmt.Errorf("failed to upsert customer config: %w", err)
	}

	sb := database.NewSelectBuilder()
	sb.Select(selectColumns...)
	sb.From(tableName)
	sb.Where(sb.Equal("config_key", configKey))
	readQuery, readArgs := sb.Build()

	var record models.CustomerConfigRecord
	if err := tx.GetContext(ctx, &record, readQuery, readArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"config_key": configKey,
		}).Error("failed to read back customer config")
		return nil, fmt.Errorf("failed to read back customer config: %w", err)
	}

	rib := database.NewInsertBuilder()
	rib.InsertInto(revisionTableName)
	rib.Cols("config_key", "version", "document", "updated_by", "created_at")
	rib.Values(configKey, record.Version, database.NewJSONB(doc), updatedBy, now)
	revQuery, revArgs := rib.Build()

	if _, err := tx.ExecContext(ctx, revQuery, revArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"config_key": configKey,
			"version":    record.Version,
		}).Error("failed to append customer config revision")
		return nil, fmt.Errorf("failed to append customer config revision: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit customer config write: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"config_key": configKey,
		"version":    record.Version,
		"updated_by": updatedBy,
	}).Info("wrote customer config")

	return &record, nil
}

// ListRevisions returns the most recent revisions for a config key, newest
// first.
func (r *Repository) ListRevisions(ctx context.Context, configKey string, limit int) ([]models.CustomerConfigRevision, error) {
	ctx, span := tracing.StartSpan(ctx, "CustomerConfigRepository.ListRevisions")
	defer span.End()

	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	sb := database.NewSelectBuilder()
	sb.Select("id", "config_key", "version", "document", "updated_by", "created_at")
	sb.From(revisionTableName)
	sb.Where(sb.Equal("config_key", configKey))
	sb.OrderBy("version DESC")
	sb.Limit(limit)

	query, args := sb.Build()

	var revisions []models.CustomerConfigRevision
	err := r.db.SelectContext(ctx, &revisions, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"config_key": configKey,
		}).Error("failed to list customer config revisions")
		return nil, fmt.Errorf("failed to list customer config revisions: %w", err)
	}

	return revisions, nil
}
