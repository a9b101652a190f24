package customerconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/merging"
	"github.com/Ramsey-B/sage/pkg/models"
)

type stubStore struct {
	record    *models.CustomerConfigRecord
	getErr    error
	upsertErr error

	upsertedDoc   *models.CustomerConfig
	upsertedActor string
}

func (s *stubStore) Get(ctx context.Context, configKey string) (*models.CustomerConfigRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.record, nil
}

func (s *stubStore) Upsert(ctx context.Context, configKey string, doc models.CustomerConfig, updatedBy string) (*models.CustomerConfigRecord, error) {
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	s.upsertedDoc = &doc
	s.upsertedActor = updatedBy

	version := int64(1)
	if s.record != nil {
		version = s.record.Version + 1
	}
	return &models.CustomerConfigRecord{
		ConfigKey: configKey,
		Document:  database.NewJSONB(doc),
		Version:   version,
		UpdatedBy: updatedBy,
	}, nil
}

func (s *stubStore) ListRevisions(ctx context.Context, configKey string, limit int) ([]models.CustomerConfigRevision, error) {
	return nil, nil
}

type stubEmitter struct {
	calls       int
	err         error
	lastVersion int64
	lastActor   string
}

func (e *stubEmitter) EmitConfigUpdated(ctx context.Context, configKey string, version int64, actor string, stats models.MergeStats) error {
	e.calls++
	e.lastVersion = version
	e.lastActor = actor
	return e.err
}

type stubProjector struct {
	calls      int
	err        error
	lastConfig *models.CustomerConfig
}

func (p *stubProjector) ProjectConfig(ctx context.Context, configKey string, config *models.CustomerConfig) error {
	p.calls++
	p.lastConfig = config
	return p.err
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func patchBody(customerName string) *models.PartialCustomerConfig {
	return &models.PartialCustomerConfig{
		Customer: &models.PartialCustomer{
			CustomerName: &customerName,
			Brands:       []models.PartialBrand{},
		},
	}
}

func TestPatchCreatesWhenNoDocumentExists(t *testing.T) {
	store := &stubStore{}
	emitter := &stubEmitter{}
	projector := &stubProjector{}
	svc := NewService(store, emitter, projector, noopLogger())

	result, err := svc.Patch(context.Background(), "cfg-1", patchBody("Acme Corp"), "alice@acme.example")
	require.NoError(t, err)

	require.NotNil(t, store.upsertedDoc)
	assert.Equal(t, "Acme Corp", store.upsertedDoc.Customer.CustomerName)
	assert.Equal(t, "alice@acme.example", store.upsertedActor)

	assert.Equal(t, int64(1), result.Record.Version)
	assert.Equal(t, 0, result.Stats.Brands.Total)

	assert.Equal(t, 1, emitter.calls)
	assert.Equal(t, int64(1), emitter.lastVersion)
	assert.Equal(t, 1, projector.calls)
	assert.Equal(t, "Acme Corp", projector.lastConfig.Customer.CustomerName)
}

func TestPatchReadFailureDegradesToCreate(t *testing.T) {
	store := &stubStore{getErr: errors.New("connection refused")}
	svc := NewService(store, nil, nil, noopLogger())

	result, err := svc.Patch(context.Background(), "cfg-1", patchBody("Acme Corp"), "alice@acme.example")
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", result.Record.Document.Data.Customer.CustomerName)
	require.NotNil(t, store.upsertedDoc)
}

func TestPatchMergeRejectionsPassThrough(t *testing.T) {
	tests := []struct {
		name     string
		incoming *models.PartialCustomerConfig
		expected error
	}{
		{
			name:     "nil incoming",
			incoming: nil,
			expected: merging.ErrInvalidInput,
		},
		{
			name:     "missing customer object",
			incoming: &models.PartialCustomerConfig{},
			expected: merging.ErrInvalidInput,
		},
		{
			name:     "empty customer with no stored document",
			incoming: &models.PartialCustomerConfig{Customer: &models.PartialCustomer{}},
			expected: merging.ErrInvalidMergedConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{}
			svc := NewService(store, nil, nil, noopLogger())

			_, err := svc.Patch(context.Background(), "cfg-1", tt.incoming, "alice@acme.example")
			assert.ErrorIs(t, err, tt.expected)
			assert.Nil(t, store.upsertedDoc, "rejected merges must not persist")
		})
	}
}

func TestPatchWriteFailureIsAnError(t *testing.T) {
	store := &stubStore{upsertErr: errors.New("disk full")}
	emitter := &stubEmitter{}
	svc := NewService(store, emitter, nil, noopLogger())

	_, err := svc.Patch(context.Background(), "cfg-1", patchBody("Acme Corp"), "alice@acme.example")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist merged config")
	assert.Equal(t, 0, emitter.calls, "failed writes must not emit events")
}

func TestPatchEmitterFailureDoesNotFailThePatch(t *testing.T) {
	store := &stubStore{}
	emitter := &stubEmitter{err: errors.New("broker down")}
	projector := &stubProjector{err: errors.New("graph down")}
	svc := NewService(store, emitter, projector, noopLogger())

	_, err := svc.Patch(context.Background(), "cfg-1", patchBody("Acme Corp"), "alice@acme.example")
	assert.NoError(t, err)
	assert.Equal(t, 1, emitter.calls)
	assert.Equal(t, 1, projector.calls)
}

func TestPatchDefaultsEmptyActor(t *testing.T) {
	store := &stubStore{}
	emitter := &stubEmitter{}
	svc := NewService(store, emitter, nil, noopLogger())

	_, err := svc.Patch(context.Background(), "cfg-1", patchBody("Acme Corp"), "")
	require.NoError(t, err)
	assert.Equal(t, merging.DefaultActor, store.upsertedActor)
	assert.Equal(t, merging.DefaultActor, emitter.lastActor)
}

func TestPatchMergesIntoExistingDocument(t *testing.T) {
	stored := models.CustomerConfig{
		Customer: models.Customer{
			CustomerName: "Acme Corp",
			Brands: []models.Brand{
				{ID: "brand-1", Name: "Acme", UpdatedBy: "bob@acme.example", UpdatedAt: "2024-01-01T00:00:00Z"},
			},
		},
	}
	store := &stubStore{
		record: &models.CustomerConfigRecord{
			ConfigKey: "cfg-1",
			Document:  database.NewJSONB(stored),
			Version:   3,
		},
	}
	svc := NewService(store, nil, nil, noopLogger())

	status := "active"
	incoming := &models.PartialCustomerConfig{
		Customer: &models.PartialCustomer{
			Brands: []models.PartialBrand{
				{ID: "brand-2", Status: &status},
			},
		},
	}

	result, err := svc.Patch(context.Background(), "cfg-1", incoming, "alice@acme.example")
	require.NoError(t, err)

	assert.Equal(t, int64(4), result.Record.Version)
	require.Len(t, store.upsertedDoc.Customer.Brands, 2)
	assert.Equal(t, "brand-1", store.upsertedDoc.Customer.Brands[0].ID)
	assert.Equal(t, "bob@acme.example", store.upsertedDoc.Customer.Brands[0].UpdatedBy)
	assert.Equal(t, 1, result.Stats.Brands.Added)
}

func TestSeedCreatesOnlyWhenAbsent(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, nil, nil, noopLogger())

	created, err := svc.Seed(context.Background(), "cfg-1", "Acme Corp", "")
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, store.upsertedDoc)
	assert.Equal(t, "Acme Corp", store.upsertedDoc.Customer.CustomerName)
	assert.NotNil(t, store.upsertedDoc.Customer.Brands)
	assert.Empty(t, store.upsertedDoc.Customer.Brands)
}

func TestSeedSkipsExistingDocument(t *testing.T) {
	store := &stubStore{
		record: &models.CustomerConfigRecord{
			ConfigKey: "cfg-1",
			Document:  database.NewJSONB(models.CustomerConfig{}),
			Version:   1,
		},
	}
	svc := NewService(store, nil, nil, noopLogger())

	created, err := svc.Seed(context.Background(), "cfg-1", "Acme Corp", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, store.upsertedDoc)
}
