package customerconfig_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configservice "github.com/Ramsey-B/sage/pkg/customerconfig"
	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/middleware"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/routes/customerconfig"
)

type stubStore struct {
	record    *models.CustomerConfigRecord
	getErr    error
	upsertErr error
	revisions []models.CustomerConfigRevision

	upsertedDoc *models.CustomerConfig
	upsertedBy  string
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
	s.upsertedBy = updatedBy

	version := int64(1)
	if s.record != nil {
		version = s.record.Version + 1
	}
	return &models.CustomerConfigRecord{
		ConfigKey: configKey,
		Document:  database.NewJSONB(doc),
		Version:   version,
		UpdatedBy: updatedBy,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (s *stubStore) ListRevisions(ctx context.Context, configKey string, limit int) ([]models.CustomerConfigRevision, error) {
	return s.revisions, nil
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// the DI container registry is process-global, so the default container is
// created once and each test overwrites the registered service with its stub
var (
	containerOnce sync.Once
	testContainer ectocontainer.DIContainer
	containerErr  error
)

func defaultContainer() (ectocontainer.DIContainer, error) {
	containerOnce.Do(func() {
		testContainer, containerErr = ectoinject.NewDIDefaultContainer()
	})
	return testContainer, containerErr
}

func newTestServer(t *testing.T, store *stubStore) *echo.Echo {
	t.Helper()

	svc := configservice.NewService(store, nil, nil, noopLogger())

	container, err := defaultContainer()
	require.NoError(t, err)
	require.NoError(t, ectoinject.RegisterInstance[*configservice.Service](container, svc))

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(noopLogger())
	customerconfig.Register(e.Group("/api/v1/customer-configs"))
	return e
}

func makeRequest(e *echo.Echo, method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	}
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func storedRecord(version int64) *models.CustomerConfigRecord {
	return &models.CustomerConfigRecord{
		ConfigKey: "key-1",
		Document: database.NewJSONB(models.CustomerConfig{
			Customer: models.Customer{
				CustomerName: "Acme",
				Brands: []models.Brand{
					{ID: "brand-1", Name: "Acme", Status: "active", UpdatedBy: "bob@acme.example", UpdatedAt: "2026-01-10T00:00:00Z"},
				},
			},
		}),
		Version:   version,
		UpdatedBy: "bob@acme.example",
		UpdatedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestPatchRejectsEmptyBody(t *testing.T) {
	store := &stubStore{}
	e := newTestServer(t, store)

	rec := makeRequest(e, http.MethodPatch, "/api/v1/customer-configs/key-1", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body is required")
	assert.Nil(t, store.upsertedDoc, "nothing may be written for an empty body")
}

func TestPatchRejectsMalformedJSON(t *testing.T) {
	store := &stubStore{}
	e := newTestServer(t, store)

	rec := makeRequest(e, http.MethodPatch, "/api/v1/customer-configs/key-1", []byte(`{"customer":`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
	assert.Nil(t, store.upsertedDoc)
}

func TestPatchRejectsInvalidMerges(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{
			name:        "missing customer object",
			body:        `{}`,
			wantMessage: "missing customer object",
		},
		{
			name:        "first write without a customer name",
			body:        `{"customer":{"brands":[]}}`,
			wantMessage: "customerName is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubStore{}
			e := newTestServer(t, store)

			rec := makeRequest(e, http.MethodPatch, "/api/v1/customer-configs/key-1", []byte(tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantMessage)
			assert.Nil(t, store.upsertedDoc, "rejected merges must not persist")
		})
	}
}

func TestPatchWriteFailureIsAServerError(t *testing.T) {
	store := &stubStore{
		record:    storedRecord(1),
		upsertErr: errors.New("connection refused"),
	}
	e := newTestServer(t, store)

	body := []byte(`{"customer":{"brands":[{"id":"brand-1","name":"Renamed"}]}}`)
	rec := makeRequest(e, http.MethodPatch, "/api/v1/customer-configs/key-1", body)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to update customer config")
}

func TestPatchCreatesWhenReadFails(t *testing.T) {
	store := &stubStore{getErr: errors.New("connection reset")}
	e := newTestServer(t, store)

	body := []byte(`{"customer":{"customerName":"Acme","brands":[{"id":"brand-1","name":"Acme"}]}}`)
	rec := makeRequest(e, http.MethodPatch, "/api/v1/customer-configs/key-1", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, store.upsertedDoc, "a failed read degrades to a create, not an error")

	var resp models.PatchCustomerConfigResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "customer config updated", resp.Message)
	assert.Equal(t, 1, resp.Stats.Brands.Added)
}

func TestPatchReportsStatsNotEntities(t *testing.T) {
	store := &stubStore{record: storedRecord(3)}
	e := newTestServer(t, store)

	body := []byte(`{"customer":{"brands":[{"id":"brand-1","name":"Renamed"},{"id":"brand-2","name":"Fresh"}]}}`)
	rec := makeRequest(e, http.MethodPatch, "/api/v1/customer-configs/key-1", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.PatchCustomerConfigResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "customer config updated", resp.Message)
	assert.Equal(t, 2, resp.Stats.Brands.Total)
	assert.Equal(t, 2, resp.Stats.Brands.Modified)
	assert.Equal(t, 1, resp.Stats.Brands.Added)

	// the response carries statistics only, never the merged entities
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotContains(t, raw, "customer")
	assert.NotContains(t, raw, "document")
}

func TestPatchLeavesUntouchedEntitiesAlone(t *testing.T) {
	store := &stubStore{record: storedRecord(3)}
	e := newTestServer(t, store)

	// re-sending the stored name is not a change
	body := []byte(`{"customer":{"brands":[{"id":"brand-1","name":"Acme"}]}}`)
	rec := makeRequest(e, http.MethodPatch, "/api/v1/customer-configs/key-1", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, store.upsertedDoc)

	brand := store.upsertedDoc.Customer.Brands[0]
	assert.Equal(t, "bob@acme.example", brand.UpdatedBy, "unchanged entities keep their stored metadata")
	assert.Equal(t, "2026-01-10T00:00:00Z", brand.UpdatedAt)

	var resp models.PatchCustomerConfigResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Stats.Brands.Modified)
}

func TestGetReturnsStoredDocument(t *testing.T) {
	store := &stubStore{record: storedRecord(5)}
	e := newTestServer(t, store)

	rec := makeRequest(e, http.MethodGet, "/api/v1/customer-configs/key-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.CustomerConfigResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "key-1", resp.ConfigKey)
	assert.Equal(t, int64(5), resp.Version)
	assert.Equal(t, "Acme", resp.Document.Customer.CustomerName)
}

func TestEachServerUsesItsOwnStore(t *testing.T) {
	// servers built back to back must not leak each other's store
	withRecord := &stubStore{record: storedRecord(1)}
	e := newTestServer(t, withRecord)

	rec := makeRequest(e, http.MethodGet, "/api/v1/customer-configs/key-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	empty := &stubStore{}
	e = newTestServer(t, empty)

	rec = makeRequest(e, http.MethodGet, "/api/v1/customer-configs/key-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMissingConfigIsNotFound(t *testing.T) {
	store := &stubStore{}
	e := newTestServer(t, store)

	rec := makeRequest(e, http.MethodGet, "/api/v1/customer-configs/unknown", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "customer config not found")
}

func TestListRevisions(t *testing.T) {
	store := &stubStore{
		revisions: []models.CustomerConfigRevision{
			{ID: 2, ConfigKey: "key-1", Version: 2, Document: database.NewJSONB(models.CustomerConfig{}), UpdatedBy: "system"},
			{ID: 1, ConfigKey: "key-1", Version: 1, Document: database.NewJSONB(models.CustomerConfig{}), UpdatedBy: "system"},
		},
	}
	e := newTestServer(t, store)

	rec := makeRequest(e, http.MethodGet, "/api/v1/customer-configs/key-1/revisions?limit=10", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.CustomerConfigRevisionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "key-1", resp.ConfigKey)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, int64(2), resp.Items[0].Version)
}
