package onboarding_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/middleware"
	"github.com/Ramsey-B/sage/pkg/models"
	onboardingservice "github.com/Ramsey-B/sage/pkg/onboarding"
	"github.com/Ramsey-B/sage/pkg/routes/onboarding"
)

type stubOrgStore struct {
	org    *models.Organization
	getErr error

	created *models.CreateOrganizationRequest
}

func (s *stubOrgStore) GetByIMSOrgID(ctx context.Context, imsOrgID string) (*models.Organization, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.org, nil
}

func (s *stubOrgStore) Create(ctx context.Context, req models.CreateOrganizationRequest) (*models.Organization, error) {
	s.created = &req
	return &models.Organization{ID: "org-1", Name: req.Name, IMSOrgID: req.IMSOrgID}, nil
}

type stubSiteStore struct {
	site *models.Site

	created   *models.CreateSiteRequest
	configKey string
}

func (s *stubSiteStore) GetByBaseURL(ctx context.Context, baseURL string) (*models.Site, error) {
	return s.site, nil
}

func (s *stubSiteStore) Create(ctx context.Context, req models.CreateSiteRequest, configKey string) (*models.Site, error) {
	s.created = &req
	s.configKey = configKey
	return &models.Site{
		ID:             "site-1",
		OrganizationID: req.OrganizationID,
		BaseURL:        req.BaseURL,
		ConfigKey:      configKey,
	}, nil
}

type stubSeeder struct {
	err error

	configKey    string
	customerName string
}

func (s *stubSeeder) Seed(ctx context.Context, configKey, customerName, actor string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.configKey = configKey
	s.customerName = customerName
	return true, nil
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// the DI container registry is process-global, so the default container is
// created once and each test overwrites the registered service with its stubs
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

func newTestServer(t *testing.T, orgs *stubOrgStore, sites *stubSiteStore, seeder *stubSeeder) *echo.Echo {
	t.Helper()

	svc := onboardingservice.NewService(orgs, sites, nil, seeder, nil, nil, noopLogger())

	container, err := defaultContainer()
	require.NoError(t, err)
	require.NoError(t, ectoinject.RegisterInstance[*onboardingservice.Service](container, svc))

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(noopLogger())
	onboarding.Register(e.Group("/api/v1/onboarding"))
	return e
}

func makeRequest(e *echo.Echo, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/onboarding", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestOnboardRejectsMalformedJSON(t *testing.T) {
	e := newTestServer(t, &stubOrgStore{}, &stubSiteStore{}, &stubSeeder{})

	rec := makeRequest(e, []byte(`{"imsOrgID":`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestOnboardValidatesRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing ims org id",
			body: `{"baseURL": "https://acme.example"}`,
			want: "IMSOrgID",
		},
		{
			name: "base url is not a url",
			body: `{"imsOrgID": "IMS-123", "baseURL": "not a url"}`,
			want: "BaseURL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orgs := &stubOrgStore{}
			e := newTestServer(t, orgs, &stubSiteStore{}, &stubSeeder{})

			rec := makeRequest(e, []byte(tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid request")
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Nil(t, orgs.created, "invalid requests must not provision anything")
		})
	}
}

func TestOnboardProvisionsNewSite(t *testing.T) {
	orgs := &stubOrgStore{}
	sites := &stubSiteStore{}
	seeder := &stubSeeder{}
	e := newTestServer(t, orgs, sites, seeder)

	rec := makeRequest(e, []byte(`{"imsOrgID": "IMS-123", "baseURL": "https://acme.example", "profile": "Acme Corp"}`))

	require.Equal(t, http.StatusOK, rec.Code)

	var result onboardingservice.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "org-1", result.OrganizationID)
	assert.Equal(t, "site-1", result.SiteID)
	assert.NotEmpty(t, result.ConfigKey)
	assert.False(t, result.AlreadyExisted)
	assert.False(t, result.SlackNotified)

	require.NotNil(t, orgs.created)
	assert.Equal(t, "Acme Corp", orgs.created.Name)
	assert.Equal(t, "IMS-123", orgs.created.IMSOrgID)

	require.NotNil(t, sites.created)
	assert.Equal(t, "org-1", sites.created.OrganizationID)

	assert.Equal(t, result.ConfigKey, seeder.configKey, "the seeded config key must match the reported one")
	assert.Equal(t, "Acme Corp", seeder.customerName)
}

func TestOnboardIsIdempotentForKnownSite(t *testing.T) {
	orgs := &stubOrgStore{org: &models.Organization{ID: "org-1", Name: "Acme", IMSOrgID: "IMS-123"}}
	sites := &stubSiteStore{site: &models.Site{
		ID:             "site-1",
		OrganizationID: "org-1",
		BaseURL:        "https://acme.example",
		ConfigKey:      "cfg-abc",
	}}
	seeder := &stubSeeder{}
	e := newTestServer(t, orgs, sites, seeder)

	rec := makeRequest(e, []byte(`{"imsOrgID": "IMS-123", "baseURL": "https://acme.example"}`))

	require.Equal(t, http.StatusOK, rec.Code)

	var result onboardingservice.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.AlreadyExisted)
	assert.Equal(t, "cfg-abc", result.ConfigKey)

	assert.Nil(t, orgs.created, "an existing organization must not be recreated")
	assert.Nil(t, sites.created, "an existing site must not be recreated")
	assert.Equal(t, "cfg-abc", seeder.configKey, "reruns still reseed the existing config key")
}

func TestOnboardConflictingSiteOwnership(t *testing.T) {
	orgs := &stubOrgStore{org: &models.Organization{ID: "org-1", Name: "Acme", IMSOrgID: "IMS-123"}}
	sites := &stubSiteStore{site: &models.Site{
		ID:             "site-9",
		OrganizationID: "org-other",
		BaseURL:        "https://acme.example",
		ConfigKey:      "cfg-other",
	}}
	seeder := &stubSeeder{}
	e := newTestServer(t, orgs, sites, seeder)

	rec := makeRequest(e, []byte(`{"imsOrgID": "IMS-123", "baseURL": "https://acme.example"}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already registered to a different organization")
	assert.Empty(t, seeder.configKey, "a conflicting site must not be reseeded")
}

func TestOnboardLookupFailureIsAServerError(t *testing.T) {
	orgs := &stubOrgStore{getErr: errors.New("connection refused")}
	e := newTestServer(t, orgs, &stubSiteStore{}, &stubSeeder{})

	rec := makeRequest(e, []byte(`{"imsOrgID": "IMS-123", "baseURL": "https://acme.example"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to onboard site")
}

func TestOnboardSeedFailureIsAServerError(t *testing.T) {
	seeder := &stubSeeder{err: errors.New("write timeout")}
	e := newTestServer(t, &stubOrgStore{}, &stubSiteStore{}, seeder)

	rec := makeRequest(e, []byte(`{"imsOrgID": "IMS-123", "baseURL": "https://acme.example"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to onboard site")
}
