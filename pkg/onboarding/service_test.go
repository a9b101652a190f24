package onboarding

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/database"
	"github.com/Ramsey-B/sage/pkg/ims"
	"github.com/Ramsey-B/sage/pkg/models"
)

type stubOrgs struct {
	existing *models.Organization
	getErr   error

	created *models.CreateOrganizationRequest
}

func (s *stubOrgs) GetByIMSOrgID(ctx context.Context, imsOrgID string) (*models.Organization, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.existing, nil
}

func (s *stubOrgs) Create(ctx context.Context, req models.CreateOrganizationRequest) (*models.Organization, error) {
	s.created = &req
	return &models.Organization{
		ID:       "org-1",
		Name:     req.Name,
		IMSOrgID: req.IMSOrgID,
		Config:   database.NewJSONB(req.Config),
	}, nil
}

type stubSites struct {
	existing *models.Site

	createdConfigKey string
	created          *models.CreateSiteRequest
}

func (s *stubSites) GetByBaseURL(ctx context.Context, baseURL string) (*models.Site, error) {
	return s.existing, nil
}

func (s *stubSites) Create(ctx context.Context, req models.CreateSiteRequest, configKey string) (*models.Site, error) {
	s.created = &req
	s.createdConfigKey = configKey
	return &models.Site{
		ID:             "site-1",
		OrganizationID: req.OrganizationID,
		BaseURL:        req.BaseURL,
		ConfigKey:      configKey,
	}, nil
}

type stubProfiles struct {
	profile *ims.OrgProfile
	err     error
}

func (s *stubProfiles) GetOrgProfile(ctx context.Context, imsOrgID string) (*ims.OrgProfile, error) {
	return s.profile, s.err
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

type stubNotifier struct {
	enabled bool
	err     error

	channel string
	text    string
	calls   int
}

func (s *stubNotifier) PostMessage(ctx context.Context, channel, text string) error {
	s.calls++
	s.channel = channel
	s.text = text
	return s.err
}

func (s *stubNotifier) Enabled() bool {
	return s.enabled
}

type stubEmitter struct {
	siteEvents int
	orgEvents  int
}

func (s *stubEmitter) EmitSiteOnboarded(ctx context.Context, site *models.Site, imsOrgID string) error {
	s.siteEvents++
	return nil
}

func (s *stubEmitter) EmitOrganizationCreated(ctx context.Context, org *models.Organization) error {
	s.orgEvents++
	return nil
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// newTestService converts nil stub pointers into nil interfaces so the
// service's nil checks behave as in production wiring.
func newTestService(orgs *stubOrgs, sites *stubSites, profiles *stubProfiles, seeder *stubSeeder, notifier *stubNotifier, emitter *stubEmitter) *Service {
	var p ProfileLookup
	if profiles != nil {
		p = profiles
	}
	var n Notifier
	if notifier != nil {
		n = notifier
	}
	var e EventEmitter
	if emitter != nil {
		e = emitter
	}
	return NewService(orgs, sites, p, seeder, n, e, noopLogger())
}

func validRequest() Request {
	return Request{
		IMSOrgID: "ABC123@AdobeOrg",
		BaseURL:  "https://acme.example",
	}
}

func TestOnboardCreatesEverythingForNewSite(t *testing.T) {
	orgs := &stubOrgs{}
	sites := &stubSites{}
	profiles := &stubProfiles{profile: &ims.OrgProfile{OrgName: "Acme Corp"}}
	seeder := &stubSeeder{}
	notifier := &stubNotifier{enabled: true}
	emitter := &stubEmitter{}
	svc := newTestService(orgs, sites, profiles, seeder, notifier, emitter)

	result, err := svc.Onboard(context.Background(), validRequest())
	require.NoError(t, err)

	require.NotNil(t, orgs.created)
	assert.Equal(t, "Acme Corp", orgs.created.Name)
	require.NotNil(t, sites.created)
	assert.Equal(t, "org-1", sites.created.OrganizationID)
	assert.NotEmpty(t, sites.createdConfigKey)

	assert.Equal(t, sites.createdConfigKey, seeder.configKey)
	assert.Equal(t, "Acme Corp", seeder.customerName)

	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, 1, emitter.orgEvents)
	assert.Equal(t, 1, emitter.siteEvents)

	assert.Equal(t, "org-1", result.OrganizationID)
	assert.Equal(t, "site-1", result.SiteID)
	assert.Equal(t, sites.createdConfigKey, result.ConfigKey)
	assert.False(t, result.AlreadyExisted)
	assert.True(t, result.SlackNotified)
}

func TestOnboardExistingSiteIsIdempotent(t *testing.T) {
	org := &models.Organization{ID: "org-1", Name: "Acme Corp", IMSOrgID: "ABC123@AdobeOrg"}
	site := &models.Site{ID: "site-1", OrganizationID: "org-1", BaseURL: "https://acme.example", ConfigKey: "cfg-1"}

	orgs := &stubOrgs{existing: org}
	sites := &stubSites{existing: site}
	seeder := &stubSeeder{}
	emitter := &stubEmitter{}
	svc := newTestService(orgs, sites, nil, seeder, nil, emitter)

	result, err := svc.Onboard(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Nil(t, orgs.created)
	assert.Nil(t, sites.created)
	assert.True(t, result.AlreadyExisted)
	assert.False(t, result.SlackNotified)
	assert.Equal(t, "cfg-1", result.ConfigKey)

	// Seeding still runs; it no-ops internally when a document exists.
	assert.Equal(t, "cfg-1", seeder.configKey)

	assert.Equal(t, 0, emitter.orgEvents)
	assert.Equal(t, 1, emitter.siteEvents)
}

func TestOnboardRejectsSiteOwnedByAnotherOrg(t *testing.T) {
	orgs := &stubOrgs{existing: &models.Organization{ID: "org-1", Name: "Acme Corp"}}
	sites := &stubSites{existing: &models.Site{ID: "site-1", OrganizationID: "org-2", BaseURL: "https://acme.example"}}
	svc := newTestService(orgs, sites, nil, &stubSeeder{}, nil, nil)

	_, err := svc.Onboard(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrSiteConflict)
}

func TestOnboardOrgNameResolution(t *testing.T) {
	tests := []struct {
		name     string
		request  Request
		profiles *stubProfiles
		expected string
	}{
		{
			name: "request profile wins",
			request: Request{
				IMSOrgID: "ABC123@AdobeOrg",
				BaseURL:  "https://acme.example",
				Profile:  "Acme Override",
			},
			profiles: &stubProfiles{profile: &ims.OrgProfile{OrgName: "Acme Corp"}},
			expected: "Acme Override",
		},
		{
			name:     "ims profile when no override",
			request:  validRequest(),
			profiles: &stubProfiles{profile: &ims.OrgProfile{OrgName: "Acme Corp"}},
			expected: "Acme Corp",
		},
		{
			name:     "fallback when ims lookup fails",
			request:  validRequest(),
			profiles: &stubProfiles{err: errors.New("ims down")},
			expected: "Organization ABC123@AdobeOrg",
		},
		{
			name:     "fallback when ims has no profile",
			request:  validRequest(),
			profiles: &stubProfiles{},
			expected: "Organization ABC123@AdobeOrg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orgs := &stubOrgs{}
			svc := newTestService(orgs, &stubSites{}, tt.profiles, &stubSeeder{}, nil, nil)

			_, err := svc.Onboard(context.Background(), tt.request)
			require.NoError(t, err)
			require.NotNil(t, orgs.created)
			assert.Equal(t, tt.expected, orgs.created.Name)
		})
	}
}

func TestOnboardSlackChannelPrecedence(t *testing.T) {
	org := &models.Organization{
		ID:       "org-1",
		Name:     "Acme Corp",
		IMSOrgID: "ABC123@AdobeOrg",
		Config:   database.NewJSONB(map[string]any{"slackChannelId": "C-ORG"}),
	}

	t.Run("request channel wins", func(t *testing.T) {
		notifier := &stubNotifier{enabled: true}
		svc := newTestService(&stubOrgs{existing: org}, &stubSites{}, nil, &stubSeeder{}, notifier, nil)

		req := validRequest()
		req.SlackChannelID = "C-REQ"
		_, err := svc.Onboard(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "C-REQ", notifier.channel)
	})

	t.Run("org config channel when request has none", func(t *testing.T) {
		notifier := &stubNotifier{enabled: true}
		svc := newTestService(&stubOrgs{existing: org}, &stubSites{}, nil, &stubSeeder{}, notifier, nil)

		_, err := svc.Onboard(context.Background(), validRequest())
		require.NoError(t, err)
		assert.Equal(t, "C-ORG", notifier.channel)
	})
}

func TestOnboardSlackFailureDoesNotFailTheRun(t *testing.T) {
	notifier := &stubNotifier{enabled: true, err: errors.New("channel_not_found")}
	svc := newTestService(&stubOrgs{}, &stubSites{}, nil, &stubSeeder{}, notifier, nil)

	result, err := svc.Onboard(context.Background(), validRequest())
	require.NoError(t, err)
	assert.False(t, result.SlackNotified)
}

func TestOnboardSeedFailureFailsTheRun(t *testing.T) {
	seeder := &stubSeeder{err: errors.New("db down")}
	svc := newTestService(&stubOrgs{}, &stubSites{}, nil, seeder, nil, nil)

	_, err := svc.Onboard(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to seed customer config")
}

func TestOnboardOrgLookupFailureFailsTheRun(t *testing.T) {
	orgs := &stubOrgs{getErr: errors.New("db down")}
	svc := newTestService(orgs, &stubSites{}, nil, &stubSeeder{}, nil, nil)

	_, err := svc.Onboard(context.Background(), validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to look up organization")
}
