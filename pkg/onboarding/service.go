// Package onboarding drives the site onboarding flow: organization and
// site provisioning, initial config seeding, and the Slack announcement.
package onboarding

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sage/pkg/ims"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// ErrSiteConflict means the base URL is already registered under a
// different organization.
var ErrSiteConflict = errors.New("site belongs to a different organization")

// Request is the onboarding input
type Request struct {
	IMSOrgID string `json:"imsOrgID" validate:"required"`
	BaseURL  string `json:"baseURL" validate:"required,url"`

	// Profile optionally overrides the organization display name; when
	// empty the name comes from the IMS org profile.
	Profile        string `json:"profile,omitempty"`
	SlackChannelID string `json:"slackChannelId,omitempty"`
}

// Result is the onboarding outcome
type Result struct {
	OrganizationID string `json:"organizationId"`
	SiteID         string `json:"siteId"`
	ConfigKey      string `json:"configKey"`
	AlreadyExisted bool   `json:"alreadyExisted"`
	SlackNotified  bool   `json:"slackNotified"`
}

// OrganizationStore is the organization surface onboarding needs
type OrganizationStore interface {
	GetByIMSOrgID(ctx context.Context, imsOrgID string) (*models.Organization, error)
	Create(ctx context.Context, req models.CreateOrganizationRequest) (*models.Organization, error)
}

// SiteStore is the site surface onboarding needs
type SiteStore interface {
	GetByBaseURL(ctx context.Context, baseURL string) (*models.Site, error)
	Create(ctx context.Context, req models.CreateSiteRequest, configKey string) (*models.Site, error)
}

// ProfileLookup resolves IMS org profiles for display names
type ProfileLookup interface {
	GetOrgProfile(ctx context.Context, imsOrgID string) (*ims.OrgProfile, error)
}

// ConfigSeeder writes the initial customer config for a config key
type ConfigSeeder interface {
	Seed(ctx context.Context, configKey, customerName, actor string) (bool, error)
}

// Notifier posts the onboarding announcement
type Notifier interface {
	PostMessage(ctx context.Context, channel, text string) error
	Enabled() bool
}

// EventEmitter publishes onboarding lifecycle events
type EventEmitter interface {
	EmitSiteOnboarded(ctx context.Context, site *models.Site, imsOrgID string) error
	EmitOrganizationCreated(ctx context.Context, org *models.Organization) error
}

// Service runs onboarding flows
type Service struct {
	orgs     OrganizationStore
	sites    SiteStore
	profiles ProfileLookup
	configs  ConfigSeeder
	notifier Notifier
	emitter  EventEmitter
	logger   ectologger.Logger
}

// NewService creates an onboarding service. profiles, notifier, and
// emitter may be nil; the corresponding step degrades gracefully.
func NewService(
	orgs OrganizationStore,
	sites SiteStore,
	profiles ProfileLookup,
	configs ConfigSeeder,
	notifier Notifier,
	emitter EventEmitter,
	logger ectologger.Logger,
) *Service {
	return &Service{
		orgs:     orgs,
		sites:    sites,
		profiles: profiles,
		configs:  configs,
		notifier: notifier,
		emitter:  emitter,
		logger:   logger,
	}
}

// Onboard provisions the organization and site for a base URL, seeds the
// initial customer config, announces the result on Slack, and emits
// lifecycle events. Re-running for a known site is safe; the result says
// so via AlreadyExisted. Slack and event failures never fail the run.
func (s *Service) Onboard(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "onboarding.Service.Onboard")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"ims_org_id": req.IMSOrgID,
		"base_url":   req.BaseURL,
	})

	org, createdOrg, err := s.ensureOrganization(ctx, req)
	if err != nil {
		metrics.OnboardingRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	site, createdSite, err := s.ensureSite(ctx, org, req.BaseURL)
	if err != nil {
		metrics.OnboardingRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	seeded, err := s.configs.Seed(ctx, site.ConfigKey, org.Name, "")
	if err != nil {
		metrics.OnboardingRunsTotal.WithLabelValues("error").Inc()
		log.WithError(err).Error("Failed to seed customer config")
		return nil, fmt.Errorf("failed to seed customer config: %w", err)
	}

	notified := s.announce(ctx, req, org, site, createdSite)
	s.emitEvents(ctx, org, site, createdOrg, req.IMSOrgID)

	outcome := "existing"
	if createdSite {
		outcome = "created"
	}
	metrics.OnboardingRunsTotal.WithLabelValues(outcome).Inc()

	log.WithFields(map[string]any{
		"organization_id": org.ID,
		"site_id":         site.ID,
		"config_key":      site.ConfigKey,
		"created_org":     createdOrg,
		"created_site":    createdSite,
		"seeded_config":   seeded,
		"slack_notified":  notified,
	}).Info("Completed site onboarding")

	return &Result{
		OrganizationID: org.ID,
		SiteID:         site.ID,
		ConfigKey:      site.ConfigKey,
		AlreadyExisted: !createdSite,
		SlackNotified:  notified,
	}, nil
}

func (s *Service) ensureOrganization(ctx context.Context, req Request) (*models.Organization, bool, error) {
	org, err := s.orgs.GetByIMSOrgID(ctx, req.IMSOrgID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up organization: %w", err)
	}
	if org != nil {
		return org, false, nil
	}

	createReq := models.CreateOrganizationRequest{
		Name:     s.resolveOrgName(ctx, req),
		IMSOrgID: req.IMSOrgID,
	}
	if req.SlackChannelID != "" {
		createReq.Config = map[string]any{"slackChannelId": req.SlackChannelID}
	}

	org, err = s.orgs.Create(ctx, createReq)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, true, nil
}

func (s *Service) ensureSite(ctx context.Context, org *models.Organization, baseURL string) (*models.Site, bool, error) {
	site, err := s.sites.GetByBaseURL(ctx, baseURL)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up site: %w", err)
	}
	if site != nil {
		if site.OrganizationID != org.ID {
			return nil, false, fmt.Errorf("%w: %s", ErrSiteConflict, baseURL)
		}
		return site, false, nil
	}

	site, err = s.sites.Create(ctx, models.CreateSiteRequest{
		OrganizationID: org.ID,
		BaseURL:        baseURL,
	}, uuid.NewString())
	if err != nil {
		return nil, false, fmt.Errorf("failed to create site: %w", err)
	}
	return site, true, nil
}

// resolveOrgName prefers the request override, then the IMS profile,
// then a deterministic fallback. Profile lookups are best effort.
func (s *Service) resolveOrgName(ctx context.Context, req Request) string {
	if req.Profile != "" {
		return req.Profile
	}
	if s.profiles != nil {
		profile, err := s.profiles.GetOrgProfile(ctx, req.IMSOrgID)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("IMS org profile lookup failed, using fallback name")
		} else if profile != nil && profile.OrgName != "" {
			return profile.OrgName
		}
	}
	return "Organization " + req.IMSOrgID
}

func (s *Service) announce(ctx context.Context, req Request, org *models.Organization, site *models.Site, createdSite bool) bool {
	if s.notifier == nil || !s.notifier.Enabled() {
		return false
	}

	// Channel precedence: request, org config, then the notifier's own
	// default for "".
	channel := req.SlackChannelID
	if channel == "" {
		channel = org.SlackChannel()
	}

	text := fmt.Sprintf("Onboarded %s for %s (config key %s)", site.BaseURL, org.Name, site.ConfigKey)
	if !createdSite {
		text = fmt.Sprintf("Re-ran onboarding for %s (%s); site was already registered", site.BaseURL, org.Name)
	}

	if err := s.notifier.PostMessage(ctx, channel, text); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to post Slack onboarding message")
		return false
	}
	return true
}

func (s *Service) emitEvents(ctx context.Context, org *models.Organization, site *models.Site, createdOrg bool, imsOrgID string) {
	if s.emitter == nil {
		return
	}

	if createdOrg {
		if err := s.emitter.EmitOrganizationCreated(ctx, org); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit organization created event")
		}
	}
	if err := s.emitter.EmitSiteOnboarded(ctx, site, imsOrgID); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit site onboarded event")
	}
}
