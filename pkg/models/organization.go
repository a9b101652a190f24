package models

import (
	"time"

	"github.com/Ramsey-B/sage/pkg/database"
)

// Organization is a customer account, keyed internally by uuid and
// externally by its IMS org id.
type Organization struct {
	ID        string                         `json:"id" db:"id"`
	Name      string                         `json:"name" db:"name" validate:"required"`
	IMSOrgID  string                         `json:"ims_org_id" db:"ims_org_id" validate:"required"`
	Config    database.JSONB[map[string]any] `json:"config" db:"config"`
	CreatedAt time.Time                      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time                      `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time                     `json:"deleted_at,omitempty" db:"deleted_at"`
}

// SlackChannel returns the onboarding channel configured for the
// organization, or "" when none is set.
func (o *Organization) SlackChannel() string {
	if o == nil {
		return ""
	}
	channel, _ := o.Config.Data["slackChannelId"].(string)
	return channel
}

// CreateOrganizationRequest is the body for creating an organization.
type CreateOrganizationRequest struct {
	Name     string         `json:"name" validate:"required"`
	IMSOrgID string         `json:"ims_org_id" validate:"required"`
	Config   map[string]any `json:"config,omitempty"`
}

// OrganizationResponse is the API response for organization operations
type OrganizationResponse struct {
	Organization
}

// OrganizationListResponse is the API response for listing organizations
type OrganizationListResponse struct {
	Items      []Organization `json:"items"`
	TotalCount int            `json:"total_count"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
}
