package models

import "time"

// Delivery types observed across onboarded sites.
const (
	DeliveryTypeAEMEdge = "aem_edge"
	DeliveryTypeAEMCS   = "aem_cs"
	DeliveryTypeOther   = "other"
)

// Site is a single web property owned by an organization. ConfigKey
// locates the site's customer-config document in storage.
type Site struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organization_id" db:"organization_id" validate:"required"`
	BaseURL        string     `json:"base_url" db:"base_url" validate:"required,url"`
	DeliveryType   string     `json:"delivery_type" db:"delivery_type"`
	ConfigKey      string     `json:"config_key" db:"config_key"`
	IsLive         bool       `json:"is_live" db:"is_live"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateSiteRequest is the body for creating a site.
type CreateSiteRequest struct {
	OrganizationID string `json:"organization_id" validate:"required,uuid"`
	BaseURL        string `json:"base_url" validate:"required,url"`
	DeliveryType   string `json:"delivery_type,omitempty"`
}

// SiteResponse is the API response for site operations
type SiteResponse struct {
	Site
}

// SiteListResponse is the API response for listing sites
type SiteListResponse struct {
	Items      []Site `json:"items"`
	TotalCount int    `json:"total_count"`
}
