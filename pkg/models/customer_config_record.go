package models

import (
	"time"

	"github.com/Ramsey-B/sage/pkg/database"
)

// CustomerConfigRecord is the storage row wrapping a CustomerConfig
// document. Version increments on every write; it is informational only,
// writes stay last-writer-wins.
type CustomerConfigRecord struct {
	ConfigKey string                         `db:"config_key"`
	Document  database.JSONB[CustomerConfig] `db:"document"`
	Version   int64                          `db:"version"`
	UpdatedBy string                         `db:"updated_by"`
	CreatedAt time.Time                      `db:"created_at"`
	UpdatedAt time.Time                      `db:"updated_at"`
}

// CustomerConfigRevision is one historical write of a config document.
// A revision row is appended alongside every head-row write.
type CustomerConfigRevision struct {
	ID        int64                          `db:"id"`
	ConfigKey string                         `db:"config_key"`
	Version   int64                          `db:"version"`
	Document  database.JSONB[CustomerConfig] `db:"document"`
	UpdatedBy string                         `db:"updated_by"`
	CreatedAt time.Time                      `db:"created_at"`
}

// CustomerConfigResponse is the API view of a stored config document
type CustomerConfigResponse struct {
	ConfigKey string         `json:"configKey"`
	Document  CustomerConfig `json:"document"`
	Version   int64          `json:"version"`
	UpdatedBy string         `json:"updatedBy"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ToResponse converts the storage row to its API view
func (r *CustomerConfigRecord) ToResponse() *CustomerConfigResponse {
	return &CustomerConfigResponse{
		ConfigKey: r.ConfigKey,
		Document:  r.Document.Data,
		Version:   r.Version,
		UpdatedBy: r.UpdatedBy,
		UpdatedAt: r.UpdatedAt,
	}
}

// CustomerConfigRevisionResponse is the API view of one revision
type CustomerConfigRevisionResponse struct {
	Version   int64          `json:"version"`
	Document  CustomerConfig `json:"document"`
	UpdatedBy string         `json:"updatedBy"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ToResponse converts the revision row to its API view
func (r *CustomerConfigRevision) ToResponse() CustomerConfigRevisionResponse {
	return CustomerConfigRevisionResponse{
		Version:   r.Version,
		Document:  r.Document.Data,
		UpdatedBy: r.UpdatedBy,
		CreatedAt: r.CreatedAt,
	}
}

// CustomerConfigRevisionListResponse is the API response for listing revisions
type CustomerConfigRevisionListResponse struct {
	ConfigKey string                           `json:"configKey"`
	Items     []CustomerConfigRevisionResponse `json:"items"`
}

// PatchCustomerConfigResponse is the PATCH success body
type PatchCustomerConfigResponse struct {
	Message string     `json:"message"`
	Stats   MergeStats `json:"stats"`
}
