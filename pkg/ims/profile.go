package ims

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// ErrProfileRequestFailed is returned when the org profile lookup fails
var ErrProfileRequestFailed = errors.New("ims org profile request failed")

const orgProfilePath = "/ims/organizations/v6/"

// OrgProfile is the subset of the IMS organization profile we consume
type OrgProfile struct {
	OrgName     string `json:"orgName"`
	OrgType     string `json:"orgType,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

// GetOrgProfile fetches the IMS organization profile for the given org id.
// Returns nil without error when IMS does not know the org.
func (m *TokenManager) GetOrgProfile(ctx context.Context, imsOrgID string) (*OrgProfile, error) {
	ctx, span := tracing.StartSpan(ctx, "ims.TokenManager.GetOrgProfile")
	defer span.End()

	headers, err := m.AuthHeaders(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := m.httpClient.Get(ctx, m.config.BaseURL+orgProfilePath+url.PathEscape(imsOrgID), headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileRequestFailed, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"status_code": resp.StatusCode,
			"ims_org_id":  imsOrgID,
		}).Error("IMS org profile lookup rejected")
		return nil, fmt.Errorf("%w: status %d", ErrProfileRequestFailed, resp.StatusCode)
	}

	var profile OrgProfile
	if err := httpclient.DecodeJSON(resp, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileRequestFailed, err)
	}

	return &profile, nil
}
