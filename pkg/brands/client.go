// Package brands calls the external brand API for per-organization
// brand guidelines. Responses pass through to callers untouched.
package brands

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/ims"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// ErrGuidelinesUnavailable is returned when the brand API rejects or fails a request
var ErrGuidelinesUnavailable = errors.New("brand guidelines request failed")

const guidelinesPath = "/v1/guidelines"

// Client talks to the brand API on behalf of an organization
type Client struct {
	httpClient   *httpclient.Client
	tokenManager *ims.TokenManager
	baseURL      string
	logger       ectologger.Logger
}

// NewClient creates a brand API client
func NewClient(httpClient *httpclient.Client, tokenManager *ims.TokenManager, baseURL string, logger ectologger.Logger) *Client {
	return &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		baseURL:      baseURL,
		logger:       logger,
	}
}

// GetGuidelines fetches brand guidelines for the given IMS org. The
// decoded payload is returned as-is. Returns nil without error when the
// brand API has no guidelines for the org.
func (c *Client) GetGuidelines(ctx context.Context, imsOrgID string) (map[string]any, error) {
	ctx, span := tracing.StartSpan(ctx, "brands.Client.GetGuidelines")
	defer span.End()

	headers, err := c.tokenManager.AuthHeaders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGuidelinesUnavailable, err)
	}
	headers["x-gw-ims-org-id"] = imsOrgID

	resp, err := c.httpClient.Get(ctx, c.baseURL+guidelinesPath, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGuidelinesUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"status_code": resp.StatusCode,
			"ims_org_id":  imsOrgID,
		}).Error("Brand API rejected guidelines request")
		return nil, fmt.Errorf("%w: status %d", ErrGuidelinesUnavailable, resp.StatusCode)
	}

	payload, err := httpclient.DecodeJSONMap(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGuidelinesUnavailable, err)
	}

	return payload, nil
}
