package httpclient

import (
	"encoding/json"
	"fmt"
)

// DecodeJSON unmarshals the response body into out. The caller checks the
// status code first; this only cares about the body shape.
func DecodeJSON(resp *Response, out any) error {
	if len(resp.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// DecodeJSONMap unmarshals the response body into a generic map, for
// callers that extract fields by expression instead of struct tags.
func DecodeJSONMap(resp *Response) (map[string]any, error) {
	var result map[string]any
	if err := DecodeJSON(resp, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// IsSuccessStatus returns true if the status code indicates success
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// IsRetryableStatus returns true if the status code indicates a retryable error
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
