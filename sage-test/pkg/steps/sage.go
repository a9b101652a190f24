package steps

import (
	"encoding/json"
	"fmt"
	"io"
)

// OnboardSite implements the onboard_site step
func OnboardSite(ctx TestContext, params interface{}) error {
	paramsMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("onboard_site params must be a map")
	}

	imsOrgID, ok := paramsMap["ims_org_id"].(string)
	if !ok {
		return fmt.Errorf("onboard_site requires 'ims_org_id'")
	}

	baseURL, ok := paramsMap["base_url"].(string)
	if !ok {
		return fmt.Errorf("onboard_site requires 'base_url'")
	}

	imsOrgID = ctx.Interpolate(imsOrgID).(string)
	baseURL = ctx.Interpolate(baseURL).(string)

	ctx.Log("Onboarding site: %s (%s)", baseURL, imsOrgID)

	body := map[string]interface{}{
		"imsOrgID": imsOrgID,
		"baseURL":  baseURL,
	}

	if profile, ok := paramsMap["profile"].(string); ok {
		body["profile"] = ctx.Interpolate(profile)
	}

	if channel, ok := paramsMap["slack_channel_id"].(string); ok {
		body["slackChannelId"] = ctx.Interpolate(channel)
	}

	result, err := doJSONRequest(ctx, "POST", "/api/v1/onboarding", body)
	if err != nil {
		return fmt.Errorf("onboard site failed: %w", err)
	}

	// Save the whole result plus the config key, the handle every
	// follow-up step needs
	if saveAs, ok := paramsMap["save_as"].(string); ok {
		ctx.Set(saveAs, result)
		if configKey, ok := result["configKey"]; ok {
			ctx.Set(saveAs+"_config_key", configKey)
		}
	}

	return nil
}

// PatchConfig implements the patch_config step
func PatchConfig(ctx TestContext, params interface{}) error {
	paramsMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("patch_config params must be a map")
	}

	configKey, ok := paramsMap["config_key"].(string)
	if !ok {
		return fmt.Errorf("patch_config requires 'config_key'")
	}
	configKey = ctx.Interpolate(configKey).(string)

	customer, ok := paramsMap["customer"]
	if !ok {
		return fmt.Errorf("patch_config requires 'customer'")
	}

	ctx.Log("Patching customer config: %s", configKey)

	body := map[string]interface{}{
		"customer": ctx.Interpolate(customer),
	}

	result, err := doJSONRequest(ctx, "PATCH", "/api/v1/customer-configs/"+configKey, body)
	if err != nil {
		return fmt.Errorf("patch config failed: %w", err)
	}

	if saveAs, ok := paramsMap["save_as"].(string); ok {
		ctx.Set(saveAs, result)
		if stats, ok := result["stats"]; ok {
			ctx.Set(saveAs+"_stats", stats)
		}
	}

	return nil
}

// GetConfig implements the get_config step
func GetConfig(ctx TestContext, params interface{}) error {
	paramsMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("get_config params must be a map")
	}

	configKey, ok := paramsMap["config_key"].(string)
	if !ok {
		return fmt.Errorf("get_config requires 'config_key'")
	}
	configKey = ctx.Interpolate(configKey).(string)

	ctx.Log("Fetching customer config: %s", configKey)

	result, err := doJSONRequest(ctx, "GET", "/api/v1/customer-configs/"+configKey, nil)
	if err != nil {
		return fmt.Errorf("get config failed: %w", err)
	}

	if saveAs, ok := paramsMap["save_as"].(string); ok {
		ctx.Set(saveAs, result)
	}

	return nil
}

// ListRevisions implements the list_revisions step
func ListRevisions(ctx TestContext, params interface{}) error {
	paramsMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("list_revisions params must be a map")
	}

	configKey, ok := paramsMap["config_key"].(string)
	if !ok {
		return fmt.Errorf("list_revisions requires 'config_key'")
	}
	configKey = ctx.Interpolate(configKey).(string)

	path := "/api/v1/customer-configs/" + configKey + "/revisions"
	if limit, ok := paramsMap["limit"]; ok {
		path = fmt.Sprintf("%s?limit=%v", path, ctx.Interpolate(limit))
	}

	ctx.Log("Listing config revisions: %s", configKey)

	result, err := doJSONRequest(ctx, "GET", path, nil)
	if err != nil {
		return fmt.Errorf("list revisions failed: %w", err)
	}

	if saveAs, ok := paramsMap["save_as"].(string); ok {
		ctx.Set(saveAs, result)
	}

	return nil
}

// doJSONRequest runs one API call against sage and decodes the JSON
// response, failing on any non-2xx status
func doJSONRequest(ctx TestContext, method, path string, body interface{}) (map[string]interface{}, error) {
	resp, err := ctx.HTTPRequest(method, "sage", path, nil, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return result, nil
}
