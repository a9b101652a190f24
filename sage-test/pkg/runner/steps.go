package runner

import (
	"fmt"

	"github.com/Ramsey-B/sage-test/pkg/steps"
)

// executeStep executes a single test step
func executeStep(testCtx *TestContext, step map[string]interface{}, stepLabel string) error {
	// Each step is a map with a single key (the step type)
	if len(step) == 0 {
		return fmt.Errorf("empty step")
	}

	if len(step) > 1 {
		return fmt.Errorf("step has multiple keys (expected one): %v", step)
	}

	// Get the step type and parameters
	var stepType string
	var params interface{}
	for k, v := range step {
		stepType = k
		params = v
	}

	if testCtx.Verbose {
		fmt.Printf("  [%s] %s\n", stepLabel, stepType)
	}

	// Execute the step based on type
	switch stepType {
	case "wait":
		return steps.Wait(testCtx, params)

	case "assert":
		return steps.Assert(testCtx, params)

	case "poll_until":
		return steps.PollUntil(testCtx, params)

	case "http_request":
		return steps.HTTPRequest(testCtx, params)

	case "assert_kafka_message":
		return steps.AssertKafkaMessage(testCtx, params)

	case "onboard_site":
		return steps.OnboardSite(testCtx, params)

	case "patch_config":
		return steps.PatchConfig(testCtx, params)

	case "get_config":
		return steps.GetConfig(testCtx, params)

	case "list_revisions":
		return steps.ListRevisions(testCtx, params)

	case "use_template":
		return executeTemplate(testCtx, params)

	default:
		return fmt.Errorf("unknown step type: %s", stepType)
	}
}

// executeTemplate expands and executes a template
func executeTemplate(testCtx *TestContext, params interface{}) error {
	paramsMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("use_template params must be a map")
	}

	var templateName string
	var templateParams map[string]interface{}

	if name, ok := paramsMap["name"].(string); ok {
		templateName = name
		if with, ok := paramsMap["with"].(map[string]interface{}); ok {
			templateParams = with
		}
	}

	if templateName == "" {
		return fmt.Errorf("template name not specified")
	}

	// Get template
	tmpl, ok := testCtx.GetTemplate(templateName)
	if !ok {
		return fmt.Errorf("template not found: %s", templateName)
	}

	// Temporarily store template parameters as variables
	if templateParams != nil {
		for k, v := range templateParams {
			testCtx.Set(k, testCtx.Interpolate(v))
		}
	}

	// Execute template steps
	templateSteps, ok := tmpl["steps"].([]interface{})
	if !ok {
		return fmt.Errorf("template %s has no steps", templateName)
	}

	for i, stepInterface := range templateSteps {
		stepMap, ok := stepInterface.(map[string]interface{})
		if !ok {
			return fmt.Errorf("template %s step %d is not a map", templateName, i)
		}

		if err := executeStep(testCtx, stepMap, fmt.Sprintf("template:%s[%d]", templateName, i)); err != nil {
			return fmt.Errorf("template %s step %d failed: %w", templateName, i, err)
		}
	}

	return nil
}
