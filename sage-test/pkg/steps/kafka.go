package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// AssertKafkaMessage implements the assert_kafka_message step: consume
// one message from a topic within a timeout and run assertions against
// its headers and fields.
func AssertKafkaMessage(ctx TestContext, params interface{}) error {
	paramsMap, ok := params.(map[string]interface{})
	if !ok {
		return fmt.Errorf("assert_kafka_message params must be a map")
	}

	topic, ok := paramsMap["topic"].(string)
	if !ok {
		return fmt.Errorf("assert_kafka_message requires 'topic'")
	}
	topic = ctx.Interpolate(topic).(string)

	timeoutStr := "30s"
	if t, ok := paramsMap["timeout"].(string); ok {
		timeoutStr = t
	}

	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	brokers, err := resolveBrokers(ctx)
	if err != nil {
		return err
	}

	ctx.Log("Consuming from Kafka topic: %s (timeout: %s)", topic, timeout)

	readerConfig := kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  fmt.Sprintf("sage-test-%d", time.Now().UnixNano()),
		MinBytes: 1,
		MaxBytes: 10e6,
	}

	if consumeFrom, _ := paramsMap["consume_from"].(string); consumeFrom == "earliest" {
		readerConfig.StartOffset = kafka.FirstOffset
	} else {
		readerConfig.StartOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(readerConfig)
	defer reader.Close()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	msg, err := reader.ReadMessage(timeoutCtx)
	if err != nil {
		return fmt.Errorf("failed to read message within %s: %w", timeout, err)
	}

	ctx.Log("Received message (offset: %d)", msg.Offset)

	var messageValue map[string]interface{}
	if err := json.Unmarshal(msg.Value, &messageValue); err != nil {
		ctx.Log("Warning: could not parse message as JSON: %v", err)
		messageValue = map[string]interface{}{"_raw": string(msg.Value)}
	}

	if saveAs, ok := paramsMap["save_as"].(string); ok {
		ctx.Set(saveAs, messageValue)
	}

	if assertions, ok := paramsMap["assertions"].([]interface{}); ok {
		for i, assertionInterface := range assertions {
			assertion, ok := assertionInterface.(map[string]interface{})
			if !ok {
				return fmt.Errorf("assertion %d is not a map", i)
			}

			if err := runKafkaAssertion(ctx, msg, messageValue, assertion); err != nil {
				return fmt.Errorf("assertion %d failed: %w", i, err)
			}
		}
	}

	ctx.Log("All assertions passed")
	return nil
}

// resolveBrokers reads the broker list from the test context
func resolveBrokers(ctx TestContext) ([]string, error) {
	brokers, ok := ctx.Get("kafka_brokers")
	if !ok {
		brokersStr := ctx.Interpolate("{{kafka_brokers}}").(string)
		brokers = strings.Split(brokersStr, ",")
	}

	switch b := brokers.(type) {
	case []string:
		return b, nil
	case string:
		return strings.Split(b, ","), nil
	default:
		return nil, fmt.Errorf("invalid kafka_brokers type: %T", brokers)
	}
}

// runKafkaAssertion runs a single header or field assertion against a
// consumed message
func runKafkaAssertion(ctx TestContext, msg kafka.Message, messageValue map[string]interface{}, assertion map[string]interface{}) error {
	if headerKey, ok := assertion["header"].(string); ok {
		var headerValue string
		for _, h := range msg.Headers {
			if h.Key == headerKey {
				headerValue = string(h.Value)
				break
			}
		}

		if equals, ok := assertion["equals"]; ok {
			expectedStr := fmt.Sprintf("%v", ctx.Interpolate(equals))
			if headerValue != expectedStr {
				return fmt.Errorf("header %s: expected %s, got %s", headerKey, expectedStr, headerValue)
			}
		}

		if contains, ok := assertion["contains"].(string); ok {
			expectedContains := ctx.Interpolate(contains).(string)
			if !strings.Contains(headerValue, expectedContains) {
				return fmt.Errorf("header %s: expected to contain %s, got %s", headerKey, expectedContains, headerValue)
			}
		}

		return nil
	}

	if fieldPath, ok := assertion["field"].(string); ok {
		var currentValue interface{} = messageValue
		for _, part := range strings.Split(fieldPath, ".") {
			m, ok := currentValue.(map[string]interface{})
			if !ok {
				return fmt.Errorf("field %s: cannot navigate into %T", fieldPath, currentValue)
			}
			currentValue, ok = m[part]
			if !ok {
				return fmt.Errorf("field %s not found (missing: %s)", fieldPath, part)
			}
		}

		if equals, ok := assertion["equals"]; ok {
			expectedVal := ctx.Interpolate(equals)
			if !reflect.DeepEqual(currentValue, expectedVal) {
				return fmt.Errorf("field %s: expected %v, got %v", fieldPath, expectedVal, currentValue)
			}
		}

		if contains, ok := assertion["contains"].(string); ok {
			currentStr, ok := currentValue.(string)
			if !ok {
				return fmt.Errorf("field %s: contains only works on strings, got %T", fieldPath, currentValue)
			}
			expectedContains := ctx.Interpolate(contains).(string)
			if !strings.Contains(currentStr, expectedContains) {
				return fmt.Errorf("field %s: expected to contain %s, got %s", fieldPath, expectedContains, currentStr)
			}
		}

		if notNull, ok := assertion["not_null"].(bool); ok && notNull {
			if currentValue == nil {
				return fmt.Errorf("field %s: expected not null", fieldPath)
			}
		}

		return nil
	}

	return fmt.Errorf("assertion must have either 'header' or 'field'")
}
