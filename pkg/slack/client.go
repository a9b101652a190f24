// Package slack posts onboarding notifications through the Slack Web
// API using a bot token.
package slack

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// ErrSlackRequestFailed is returned when Slack rejects or fails a request
var ErrSlackRequestFailed = errors.New("slack request failed")

const postMessagePath = "/chat.postMessage"

// Client talks to the Slack Web API
type Client struct {
	httpClient     *httpclient.Client
	baseURL        string
	botToken       string
	defaultChannel string
	logger         ectologger.Logger
}

// NewClient creates a Slack client
func NewClient(httpClient *httpclient.Client, baseURL, botToken, defaultChannel string, logger ectologger.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		botToken:       botToken,
		defaultChannel: defaultChannel,
		logger:         logger,
	}
}

// DefaultChannel returns the channel used when callers pass none
func (c *Client) DefaultChannel() string {
	return c.defaultChannel
}

// Enabled reports whether a bot token is configured
func (c *Client) Enabled() bool {
	return c.botToken != ""
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// Slack responds 200 even on API errors; failures live in the ok/error fields.
type apiResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Channel string `json:"channel,omitempty"`
	TS      string `json:"ts,omitempty"`
}

// PostMessage posts a plain text message to a channel. An empty channel
// falls back to the configured default.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	ctx, span := tracing.StartSpan(ctx, "slack.Client.PostMessage")
	defer span.End()

	if channel == "" {
		channel = c.defaultChannel
	}
	if channel == "" {
		return fmt.Errorf("%w: no channel configured", ErrSlackRequestFailed)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.botToken,
	}

	resp, err := c.httpClient.PostJSON(ctx, c.baseURL+postMessagePath, postMessageRequest{
		Channel: channel,
		Text:    text,
	}, headers)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSlackRequestFailed, err)
	}

	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		return fmt.Errorf("%w: status %d", ErrSlackRequestFailed, resp.StatusCode)
	}

	var body apiResponse
	if err := httpclient.DecodeJSON(resp, &body); err != nil {
		return fmt.Errorf("%w: %v", ErrSlackRequestFailed, err)
	}
	if !body.OK {
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"channel":     channel,
			"slack_error": body.Error,
		}).Error("Slack rejected message")
		return fmt.Errorf("%w: %s", ErrSlackRequestFailed, body.Error)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"channel": body.Channel,
		"ts":      body.TS,
	}).Info("Posted Slack message")
	return nil
}
