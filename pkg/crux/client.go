// Package crux queries the Chrome UX Report API for field performance
// data and shapes it into per-metric summaries.
package crux

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/expressions"
	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/metrics"
	"github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

var (
	// ErrNoData is returned when CrUX has no record for the origin
	ErrNoData = errors.New("crux has no data for origin")

	// ErrCruxRequestFailed is returned when the CrUX API rejects or fails a request
	ErrCruxRequestFailed = errors.New("crux request failed")

	// ErrInvalidFormFactor is returned for unsupported form factors
	ErrInvalidFormFactor = errors.New("invalid form factor")
)

const (
	queryRecordPath = "/records:queryRecord"

	// DefaultFormFactor is used when callers pass none
	DefaultFormFactor = "PHONE"

	cacheKeyPrefix = "crux:"
)

var validFormFactors = map[string]bool{
	"PHONE":   true,
	"DESKTOP": true,
	"TABLET":  true,
}

// Config holds CrUX API settings
type Config struct {
	BaseURL  string
	APIKey   string
	CacheTTL time.Duration
}

// MetricSummary is the shaped view of one CrUX metric
type MetricSummary struct {
	P75              float64 `json:"p75"`
	Good             float64 `json:"good"`
	NeedsImprovement float64 `json:"needsImprovement"`
	Poor             float64 `json:"poor"`
}

// Report is the shaped CrUX response for one origin and form factor
type Report struct {
	Origin      string         `json:"origin"`
	FormFactor  string         `json:"formFactor"`
	LCP         *MetricSummary `json:"lcp,omitempty"`
	CLS         *MetricSummary `json:"cls,omitempty"`
	INP         *MetricSummary `json:"inp,omitempty"`
	CollectedAt time.Time      `json:"collectedAt"`
}

// Client queries the CrUX API with a Redis-backed cache
type Client struct {
	httpClient  *httpclient.Client
	redisClient *redis.Client
	evaluator   *expressions.Evaluator
	config      Config
	logger      ectologger.Logger
}

// NewClient creates a CrUX client
func NewClient(httpClient *httpclient.Client, redisClient *redis.Client, config Config, logger ectologger.Logger) *Client {
	return &Client{
		httpClient:  httpClient,
		redisClient: redisClient,
		evaluator:   expressions.NewEvaluator(),
		config:      config,
		logger:      logger,
	}
}

// OriginFromURL reduces a URL to the scheme://host origin CrUX keys records by
func OriginFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no scheme or host", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// NormalizeFormFactor validates and uppercases a form factor, defaulting
// empty input to DefaultFormFactor
func NormalizeFormFactor(formFactor string) (string, error) {
	if formFactor == "" {
		return DefaultFormFactor, nil
	}
	normalized := strings.ToUpper(strings.TrimSpace(formFactor))
	if !validFormFactors[normalized] {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormFactor, formFactor)
	}
	return normalized, nil
}

type queryRecordRequest struct {
	Origin     string `json:"origin"`
	FormFactor string `json:"formFactor"`
}

// GetReport returns the shaped CrUX report for an origin, serving from
// cache when fresh.
func (c *Client) GetReport(ctx context.Context, origin, formFactor string) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, "crux.Client.GetReport")
	defer span.End()

	formFactor, err := NormalizeFormFactor(formFactor)
	if err != nil {
		return nil, err
	}

	cacheKey := cacheKeyPrefix + origin + ":" + formFactor
	var cached Report
	found, err := c.redisClient.GetJSON(ctx, cacheKey, &cached)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("CrUX cache read failed")
	}
	if found {
		metrics.CruxCacheHits.WithLabelValues("hit").Inc()
		return &cached, nil
	}
	metrics.CruxCacheHits.WithLabelValues("miss").Inc()

	report, err := c.query(ctx, origin, formFactor)
	if err != nil {
		return nil, err
	}

	if err := c.redisClient.SetJSON(ctx, cacheKey, report, c.config.CacheTTL); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("CrUX cache write failed")
	}

	return report, nil
}

func (c *Client) query(ctx context.Context, origin, formFactor string) (*Report, error) {
	endpoint := c.config.BaseURL + queryRecordPath + "?key=" + url.QueryEscape(c.config.APIKey)

	resp, err := c.httpClient.PostJSON(ctx, endpoint, queryRecordRequest{
		Origin:     origin,
		FormFactor: formFactor,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCruxRequestFailed, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNoData, origin)
	}

	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"status_code": resp.StatusCode,
			"origin":      origin,
		}).Error("CrUX API rejected query")
		return nil, fmt.Errorf("%w: status %d", ErrCruxRequestFailed, resp.StatusCode)
	}

	payload, err := httpclient.DecodeJSONMap(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCruxRequestFailed, err)
	}

	report := &Report{
		Origin:      origin,
		FormFactor:  formFactor,
		LCP:         c.extractMetric(ctx, payload, "largest_contentful_paint"),
		CLS:         c.extractMetric(ctx, payload, "cumulative_layout_shift"),
		INP:         c.extractMetric(ctx, payload, "interaction_to_next_paint"),
		CollectedAt: time.Now().UTC(),
	}

	return report, nil
}

// extractMetric pulls one metric's p75 and histogram densities out of the
// raw payload. CrUX serves some percentiles as strings, so every
// expression funnels through to_number.
func (c *Client) extractMetric(ctx context.Context, payload map[string]any, metric string) *MetricSummary {
	p75, ok, err := c.evaluateFloat(ctx, fmt.Sprintf("to_number(record.metrics.%s.percentiles.p75)", metric), payload)
	if err != nil || !ok {
		return nil
	}

	summary := &MetricSummary{P75: p75}
	for i, target := range []*float64{&summary.Good, &summary.NeedsImprovement, &summary.Poor} {
		density, ok, err := c.evaluateFloat(ctx, fmt.Sprintf("to_number(record.metrics.%s.histogram[%d].density)", metric, i), payload)
		if err != nil || !ok {
			continue
		}
		*target = density
	}

	return summary
}

func (c *Client) evaluateFloat(ctx context.Context, expression string, payload map[string]any) (float64, bool, error) {
	value, ok, err := c.evaluator.EvaluateFloat(expression, payload)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"expression": expression,
		}).Warn("CrUX metric extraction failed")
		return 0, false, err
	}
	return value, ok, nil
}
