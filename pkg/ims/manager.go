// Package ims obtains and caches IMS service tokens via the
// client-credentials grant. Outbound brand-guideline calls authenticate
// with these tokens.
package ims

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/redis"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

var (
	// ErrTokenRequestFailed is returned when the token exchange fails
	ErrTokenRequestFailed = errors.New("ims token request failed")
)

const (
	// DefaultSkewSeconds refreshes tokens this long before expiry
	DefaultSkewSeconds = 60

	// CacheKeyPrefix is the prefix for token cache keys
	CacheKeyPrefix = "ims:token:"

	tokenPath = "/ims/token/v3"
)

// Config holds IMS client-credentials settings
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Scopes       []string
	SkewSeconds  int
}

// CachedToken is a token held in cache between exchanges
type CachedToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// IsExpired checks if the token is expired (with skew)
func (t *CachedToken) IsExpired(skewSeconds int) bool {
	if t.ExpiresAt == 0 {
		return false
	}
	now := time.Now().Unix()
	return now >= (t.ExpiresAt - int64(skewSeconds))
}

// TokenManager exchanges client credentials for access tokens and caches
// them in Redis until shortly before expiry.
type TokenManager struct {
	httpClient  *httpclient.Client
	redisClient *redis.Client
	config      Config
	logger      ectologger.Logger
}

// NewTokenManager creates a new token manager
func NewTokenManager(httpClient *httpclient.Client, redisClient *redis.Client, config Config, logger ectologger.Logger) *TokenManager {
	if config.SkewSeconds <= 0 {
		config.SkewSeconds = DefaultSkewSeconds
	}

	return &TokenManager{
		httpClient:  httpClient,
		redisClient: redisClient,
		config:      config,
		logger:      logger,
	}
}

// GetAccessToken returns a valid access token, reusing the cached one when
// it has life left. Cache failures degrade to a fresh exchange.
func (m *TokenManager) GetAccessToken(ctx context.Context) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "ims.TokenManager.GetAccessToken")
	defer span.End()

	cacheKey := m.cacheKey()

	var cached CachedToken
	found, err := m.redisClient.GetJSON(ctx, cacheKey, &cached)
	if err != nil {
		m.logger.WithContext(ctx).WithError(err).Warn("Failed to read cached IMS token")
	}
	if found && !cached.IsExpired(m.config.SkewSeconds) {
		m.logger.WithContext(ctx).Debug("Using cached IMS token")
		return cached.AccessToken, nil
	}

	token, err := m.exchange(ctx)
	if err != nil {
		return "", err
	}

	ttl := m.calculateTTL(token)
	if err := m.redisClient.SetJSON(ctx, cacheKey, token, ttl); err != nil {
		m.logger.WithContext(ctx).WithError(err).Warn("Failed to cache IMS token")
	}

	return token.AccessToken, nil
}

// AuthHeaders returns the outbound headers that authenticate a request
// against IMS-protected APIs.
func (m *TokenManager) AuthHeaders(ctx context.Context) (map[string]string, error) {
	token, err := m.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"Authorization": "Bearer " + token,
		"x-api-key":     m.config.ClientID,
	}, nil
}

// InvalidateToken removes the cached token, forcing a fresh exchange
func (m *TokenManager) InvalidateToken(ctx context.Context) error {
	return m.redisClient.Del(ctx, m.cacheKey())
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// exchange performs the client-credentials grant
func (m *TokenManager) exchange(ctx context.Context) (*CachedToken, error) {
	ctx, span := tracing.StartSpan(ctx, "ims.TokenManager.exchange")
	defer span.End()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", m.config.ClientID)
	form.Set("client_secret", m.config.ClientSecret)
	form.Set("scope", strings.Join(m.config.Scopes, ","))

	resp, err := m.httpClient.PostForm(ctx, m.config.BaseURL+tokenPath, form, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRequestFailed, err)
	}

	if !httpclient.IsSuccessStatus(resp.StatusCode) {
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"status_code": resp.StatusCode,
		}).Error("IMS token exchange rejected")
		return nil, fmt.Errorf("%w: status %d", ErrTokenRequestFailed, resp.StatusCode)
	}

	var body tokenResponse
	if err := httpclient.DecodeJSON(resp, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenRequestFailed, err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrTokenRequestFailed)
	}

	token := &CachedToken{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
		CreatedAt:   time.Now().Unix(),
	}
	if body.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Unix() + body.ExpiresIn
	}

	m.logger.WithContext(ctx).Info("Obtained IMS access token")
	return token, nil
}

// calculateTTL derives the cache TTL from the token expiry minus skew
func (m *TokenManager) calculateTTL(token *CachedToken) time.Duration {
	if token.ExpiresAt > 0 {
		remaining := token.ExpiresAt - time.Now().Unix() - int64(m.config.SkewSeconds)
		if remaining > 0 {
			return time.Duration(remaining) * time.Second
		}
	}
	return time.Hour
}

func (m *TokenManager) cacheKey() string {
	return CacheKeyPrefix + m.config.ClientID
}
