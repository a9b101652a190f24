// Package site serves site lookup routes.
package site

import (
	"encoding/base64"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/internal/repositories/site"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Register registers site routes
func Register(g *echo.Group) {
	g.GET("/:siteId", Get)
	g.GET("/by-base-url/:base64BaseUrl", GetByBaseURL)
}

// Get returns a single site by id
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "site_handler.Get")
	defer span.End()

	id := c.Param("siteId")
	if _, err := uuid.Parse(id); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid site id")
	}

	ctx, repo, err := ectoinject.GetContext[*site.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByID(ctx, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get site")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "site not found")
	}

	return c.JSON(http.StatusOK, models.SiteResponse{Site: *result})
}

// GetByBaseURL returns a single site by its base64url-encoded base URL
func GetByBaseURL(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "site_handler.GetByBaseURL")
	defer span.End()

	baseURL, err := decodeBase64URL(c.Param("base64BaseUrl"))
	if err != nil || baseURL == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid base64 base url")
	}

	ctx, repo, err := ectoinject.GetContext[*site.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByBaseURL(ctx, baseURL)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get site")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "site not found")
	}

	return c.JSON(http.StatusOK, models.SiteResponse{Site: *result})
}

// decodeBase64URL accepts the url-safe alphabet with or without padding
func decodeBase64URL(encoded string) (string, error) {
	if decoded, err := base64.URLEncoding.DecodeString(encoded); err == nil {
		return string(decoded), nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
