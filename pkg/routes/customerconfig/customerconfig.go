// Package customerconfig serves the customer config document routes,
// including the PATCH merge endpoint.
package customerconfig

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectolinq"
	"github.com/labstack/echo/v4"

	ctxutil "github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/customerconfig"
	"github.com/Ramsey-B/sage/pkg/merging"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Register registers customer config routes
func Register(g *echo.Group) {
	g.GET("/:configKey", Get)
	g.PATCH("/:configKey", Patch)
	g.GET("/:configKey/revisions", ListRevisions)
}

// Get returns the stored config document for a config key
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "customerconfig_handler.Get")
	defer span.End()

	configKey := c.Param("configKey")

	ctx, svc, err := ectoinject.GetContext[*customerconfig.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get config service")
	}

	record, err := svc.Get(ctx, configKey)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get customer config")
	}
	if record == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "customer config not found")
	}

	return c.JSON(http.StatusOK, record.ToResponse())
}

// Patch merges a partial config into the stored document. A missing
// stored document is a create. The response carries per-entity-class
// merge statistics, never the unchanged entities themselves.
func Patch(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "customerconfig_handler.Patch")
	defer span.End()

	configKey := c.Param("configKey")

	if c.Request().ContentLength == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "request body is required")
	}

	var req models.PartialCustomerConfig
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, svc, err := ectoinject.GetContext[*customerconfig.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get config service")
	}

	result, err := svc.Patch(ctx, configKey, &req, ctxutil.GetActor(ctx))
	if err != nil {
		if errors.Is(err, merging.ErrInvalidInput) || errors.Is(err, merging.ErrInvalidMergedConfig) {
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update customer config")
	}

	return c.JSON(http.StatusOK, models.PatchCustomerConfigResponse{
		Message: "customer config updated",
		Stats:   result.Stats,
	})
}

// ListRevisions returns recent revisions of a config document, newest first
func ListRevisions(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "customerconfig_handler.ListRevisions")
	defer span.End()

	configKey := c.Param("configKey")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, svc, err := ectoinject.GetContext[*customerconfig.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get config service")
	}

	revisions, err := svc.ListRevisions(ctx, configKey, limit)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list revisions")
	}

	items := ectolinq.Map(revisions, func(r models.CustomerConfigRevision) models.CustomerConfigRevisionResponse {
		return r.ToResponse()
	})

	return c.JSON(http.StatusOK, models.CustomerConfigRevisionListResponse{
		ConfigKey: configKey,
		Items:     items,
	})
}
