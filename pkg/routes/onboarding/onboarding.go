// Package onboarding serves the onboarding route that registers an
// organization and site and seeds their customer config.
package onboarding

import (
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/pkg/onboarding"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

var validate = validator.New()

// Register registers onboarding routes on the given group
func Register(g *echo.Group) {
	g.POST("", Onboard)
}

// Onboard registers a site and its organization, seeds the customer
// config, and announces the result to Slack. Running it again for a
// known site is a no-op that reports alreadyExisted.
func Onboard(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "onboarding_handler.Onboard")
	defer span.End()

	var req onboarding.Request
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid request: %s", err.Error())
	}

	ctx, svc, err := ectoinject.GetContext[*onboarding.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get onboarding service")
	}

	result, err := svc.Onboard(ctx, req)
	if err != nil {
		if errors.Is(err, onboarding.ErrSiteConflict) {
			return httperror.NewHTTPError(http.StatusConflict, "site is already registered to a different organization")
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to onboard site")
	}

	return c.JSON(http.StatusOK, result)
}
