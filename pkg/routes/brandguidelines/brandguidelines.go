// Package brandguidelines serves brand guideline retrieval for sites,
// proxying the external brand API.
package brandguidelines

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/internal/repositories/organization"
	"github.com/Ramsey-B/sage/internal/repositories/site"
	"github.com/Ramsey-B/sage/pkg/brands"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Register registers brand guideline routes on the sites group
func Register(g *echo.Group) {
	g.GET("/:siteId/brand-guidelines", Get)
}

// Get resolves a site to its owning organization and fetches that
// organization's brand guidelines from the brand API. The upstream
// payload passes through untouched.
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "brandguidelines_handler.Get")
	defer span.End()

	siteID := c.Param("siteId")
	if _, err := uuid.Parse(siteID); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid site id")
	}

	ctx, siteRepo, err := ectoinject.GetContext[*site.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	siteRecord, err := siteRepo.GetByID(ctx, siteID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get site")
	}
	if siteRecord == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "site not found")
	}

	ctx, orgRepo, err := ectoinject.GetContext[*organization.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	org, err := orgRepo.GetByID(ctx, siteRecord.OrganizationID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get organization")
	}
	if org == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "organization not found")
	}

	ctx, client, err := ectoinject.GetContext[*brands.Client](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get brand API client")
	}

	guidelines, err := client.GetGuidelines(ctx, org.IMSOrgID)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadGateway, "failed to fetch brand guidelines for %s", org.IMSOrgID)
	}
	if guidelines == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "no brand guidelines found")
	}

	return c.JSON(http.StatusOK, guidelines)
}
