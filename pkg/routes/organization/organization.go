// Package organization serves organization lookup routes.
package organization

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/internal/repositories/organization"
	"github.com/Ramsey-B/sage/internal/repositories/site"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Register registers organization routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/:organizationId", Get)
	g.GET("/by-ims-org-id/:imsOrgId", GetByIMSOrgID)
	g.GET("/:organizationId/sites", ListSites)
}

// List returns organizations, paged
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "organization_handler.List")
	defer span.End()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	ctx, repo, err := ectoinject.GetContext[*organization.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, page, pageSize)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list organizations")
	}

	return c.JSON(http.StatusOK, models.OrganizationListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get returns a single organization by id
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "organization_handler.Get")
	defer span.End()

	id := c.Param("organizationId")
	if _, err := uuid.Parse(id); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid organization id")
	}

	ctx, repo, err := ectoinject.GetContext[*organization.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByID(ctx, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get organization")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "organization not found")
	}

	return c.JSON(http.StatusOK, models.OrganizationResponse{Organization: *result})
}

// GetByIMSOrgID returns a single organization by IMS org id
func GetByIMSOrgID(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "organization_handler.GetByIMSOrgID")
	defer span.End()

	imsOrgID := c.Param("imsOrgId")
	if imsOrgID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "ims org id is required")
	}

	ctx, repo, err := ectoinject.GetContext[*organization.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	result, err := repo.GetByIMSOrgID(ctx, imsOrgID)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get organization")
	}
	if result == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "organization not found")
	}

	return c.JSON(http.StatusOK, models.OrganizationResponse{Organization: *result})
}

// ListSites returns the sites owned by an organization
func ListSites(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "organization_handler.ListSites")
	defer span.End()

	id := c.Param("organizationId")
	if _, err := uuid.Parse(id); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid organization id")
	}

	ctx, orgRepo, err := ectoinject.GetContext[*organization.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	org, err := orgRepo.GetByID(ctx, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get organization")
	}
	if org == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "organization not found")
	}

	ctx, siteRepo, err := ectoinject.GetContext[*site.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, err := siteRepo.ListByOrganization(ctx, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to list sites")
	}

	return c.JSON(http.StatusOK, models.SiteListResponse{
		Items:      items,
		TotalCount: len(items),
	})
}
