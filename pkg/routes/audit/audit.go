// Package audit serves site audit routes: CrUX field performance and
// AI bot blocker detection.
package audit

import (
	"context"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/internal/repositories/site"
	"github.com/Ramsey-B/sage/pkg/audits"
	"github.com/Ramsey-B/sage/pkg/crux"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Register registers audit routes on the sites group
func Register(g *echo.Group) {
	g.GET("/:siteId/audits/crux", GetCruxReport)
	g.GET("/:siteId/audits/bot-blocker", GetBotBlockerReport)
}

// GetCruxReport returns CrUX field data for the site's origin. The form
// factor comes from the formFactor query param and defaults to PHONE.
func GetCruxReport(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "audit_handler.GetCruxReport")
	defer span.End()

	siteRecord, err := resolveSite(ctx, c.Param("siteId"))
	if err != nil {
		return err
	}

	formFactor, err := crux.NormalizeFormFactor(c.QueryParam("formFactor"))
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid form factor %q, expected PHONE, DESKTOP or TABLET", c.QueryParam("formFactor"))
	}

	origin, err := crux.OriginFromURL(siteRecord.BaseURL)
	if err != nil {
		return httperror.NewHTTPError(http.StatusUnprocessableEntity, "site base url is not a valid origin")
	}

	ctx, client, err := ectoinject.GetContext[*crux.Client](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get crux client")
	}

	report, err := client.GetReport(ctx, origin, formFactor)
	if err != nil {
		if errors.Is(err, crux.ErrNoData) {
			return httperror.NewHTTPErrorf(http.StatusNotFound, "no crux data for origin %s", origin)
		}
		return httperror.NewHTTPError(http.StatusBadGateway, "failed to fetch crux report")
	}

	return c.JSON(http.StatusOK, report)
}

// GetBotBlockerReport probes the site as an AI crawler and as a browser
// and reports whether the site blocks AI crawlers.
func GetBotBlockerReport(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "audit_handler.GetBotBlockerReport")
	defer span.End()

	siteRecord, err := resolveSite(ctx, c.Param("siteId"))
	if err != nil {
		return err
	}

	ctx, detector, err := ectoinject.GetContext[*audits.Detector](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get bot blocker detector")
	}

	report, err := detector.CheckBotBlocker(ctx, siteRecord.BaseURL)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadGateway, "failed to check site for bot blocking")
	}

	return c.JSON(http.StatusOK, report)
}

func resolveSite(ctx context.Context, siteID string) (*models.Site, error) {
	if _, err := uuid.Parse(siteID); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid site id")
	}

	ctx, repo, err := ectoinject.GetContext[*site.Repository](ctx)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	record, err := repo.GetByID(ctx, siteID)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get site")
	}
	if record == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "site not found")
	}
	return record, nil
}
