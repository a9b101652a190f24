package middleware

import (
	"github.com/Ramsey-B/sage/pkg/context"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// HeaderUserID is the header key for the acting user
	HeaderUserID = "X-User-ID"
	// HeaderIMSOrgID is the header key for the IMS organization
	HeaderIMSOrgID = "X-Ims-Org-Id"
)

func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()

			// get request id from header
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			userID := req.Header.Get(HeaderUserID)
			imsOrgID := req.Header.Get(HeaderIMSOrgID)

			ctx := req.Context()
			ctx = context.SetRequestID(ctx, requestID)
			ctx = context.SetMethod(ctx, req.Method)
			ctx = context.SetRoute(ctx, req.URL.Path)
			ctx = context.SetRemoteIP(ctx, c.RealIP())
			ctx = context.SetUserID(ctx, userID)
			ctx = context.SetIMSOrgID(ctx, imsOrgID)

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
