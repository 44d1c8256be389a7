package middleware

import (
	"net/http"
	"strings"

	"compost-be/internal/auth"
	"compost-be/internal/logger"
	"compost-be/internal/utils"

	"github.com/labstack/echo/v4"
)

func extractAccessToken(c echo.Context) string {
	// Cookie first, Authorization header as fallback.
	if cookie, err := c.Cookie("access_token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// Auth parses the session token when present and stores the claims in the
// request context. It does not reject anonymous requests; RequireRole does.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := extractAccessToken(c)
			if tokenStr == "" {
				return next(c)
			}

			claims, err := auth.ParseJWT(jwtSecret, tokenStr)
			if err != nil {
				return next(c)
			}

			ctx := utils.WithClaims(c.Request().Context(), claims)
			ctx = logger.WithActorID(ctx, claims.UserID.String())
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequireRole rejects requests whose session is missing or whose role is
// not in the allowed set.
func RequireRole(roles ...auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := utils.ClaimsFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			for _, role := range roles {
				if claims.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}
