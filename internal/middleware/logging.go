package middleware

import (
	"time"

	"compost-be/internal/logger"
	"compost-be/internal/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger tags every request with a request id and logs it in
// structured form once the handler returns.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			requestID := c.Request().Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			ctx := logger.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set("X-Request-ID", requestID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			userID := ""
			if id, ok := utils.GetUserIDFromContext(c.Request().Context()); ok {
				userID = id.String()
			}

			logger.FromCtx(ctx).Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.String("duration", time.Since(start).String()),
				zap.String("remote_ip", c.RealIP()),
				zap.String("user_id", userID),
			)
			return err
		}
	}
}
