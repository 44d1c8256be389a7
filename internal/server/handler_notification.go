package server

import (
	"net/http"
	"strconv"

	"compost-be/internal/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func (s *Server) handleListNotifications(c echo.Context) error {
	userID, _ := utils.GetUserIDFromContext(c.Request().Context())

	unreadOnly := c.QueryParam("unread") == "true"
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	list, err := s.deps.Notifications.List(c.Request().Context(), userID, unreadOnly, limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleMarkNotificationRead(c echo.Context) error {
	userID, _ := utils.GetUserIDFromContext(c.Request().Context())

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}

	if err := s.deps.Notifications.MarkRead(c.Request().Context(), id, userID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMarkAllNotificationsRead(c echo.Context) error {
	userID, _ := utils.GetUserIDFromContext(c.Request().Context())

	count, err := s.deps.Notifications.MarkAllRead(c.Request().Context(), userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"marked_read": count})
}
