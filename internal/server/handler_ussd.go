package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// handleUSSD serves the feature-phone menu. The gateway POSTs form fields
// and expects a plain-text CON/END body back.
func (s *Server) handleUSSD(c echo.Context) error {
	phoneNumber := c.FormValue("phoneNumber")
	text := c.FormValue("text")

	reply := s.deps.USSD.Respond(c.Request().Context(), phoneNumber, text)
	return c.String(http.StatusOK, reply)
}
