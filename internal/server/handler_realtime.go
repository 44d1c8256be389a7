package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var realtimeTables = map[string]bool{
	"waste_reports": true,
	"orders":        true,
	"payments":      true,
	"notifications": true,
}

// handleRealtime streams change events for one table over SSE. Clients
// reconnect on their own; there is no replay.
func (s *Server) handleRealtime(c echo.Context) error {
	table := c.Param("table")
	if !realtimeTables[table] {
		return echo.NewHTTPError(http.StatusNotFound, "unknown stream")
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ctx := c.Request().Context()
	events, stop := s.deps.Subscriber.Subscribe(ctx, table)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
