package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"aihub/internal/core"
)

// UsageSummary handles GET /v1/usage. The optional since query parameter is
// an RFC 3339 timestamp; without it all recorded usage is summarized.
func (h *Handler) UsageSummary(c echo.Context) error {
	var since time.Time
	if raw := c.QueryParam("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return handleError(c, core.NewInvalidRequestError("since must be an RFC 3339 timestamp", err))
		}
		since = parsed
	}

	summaries, err := h.usage.Summarize(c.Request().Context(), since)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"providers": summaries})
}
