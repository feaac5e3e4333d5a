package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"aihub/internal/core"
	"aihub/internal/settings"
)

// settingResponse is a stored setting with its API key masked.
type settingResponse struct {
	settings.Setting
	APIKey string `json:"api_key"`
}

func toSettingResponse(s settings.Setting) settingResponse {
	return settingResponse{Setting: s, APIKey: maskKey(s.APIKey)}
}

// maskKey keeps the last four characters of keys long enough to hide the rest.
func maskKey(key string) string {
	if len(key) <= 8 {
		if key == "" {
			return ""
		}
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// ListSettings handles GET /v1/settings/providers
func (h *Handler) ListSettings(c echo.Context) error {
	list, err := h.settings.List(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}

	out := make([]settingResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toSettingResponse(s))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"settings": out})
}

// GetSetting handles GET /v1/settings/providers/:type
func (h *Handler) GetSetting(c echo.Context) error {
	t := core.ProviderType(c.Param("type"))
	s, err := h.settings.Get(c.Request().Context(), t)
	if errors.Is(err, settings.ErrNotFound) {
		return handleError(c, core.NewConfigurationError("no stored settings for provider: "+string(t)))
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, toSettingResponse(*s))
}

// SaveSetting handles PUT /v1/settings/providers/:type. Enabled settings are
// applied to the running registry; disabled ones remove the provider.
func (h *Handler) SaveSetting(c echo.Context) error {
	var s settings.Setting
	if err := c.Bind(&s); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	s.Type = core.ProviderType(c.Param("type"))

	ctx := c.Request().Context()
	if err := h.settings.Save(ctx, s); err != nil {
		return handleError(c, err)
	}

	if h.applier != nil {
		if s.Enabled {
			if err := h.applier.Apply(s.ProviderConfig()); err != nil {
				return handleError(c, err)
			}
		} else {
			h.applier.Remove(s.Type)
		}
	}

	saved, err := h.settings.Get(ctx, s.Type)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, toSettingResponse(*saved))
}

// DeleteSetting handles DELETE /v1/settings/providers/:type
func (h *Handler) DeleteSetting(c echo.Context) error {
	t := core.ProviderType(c.Param("type"))
	if err := h.settings.Delete(c.Request().Context(), t); err != nil {
		return handleError(c, err)
	}
	if h.applier != nil {
		h.applier.Remove(t)
	}
	return c.NoContent(http.StatusNoContent)
}
