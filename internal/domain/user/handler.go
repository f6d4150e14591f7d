package user

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/funkyjh/pilllog/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/user", h.Current)
}

// Current returns the user the request acts as.
func (h *Handler) Current(c echo.Context) error {
	ctx := c.Request().Context()
	u, err := h.svc.Get(ctx, auth.UserIDFromContext(ctx))
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch user")
	}
	return c.JSON(http.StatusOK, u)
}
