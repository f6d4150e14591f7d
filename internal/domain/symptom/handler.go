package symptom

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/funkyjh/pilllog/internal/platform/auth"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
	loc *time.Location
}

// NewHandler creates a handler that renders export timestamps in loc.
func NewHandler(svc *Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{svc: svc, loc: loc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/symptoms", h.List)
	api.POST("/symptoms", h.Create)
	api.GET("/symptoms/export", h.Export)
}

func parseFilter(c echo.Context) (Filter, error) {
	var f Filter
	if v := c.QueryParam("medicationId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid medicationId")
		}
		f.MedicationID = &id
	}
	return f, nil
}

func (h *Handler) List(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	items, err := h.svc.List(ctx, auth.UserIDFromContext(ctx), f)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch symptom records")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Create(c echo.Context) error {
	var r Record
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid symptom record data")
	}
	ctx := c.Request().Context()
	r.UserID = auth.UserIDFromContext(ctx)
	r.RecordedAt = time.Time{}
	if err := h.svc.Create(ctx, &r); err != nil {
		if errors.Is(err, ErrInvalid) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create symptom record")
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Export(c echo.Context) error {
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	data, err := h.svc.ExportXLSX(ctx, auth.UserIDFromContext(ctx), f, h.loc)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to export symptom records")
	}
	name := fmt.Sprintf("symptoms-%s.xlsx", time.Now().In(h.loc).Format("20060102"))
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Blob(http.StatusOK, xlsxMIME, data)
}
