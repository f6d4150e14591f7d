package upload

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/funkyjh/pilllog/internal/platform/auth"
	"github.com/funkyjh/pilllog/internal/platform/blobstore"
)

// imageField is the multipart form field carrying the prescription photo.
const imageField = "image"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/upload", h.Upload)
	api.GET("/uploads", h.List)
	api.GET("/uploads/:id", h.Get)
	api.GET("/uploads/:id/image", h.Image)
}

func (h *Handler) Upload(c echo.Context) error {
	file, err := c.FormFile(imageField)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "No image file provided")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	ctx := c.Request().Context()
	u, err := h.svc.Accept(ctx, auth.UserIDFromContext(ctx), file.Filename, file.Header.Get(echo.HeaderContentType), src)
	switch {
	case errors.Is(err, blobstore.ErrInvalidContentType):
		return echo.NewHTTPError(http.StatusBadRequest, "Only image files are allowed")
	case errors.Is(err, blobstore.ErrEmptyContent):
		return echo.NewHTTPError(http.StatusBadRequest, "Image file is empty")
	case errors.Is(err, blobstore.ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Image exceeds the upload size limit")
	case errors.Is(err, ErrQueueFull):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Too many uploads in progress, try again shortly")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to upload image")
	}

	return c.JSON(http.StatusOK, AcceptedResponse{
		UploadID: u.ID,
		Status:   u.ProcessingStatus,
		Message:  acceptedMessage,
	})
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	items, err := h.svc.List(ctx, auth.UserIDFromContext(ctx), Status(c.QueryParam("status")))
	if errors.Is(err, ErrInvalidStatus) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch uploads")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Upload not found")
	}
	ctx := c.Request().Context()
	u, err := h.svc.Get(ctx, auth.UserIDFromContext(ctx), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Upload not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch upload status")
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Image(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Upload not found")
	}
	ctx := c.Request().Context()
	data, meta, err := h.svc.Image(ctx, auth.UserIDFromContext(ctx), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Upload not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch image")
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename=%q`, meta.FileName))
	return c.Blob(http.StatusOK, meta.ContentType, data)
}
