package drugsearch

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/funkyjh/pilllog/pkg/pagination"
)

// SearchResponse is a registry result page with paging details derived from
// the registry's total count.
type SearchResponse struct {
	Medications []MedicationInfo `json:"medications"`
	TotalCount  int              `json:"totalCount"`
	Page        int              `json:"page"`
	Limit       int              `json:"limit"`
	TotalPages  int              `json:"totalPages"`
	HasNext     bool             `json:"hasNext"`
	HasPrevious bool             `json:"hasPrevious"`
}

func newSearchResponse(r *SearchResult, p pagination.Params) SearchResponse {
	meds := r.Medications
	if meds == nil {
		meds = []MedicationInfo{}
	}
	return SearchResponse{
		Medications: meds,
		TotalCount:  r.TotalCount,
		Page:        p.Page,
		Limit:       p.Limit,
		TotalPages:  p.TotalPages(r.TotalCount),
		HasNext:     p.HasNext(r.TotalCount),
		HasPrevious: p.HasPrevious(),
	}
}

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/medications/search", h.Search)
}

func (h *Handler) Search(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "검색어가 필요합니다")
	}
	p := pagination.FromContext(c)
	typ := ParseSearchType(c.QueryParam("type"))

	result, err := h.svc.Search(c.Request().Context(), typ, query, p.Page, p.Limit)
	if err != nil {
		var regErr *RegistryError
		switch {
		case errors.Is(err, ErrEmptyQuery):
			return echo.NewHTTPError(http.StatusBadRequest, "검색어가 필요합니다")
		case errors.Is(err, ErrNotConfigured):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "약품 검색 API 키가 설정되지 않았습니다")
		case errors.As(err, &regErr):
			return echo.NewHTTPError(http.StatusBadGateway, "약품 정보를 검색하는 중 오류가 발생했습니다")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "약품 검색 중 오류가 발생했습니다")
		}
	}
	return c.JSON(http.StatusOK, newSearchResponse(result, p))
}
