package terminology

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/claimcoder/internal/platform/auth"
)

// Handler provides REST endpoints for terminology services.
type Handler struct {
	svc *Service
}

// NewHandler creates a new terminology handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers terminology routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/terminology", auth.RequireRole(auth.RoleAdmin, auth.RoleCoder, auth.RoleBiller))
	g.GET("/cpt", h.SearchCPT)
	g.GET("/cpt/:code", h.GetCPT)
	g.GET("/icd10", h.SearchICD10)
	g.GET("/icd10/:code", h.GetICD10)
}

func getLimit(c echo.Context) int {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}

// SearchICD10 handles GET /api/v1/terminology/icd10?q=...
func (h *Handler) SearchICD10(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	results, err := h.svc.SearchICD10(c.Request().Context(), query, getLimit(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

// GetICD10 handles GET /api/v1/terminology/icd10/:code
func (h *Handler) GetICD10(c echo.Context) error {
	code, err := h.svc.LookupICD10(c.Request().Context(), c.Param("code"))
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, code)
}

// SearchCPT handles GET /api/v1/terminology/cpt?q=...
func (h *Handler) SearchCPT(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}
	results, err := h.svc.SearchCPT(c.Request().Context(), query, getLimit(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}

// GetCPT handles GET /api/v1/terminology/cpt/:code
func (h *Handler) GetCPT(c echo.Context) error {
	code, err := h.svc.LookupCPT(c.Request().Context(), c.Param("code"))
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, code)
}

func lookupError(err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "code not found")
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
