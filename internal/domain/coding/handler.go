package coding

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/claimcoder/internal/platform/auth"
	"github.com/ehr/claimcoder/pkg/pagination"
)

// MaxBatchSize caps the encounters accepted by one batch request.
const MaxBatchSize = 100

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/coding")

	write := g.Group("", auth.RequireRole(auth.RoleCoder))
	write.POST("/evaluate", h.Evaluate)
	write.POST("/evaluate/batch", h.EvaluateBatch)

	read := g.Group("", auth.RequireRole(auth.RoleCoder, auth.RoleBiller))
	read.GET("/decisions", h.ListDecisions)
	read.GET("/decisions/:id", h.GetDecision)
	read.GET("/fee-quote", h.QuoteFee)
}

func (h *Handler) Evaluate(c echo.Context) error {
	var in EncounterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, err := h.svc.Evaluate(c.Request().Context(), in)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d.Result)
}

type batchRequest struct {
	Encounters []EncounterInput `json:"encounters"`
}

type batchResponse struct {
	Results []*DecisionTreeResult `json:"results"`
}

func (h *Handler) EvaluateBatch(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Encounters) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "encounters is required")
	}
	if len(req.Encounters) > MaxBatchSize {
		return echo.NewHTTPError(http.StatusBadRequest, "too many encounters in one batch")
	}
	decisions, err := h.svc.EvaluateBatch(c.Request().Context(), req.Encounters)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	resp := batchResponse{Results: make([]*DecisionTreeResult, 0, len(decisions))}
	for _, d := range decisions {
		resp.Results = append(resp.Results, d.Result)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetDecision(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetDecision(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrDecisionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "decision not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDecisions(c echo.Context) error {
	patientID := c.QueryParam("patient_id")
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDecisions(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// QuoteFee handles GET /coding/fee-quote?payer_id=&code=&on=
func (h *Handler) QuoteFee(c echo.Context) error {
	on := time.Now().UTC()
	if v := c.QueryParam("on"); v != "" {
		d, err := ParseServiceDate(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date for 'on'")
		}
		on = d
	}
	q, err := h.svc.QuoteFee(c.Request().Context(), c.QueryParam("payer_id"), c.QueryParam("code"), on)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, q)
}
