package billing

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/claimcoder/internal/platform/auth"
	"github.com/ehr/claimcoder/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/billing")

	read := g.Group("", auth.RequireRole(auth.RoleCoder, auth.RoleBiller))
	read.GET("/payers", h.ListPayers)
	read.GET("/payers/:id", h.GetPayer)
	read.GET("/coverages", h.ListCoverages)
	read.GET("/coding-rules", h.ListCodingRules)
	read.GET("/fee-schedule", h.GetActiveFee)

	write := g.Group("", auth.RequireRole(auth.RoleBiller))
	write.PUT("/payers/:id", h.SavePayer)
	write.POST("/coverages", h.CreateCoverage)
	write.POST("/fee-schedule", h.CreateFeeScheduleEntry)
	write.PUT("/rvus/:code", h.SaveRelativeValue)
	write.POST("/coding-rules", h.CreateCodingRule)
}

// -- Payer Handlers --

func (h *Handler) SavePayer(c echo.Context) error {
	var p Payer
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = c.Param("id")
	if err := h.svc.SavePayer(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPayer(c echo.Context) error {
	p, err := h.svc.GetPayer(c.Request().Context(), c.Param("id"))
	if err != nil {
		return lookupError(err, "payer not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPayers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPayers(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Coverage Handlers --

func (h *Handler) CreateCoverage(c echo.Context) error {
	var cov Coverage
	if err := c.Bind(&cov); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateCoverage(c.Request().Context(), &cov); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, cov)
}

func (h *Handler) ListCoverages(c echo.Context) error {
	patientID := c.QueryParam("patient_id")
	if patientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListCoveragesByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Fee Schedule / RVU Handlers --

func (h *Handler) CreateFeeScheduleEntry(c echo.Context) error {
	var f FeeScheduleEntry
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateFeeScheduleEntry(c.Request().Context(), &f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, f)
}

// GetActiveFee handles GET /billing/fee-schedule?payer_id=&procedure_code=&on=
func (h *Handler) GetActiveFee(c echo.Context) error {
	payerID, code := c.QueryParam("payer_id"), c.QueryParam("procedure_code")
	if payerID == "" || code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payer_id and procedure_code are required")
	}
	on := time.Now().UTC()
	if v := c.QueryParam("on"); v != "" {
		d, err := parseDay(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date for 'on'")
		}
		on = d
	}
	f, err := h.svc.ActiveFee(c.Request().Context(), payerID, code, on)
	if err != nil {
		return lookupError(err, "no contracted rate in effect")
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) SaveRelativeValue(c echo.Context) error {
	var rv RelativeValue
	if err := c.Bind(&rv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rv.ProcedureCode = c.Param("code")
	if err := h.svc.SaveRelativeValue(c.Request().Context(), &rv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, rv)
}

// -- Coding Rule Handlers --

type codingRuleRequest struct {
	ProcedureCode    string   `json:"procedure_code"`
	RequiredPatterns []string `json:"required_patterns"`
	ExcludedPatterns []string `json:"excluded_patterns"`
	PrimaryOnly      bool     `json:"primary_only"`
	NCDReference     string   `json:"ncd_reference"`
	LCDReference     string   `json:"lcd_reference"`
	Active           *bool    `json:"active"`
}

func (h *Handler) CreateCodingRule(c echo.Context) error {
	var req codingRuleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rule := CodingRule{
		ProcedureCode:    req.ProcedureCode,
		RequiredPatterns: req.RequiredPatterns,
		ExcludedPatterns: req.ExcludedPatterns,
		PrimaryOnly:      req.PrimaryOnly,
		NCDReference:     req.NCDReference,
		LCDReference:     req.LCDReference,
		Active:           req.Active == nil || *req.Active,
	}
	if err := h.svc.CreateCodingRule(c.Request().Context(), &rule); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rule)
}

func (h *Handler) ListCodingRules(c echo.Context) error {
	code := c.QueryParam("procedure_code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "procedure_code is required")
	}
	rules, err := h.svc.CodingRules(c.Request().Context(), code)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if rules == nil {
		rules = []*CodingRule{}
	}
	return c.JSON(http.StatusOK, rules)
}

func lookupError(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, msg)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// parseDay accepts a date-only or RFC 3339 value.
func parseDay(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
