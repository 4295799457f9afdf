package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc := newTestService()
	return NewHandler(svc), svc, echo.New()
}

func TestHandler_SavePayer(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"name":"Humana Gold Plus","payer_type":"medicare advantage"}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("humana-ma")

	if err := h.SavePayer(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var p Payer
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.ID != "humana-ma" {
		t.Errorf("expected id from path, got %q", p.ID)
	}
}

func TestHandler_GetPayer_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := h.GetPayer(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_CreateCoverage(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"patient_id":"pat-9","payer_id":"aetna","period_start":"2026-01-01T00:00:00Z","prior_auth_required":true}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateCoverage(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_ListCoverages_RequiresPatient(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if err := h.ListCoverages(c); err == nil {
		t.Error("expected error without patient_id")
	}
}

func TestHandler_CreateCodingRule_DefaultsActive(t *testing.T) {
	h, svc, e := newTestHandler()
	body := `{"procedure_code":"93000","required_patterns":["I48.*"]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateCodingRule(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rules, _ := svc.CodingRules(context.Background(), "93000")
	if len(rules) != 1 || !rules[0].Active {
		t.Errorf("expected one active rule, got %+v", rules)
	}
}

func TestHandler_GetActiveFee(t *testing.T) {
	h, svc, e := newTestHandler()
	svc.CreateFeeScheduleEntry(context.Background(), &FeeScheduleEntry{
		PayerID: "aetna", ProcedureCode: "99213", Amount: 101.25, EffectiveFrom: day("2026-01-01"),
	})

	req := httptest.NewRequest(http.MethodGet, "/?payer_id=aetna&procedure_code=99213&on=2026-02-10", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.GetActiveFee(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var f FeeScheduleEntry
	json.Unmarshal(rec.Body.Bytes(), &f)
	if f.Amount != 101.25 {
		t.Errorf("expected 101.25, got %v", f.Amount)
	}

	req = httptest.NewRequest(http.MethodGet, "/?payer_id=aetna&procedure_code=99213&on=02/10/2026", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	if err := h.GetActiveFee(c); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _, e := newTestHandler()
	h.RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"GET /api/v1/billing/payers":        false,
		"PUT /api/v1/billing/payers/:id":    false,
		"POST /api/v1/billing/coverages":    false,
		"GET /api/v1/billing/fee-schedule":  false,
		"POST /api/v1/billing/coding-rules": false,
		"PUT /api/v1/billing/rvus/:code":    false,
	}
	for _, r := range e.Routes() {
		if _, ok := want[r.Method+" "+r.Path]; ok {
			want[r.Method+" "+r.Path] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("route %s not registered", route)
		}
	}
}
