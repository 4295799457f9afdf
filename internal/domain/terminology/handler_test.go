package terminology

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func TestHandler_SearchCPT_Success(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/terminology/cpt?q=office", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SearchCPT(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var results []*CPTCode
	json.Unmarshal(rec.Body.Bytes(), &results)
	if len(results) == 0 {
		t.Error("expected results")
	}
}

func TestHandler_SearchCPT_MissingQuery(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/terminology/cpt", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.SearchCPT(c)
	if err == nil {
		t.Fatal("expected error for missing query parameter")
	}
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetCPT_Success(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	c.SetParamValues("99214")

	if err := h.GetCPT(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var code CPTCode
	json.Unmarshal(rec.Body.Bytes(), &code)
	if code.Code != "99214" || !code.Active {
		t.Errorf("unexpected code: %+v", code)
	}
}

func TestHandler_GetCPT_NotFound(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	c.SetParamValues("00000")

	err := h.GetCPT(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_SearchICD10_Success(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/terminology/icd10?q=hypertension", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SearchICD10(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetICD10_NotFound(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("code")
	c.SetParamValues("Q99.9")

	err := h.GetICD10(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, e := newTestHandler()
	h.RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"GET /api/v1/terminology/cpt":         false,
		"GET /api/v1/terminology/cpt/:code":   false,
		"GET /api/v1/terminology/icd10":       false,
		"GET /api/v1/terminology/icd10/:code": false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		if !found {
			t.Errorf("route %s not registered", route)
		}
	}
}

func TestGetLimit(t *testing.T) {
	e := echo.New()
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=500", 100},
		{"limit=abc", 20},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		if got := getLimit(c); got != tt.want {
			t.Errorf("getLimit(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
