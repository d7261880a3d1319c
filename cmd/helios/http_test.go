package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

const httpTestSource = `[
	{"rule_code": "R1", "priority": 50, "conditions": [
		{"field": "country", "operator": "EQUAL_TO", "value": "US"},
		{"field": "amount", "operator": "GREATER_THAN", "value": 1000}
	]}
]`

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, h)
	return router
}

func doRequest(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_HealthAlwaysOK(t *testing.T) {
	router := newTestRouter(NewHandlers())
	rec := doRequest(router, http.MethodGet, "/v1/helios/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHTTP_ReadyBeforeAndAfterCompile(t *testing.T) {
	router := newTestRouter(NewHandlers())

	rec := doRequest(router, http.MethodGet, "/v1/helios/ready", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready before compile = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	compileRec := doRequest(router, http.MethodPost, "/v1/helios/compile", []byte(httpTestSource))
	if compileRec.Code != http.StatusOK {
		t.Fatalf("compile status = %d, body = %s", compileRec.Code, compileRec.Body.String())
	}

	rec = doRequest(router, http.MethodGet, "/v1/helios/ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ready after compile = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHTTP_MatchBeforeCompileIsUnavailable(t *testing.T) {
	router := newTestRouter(NewHandlers())
	rec := doRequest(router, http.MethodPost, "/v1/helios/match", []byte(`{"event":{"attributes":{}}}`))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("match before compile = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHTTP_CompileThenMatch(t *testing.T) {
	router := newTestRouter(NewHandlers())

	compileRec := doRequest(router, http.MethodPost, "/v1/helios/compile", []byte(httpTestSource))
	if compileRec.Code != http.StatusOK {
		t.Fatalf("compile status = %d, body = %s", compileRec.Code, compileRec.Body.String())
	}

	matchBody := []byte(`{"event":{"attributes":{"country":"US","amount":5000}},"strategy":"ALL_MATCHES"}`)
	matchRec := doRequest(router, http.MethodPost, "/v1/helios/match", matchBody)
	if matchRec.Code != http.StatusOK {
		t.Fatalf("match status = %d, body = %s", matchRec.Code, matchRec.Body.String())
	}

	var resp struct {
		MatchedRules []struct {
			RuleCode string `json:"rule_code"`
		} `json:"matched_rules"`
	}
	if err := json.Unmarshal(matchRec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode match response: %v", err)
	}
	if len(resp.MatchedRules) != 1 || resp.MatchedRules[0].RuleCode != "R1" {
		t.Fatalf("matched rules = %+v, want [R1]", resp.MatchedRules)
	}
}

func TestHTTP_ExplainUnknownRuleIsNotFound(t *testing.T) {
	router := newTestRouter(NewHandlers())
	doRequest(router, http.MethodPost, "/v1/helios/compile", []byte(httpTestSource))

	rec := doRequest(router, http.MethodGet, "/v1/helios/explain?rule_code=NOPE&event="+`{"attributes":{}}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("explain unknown rule = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHTTP_CompileRejectsMalformedSource(t *testing.T) {
	router := newTestRouter(NewHandlers())
	rec := doRequest(router, http.MethodPost, "/v1/helios/compile", []byte(`not json`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("compile malformed source = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
