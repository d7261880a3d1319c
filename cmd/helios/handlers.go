package main

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/heliosrules/helios/engine"
	"github.com/heliosrules/helios/internal/model"
)

// Handlers is the HTTP demo adapter of SPEC_FULL §6.1: a thin gin layer
// over one engine.Handle, mirroring the teacher's services/trace.Handlers
// shape. It holds its own engine.Engine pointer alongside the Handle's
// model, rebuilt together on every successful /compile.
type Handlers struct {
	handle *engine.Handle
	eng    atomic.Pointer[engine.Engine]
}

// NewHandlers returns an empty Handlers; no model is loaded until the
// first POST /compile.
func NewHandlers() *Handlers {
	return &Handlers{handle: engine.NewHandle(nil)}
}

// NewHandlersWithModel pre-loads m, as cmd/helios serve does from its
// startup file-path argument.
func NewHandlersWithModel(m *model.EngineModel) *Handlers {
	h := &Handlers{handle: engine.NewHandle(m)}
	h.eng.Store(engine.New(m))
	return h
}

func (h *Handlers) current() *engine.Engine {
	return h.eng.Load()
}

// HandleCompile implements POST /v1/helios/compile: body is a rule source
// document, response is model.stats().
func (h *Handlers) HandleCompile(c *gin.Context) {
	m, warnings, err := engine.Compile(c.Request.Context(), c.Request.Body, engine.CompileOptions{})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.handle.Swap(m)
	h.eng.Store(engine.New(m))

	c.JSON(http.StatusOK, gin.H{
		"stats":    m.Stats(),
		"warnings": warnings,
	})
}

// HandleMatch implements POST /v1/helios/match.
func (h *Handlers) HandleMatch(c *gin.Context) {
	e := h.current()
	if e == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": engine.ErrModelRequired.Error()})
		return
	}

	var req struct {
		Event      engine.WireEvent  `json:"event"`
		TraceLevel engine.TraceLevel `json:"trace_level"`
		Strategy   engine.Strategy   `json:"strategy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := e.Match(c.Request.Context(), req.Event, engine.MatchOptions{
		TraceLevel: req.TraceLevel,
		Strategy:   req.Strategy,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleExplain implements GET /v1/helios/explain?rule_code=...&event=<json>.
func (h *Handlers) HandleExplain(c *gin.Context) {
	e := h.current()
	if e == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": engine.ErrModelRequired.Error()})
		return
	}

	ruleCode := c.Query("rule_code")
	if ruleCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rule_code is required"})
		return
	}

	var we engine.WireEvent
	if err := json.Unmarshal([]byte(c.Query("event")), &we); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event: " + err.Error()})
		return
	}

	result, err := e.Explain(c.Request.Context(), ruleCode, we)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleHealth implements GET /v1/helios/health: liveness, always ok.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady implements GET /v1/helios/ready: readiness, ok only once a
// model has been published.
func (h *Handlers) HandleReady(c *gin.Context) {
	if h.current() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no model loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
