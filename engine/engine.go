package engine

import (
	"context"
	"sync"

	"github.com/heliosrules/helios/internal/evaluator"
	"github.com/heliosrules/helios/internal/matching"
	"github.com/heliosrules/helios/internal/model"
)

// Engine is the match/explain half of the public API: one Engine per
// published *model.EngineModel, reused across every Match/Explain/
// BatchMatch call against it (spec §4.6 "build once, evaluate many"). It
// pools per-call *evaluator.Context values instead of allocating one per
// event (spec §5 "cheap to allocate or pool per call").
type Engine struct {
	m     *model.EngineModel
	match *matching.Engine
	pool  sync.Pool
}

// New builds an Engine for m. Callers that reload models at runtime pair
// this with Handle: build a new Engine for each freshly compiled model and
// Swap it in alongside the model.
func New(m *model.EngineModel) *Engine {
	e := &Engine{m: m, match: matching.New(m)}
	e.pool.New = func() any { return evaluator.NewContext(m) }
	return e
}

// Model returns the EngineModel this Engine evaluates against.
func (e *Engine) Model() *model.EngineModel {
	return e.m
}

func (e *Engine) acquire() *evaluator.Context {
	return e.pool.Get().(*evaluator.Context)
}

func (e *Engine) release(ec *evaluator.Context) {
	e.pool.Put(ec)
}

// Match implements spec §6's `match(model, event, options) → MatchResult`.
func (e *Engine) Match(ctx context.Context, we WireEvent, opts MatchOptions) (MatchResult, error) {
	event, err := EncodeEvent(we)
	if err != nil {
		return MatchResult{}, err
	}
	ec := e.acquire()
	defer e.release(ec)
	return toWireResult(e.match.Match(ctx, ec, event, opts.toMatching())), nil
}
