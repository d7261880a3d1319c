package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/heliosrules/helios/internal/model"
	"github.com/heliosrules/helios/internal/ruledef"
)

// CompileStrategy selects how the FACTORIZE stage (spec §4.2) runs. It is
// the "strategy" parameter of spec §6's `compile(rule_source, strategy)`:
// factorization never changes match semantics (spec §8 property 6), so the
// only thing a strategy can meaningfully vary is whether it runs at all.
type CompileStrategy int

const (
	// FactorizeAuto runs the IS_ANY_OF factorizer (the default).
	FactorizeAuto CompileStrategy = iota
	// FactorizeDisabled skips it; see model.BuildOptions.DisableFactorization.
	FactorizeDisabled
)

// CompileOptions configures Compile.
type CompileOptions struct {
	Strategy CompileStrategy
}

// Compile implements spec §6's `compile(rule_source, strategy) →
// EngineModel | CompilationError`: it parses a rule-source document (JSON
// array or JSONL, auto-detected) and runs it through the full compile
// state machine (spec §4.7), returning a frozen *model.EngineModel or an
// aggregated error. Warnings (contradictions, zero-combination rules) are
// returned alongside a successful model, never as an error.
func Compile(ctx context.Context, source io.Reader, opts CompileOptions) (*model.EngineModel, []model.Warning, error) {
	rawRules, err := ruledef.ParseSource(source)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: compile: %w", err)
	}

	buildOpts := model.BuildOptions{DisableFactorization: opts.Strategy == FactorizeDisabled}
	m, warnings, err := model.BuildWithOptions(ctx, rawRules, buildOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: compile: %w", err)
	}
	return m, warnings, nil
}
