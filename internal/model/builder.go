package model

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/heliosrules/helios/internal/encoding"
	"github.com/heliosrules/helios/internal/expander"
	"github.com/heliosrules/helios/internal/factorizer"
	"github.com/heliosrules/helios/internal/invindex"
	"github.com/heliosrules/helios/internal/predicate"
	"github.com/heliosrules/helios/internal/ruledef"
	"github.com/heliosrules/helios/internal/selectivity"
	"github.com/heliosrules/helios/internal/validator"
)

var buildTracer = otel.Tracer("helios.internal.model")

var (
	buildDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "helios",
		Subsystem: "model",
		Name:      "build_duration_seconds",
		Help:      "Wall-clock duration of a full EngineModel build.",
		Buckets:   prometheus.DefBuckets,
	})
	buildDedupRate = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "helios",
		Subsystem: "model",
		Name:      "dedup_rate",
		Help:      "1 - unique_combinations/total_expanded_combinations for the most recent build.",
	})
	buildCombinations = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "helios",
		Subsystem: "model",
		Name:      "combinations",
		Help:      "Unique combinations registered in the most recent build.",
	})
)

// Warning is a non-fatal finding surfaced during Build: validator
// contradictions (tier-tagged) plus builder-level findings such as a rule
// that produced zero combinations.
type Warning struct {
	RuleCode string
	Message  string
}

// BuildOptions configures a Build call. The zero value runs the full
// compile state machine of spec §4.7.
type BuildOptions struct {
	// DisableFactorization skips the FACTORIZE stage's grouping pass (spec
	// §4.2), leaving every rule as its own expansion unit. Factorization
	// never changes match semantics (spec §8 property 6) or final
	// combination counts, since the builder's own structural interning
	// would deduplicate identical combinations regardless; disabling it
	// only trades peak transient expansion memory for a simpler compile,
	// useful for diagnosing how much a rule set benefits from it.
	DisableFactorization bool
}

// Build runs spec §4.7's compile state machine from VALIDATE through READY
// with default options (the LOAD stage — parsing the rule-source bytes —
// is the caller's job; see ruledef.ParseSource and engine.Compile) and
// returns a frozen *EngineModel, or aborts with an aggregated error if
// validation fails (spec §4.4 "Failure semantics").
func Build(ctx context.Context, rawRules []ruledef.RuleDefinition) (*EngineModel, []Warning, error) {
	return BuildWithOptions(ctx, rawRules, BuildOptions{})
}

// BuildWithOptions is Build with explicit BuildOptions.
func BuildWithOptions(ctx context.Context, rawRules []ruledef.RuleDefinition, opts BuildOptions) (*EngineModel, []Warning, error) {
	ctx, span := buildTracer.Start(ctx, "model.Build")
	defer span.End()
	start := time.Now()

	buildID := uuid.NewString()
	slog.Info("model build starting", "build_id", buildID, "input_rules", len(rawRules))

	// VALIDATE
	vr, err := validator.Validate(rawRules)
	if err != nil {
		span.SetAttributes(attribute.Bool("ok", false))
		slog.Error("model build aborted", "build_id", buildID, "error", err)
		return nil, nil, fmt.Errorf("model: validate: %w", err)
	}
	var warnings []Warning
	for _, w := range vr.Warnings {
		warnings = append(warnings, Warning{RuleCode: w.RuleCode, Message: w.Message})
	}

	// FACTORIZE
	var units []factorizer.Unit
	if opts.DisableFactorization {
		units = factorizer.FactorizeDisabled(vr.Rules)
	} else {
		units = factorizer.Factorize(vr.Rules)
	}

	// ENCODE_DICTS
	dicts := encoding.Encode(units)

	// PROFILE_SELECTIVITY
	profile, err := selectivity.BuildDefault(ctx, vr.Rules)
	if err != nil {
		return nil, nil, fmt.Errorf("model: selectivity profile: %w", err)
	}

	// EXPAND_AND_INTERN
	branches := expander.Expand(units, dicts, profile)
	b := newBuilderState(len(branches))
	// totalExpanded counts one combination per owning rule, so a branch the
	// factorizer shared between rules counts once for each of them.
	totalExpanded := 0
	for _, br := range branches {
		b.internBranch(br)
		totalExpanded += len(br.RuleCodes)
	}

	ruleMeta := make(map[string]RuleMeta, len(vr.Rules))
	for _, r := range vr.Rules {
		ruleMeta[r.RuleCode] = RuleMeta{Priority: r.Priority, Description: r.Description, Tags: r.Tags, Labels: r.Labels}
	}
	combinationRules := make(map[CombinationID][]string)
	for ruleCode, combos := range b.ruleCombinations {
		for _, c := range combos {
			combinationRules[c] = append(combinationRules[c], ruleCode)

			cur, ok := b.combinationOwner[c]
			meta := ruleMeta[ruleCode]
			if !ok || meta.Priority > cur.Priority || (meta.Priority == cur.Priority && ruleCode < cur.RuleCode) {
				b.combinationOwner[c] = CombinationOwner{RuleCode: ruleCode, Priority: meta.Priority}
			}
		}
	}
	for c, codes := range combinationRules {
		sort.Strings(codes)
		combinationRules[c] = codes
	}

	// A unit whose own signature survived validation/factorization but
	// produced zero surviving branches (e.g. a factorizer-merged union
	// whose owner-intersection was empty for every product, spec §9 open
	// question 1) never appears in ruleCombinations; warn once per such
	// rule, not fail the build.
	var dropped []string
	for _, r := range vr.Rules {
		if r.Blocked || !r.Enabled {
			continue
		}
		if len(b.ruleCombinations[r.RuleCode]) == 0 {
			dropped = append(dropped, r.RuleCode)
			msg := "rule produced zero combinations"
			warnings = append(warnings, Warning{RuleCode: r.RuleCode, Message: msg})
			slog.Warn(msg, "build_id", buildID, "rule_code", r.RuleCode)
		}
	}
	sort.Strings(dropped)

	// INDEX_AND_FREEZE
	perField := make(map[int32][]predicate.ID)
	for id, p := range b.predicates {
		perField[p.FieldID] = append(perField[p.FieldID], predicate.ID(id))
	}

	sortedPredicates := make([]predicate.ID, len(b.predicates))
	for i := range sortedPredicates {
		sortedPredicates[i] = predicate.ID(i)
	}
	sort.Slice(sortedPredicates, func(i, j int) bool {
		return b.predicates[sortedPredicates[i]].Weight < b.predicates[sortedPredicates[j]].Weight
	})

	fieldMinWeight := make(map[int32]float64, len(perField))
	for fieldID, ids := range perField {
		min := b.predicates[ids[0]].Weight
		for _, id := range ids[1:] {
			if w := b.predicates[id].Weight; w < min {
				min = w
			}
		}
		fieldMinWeight[fieldID] = min
	}

	b.index.Freeze()

	ruleCodesSorted := make([]string, 0, len(ruleMeta))
	for code := range ruleMeta {
		ruleCodesSorted = append(ruleCodesSorted, code)
	}
	sort.Strings(ruleCodesSorted)

	elapsed := time.Since(start)
	uniqueCombinations := len(b.combinationPredicates)
	dedupRate := 0.0
	if totalExpanded > 0 {
		dedupRate = 1 - float64(uniqueCombinations)/float64(totalExpanded)
	}

	stats := Stats{
		BuildID:                   buildID,
		UniqueCombinations:        uniqueCombinations,
		TotalExpandedCombinations: totalExpanded,
		TotalPredicates:           len(b.predicates),
		CompilationTimeNs:         elapsed.Nanoseconds(),
		DeduplicationRate:         dedupRate,
		LogicalRules:              len(ruleCodesSorted),
		DroppedRuleCodes:          dropped,
		Warnings:                  len(warnings),
	}

	buildDurationSeconds.Observe(elapsed.Seconds())
	buildDedupRate.Set(dedupRate)
	buildCombinations.Set(float64(uniqueCombinations))

	span.SetAttributes(
		attribute.Bool("ok", true),
		attribute.Int("unique_combinations", uniqueCombinations),
		attribute.Int("total_predicates", len(b.predicates)),
		attribute.Int("logical_rules", len(ruleCodesSorted)),
		attribute.Int("warnings", len(warnings)),
	)

	// READY
	slog.Info("model build ready", "build_id", buildID, "unique_combinations", uniqueCombinations,
		"total_predicates", len(b.predicates), "dedup_rate", dedupRate, "duration", elapsed)

	m := &EngineModel{
		Fields:                dicts.Fields,
		Values:                dicts.Values,
		predicates:            b.predicates,
		perField:              perField,
		combinationPredicates: b.combinationPredicates,
		predicateCounts:       b.predicateCounts,
		index:                 b.index,
		ruleCombinations:      b.ruleCombinations,
		combinationRules:      combinationRules,
		combinationOwner:      b.combinationOwner,
		ruleMeta:              ruleMeta,
		ruleCodesSorted:       ruleCodesSorted,
		sortedPredicates:      sortedPredicates,
		fieldMinWeight:        fieldMinWeight,
		stats:                 stats,
	}
	return m, warnings, nil
}

// builderState is the mutable scratch state used only during
// EXPAND_AND_INTERN; it is discarded once Build assembles the frozen
// EngineModel.
type builderState struct {
	predicates   []predicate.Predicate
	predicateKey map[uint64][]predicate.ID // Key() -> candidate ids, collision bucket

	combinationPredicates [][]predicate.ID
	predicateCounts       []int
	combinationKey        map[uint64][]CombinationID // sorted-id-slice hash -> candidate combination ids

	index *invindex.Index

	ruleCombinations map[string][]CombinationID
	ruleComboSeen    map[string]map[CombinationID]struct{} // dedupes a rule listing the same combination twice
	combinationOwner map[CombinationID]CombinationOwner
}

func newBuilderState(expectedBranches int) *builderState {
	return &builderState{
		predicateKey:     make(map[uint64][]predicate.ID),
		combinationKey:   make(map[uint64][]CombinationID, expectedBranches),
		index:            invindex.NewBuilder(0),
		ruleCombinations: make(map[string][]CombinationID),
		ruleComboSeen:    make(map[string]map[CombinationID]struct{}),
		combinationOwner: make(map[CombinationID]CombinationOwner, expectedBranches),
	}
}

// internPredicate assigns p a dense predicate.ID, deduplicating by
// structural equality (spec §3 "Predicate" equality; spec §4.4
// "Interning").
func (b *builderState) internPredicate(p predicate.Predicate) predicate.ID {
	key := p.Key()
	for _, id := range b.predicateKey[key] {
		if b.predicates[id].Equal(p) {
			return id
		}
	}
	id := predicate.ID(len(b.predicates))
	b.predicates = append(b.predicates, p)
	b.predicateKey[key] = append(b.predicateKey[key], id)
	b.index.Grow(len(b.predicates))
	return id
}

// internCombination assigns a dense combination_id to the ascending-sorted
// predicate id set ids, deduplicating equal sets (spec §3 "Combination"
// invariant (i); spec §8 property 1).
func (b *builderState) internCombination(ids []predicate.ID) CombinationID {
	key := hashIDs(ids)
	for _, c := range b.combinationKey[key] {
		if idsEqual(b.combinationPredicates[c], ids) {
			return c
		}
	}
	c := CombinationID(len(b.combinationPredicates))
	b.combinationPredicates = append(b.combinationPredicates, ids)
	b.predicateCounts = append(b.predicateCounts, len(ids))
	b.combinationKey[key] = append(b.combinationKey[key], c)
	for _, p := range ids {
		b.index.Add(p, c)
	}
	return c
}

// internBranch interns every predicate of br, interns the resulting
// combination, and records the rule_code -> combination_id forward
// mapping for every owning rule code.
func (b *builderState) internBranch(br expander.Branch) {
	ids := make([]predicate.ID, len(br.Predicates))
	for i, p := range br.Predicates {
		ids[i] = b.internPredicate(p)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	c := b.internCombination(ids)

	for _, ruleCode := range br.RuleCodes {
		seen := b.ruleComboSeen[ruleCode]
		if seen == nil {
			seen = make(map[CombinationID]struct{})
			b.ruleComboSeen[ruleCode] = seen
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		b.ruleCombinations[ruleCode] = append(b.ruleCombinations[ruleCode], c)
	}
}

func hashIDs(ids []predicate.ID) uint64 {
	h := xxhash.New()
	var buf [4]byte
	for _, id := range ids {
		binary.LittleEndian.PutUint32(buf[:], uint32(id))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func idsEqual(a, b []predicate.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
