// Package ruledef implements the declarative rule-source wire format
// (spec §6) and its parsing into in-memory RuleDefinitions, prior to any
// validation or canonicalization.
package ruledef

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/heliosrules/helios/internal/valuetype"
)

// Condition is a raw (field, operator, value) triple as authored, before
// canonicalization.
type Condition struct {
	Field    string
	Operator string
	Value    valuetype.Value
	// HasValue is true when the condition carried a non-null "value". An
	// explicit JSON null and an omitted value both leave it false, with
	// Value set to valuetype.Null.
	HasValue bool
}

// RuleDefinition is a declarative rule as authored: a code, optional
// metadata, and a conjunction of conditions.
type RuleDefinition struct {
	RuleCode    string
	Description string
	Priority    int
	Enabled     bool
	Conditions  []Condition
	// ConditionsWereNull distinguishes an explicit JSON null "conditions"
	// (rejected by the validator) from an omitted or empty list (accepted:
	// a rule with no conditions matches every event, per spec §4.1).
	ConditionsWereNull bool
	Tags               []string
	Labels             map[string]any
}

// wireCondition mirrors the JSON shape of one condition in spec §6.
type wireCondition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// wireRule mirrors the JSON shape of one rule in spec §6. Conditions is
// decoded as raw JSON rather than *[]wireCondition: a pointer field cannot
// distinguish an omitted "conditions" key from an explicit JSON null, since
// encoding/json sets both to nil.
type wireRule struct {
	RuleCode    string          `json:"rule_code"`
	Description string          `json:"description"`
	Priority    *int            `json:"priority"`
	Enabled     *bool           `json:"enabled"`
	Conditions  json.RawMessage `json:"conditions"`
	Tags        []string        `json:"tags"`
	Labels      map[string]any  `json:"labels"`
}

// DefaultPriority is used when a rule omits "priority".
const DefaultPriority = 0

// ParseSource parses a rule-source document, auto-detecting between a JSON
// array of rules and newline-delimited JSON (JSONL), per spec §6. It
// performs no semantic validation — that is internal/validator's job —
// beyond what is required to produce a well-typed RuleDefinition: malformed
// JSON, or a condition whose "value" is a JSON type valuetype cannot
// represent, is reported as a parse error.
func ParseSource(r io.Reader) ([]RuleDefinition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ruledef: reading source: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var wireRules []wireRule
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &wireRules); err != nil {
			return nil, fmt.Errorf("ruledef: parsing JSON array: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(trimmed))
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var wr wireRule
			if err := json.Unmarshal([]byte(line), &wr); err != nil {
				return nil, fmt.Errorf("ruledef: parsing JSONL line %d: %w", lineNo, err)
			}
			wireRules = append(wireRules, wr)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("ruledef: scanning JSONL: %w", err)
		}
	}

	out := make([]RuleDefinition, 0, len(wireRules))
	for i, wr := range wireRules {
		rd, err := fromWire(wr)
		if err != nil {
			return nil, fmt.Errorf("ruledef: rule[%d]: %w", i, err)
		}
		out = append(out, rd)
	}
	return out, nil
}

func fromWire(wr wireRule) (RuleDefinition, error) {
	rd := RuleDefinition{
		RuleCode:    wr.RuleCode,
		Description: wr.Description,
		Priority:    DefaultPriority,
		Enabled:     true,
		Tags:        wr.Tags,
		Labels:      wr.Labels,
	}
	if wr.Priority != nil {
		rd.Priority = *wr.Priority
	}
	if wr.Enabled != nil {
		rd.Enabled = *wr.Enabled
	}

	if len(wr.Conditions) == 0 {
		// Key genuinely absent from the JSON object: accepted, the rule
		// matches every event (spec §4.1).
		return rd, nil
	}
	if bytes.Equal(bytes.TrimSpace(wr.Conditions), []byte("null")) {
		rd.ConditionsWereNull = true
		return rd, nil
	}

	var conditions []wireCondition
	if err := json.Unmarshal(wr.Conditions, &conditions); err != nil {
		return RuleDefinition{}, fmt.Errorf("conditions: %w", err)
	}

	rd.Conditions = make([]Condition, 0, len(conditions))
	for i, wc := range conditions {
		cond := Condition{Field: wc.Field, Operator: wc.Operator}
		if wc.Value != nil {
			v, err := valuetype.FromJSON(wc.Value)
			if err != nil {
				return RuleDefinition{}, fmt.Errorf("condition[%d]: %w", i, err)
			}
			cond.Value = v
			cond.HasValue = true
		} else {
			cond.Value = valuetype.Null
		}
		rd.Conditions = append(rd.Conditions, cond)
	}

	return rd, nil
}
