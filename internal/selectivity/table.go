package selectivity

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed operator_table.yaml
var defaultOperatorTableYAML []byte

// MaxTableYAMLSize bounds how large a user-supplied operator table may be,
// mirroring the teacher's config package file-size guard.
const MaxTableYAMLSize = 1 << 20 // 1 MiB

// Table is the operator cost/selectivity-factor table of spec §4.3, loaded
// from YAML. Wire-format operator names are used as map keys so the table
// can be authored and audited independently of the Go operator enum.
type Table struct {
	Cost          map[string]float64 `yaml:"cost"`
	Factor        map[string]float64 `yaml:"factor"`
	DefaultCost   float64            `yaml:"default_cost"`
	DefaultFactor float64            `yaml:"default_factor"`
}

var (
	defaultTableMu      sync.RWMutex
	defaultTableOnce    sync.Once
	cachedDefaultTable  *Table
	defaultTableLoadErr error
)

// GetDefaultTable returns the process-wide cached default Table, loading it
// from the embedded YAML on first call.
func GetDefaultTable(ctx context.Context) (*Table, error) {
	if ctx == nil {
		return nil, fmt.Errorf("GetDefaultTable: ctx must not be nil")
	}

	defaultTableMu.RLock()
	if cachedDefaultTable != nil || defaultTableLoadErr != nil {
		t, err := cachedDefaultTable, defaultTableLoadErr
		defaultTableMu.RUnlock()
		return t, err
	}
	defaultTableMu.RUnlock()

	defaultTableMu.Lock()
	defer defaultTableMu.Unlock()

	if cachedDefaultTable != nil || defaultTableLoadErr != nil {
		return cachedDefaultTable, defaultTableLoadErr
	}

	defaultTableOnce.Do(func() {
		cachedDefaultTable, defaultTableLoadErr = LoadTable(defaultOperatorTableYAML)
	})
	return cachedDefaultTable, defaultTableLoadErr
}

// ResetDefaultTable clears the cached default Table so tests can reload.
func ResetDefaultTable() {
	defaultTableMu.Lock()
	defer defaultTableMu.Unlock()
	cachedDefaultTable = nil
	defaultTableLoadErr = nil
	defaultTableOnce = sync.Once{}
}

// LoadTable parses and validates a Table from YAML bytes.
func LoadTable(data []byte) (*Table, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("LoadTable: empty YAML data")
	}
	if len(data) > MaxTableYAMLSize {
		return nil, fmt.Errorf("LoadTable: YAML data exceeds maximum size (%d > %d)", len(data), MaxTableYAMLSize)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("LoadTable: parsing YAML: %w", err)
	}

	if t.DefaultCost <= 0 {
		t.DefaultCost = 1.0
	}
	if t.DefaultFactor <= 0 {
		t.DefaultFactor = 0.50
	}
	for name, c := range t.Cost {
		if c < 1.0 {
			return nil, fmt.Errorf("LoadTable: cost[%s] = %v, must be >= 1", name, c)
		}
	}
	for name, f := range t.Factor {
		if f < 0 || f > 1.0 {
			return nil, fmt.Errorf("LoadTable: factor[%s] = %v, must be in [0,1]", name, f)
		}
	}

	slog.Debug("selectivity operator table loaded", "operators", len(t.Cost))
	return &t, nil
}

func (t *Table) cost(opName string) float64 {
	if c, ok := t.Cost[opName]; ok {
		return c
	}
	return t.DefaultCost
}

func (t *Table) factor(opName string) float64 {
	if f, ok := t.Factor[opName]; ok {
		return f
	}
	return t.DefaultFactor
}
