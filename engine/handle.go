package engine

import (
	"sync/atomic"

	"github.com/heliosrules/helios/internal/model"
)

// Handle is SPEC_FULL §4.9's model reload helper: the in-core half of spec
// §5's publication contract. It holds the current *model.EngineModel
// behind an atomic.Pointer, so Load never blocks a concurrent Swap and
// vice versa (release/acquire semantics, spec §5 "swaps the reference").
// The background reloader that decides when to recompile and calls Swap
// is the out-of-scope supervisor of spec §1; Handle supplies only the
// atomic reference it swaps.
type Handle struct {
	p atomic.Pointer[model.EngineModel]
}

// NewHandle returns a Handle, optionally pre-loaded with m. A nil m leaves
// the Handle empty; Load returns nil until the first Swap.
func NewHandle(m *model.EngineModel) *Handle {
	h := &Handle{}
	if m != nil {
		h.p.Store(m)
	}
	return h
}

// Load returns the currently published model, or nil if none has been
// published yet.
func (h *Handle) Load() *model.EngineModel {
	return h.p.Load()
}

// Swap atomically installs next as the current model and returns the
// model it replaced (nil on the first call).
func (h *Handle) Swap(next *model.EngineModel) *model.EngineModel {
	return h.p.Swap(next)
}
