// Package steps holds the research steps that fill the plan sections. Each
// step reads a state snapshot and produces a patch for exactly one section;
// steps never write shared state themselves.
package steps

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/types"
)

// Step produces the patch for one plan section from a read-only state
// snapshot. A nil patch with a nil error means the step had nothing to
// contribute.
type Step interface {
	Section() types.SectionName
	Run(ctx context.Context, st *types.State) (*types.Patch, error)
}

// FallbackPatch is the uniform degraded patch recorded when a step fails.
// Results is always an empty slice, never nil, so the section renders as an
// explicit empty list.
func FallbackPatch(section types.SectionName) *types.Patch {
	return &types.Patch{
		Summary: fmt.Sprintf("%s unavailable", section),
		Results: []types.Link{},
	}
}

// Guard wraps a step so a panic inside it surfaces as a step error instead
// of aborting the turn. Ordinary errors pass through unchanged; the caller
// decides how a failed section degrades.
type Guard struct {
	inner  Step
	logger *zap.Logger
}

// NewGuard wraps a step with panic isolation.
func NewGuard(inner Step, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		inner:  inner,
		logger: logger.With(zap.String("component", "step_guard"), zap.String("section", string(inner.Section()))),
	}
}

// Section returns the wrapped step's section.
func (g *Guard) Section() types.SectionName { return g.inner.Section() }

// Run executes the wrapped step, converting panics to typed errors.
func (g *Guard) Run(ctx context.Context, st *types.State) (patch *types.Patch, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("step panicked", zap.Any("panic", r))
			patch = nil
			err = types.NewError(types.ErrStepFailed, fmt.Sprintf("step for %s panicked", g.inner.Section()))
		}
	}()
	return g.inner.Run(ctx, st)
}
