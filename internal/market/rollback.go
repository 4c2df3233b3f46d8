// internal/market/rollback.go
package market

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// undoStack records compensating actions for side effects already applied
// during an operation. On failure they run in reverse order.
type undoStack struct {
	op     string
	steps  []undoStep
	logger *zap.Logger
}

type undoStep struct {
	name string
	fn   func(context.Context) error
}

func newUndoStack(op string, logger *zap.Logger) *undoStack {
	return &undoStack{op: op, logger: logger}
}

func (u *undoStack) push(name string, fn func(context.Context) error) {
	u.steps = append(u.steps, undoStep{name: name, fn: fn})
}

// do runs action and, if it succeeds, records its compensation.
func (u *undoStack) do(ctx context.Context, name string, action, undo func(context.Context) error) error {
	if err := action(ctx); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	u.push(name, undo)
	return nil
}

// unwind reverses every recorded step. It runs detached from ctx
// cancellation so a canceled caller still gets its balances restored.
func (u *undoStack) unwind(ctx context.Context, cause error) {
	if len(u.steps) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	u.logger.Warn("Rolling back operation",
		zap.String("operation", u.op),
		zap.Int("steps", len(u.steps)),
		zap.Error(cause))

	for i := len(u.steps) - 1; i >= 0; i-- {
		step := u.steps[i]
		if err := step.fn(ctx); err != nil {
			u.logger.Error("Compensation step failed",
				zap.String("operation", u.op),
				zap.String("step", step.name),
				zap.Error(err))
		}
	}
	u.steps = nil
}
