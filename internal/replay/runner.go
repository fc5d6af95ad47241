package replay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rewindhq/rewind/internal/models"
)

// runState tracks the runner's position in its lifecycle.
type runState int

const (
	stateIdle runState = iota
	stateRunning
	stateCompleted
	stateAborted
)

// completionMessage is reported when a run finishes without any step error.
const completionMessage = "all steps completed"

// StepExecutor executes one step; the interpreter satisfies it and tests
// substitute scripted fakes.
type StepExecutor interface {
	Execute(ctx context.Context, step models.Step) error
}

// Runner drives an ordered step list through an executor, applying the error
// policy and inter-step pacing. It never retries a step: retry-until-timeout
// lives inside selector resolution, the runner only continues or aborts.
type Runner struct {
	exec   StepExecutor
	delay  time.Duration
	logger *zap.Logger
}

// NewRunner creates a runner. delay is the inter-step pacing; pass 0 to run
// back to back.
func NewRunner(exec StepExecutor, delay time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{exec: exec, delay: delay, logger: logger.Named("runner")}
}

// Run executes the steps in order and aggregates the outcome. Under the stop
// policy the first failure aborts the run with status failed; under continue
// every step is attempted and any failure yields status partial. A run that
// somehow completes fewer steps than it was given is partial as well.
func (r *Runner) Run(ctx context.Context, steps []models.Step, policy models.ErrorPolicy) models.RunOutcome {
	total := len(steps)
	if total == 0 {
		return models.RunOutcome{
			Status:  models.RunPartial,
			Message: "no steps to execute",
		}
	}

	state := stateRunning
	start := time.Now()
	completed := 0
	anyFailed := false
	var lastErr error

	for i, step := range steps {
		err := r.exec.Execute(ctx, step)
		if err != nil {
			lastErr = err
			r.logger.Warn("step failed",
				zap.Int("index", step.Index),
				zap.String("kind", string(step.Kind)),
				zap.Error(err))
			if policy == models.PolicyStop {
				state = stateAborted
				break
			}
			// Continue policy: the step was attempted and the run moves past
			// it, so it counts toward completion.
			anyFailed = true
			completed++
		} else {
			completed++
		}

		if i < total-1 {
			if err := sleep(ctx, r.delay); err != nil {
				lastErr = err
				state = stateAborted
				break
			}
		}
	}
	if state == stateRunning {
		state = stateCompleted
	}

	status := models.RunSuccess
	switch {
	case state == stateAborted:
		status = models.RunFailed
	case anyFailed:
		status = models.RunPartial
	case completed < total:
		status = models.RunPartial
	}

	message := completionMessage
	if lastErr != nil {
		message = lastErr.Error()
	}

	return models.RunOutcome{
		Status:         status,
		CompletedSteps: completed,
		TotalSteps:     total,
		DurationMs:     time.Since(start).Milliseconds(),
		Message:        message,
	}
}
