package replay

import (
	"fmt"

	"github.com/rewindhq/rewind/internal/models"
)

// FailureKind classifies why a step could not be completed.
type FailureKind string

const (
	// FailureTargetNotFound means selector resolution timed out or the step
	// carried no selectors at all.
	FailureTargetNotFound FailureKind = "target_not_found"
	// FailureExpressionTimeout means a wait-for-expression never became
	// truthy within its timeout.
	FailureExpressionTimeout FailureKind = "expression_timeout"
	// FailureAction means the page rejected the action dispatch itself.
	FailureAction FailureKind = "action_failed"
)

// StepFailure is the typed failure raised by the interpreter. Whether it
// aborts the run is decided by the runner's error policy, not here.
type StepFailure struct {
	Kind      FailureKind
	StepIndex int
	StepKind  models.StepKind
	Detail    string
	Err       error
}

func (e *StepFailure) Error() string {
	return fmt.Sprintf("step %d (%s): %s: %s", e.StepIndex, e.StepKind, e.Kind, e.Detail)
}

func (e *StepFailure) Unwrap() error { return e.Err }

func newFailure(kind FailureKind, step models.Step, detail string, err error) *StepFailure {
	return &StepFailure{
		Kind:      kind,
		StepIndex: step.Index,
		StepKind:  step.Kind,
		Detail:    detail,
		Err:       err,
	}
}
