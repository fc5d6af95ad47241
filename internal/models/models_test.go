package models

import "testing"

func TestStepNeedsTarget(t *testing.T) {
	wantTarget := map[StepKind]bool{
		StepClick:             true,
		StepDoubleClick:       true,
		StepHover:             true,
		StepChangeValue:       true,
		StepWaitForElement:    true,
		StepNavigate:          false,
		StepKeyDown:           false,
		StepKeyUp:             false,
		StepScroll:            false, // selectors optional, falls back to the window
		StepWaitForExpression: false,
		StepSetViewport:       false,
		StepUnknown:           false,
	}
	for kind, want := range wantTarget {
		if got := (Step{Kind: kind}).NeedsTarget(); got != want {
			t.Errorf("NeedsTarget(%s) = %v, want %v", kind, got, want)
		}
	}
}
