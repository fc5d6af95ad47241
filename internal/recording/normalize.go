// Package recording converts third-party browser recordings into the
// canonical step model.
package recording

import (
	"encoding/json"
	"fmt"

	"github.com/rewindhq/rewind/internal/models"
)

// ValidationReason classifies why a recording was rejected.
type ValidationReason string

const (
	// ReasonMalformedDocument means the input is not an object, has no step
	// array, or the step array is empty.
	ReasonMalformedDocument ValidationReason = "malformed_document"
	// ReasonMissingKind means an action carries no kind discriminator.
	ReasonMissingKind ValidationReason = "missing_kind"
)

// ValidationError rejects a recording at import time. A run never starts
// from an invalid document.
type ValidationError struct {
	Reason ValidationReason
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid recording (%s): %s", e.Reason, e.Detail)
}

// Document is the normalized form of an imported recording.
type Document struct {
	Title    string
	StartURL string
	Steps    []models.Step
}

// rawDocument mirrors the import boundary schema: {title?, steps: Action[]}.
type rawDocument struct {
	Title string            `json:"title"`
	Steps []json.RawMessage `json:"steps"`
}

// rawAction is the tolerant view of one recorded action. Selectors and
// numeric fields vary by source tool, so they are decoded loosely.
type rawAction struct {
	Type       string          `json:"type"`
	Selectors  json.RawMessage `json:"selectors"`
	Value      string          `json:"value"`
	Key        string          `json:"key"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	OffsetX    float64         `json:"offsetX"`
	OffsetY    float64         `json:"offsetY"`
	URL        string          `json:"url"`
	Expression string          `json:"expression"`
	Timeout    int             `json:"timeout"`
}

// kindFor maps recorder action types onto canonical step kinds. Both the
// camelCase names emitted by DevTools-style recorders and the canonical
// hyphenated names round-trip.
var kindFor = map[string]models.StepKind{
	"navigate":            models.StepNavigate,
	"click":               models.StepClick,
	"doubleClick":         models.StepDoubleClick,
	"double-click":        models.StepDoubleClick,
	"change":              models.StepChangeValue,
	"change-value":        models.StepChangeValue,
	"keyDown":             models.StepKeyDown,
	"key-down":            models.StepKeyDown,
	"keyUp":               models.StepKeyUp,
	"key-up":              models.StepKeyUp,
	"scroll":              models.StepScroll,
	"hover":               models.StepHover,
	"waitForElement":      models.StepWaitForElement,
	"wait-for-element":    models.StepWaitForElement,
	"waitForExpression":   models.StepWaitForExpression,
	"wait-for-expression": models.StepWaitForExpression,
	"setViewport":         models.StepSetViewport,
	"set-viewport":        models.StepSetViewport,
}

// Normalize validates a raw recording document and converts it into an
// ordered canonical step list. Unknown action types are retained verbatim
// (kind "unknown", original payload in Raw) so later tooling stays lossless;
// they are never a validation failure.
func Normalize(raw []byte) (*Document, error) {
	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ValidationError{Reason: ReasonMalformedDocument, Detail: err.Error()}
	}
	if len(doc.Steps) == 0 {
		return nil, &ValidationError{Reason: ReasonMalformedDocument, Detail: "recording contains no actions"}
	}

	steps := make([]models.Step, 0, len(doc.Steps))
	for i, rawStep := range doc.Steps {
		var action rawAction
		if err := json.Unmarshal(rawStep, &action); err != nil {
			return nil, &ValidationError{
				Reason: ReasonMalformedDocument,
				Detail: fmt.Sprintf("action %d: %v", i, err),
			}
		}
		if action.Type == "" {
			return nil, &ValidationError{
				Reason: ReasonMissingKind,
				Detail: fmt.Sprintf("action %d has no type", i),
			}
		}

		step := models.Step{
			Index:      i,
			Value:      action.Value,
			Key:        action.Key,
			URL:        action.URL,
			Expression: action.Expression,
			TimeoutMs:  action.Timeout,
			Selectors:  normalizeSelectors(action.Selectors),
		}
		step.X, step.Y = action.X, action.Y
		if step.X == 0 && step.Y == 0 {
			step.X, step.Y = action.OffsetX, action.OffsetY
		}

		kind, ok := kindFor[action.Type]
		if !ok {
			// Flagged, not fatal: the interpreter treats these as no-ops.
			step.Kind = models.StepUnknown
			step.Raw = append(json.RawMessage(nil), rawStep...)
		} else {
			step.Kind = kind
		}
		steps = append(steps, step)
	}

	out := &Document{Title: doc.Title, Steps: steps}
	for _, s := range steps {
		if s.Kind == models.StepNavigate && s.URL != "" {
			out.StartURL = s.URL
			break
		}
	}
	return out, nil
}

// normalizeSelectors accepts both shapes recorders emit, a flat list of
// descriptors or a nested list of alternative groups, and returns the
// canonical group-of-alternatives form.
func normalizeSelectors(raw json.RawMessage) [][]string {
	if len(raw) == 0 {
		return nil
	}

	var nested [][]string
	if err := json.Unmarshal(raw, &nested); err == nil {
		groups := make([][]string, 0, len(nested))
		for _, g := range nested {
			if len(g) > 0 {
				groups = append(groups, g)
			}
		}
		if len(groups) == 0 {
			return nil
		}
		return groups
	}

	var flat []string
	if err := json.Unmarshal(raw, &flat); err == nil {
		groups := make([][]string, 0, len(flat))
		for _, s := range flat {
			if s != "" {
				groups = append(groups, []string{s})
			}
		}
		if len(groups) == 0 {
			return nil
		}
		return groups
	}

	return nil
}
