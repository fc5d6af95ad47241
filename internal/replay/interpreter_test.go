package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rewindhq/rewind/internal/models"
	"github.com/rewindhq/rewind/internal/selector"
)

// fakePage records the interactions dispatched against it.
type fakePage struct {
	nodes      map[string]*selector.Node // descriptor value -> node
	clickErr   error
	setErr     error
	evalResult bool
	evalErr    error
	evalAfter  int // Eval returns true after this many calls

	clicks     []int // click counts per Click call
	hovered    int
	values     []string
	keys       []string
	scrolled   []string
	evalCalls  int
	scrollWins int
}

func newFakePage() *fakePage {
	return &fakePage{nodes: map[string]*selector.Node{}}
}

func (p *fakePage) Find(_ context.Context, d selector.Descriptor) (*selector.Node, error) {
	return p.nodes[d.Value], nil
}

func (p *fakePage) ScrollIntoView(_ context.Context, _ *selector.Node) error { return nil }

func (p *fakePage) Click(_ context.Context, _ *selector.Node, clickCount int) error {
	p.clicks = append(p.clicks, clickCount)
	return p.clickErr
}

func (p *fakePage) Hover(_ context.Context, _ *selector.Node) error {
	p.hovered++
	return nil
}

func (p *fakePage) SetValue(_ context.Context, _ *selector.Node, value string) error {
	p.values = append(p.values, value)
	return p.setErr
}

func (p *fakePage) SendKey(_ context.Context, dir KeyDirection, key string) error {
	p.keys = append(p.keys, string(dir)+":"+key)
	return nil
}

func (p *fakePage) ScrollElement(_ context.Context, _ *selector.Node, x, y float64) error {
	p.scrolled = append(p.scrolled, "element")
	return nil
}

func (p *fakePage) ScrollWindow(_ context.Context, x, y float64) error {
	p.scrollWins++
	return nil
}

func (p *fakePage) Eval(_ context.Context, _ string) (bool, error) {
	p.evalCalls++
	if p.evalErr != nil {
		return false, p.evalErr
	}
	if p.evalAfter > 0 && p.evalCalls < p.evalAfter {
		return false, nil
	}
	return p.evalResult, nil
}

// fast returns a config with short timeouts so failing paths do not stall
// the test run.
func fast() Config {
	return Config{
		StepTimeout: 300 * time.Millisecond,
		SettleDelay: 1 * time.Millisecond,
	}
}

func TestExecuteClick(t *testing.T) {
	page := newFakePage()
	page.nodes["#buy"] = &selector.Node{Ref: "n1"}
	in := NewInterpreter(page, fast(), nil)

	step := models.Step{Index: 0, Kind: models.StepClick, Selectors: [][]string{{"#buy"}}}
	if err := in.Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(page.clicks) != 1 || page.clicks[0] != 1 {
		t.Errorf("expected one single click, got %v", page.clicks)
	}
}

func TestExecuteDoubleClick(t *testing.T) {
	page := newFakePage()
	page.nodes["#item"] = &selector.Node{Ref: "n1"}
	in := NewInterpreter(page, fast(), nil)

	step := models.Step{Kind: models.StepDoubleClick, Selectors: [][]string{{"#item"}}}
	if err := in.Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(page.clicks) != 1 || page.clicks[0] != 2 {
		t.Errorf("expected one double click, got %v", page.clicks)
	}
}

func TestExecuteClickTargetNotFound(t *testing.T) {
	page := newFakePage()
	in := NewInterpreter(page, fast(), nil)

	step := models.Step{Index: 3, Kind: models.StepClick, Selectors: [][]string{{"#missing"}}}
	err := in.Execute(context.Background(), step)

	var failure *StepFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *StepFailure, got %v", err)
	}
	if failure.Kind != FailureTargetNotFound {
		t.Errorf("expected target_not_found, got %s", failure.Kind)
	}
	if failure.StepIndex != 3 {
		t.Errorf("expected step index 3, got %d", failure.StepIndex)
	}
}

func TestExecuteClickActionFailure(t *testing.T) {
	page := newFakePage()
	page.nodes["#buy"] = &selector.Node{Ref: "n1"}
	page.clickErr = errors.New("node detached")
	in := NewInterpreter(page, fast(), nil)

	step := models.Step{Kind: models.StepClick, Selectors: [][]string{{"#buy"}}}
	err := in.Execute(context.Background(), step)

	var failure *StepFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *StepFailure, got %v", err)
	}
	if failure.Kind != FailureAction {
		t.Errorf("expected action_failed, got %s", failure.Kind)
	}
}

func TestExecuteChangeValue(t *testing.T) {
	page := newFakePage()
	page.nodes["input#email"] = &selector.Node{Ref: "n1"}
	in := NewInterpreter(page, fast(), nil)

	step := models.Step{
		Kind:      models.StepChangeValue,
		Selectors: [][]string{{"input#email"}},
		Value:     "a@b.c",
	}
	if err := in.Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(page.values) != 1 || page.values[0] != "a@b.c" {
		t.Errorf("expected value assignment, got %v", page.values)
	}
}

func TestExecuteKeyEvents(t *testing.T) {
	page := newFakePage()
	in := NewInterpreter(page, fast(), nil)

	down := models.Step{Kind: models.StepKeyDown, Key: "Enter"}
	up := models.Step{Kind: models.StepKeyUp, Key: "Enter"}
	if err := in.Execute(context.Background(), down); err != nil {
		t.Fatalf("key down failed: %v", err)
	}
	if err := in.Execute(context.Background(), up); err != nil {
		t.Fatalf("key up failed: %v", err)
	}

	want := []string{"down:Enter", "up:Enter"}
	if len(page.keys) != 2 || page.keys[0] != want[0] || page.keys[1] != want[1] {
		t.Errorf("expected %v, got %v", want, page.keys)
	}
}

func TestExecuteScrollTargetsElementWhenSelectorsPresent(t *testing.T) {
	page := newFakePage()
	page.nodes["#pane"] = &selector.Node{Ref: "n1"}
	in := NewInterpreter(page, fast(), nil)

	withTarget := models.Step{Kind: models.StepScroll, Selectors: [][]string{{"#pane"}}, X: 0, Y: 300}
	if err := in.Execute(context.Background(), withTarget); err != nil {
		t.Fatalf("element scroll failed: %v", err)
	}
	if len(page.scrolled) != 1 {
		t.Errorf("expected element scroll, got %v", page.scrolled)
	}

	windowScroll := models.Step{Kind: models.StepScroll, Y: 500}
	if err := in.Execute(context.Background(), windowScroll); err != nil {
		t.Fatalf("window scroll failed: %v", err)
	}
	if page.scrollWins != 1 {
		t.Errorf("expected window scroll, got %d", page.scrollWins)
	}
}

func TestExecuteHover(t *testing.T) {
	page := newFakePage()
	page.nodes["#menu"] = &selector.Node{Ref: "n1"}
	in := NewInterpreter(page, fast(), nil)

	step := models.Step{Kind: models.StepHover, Selectors: [][]string{{"#menu"}}}
	if err := in.Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if page.hovered != 1 {
		t.Errorf("expected one hover, got %d", page.hovered)
	}
}

func TestExecuteWaitForElement(t *testing.T) {
	page := newFakePage()
	page.nodes["#late"] = &selector.Node{Ref: "n1"}
	in := NewInterpreter(page, fast(), nil)

	step := models.Step{Kind: models.StepWaitForElement, Selectors: [][]string{{"#late"}}}
	if err := in.Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	// Waiting resolves the target but dispatches nothing.
	if len(page.clicks) != 0 || page.hovered != 0 {
		t.Error("wait-for-element must not dispatch input")
	}
}

func TestExecuteWaitForExpressionEventuallyTrue(t *testing.T) {
	page := newFakePage()
	page.evalResult = true
	page.evalAfter = 3
	in := NewInterpreter(page, fast(), nil)

	step := models.Step{Kind: models.StepWaitForExpression, Expression: "window.ready === true"}
	if err := in.Execute(context.Background(), step); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if page.evalCalls < 3 {
		t.Errorf("expected repeated evaluation, got %d calls", page.evalCalls)
	}
}

func TestExecuteWaitForExpressionTimeout(t *testing.T) {
	page := newFakePage()
	in := NewInterpreter(page, fast(), nil)

	step := models.Step{Index: 7, Kind: models.StepWaitForExpression, Expression: "false"}
	err := in.Execute(context.Background(), step)

	var failure *StepFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *StepFailure, got %v", err)
	}
	if failure.Kind != FailureExpressionTimeout {
		t.Errorf("expected expression_timeout, got %s", failure.Kind)
	}
}

func TestExecuteWaitForExpressionEvalErrorsAreRetried(t *testing.T) {
	page := newFakePage()
	page.evalErr = errors.New("ReferenceError: app is not defined")
	in := NewInterpreter(page, fast(), nil)

	step := models.Step{Kind: models.StepWaitForExpression, Expression: "app.ready"}
	err := in.Execute(context.Background(), step)

	// Evaluation errors mean "not yet true": the wait keeps polling and ends
	// in a timeout, not an eval failure.
	var failure *StepFailure
	if !errors.As(err, &failure) || failure.Kind != FailureExpressionTimeout {
		t.Fatalf("expected expression_timeout, got %v", err)
	}
	if page.evalCalls < 2 {
		t.Errorf("expected polling despite eval errors, got %d calls", page.evalCalls)
	}
}

func TestExecuteNoOpKinds(t *testing.T) {
	page := newFakePage()
	in := NewInterpreter(page, fast(), nil)

	for _, kind := range []models.StepKind{models.StepNavigate, models.StepSetViewport, models.StepUnknown} {
		step := models.Step{Kind: kind}
		if err := in.Execute(context.Background(), step); err != nil {
			t.Errorf("%s: expected no-op, got %v", kind, err)
		}
	}
	if len(page.clicks) != 0 || len(page.keys) != 0 {
		t.Error("no-op kinds must not touch the page")
	}
}

func TestExecuteStepTimeoutOverride(t *testing.T) {
	page := newFakePage()
	cfg := fast()
	cfg.StepTimeout = 10 * time.Second // would stall without the override
	in := NewInterpreter(page, cfg, nil)

	step := models.Step{
		Kind:      models.StepWaitForElement,
		Selectors: [][]string{{"#never"}},
		TimeoutMs: 200,
	}

	start := time.Now()
	err := in.Execute(context.Background(), step)
	if err == nil {
		t.Fatal("expected timeout failure")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("step timeout override not honored, took %s", elapsed)
	}
}
